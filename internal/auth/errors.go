package auth

import "errors"

// ErrUnauthorized marks a caller without a valid identity.
var ErrUnauthorized = errors.New("auth: unauthorized")
