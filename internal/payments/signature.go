package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// signCallback computes the gateway callback signature:
// hex(HMAC-SHA256(secret, orderID + "|" + paymentID)).
func signCallback(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// validSignature compares the caller-supplied signature against a fresh
// computation in constant time. This is the sole authenticity gate for
// payment callbacks.
func validSignature(secret, orderID, paymentID, signature string) bool {
	expected := signCallback(secret, orderID, paymentID)
	return hmac.Equal([]byte(expected), []byte(signature))
}
