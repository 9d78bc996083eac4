// Package account owns signup, signin and the password-reset flow.
package account

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"covoy.app/internal/auth"
	"covoy.app/internal/db"
	"covoy.app/internal/notify"
	"covoy.app/internal/obs"
)

const (
	resetTokenTTL    = 10 * time.Minute
	maxResetAttempts = 5
)

var otpPattern = regexp.MustCompile(`^\d{6}$`)

var (
	ErrInvalidInput       = errors.New("account: invalid input")
	ErrPasswordTooShort   = errors.New("account: password too short")
	ErrEmailTaken         = errors.New("account: email already registered")
	ErrInvalidCredentials = errors.New("account: invalid email or password")
	ErrResetTokenInvalid  = errors.New("account: invalid or expired reset code")
	ErrTooManyAttempts    = errors.New("account: too many failed attempts")
)

// OTPMismatchError reports a wrong reset code along with how many attempts
// remain before the token locks.
type OTPMismatchError struct {
	Remaining int
}

func (e *OTPMismatchError) Error() string {
	return fmt.Sprintf("account: invalid code, %d attempts remaining", e.Remaining)
}

// ResetRequestedMessage is returned for every reset request, registered email
// or not, so responses cannot be used to enumerate accounts.
const ResetRequestedMessage = "If an account exists with this email, you will receive a password reset code."

// User is the public slice of an account row.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Service implements the credential store against the auth tables. All of its
// statements run unscoped: these flows execute before any identity exists.
type Service struct {
	db     *db.DB
	sender notify.Sender
	now    func() time.Time
}

func NewService(database *db.DB, sender notify.Sender) *Service {
	return &Service{
		db:     database,
		sender: sender,
		now:    time.Now,
	}
}

// SignUp creates the account row and its profile row in one transaction;
// a profile-less account is never observable.
func (s *Service) SignUp(ctx context.Context, email, password, fullName string) (User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	fullName = strings.TrimSpace(fullName)
	if email == "" || password == "" || fullName == "" {
		return User{}, ErrInvalidInput
	}
	if len(password) < auth.MinPasswordLength {
		return User{}, ErrPasswordTooShort
	}

	var existing string
	err := s.db.Unscoped().QueryRowContext(ctx,
		`SELECT id FROM public.auth_users WHERE email = $1`, email).Scan(&existing)
	if err == nil {
		return User{}, ErrEmailTaken
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return User{}, fmt.Errorf("account: lookup email: %w", err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return User{}, err
	}
	id := uuid.NewString()

	tx, err := s.db.Unscoped().BeginTx(ctx, nil)
	if err != nil {
		return User{}, fmt.Errorf("account: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO public.auth_users (id, email, password_hash, email_confirmed_at)
		VALUES ($1, $2, $3, now())
	`, id, email, hash); err != nil {
		return User{}, fmt.Errorf("account: insert user: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO public.profiles (user_id, full_name, email)
		VALUES ($1, $2, $3)
	`, id, fullName, email); err != nil {
		return User{}, fmt.Errorf("account: insert profile: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return User{}, fmt.Errorf("account: commit: %w", err)
	}

	return User{ID: id, Email: email}, nil
}

// SignIn verifies the credentials. Unknown email and wrong password return
// the same error so the response shape never reveals which one it was.
func (s *Service) SignIn(ctx context.Context, email, password string) (User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return User{}, ErrInvalidInput
	}

	var (
		id   string
		hash sql.NullString
	)
	err := s.db.Unscoped().QueryRowContext(ctx,
		`SELECT id, password_hash FROM public.auth_users WHERE email = $1`, email).
		Scan(&id, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, fmt.Errorf("account: lookup email: %w", err)
	}
	if auth.VerifyPassword(hash.String, password) != nil {
		return User{}, ErrInvalidCredentials
	}
	return User{ID: id, Email: email}, nil
}

// RequestPasswordReset issues a one-time code when the email is registered.
// The caller always receives ResetRequestedMessage; delivery failures are
// logged and swallowed.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return ErrInvalidInput
	}

	var id string
	err := s.db.Unscoped().QueryRowContext(ctx,
		`SELECT id FROM public.auth_users WHERE email = $1`, email).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("account: lookup email: %w", err)
	}

	otp, err := generateOTP()
	if err != nil {
		return err
	}
	expiresAt := s.now().Add(resetTokenTTL)

	if _, err := s.db.Unscoped().ExecContext(ctx, `
		UPDATE public.password_reset_tokens SET used = true WHERE email = $1 AND used = false
	`, email); err != nil {
		return fmt.Errorf("account: invalidate tokens: %w", err)
	}
	if _, err := s.db.Unscoped().ExecContext(ctx, `
		INSERT INTO public.password_reset_tokens (email, token_hash, expires_at)
		VALUES ($1, $2, $3)
	`, email, hashOTP(otp), expiresAt); err != nil {
		return fmt.Errorf("account: store token: %w", err)
	}

	msg := notify.Message{
		Recipient: email,
		Subject:   "Reset your password",
		Body:      fmt.Sprintf("<p>Your reset code is: <strong>%s</strong>. It expires in 10 minutes.</p>", otp),
	}
	if err := s.sender.Send(ctx, msg); err != nil {
		obs.Logger().Printf(`{"level":"error","msg":"password reset delivery failed","error":%q}`, err.Error())
	}
	return nil
}

// ConfirmPasswordReset consumes a reset code and updates the password hash.
// Five recorded failures lock the token for good.
func (s *Service) ConfirmPasswordReset(ctx context.Context, email, otp, newPassword string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || otp == "" || newPassword == "" {
		return ErrInvalidInput
	}
	if len(newPassword) < auth.MinPasswordLength {
		return ErrPasswordTooShort
	}
	if !otpPattern.MatchString(otp) {
		return ErrResetTokenInvalid
	}

	var (
		tokenID   string
		attempts  int
		tokenHash string
	)
	err := s.db.Unscoped().QueryRowContext(ctx, `
		SELECT id, attempts, token_hash FROM public.password_reset_tokens
		WHERE email = $1 AND used = false AND expires_at > now()
		ORDER BY created_at DESC LIMIT 1
	`, email).Scan(&tokenID, &attempts, &tokenHash)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrResetTokenInvalid
	}
	if err != nil {
		return fmt.Errorf("account: lookup token: %w", err)
	}

	if attempts >= maxResetAttempts {
		if _, err := s.db.Unscoped().ExecContext(ctx,
			`UPDATE public.password_reset_tokens SET used = true WHERE id = $1`, tokenID); err != nil {
			return fmt.Errorf("account: lock token: %w", err)
		}
		return ErrTooManyAttempts
	}

	if tokenHash != hashOTP(otp) {
		if _, err := s.db.Unscoped().ExecContext(ctx,
			`UPDATE public.password_reset_tokens SET attempts = attempts + 1 WHERE id = $1`, tokenID); err != nil {
			return fmt.Errorf("account: record attempt: %w", err)
		}
		return &OTPMismatchError{Remaining: maxResetAttempts - attempts - 1}
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return err
	}

	tx, err := s.db.Unscoped().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("account: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`UPDATE public.auth_users SET password_hash = $1 WHERE email = $2`, hash, email); err != nil {
		return fmt.Errorf("account: update password: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE public.password_reset_tokens SET used = true WHERE id = $1`, tokenID); err != nil {
		return fmt.Errorf("account: consume token: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("account: commit: %w", err)
	}

	// Opportunistic cleanup of expired tokens; failure is not the caller's
	// problem.
	if _, err := s.db.Unscoped().ExecContext(ctx, `SELECT public.cleanup_expired_reset_tokens()`); err != nil {
		obs.Logger().Printf(`{"level":"warn","msg":"reset token cleanup failed","error":%q}`, err.Error())
	}
	return nil
}

func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("account: generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

func hashOTP(otp string) string {
	sum := sha256.Sum256([]byte(otp))
	return hex.EncodeToString(sum[:])
}
