// Package payments bridges the external payment gateway to the three
// idempotent SQL settlement procedures. Per payment attempt the flow is
// Created -> AwaitingCallback -> Verified -> Settled, with VerificationFailed
// and SettlementRejected as the terminal failure states.
package payments

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"covoy.app/internal/auth"
	"covoy.app/internal/db"
)

// Purpose names a recognized paid action.
type Purpose string

const (
	PurposeJoinRequest   Purpose = "join_request"
	PurposeAcceptRequest Purpose = "accept_request"
	PurposeSubscription  Purpose = "subscription"
)

// MinAmount is the smallest accepted order amount in whole rupees.
const MinAmount = 21

const paymentSource = "razorpay"

var (
	ErrAmountTooSmall     = errors.New("payments: amount below minimum")
	ErrInvalidPurpose     = errors.New("payments: invalid payment purpose")
	ErrNotConfigured      = errors.New("payments: gateway is not configured")
	ErrVerificationFailed = errors.New("payments: signature verification failed")
)

// RejectedError carries the business failure a settlement procedure reported.
// It is a client-visible error, not a server fault: the procedure decided the
// payment cannot be applied and has persisted whatever failure record it
// keeps.
type RejectedError struct {
	Message string
}

func (e *RejectedError) Error() string {
	return "payments: settlement rejected: " + e.Message
}

// Bridge wires order creation, callback verification and settlement.
type Bridge struct {
	db        *db.DB
	client    *Client
	keySecret string
	now       func() time.Time
}

func NewBridge(database *db.DB, client *Client, keySecret string) *Bridge {
	return &Bridge{
		db:        database,
		client:    client,
		keySecret: keySecret,
		now:       time.Now,
	}
}

// Order is what the client application needs to open the checkout.
type Order struct {
	OrderID  string `json:"order_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	KeyID    string `json:"key_id"`
}

func validPurpose(p Purpose) bool {
	switch p {
	case PurposeJoinRequest, PurposeAcceptRequest, PurposeSubscription:
		return true
	}
	return false
}

// CreateOrder validates the request and registers the order with the gateway.
// Nothing is persisted locally; the gateway is the source of truth until its
// callback arrives.
func (b *Bridge) CreateOrder(ctx context.Context, identity auth.Identity, amount int64, purpose Purpose, rideRequestID string) (Order, error) {
	if !b.client.Configured() {
		return Order{}, ErrNotConfigured
	}
	if amount < MinAmount {
		return Order{}, ErrAmountTooSmall
	}
	if !validPurpose(purpose) {
		return Order{}, ErrInvalidPurpose
	}

	receipt := buildReceipt(purpose, identity.UserID, b.now())
	orderID, err := b.client.CreateOrder(ctx, amount*100, "INR", receipt, map[string]string{
		"user_id":         identity.UserID,
		"purpose":         string(purpose),
		"ride_request_id": rideRequestID,
	})
	if err != nil {
		return Order{}, err
	}

	return Order{
		OrderID:  orderID,
		Amount:   amount,
		Currency: "INR",
		KeyID:    b.client.KeyID(),
	}, nil
}

// buildReceipt derives a human-legible receipt from purpose, truncated user
// id and a base36 timestamp token, capped at the gateway's 40-byte limit.
// Deterministic inputs keep retries traceable without a side table.
func buildReceipt(purpose Purpose, userID string, at time.Time) string {
	p := string(purpose)
	if len(p) > 4 {
		p = p[:4]
	}
	short := userID
	if len(short) > 8 {
		short = short[:8]
	}
	token := strconv.FormatInt(at.UnixMilli(), 36)
	receipt := p + "_" + short + "_" + token
	if len(receipt) > 40 {
		receipt = receipt[:40]
	}
	return receipt
}

// Callback carries the fields the gateway posts back after checkout.
type Callback struct {
	OrderID   string  `json:"razorpay_order_id"`
	PaymentID string  `json:"razorpay_payment_id"`
	Signature string  `json:"razorpay_signature"`
	Purpose   Purpose `json:"purpose"`
	Amount    int64   `json:"amount"`

	// Purpose-specific identifiers.
	RideID        string `json:"ride_id"`
	RideRequestID string `json:"ride_request_id"`

	RequesterShowProfilePhoto *bool `json:"requester_show_profile_photo"`
	RequesterShowMobileNumber *bool `json:"requester_show_mobile_number"`
}

// Settlement is the purpose-specific successful outcome.
type Settlement struct {
	Message    string `json:"message"`
	ExpiryDate string `json:"expiry_date,omitempty"`
	RequestID  string `json:"request_id,omitempty"`
}

// Settle verifies the callback signature and invokes exactly one settlement
// procedure. Idempotency is the procedures' contract: each dedupes by gateway
// payment id, so a replayed callback returns the original outcome instead of
// applying twice.
func (b *Bridge) Settle(ctx context.Context, identity auth.Identity, cb Callback) (Settlement, error) {
	if b.keySecret == "" {
		return Settlement{}, ErrNotConfigured
	}
	if !validSignature(b.keySecret, cb.OrderID, cb.PaymentID, cb.Signature) {
		return Settlement{}, ErrVerificationFailed
	}

	switch cb.Purpose {
	case PurposeSubscription:
		return b.settleSubscription(ctx, identity, cb)
	case PurposeJoinRequest:
		return b.settleJoinRequest(ctx, identity, cb)
	case PurposeAcceptRequest:
		return b.settleAcceptRequest(ctx, identity, cb)
	}
	return Settlement{}, ErrInvalidPurpose
}

// settleSubscription runs without a bound per-user context: the procedure is
// keyed by the payment ids alone.
func (b *Bridge) settleSubscription(ctx context.Context, identity auth.Identity, cb Callback) (Settlement, error) {
	row := b.db.Unscoped().QueryRowContext(ctx, `
		SELECT success, error_message, expiry_date
		FROM public.activate_premium_subscription($1::uuid, $2::text, $3::text)
	`, identity.UserID, cb.PaymentID, cb.OrderID)

	var (
		success bool
		errMsg  sql.NullString
		expiry  sql.NullTime
	)
	if err := row.Scan(&success, &errMsg, &expiry); err != nil {
		return Settlement{}, fmt.Errorf("payments: activate subscription: %w", err)
	}
	if !success || !expiry.Valid {
		return Settlement{}, &RejectedError{Message: rejectionMessage(errMsg, "Failed to activate subscription")}
	}
	return Settlement{
		Message:    "Premium subscription activated!",
		ExpiryDate: expiry.Time.UTC().Format(time.RFC3339),
	}, nil
}

// settleJoinRequest runs with the payer's context bound so row-level rules
// govern the request row the procedure creates.
func (b *Bridge) settleJoinRequest(ctx context.Context, identity auth.Identity, cb Callback) (Settlement, error) {
	if !db.ValidUserID(strings.TrimSpace(cb.RideID)) {
		return Settlement{}, &RejectedError{Message: "ride_id is required"}
	}
	showPhoto := true
	if cb.RequesterShowProfilePhoto != nil {
		showPhoto = *cb.RequesterShowProfilePhoto
	}
	showMobile := false
	if cb.RequesterShowMobileNumber != nil {
		showMobile = *cb.RequesterShowMobileNumber
	}

	var (
		success   bool
		errMsg    sql.NullString
		requestID sql.NullString
	)
	err := b.db.WithUser(ctx, identity.UserID, func(ctx context.Context, tx *sql.Tx) error {
		return tx.QueryRowContext(ctx, `
			SELECT success, error_message, request_id
			FROM public.create_and_pay_join_request($1::uuid, $2::uuid, $3::text, $4::boolean, $5::boolean, $6::text)
		`, identity.UserID, cb.RideID, paymentSource, showPhoto, showMobile, cb.PaymentID).
			Scan(&success, &errMsg, &requestID)
	})
	if err != nil {
		return Settlement{}, fmt.Errorf("payments: join request: %w", err)
	}
	if !success {
		return Settlement{}, &RejectedError{Message: rejectionMessage(errMsg, "Failed to process payment")}
	}
	return Settlement{
		Message:   "Join request payment successful",
		RequestID: requestID.String,
	}, nil
}

// settleAcceptRequest also runs under the payer's context.
func (b *Bridge) settleAcceptRequest(ctx context.Context, identity auth.Identity, cb Callback) (Settlement, error) {
	if !db.ValidUserID(strings.TrimSpace(cb.RideRequestID)) {
		return Settlement{}, &RejectedError{Message: "ride_request_id is required"}
	}

	var (
		success bool
		errMsg  sql.NullString
	)
	err := b.db.WithUser(ctx, identity.UserID, func(ctx context.Context, tx *sql.Tx) error {
		return tx.QueryRowContext(ctx, `
			SELECT success, error_message
			FROM public.pay_accept_request($1::uuid, $2::uuid, $3::text, $4::text)
		`, identity.UserID, cb.RideRequestID, paymentSource, cb.PaymentID).
			Scan(&success, &errMsg)
	})
	if err != nil {
		return Settlement{}, fmt.Errorf("payments: accept request: %w", err)
	}
	if !success {
		return Settlement{}, &RejectedError{Message: rejectionMessage(errMsg, "Failed to process payment")}
	}
	return Settlement{
		Message: "Request accepted successfully! Chat is now open.",
	}, nil
}

func rejectionMessage(m sql.NullString, fallback string) string {
	if m.Valid && strings.TrimSpace(m.String) != "" {
		return m.String
	}
	return fallback
}
