package payments

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"covoy.app/internal/auth"
	"covoy.app/internal/db"
)

const (
	payerID   = "6f1d8f0a-1111-4222-8333-000000000001"
	rideID    = "6f1d8f0a-1111-4222-8333-000000000010"
	requestID = "6f1d8f0a-1111-4222-8333-000000000020"
	secret    = "gateway-secret"
)

func payer() auth.Identity {
	return auth.Identity{UserID: payerID, Email: "a@x.com"}
}

func newBridge(t *testing.T) (*Bridge, sqlmock.Sqlmock) {
	t.Helper()
	sqldb, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = sqldb.Close() })
	return NewBridge(db.New(sqldb), NewClient("key", secret), secret), mock
}

func signedCallback(purpose Purpose) Callback {
	cb := Callback{
		OrderID:   "order_123",
		PaymentID: "pay_456",
		Purpose:   purpose,
		Amount:    99,
	}
	cb.Signature = signCallback(secret, cb.OrderID, cb.PaymentID)
	return cb
}

func TestSignatureDeterministicAndTamperEvident(t *testing.T) {
	a := signCallback(secret, "order_1", "pay_1")
	b := signCallback(secret, "order_1", "pay_1")
	if a != b {
		t.Fatal("same inputs must produce the same digest")
	}
	if signCallback(secret, "order_2", "pay_1") == a {
		t.Fatal("changing the order id must change the digest")
	}
	if signCallback(secret, "order_1", "pay_2") == a {
		t.Fatal("changing the payment id must change the digest")
	}
	if !validSignature(secret, "order_1", "pay_1", a) {
		t.Fatal("genuine signature rejected")
	}
	tampered := []byte(a)
	if tampered[len(tampered)-1] == '0' {
		tampered[len(tampered)-1] = '1'
	} else {
		tampered[len(tampered)-1] = '0'
	}
	if validSignature(secret, "order_1", "pay_1", string(tampered)) {
		t.Fatal("tampered signature accepted")
	}
	if validSignature(secret, "order_1", "pay_1", a[:len(a)-1]) {
		t.Fatal("truncated signature accepted")
	}
}

func TestSettleRejectsBadSignatureWithoutTouchingDatabase(t *testing.T) {
	b, mock := newBridge(t)

	cb := signedCallback(PurposeSubscription)
	cb.Signature = "deadbeef"

	_, err := b.Settle(context.Background(), payer(), cb)
	if !errors.Is(err, ErrVerificationFailed) {
		t.Fatalf("expected ErrVerificationFailed, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("no settlement procedure may run: %v", err)
	}
}

func TestSettleSubscriptionSuccess(t *testing.T) {
	b, mock := newBridge(t)

	expiry := time.Date(2026, 9, 28, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("activate_premium_subscription").
		WithArgs(payerID, "pay_456", "order_123").
		WillReturnRows(sqlmock.NewRows([]string{"success", "error_message", "expiry_date"}).
			AddRow(true, nil, expiry))

	out, err := b.Settle(context.Background(), payer(), signedCallback(PurposeSubscription))
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if out.ExpiryDate != "2026-09-28T00:00:00Z" {
		t.Fatalf("unexpected expiry: %q", out.ExpiryDate)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSettleSubscriptionRejectedSurfacesProcedureMessage(t *testing.T) {
	b, mock := newBridge(t)

	mock.ExpectQuery("activate_premium_subscription").
		WithArgs(payerID, "pay_456", "order_123").
		WillReturnRows(sqlmock.NewRows([]string{"success", "error_message", "expiry_date"}).
			AddRow(false, "payment already consumed", nil))

	_, err := b.Settle(context.Background(), payer(), signedCallback(PurposeSubscription))
	var rej *RejectedError
	if !errors.As(err, &rej) {
		t.Fatalf("expected RejectedError, got %v", err)
	}
	if rej.Message != "payment already consumed" {
		t.Fatalf("unexpected message: %q", rej.Message)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSettleJoinRequestRunsUnderPayerContext(t *testing.T) {
	b, mock := newBridge(t)

	cb := signedCallback(PurposeJoinRequest)
	cb.RideID = rideID

	mock.ExpectBegin()
	mock.ExpectExec("SET LOCAL app.current_user_id").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("create_and_pay_join_request").
		WithArgs(payerID, rideID, "razorpay", true, false, "pay_456").
		WillReturnRows(sqlmock.NewRows([]string{"success", "error_message", "request_id"}).
			AddRow(true, nil, requestID))
	mock.ExpectCommit()

	out, err := b.Settle(context.Background(), payer(), cb)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if out.RequestID != requestID {
		t.Fatalf("unexpected request id: %q", out.RequestID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSettleJoinRequestRejectionStillCommits(t *testing.T) {
	b, mock := newBridge(t)

	cb := signedCallback(PurposeJoinRequest)
	cb.RideID = rideID

	mock.ExpectBegin()
	mock.ExpectExec("SET LOCAL app.current_user_id").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("create_and_pay_join_request").
		WillReturnRows(sqlmock.NewRows([]string{"success", "error_message", "request_id"}).
			AddRow(false, "seat no longer available", nil))
	mock.ExpectCommit()

	_, err := b.Settle(context.Background(), payer(), cb)
	var rej *RejectedError
	if !errors.As(err, &rej) {
		t.Fatalf("expected RejectedError, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("procedure failure record must commit: %v", err)
	}
}

func TestSettleAcceptRequestFatalErrorRollsBack(t *testing.T) {
	b, mock := newBridge(t)

	cb := signedCallback(PurposeAcceptRequest)
	cb.RideRequestID = requestID

	mock.ExpectBegin()
	mock.ExpectExec("SET LOCAL app.current_user_id").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("pay_accept_request").
		WillReturnError(errors.New("deadlock detected"))
	mock.ExpectRollback()

	_, err := b.Settle(context.Background(), payer(), cb)
	if err == nil {
		t.Fatal("expected error")
	}
	var rej *RejectedError
	if errors.As(err, &rej) {
		t.Fatal("a thrown database error is internal, not a rejection")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSettleReplayedCallbackReturnsOriginalOutcome(t *testing.T) {
	b, mock := newBridge(t)

	cb := signedCallback(PurposeAcceptRequest)
	cb.RideRequestID = requestID

	// The procedure dedupes by payment id: both invocations report the same
	// success row and the bridge never tries to dedupe locally.
	for i := 0; i < 2; i++ {
		mock.ExpectBegin()
		mock.ExpectExec("SET LOCAL app.current_user_id").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("pay_accept_request").
			WithArgs(payerID, requestID, "razorpay", "pay_456").
			WillReturnRows(sqlmock.NewRows([]string{"success", "error_message"}).
				AddRow(true, nil))
		mock.ExpectCommit()
	}

	for i := 0; i < 2; i++ {
		if _, err := b.Settle(context.Background(), payer(), cb); err != nil {
			t.Fatalf("settle %d: %v", i, err)
		}
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCreateOrderValidation(t *testing.T) {
	b, _ := newBridge(t)

	if _, err := b.CreateOrder(context.Background(), payer(), 20, PurposeSubscription, ""); !errors.Is(err, ErrAmountTooSmall) {
		t.Fatalf("expected ErrAmountTooSmall, got %v", err)
	}
	if _, err := b.CreateOrder(context.Background(), payer(), 99, "donation", ""); !errors.Is(err, ErrInvalidPurpose) {
		t.Fatalf("expected ErrInvalidPurpose, got %v", err)
	}
}

func TestBuildReceipt(t *testing.T) {
	at := time.UnixMilli(1756339200000)
	got := buildReceipt(PurposeSubscription, payerID, at)
	if !regexp.MustCompile(`^subs_6f1d8f0a_[0-9a-z]+$`).MatchString(got) {
		t.Fatalf("unexpected receipt shape: %q", got)
	}
	if got != buildReceipt(PurposeSubscription, payerID, at) {
		t.Fatal("receipt must be deterministic for identical inputs")
	}
	if len(got) > 40 {
		t.Fatalf("receipt exceeds 40 bytes: %q", got)
	}

	short := buildReceipt(PurposeJoinRequest, "abc", at)
	if !regexp.MustCompile(`^join_abc_[0-9a-z]+$`).MatchString(short) {
		t.Fatalf("unexpected receipt for short id: %q", short)
	}

	var zero sql.NullString
	if rejectionMessage(zero, "fallback") != "fallback" {
		t.Fatal("expected fallback message")
	}
}
