package rpc

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"covoy.app/internal/auth"
	"covoy.app/internal/db"
)

const (
	callerID = "6f1d8f0a-1111-4222-8333-000000000001"
	otherID  = "6f1d8f0a-1111-4222-8333-000000000002"
)

func caller() auth.Identity {
	return auth.Identity{UserID: callerID, Email: "a@x.com"}
}

func newDispatcher(t *testing.T) (*Dispatcher, sqlmock.Sqlmock) {
	t.Helper()
	sqldb, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = sqldb.Close() })
	return NewDispatcher(db.New(sqldb)), mock
}

func expectScoped(mock sqlmock.Sqlmock, userID string) {
	mock.ExpectBegin()
	mock.ExpectExec("SET LOCAL app.current_user_id").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM public.get_user_connections($1::uuid)")).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"connection_id"}).AddRow("c-1"))
	mock.ExpectCommit()
}

func TestDispatchUnknownProcedure(t *testing.T) {
	d, _ := newDispatcher(t)

	_, err := d.Dispatch(context.Background(), caller(), "no_such_fn", nil)
	if !errors.Is(err, ErrUnknownProcedure) {
		t.Fatalf("expected ErrUnknownProcedure, got %v", err)
	}
}

func TestDispatchSubstitutesCallerForMissingActingUser(t *testing.T) {
	for _, args := range []map[string]any{
		nil,
		{"_user_id": ""},
		{"_user_id": "   "},
		{"_user_id": "not-a-uuid"},
		{"_user_id": 42},
		{"_user_id": " " + otherID + " "}, // padding invalidates, never reaches the query
	} {
		d, mock := newDispatcher(t)
		expectScoped(mock, callerID)

		rows, err := d.Dispatch(context.Background(), caller(), "get_user_connections", args)
		if err != nil {
			t.Fatalf("args %v: %v", args, err)
		}
		if len(rows) != 1 || rows[0]["connection_id"] != "c-1" {
			t.Fatalf("unexpected rows: %v", rows)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Fatalf("args %v: %v", args, err)
		}
	}
}

func TestDispatchKeepsExplicitActingUser(t *testing.T) {
	d, mock := newDispatcher(t)
	expectScoped(mock, otherID)

	_, err := d.Dispatch(context.Background(), caller(), "get_user_connections", map[string]any{
		"_user_id": otherID,
	})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestDispatchNoSubstitutionOutsideSubset(t *testing.T) {
	d, _ := newDispatcher(t)

	// get_public_profile declares _user_id but is not an acting-user
	// procedure: a missing value must fail, not default to the caller.
	_, err := d.Dispatch(context.Background(), caller(), "get_public_profile", nil)
	var ipe *InvalidParamError
	if !errors.As(err, &ipe) {
		t.Fatalf("expected InvalidParamError, got %v", err)
	}
	if ipe.Param != "_user_id" {
		t.Fatalf("unexpected param: %s", ipe.Param)
	}
}

func TestDispatchRejectsMalformedUUIDBeforeDatabase(t *testing.T) {
	d, mock := newDispatcher(t)

	_, err := d.Dispatch(context.Background(), caller(), "owner_delete_ride", map[string]any{
		"_user_id": callerID,
		"_ride_id": "not-a-uuid",
	})
	var ipe *InvalidParamError
	if !errors.As(err, &ipe) {
		t.Fatalf("expected InvalidParamError, got %v", err)
	}
	if ipe.Param != "_ride_id" {
		t.Fatalf("unexpected param: %s", ipe.Param)
	}
	// No Begin/Query expectations were armed: the call must not reach the DB.
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestDispatchRejectsPaddedUUID(t *testing.T) {
	d, mock := newDispatcher(t)

	// A well-formed uuid wrapped in whitespace must fail validation rather
	// than pass padded into a query argument.
	_, err := d.Dispatch(context.Background(), caller(), "owner_delete_ride", map[string]any{
		"_user_id": callerID,
		"_ride_id": " " + otherID + " ",
	})
	var ipe *InvalidParamError
	if !errors.As(err, &ipe) {
		t.Fatalf("expected InvalidParamError, got %v", err)
	}
	if ipe.Param != "_ride_id" {
		t.Fatalf("unexpected param: %s", ipe.Param)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestDispatchSubstitutionOnlyTouchesFirstParam(t *testing.T) {
	d, _ := newDispatcher(t)

	// has_rated_user's later uuid params never default to the caller.
	_, err := d.Dispatch(context.Background(), caller(), "has_rated_user", map[string]any{
		"_rater_id": callerID,
		"_rated_id": otherID,
	})
	var ipe *InvalidParamError
	if !errors.As(err, &ipe) {
		t.Fatalf("expected InvalidParamError, got %v", err)
	}
	if ipe.Param != "_ride_id" {
		t.Fatalf("unexpected param: %s", ipe.Param)
	}
}

func TestDispatchMixedTypes(t *testing.T) {
	d, mock := newDispatcher(t)

	mock.ExpectBegin()
	mock.ExpectExec("SET LOCAL app.current_user_id").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM public.admin_toggle_user_rewards($1::uuid, $2::boolean)")).
		WithArgs(otherID, true).
		WillReturnRows(sqlmock.NewRows([]string{"ok"}).AddRow(true))
	mock.ExpectCommit()

	_, err := d.Dispatch(context.Background(), caller(), "admin_toggle_user_rewards", map[string]any{
		"_user_id": otherID,
		"_enabled": true,
	})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCatalogActingUserProceduresDeclareUserIDFirst(t *testing.T) {
	for name, desc := range catalog {
		if !desc.CurrentUserFirst {
			continue
		}
		if len(desc.Params) == 0 || desc.Params[0].Name != "_user_id" || desc.Params[0].Type != TypeUUID {
			t.Fatalf("%s: acting-user procedures must declare _user_id uuid first", name)
		}
	}
}
