package rpc

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"covoy.app/internal/auth"
	"covoy.app/internal/db"
)

// ErrUnknownProcedure is returned for names outside the catalogue.
var ErrUnknownProcedure = errors.New("rpc: unknown procedure")

// InvalidParamError reports which declared identifier parameter failed the
// UUID check. It is raised before any database round-trip.
type InvalidParamError struct {
	Param string
}

func (e *InvalidParamError) Error() string {
	return fmt.Sprintf("rpc: invalid or missing UUID for parameter %s", e.Param)
}

// Dispatcher invokes catalogued procedures through the transaction runner.
type Dispatcher struct {
	db *db.DB
}

func NewDispatcher(database *db.DB) *Dispatcher {
	return &Dispatcher{db: database}
}

// Dispatch looks up name, binds args positionally per the descriptor,
// substitutes the caller for a missing acting-user parameter where the
// descriptor allows it, validates every identifier-typed value and runs the
// procedure with the caller's row-level-security context bound. Result rows
// are returned verbatim.
func (d *Dispatcher) Dispatch(ctx context.Context, caller auth.Identity, name string, args map[string]any) ([]map[string]any, error) {
	desc, ok := Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProcedure, name)
	}

	values := make([]any, len(desc.Params))
	for i, p := range desc.Params {
		values[i] = args[p.Name] // missing keys stay nil here
	}

	if desc.CurrentUserFirst && len(desc.Params) > 0 && caller.UserID != "" {
		if !isValidUUIDValue(values[0]) {
			values[0] = caller.UserID
		}
	}

	for i, p := range desc.Params {
		if p.Type != TypeUUID {
			continue
		}
		if !isValidUUIDValue(values[i]) {
			return nil, &InvalidParamError{Param: p.Name}
		}
	}

	query := buildQuery(name, desc)

	var result []map[string]any
	err := d.db.WithUser(ctx, caller.UserID, func(ctx context.Context, tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, query, values...)
		if err != nil {
			return err
		}
		defer rows.Close()
		result, err = db.CollectRows(rows)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func buildQuery(name string, desc Descriptor) string {
	placeholders := make([]string, len(desc.Params))
	for i, p := range desc.Params {
		placeholders[i] = fmt.Sprintf("$%d::%s", i+1, p.Type)
	}
	return fmt.Sprintf("SELECT * FROM public.%s(%s)", name, strings.Join(placeholders, ", "))
}

// isValidUUIDValue checks the raw value: padding or stray whitespace fails,
// so exactly what was validated is what reaches the query arguments.
func isValidUUIDValue(v any) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	return db.ValidUserID(s)
}
