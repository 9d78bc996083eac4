package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// handleRPC executes one catalogued procedure under the caller's identity.
// The body is a JSON object of named arguments; the response is the row set.
func (a *API) handleRPC(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	args := map[string]any{}
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &args); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
	}
	rows, err := a.rpc.Dispatch(r.Context(), identity(r.Context()), name, args)
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	if rows == nil {
		rows = []map[string]any{}
	}
	writeJSON(w, http.StatusOK, rows)
}
