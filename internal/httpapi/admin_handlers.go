package httpapi

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"regexp"
	"strings"

	"covoy.app/internal/audit"
	"covoy.app/internal/upload"
)

// idFilePattern matches "<owner-uuid>/<filename>" with no further path
// segments, so a crafted path cannot escape the university-ids tree.
var idFilePattern = regexp.MustCompile(`(?i)^([a-f0-9-]{36})/[^/]+$`)

// isAdmin checks the role table outside any user scope. Role membership
// gates admin endpoints before any scoped work happens.
func (a *API) isAdmin(ctx context.Context, userID string) (bool, error) {
	var one int
	err := a.db.Unscoped().QueryRowContext(ctx,
		"SELECT 1 FROM public.user_roles WHERE user_id = $1 AND role = 'admin'",
		userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// handleUnlockSpin force-sets a user to the 25-connection milestone and arms
// the reward spin, for support interventions.
func (a *API) handleUnlockSpin(w http.ResponseWriter, r *http.Request) {
	caller := identity(r.Context())
	admin, err := a.isAdmin(r.Context(), caller.UserID)
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	if !admin {
		writeError(w, r, http.StatusForbidden, "Forbidden: admin only")
		return
	}

	var req struct {
		UserID string `json:"user_id"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.UserID == "" {
		writeError(w, r, http.StatusBadRequest, "user_id required")
		return
	}

	var updated string
	err = a.db.Unscoped().QueryRowContext(r.Context(), `
		UPDATE public.profiles
		SET total_connections = 25, spin_used = false, rewards_enabled = true
		WHERE user_id = $1
		RETURNING user_id
	`, req.UserID).Scan(&updated)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, r, http.StatusNotFound, "User profile not found")
		return
	}
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "spin_unlocked", map[string]any{"target_user_id": updated})
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user_id": updated,
		"message": "25 rides set; spin unlocked",
	})
}

// handleSignedIDURL resolves a university-id file path to its public URL.
// Admins may fetch any file; everyone else only their own.
func (a *API) handleSignedIDURL(w http.ResponseWriter, r *http.Request) {
	filePath := r.URL.Query().Get("path")
	if filePath == "" {
		writeError(w, r, http.StatusBadRequest, "File path is required")
		return
	}
	m := idFilePattern.FindStringSubmatch(filePath)
	if m == nil {
		writeError(w, r, http.StatusBadRequest, "Invalid file path format")
		return
	}
	ownerID := m[1]

	caller := identity(r.Context())
	if !strings.EqualFold(caller.UserID, ownerID) {
		admin, err := a.isAdmin(r.Context(), caller.UserID)
		if err != nil {
			a.handleError(w, r, err)
			return
		}
		if !admin {
			writeError(w, r, http.StatusForbidden, "Forbidden")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"signedUrl": a.uploads.URL(upload.KindUniversityID, filePath),
	})
}
