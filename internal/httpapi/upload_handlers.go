package httpapi

import (
	"context"
	"database/sql"
	"errors"
	"net/http"

	"covoy.app/internal/upload"
)

// handleUploadAvatar stores the uploaded image and persists its public URL on
// the caller's profile.
func (a *API) handleUploadAvatar(w http.ResponseWriter, r *http.Request) {
	a.saveUpload(w, r, upload.KindAvatar,
		"UPDATE public.profiles SET avatar_url = $1 WHERE user_id = $2")
}

// handleUploadUniversityID additionally stamps the verification submission
// time, which drives the manual review queue.
func (a *API) handleUploadUniversityID(w http.ResponseWriter, r *http.Request) {
	a.saveUpload(w, r, upload.KindUniversityID,
		"UPDATE public.profiles SET university_id_url = $1, verification_submitted_at = now() WHERE user_id = $2")
}

func (a *API) saveUpload(w http.ResponseWriter, r *http.Request, kind upload.Kind, update string) {
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()

	caller := identity(r.Context())
	url, err := a.uploads.Save(kind, caller.UserID, header.Filename, file)
	if err != nil {
		if errors.Is(err, upload.ErrEmptyFile) {
			writeError(w, r, http.StatusBadRequest, "No file uploaded")
			return
		}
		a.handleError(w, r, err)
		return
	}

	err = a.db.WithUser(r.Context(), caller.UserID, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, update, url, caller.UserID)
		return err
	})
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"url": url})
}
