package httpapi

import (
	"net/http"
	"strings"

	"covoy.app/internal/account"
	"covoy.app/internal/audit"
	"covoy.app/internal/auth"
)

type signUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token string      `json:"token"`
	User  sessionUser `json:"user"`
}

type sessionUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func (a *API) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	user, err := a.accounts.SignUp(r.Context(), req.Email, req.Password, req.FullName)
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	token, err := auth.GenerateToken(user.ID, user.Email, auth.TokenTTL)
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "user_signed_up", map[string]any{"user_id": user.ID})
	writeJSON(w, http.StatusOK, sessionResponse{
		Token: token,
		User:  sessionUser{ID: user.ID, Email: user.Email},
	})
}

func (a *API) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	user, err := a.accounts.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	token, err := auth.GenerateToken(user.ID, user.Email, auth.TokenTTL)
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{
		Token: token,
		User:  sessionUser{ID: user.ID, Email: user.Email},
	})
}

func (a *API) handleRequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.accounts.RequestPasswordReset(r.Context(), req.Email); err != nil {
		a.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": account.ResetRequestedMessage,
	})
}

func (a *API) handleVerifyResetToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email       string `json:"email"`
		OTP         string `json:"otp"`
		NewPassword string `json:"newPassword"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.accounts.ConfirmPasswordReset(r.Context(), req.Email, req.OTP, req.NewPassword); err != nil {
		a.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Password has been reset successfully. You can now sign in with your new password.",
	})
}

// handleEnsureAdmin grants the admin role to the configured founder account.
// The insert runs unscoped: the very first grant happens before any admin row
// exists, so a scoped write could never succeed.
func (a *API) handleEnsureAdmin(w http.ResponseWriter, r *http.Request) {
	caller := identity(r.Context())
	if a.founderEmail == "" || !strings.EqualFold(caller.Email, a.founderEmail) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "isAdmin": false})
		return
	}
	_, err := a.db.Unscoped().ExecContext(r.Context(), `
		INSERT INTO public.user_roles (user_id, role)
		VALUES ($1, 'admin')
		ON CONFLICT (user_id, role) DO NOTHING
	`, caller.UserID)
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "admin_role_granted", map[string]any{"user_id": caller.UserID})
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "isAdmin": true})
}
