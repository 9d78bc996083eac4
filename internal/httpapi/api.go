// Package httpapi is the HTTP layer: routing, authentication middleware and
// the request/response mapping for every resource.
package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/microcosm-cc/bluemonday"

	"covoy.app/internal/account"
	"covoy.app/internal/audit"
	"covoy.app/internal/auth"
	"covoy.app/internal/db"
	"covoy.app/internal/obs"
	"covoy.app/internal/payments"
	"covoy.app/internal/rpc"
	"covoy.app/internal/upload"
)

// Config carries the wired dependencies for the HTTP layer.
type Config struct {
	DB         *db.DB
	Accounts   *account.Service
	Dispatcher *rpc.Dispatcher
	Payments   *payments.Bridge
	Uploads    *upload.Store
	Version    string
	// FounderEmail may bootstrap itself into the admin role.
	FounderEmail string
}

// API is the HTTP layer.
type API struct {
	router       chi.Router
	db           *db.DB
	accounts     *account.Service
	rpc          *rpc.Dispatcher
	payments     *payments.Bridge
	uploads      *upload.Store
	sanitizer    *bluemonday.Policy
	version      string
	founderEmail string
}

func New(cfg Config) *API {
	a := &API{
		router:       chi.NewRouter(),
		db:           cfg.DB,
		accounts:     cfg.Accounts,
		rpc:          cfg.Dispatcher,
		payments:     cfg.Payments,
		uploads:      cfg.Uploads,
		sanitizer:    bluemonday.StrictPolicy(),
		version:      cfg.Version,
		founderEmail: cfg.FounderEmail,
	}
	a.routes()
	return a
}

func (a *API) routes() {
	r := a.router

	r.Use(RequestID)
	r.Use(LoggingJSON)
	r.Use(SecurityHeaders)
	r.Use(CORS)
	r.Use(MaxBodyBytes(12 << 20))

	r.Get("/healthz", a.healthz)
	r.Get("/readyz", a.readyz)
	r.Method(http.MethodGet, "/metrics", obs.Handler())

	if a.uploads != nil {
		fs := http.StripPrefix("/uploads/", http.FileServer(http.Dir(a.uploads.Root())))
		r.Get("/uploads/*", fs.ServeHTTP)
	}

	r.Route("/auth", func(r chi.Router) {
		r.Use(RateLimit(5, 2))
		r.Post("/signup", a.handleSignUp)
		r.Post("/signin", a.handleSignIn)
		r.Post("/request-password-reset", a.handleRequestPasswordReset)
		r.Post("/verify-reset-token", a.handleVerifyResetToken)
		r.With(a.requireAuth).Post("/admin/ensure-admin", a.handleEnsureAdmin)
	})

	r.Group(func(r chi.Router) {
		r.Use(a.requireAuth)
		r.Use(RateLimit(30, 10))

		r.Post("/rpc/{name}", a.handleRPC)

		r.Route("/payments", func(r chi.Router) {
			r.Post("/create-order", a.handleCreateOrder)
			r.Post("/verify", a.handleVerifyPayment)
		})

		r.Route("/upload", func(r chi.Router) {
			r.Post("/avatar", a.handleUploadAvatar)
			r.Post("/university-id", a.handleUploadUniversityID)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Post("/set-25-rides-unlock-spin", a.handleUnlockSpin)
			r.Get("/signed-id-url", a.handleSignedIDURL)
		})

		r.Route("/data", func(r chi.Router) {
			r.Get("/profiles/me", a.handleGetMyProfile)
			r.Patch("/profiles/me", a.handlePatchMyProfile)
			r.Get("/profiles", a.handleListProfiles)
			r.Get("/profiles/{user_id}", a.handleGetProfile)
			r.Patch("/profiles/{user_id}", a.handlePatchProfile)

			r.Get("/rides", a.handleListRides)
			r.Post("/rides", a.handleCreateRide)
			r.Patch("/rides/{id}", a.handlePatchRide)

			r.Get("/ride_requests", a.handleListRideRequests)
			r.Post("/ride_requests", a.handleCreateRideRequest)
			r.Patch("/ride_requests/{id}", a.handlePatchRideRequest)

			r.Get("/connections", a.handleListConnections)
			r.Post("/connections", a.handleCreateConnection)

			r.Get("/chat_messages", a.handleListChatMessages)
			r.Post("/chat_messages", a.handleCreateChatMessage)
			r.Patch("/chat_messages/{id}", a.handleMarkChatMessageRead)

			r.Get("/group_chat_messages", a.handleListGroupChatMessages)
			r.Post("/group_chat_messages", a.handleCreateGroupChatMessage)
			r.Get("/group_chat_members", a.handleListGroupChatMembers)

			r.Get("/notifications", a.handleListNotifications)
			r.Post("/notifications", a.handleCreateNotification)
			r.Patch("/notifications/read-all", a.handleMarkAllNotificationsRead)
			r.Patch("/notifications/{id}", a.handleMarkNotificationRead)

			r.Get("/user_roles", a.handleListUserRoles)

			r.Get("/user_reports", a.handleListUserReports)
			r.Post("/user_reports", a.handleCreateUserReport)
			r.Patch("/user_reports/{id}", a.handlePatchUserReport)

			r.Get("/locations", a.handleListLocations)
			r.Post("/locations", a.handleCreateLocation)
			r.Patch("/locations/{id}", a.handlePatchLocation)

			r.Get("/ratings", a.handleListRatings)
			r.Post("/ratings", a.handleCreateRating)

			r.Get("/reward_history", a.handleListRewardHistory)
		})
	})
}

// Handler returns the instrumented root handler.
func (a *API) Handler() http.Handler {
	return obs.Instrument(a.router)
}

func (a *API) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "covoy-api",
		"version": a.version,
	})
}

func (a *API) readyz(w http.ResponseWriter, r *http.Request) {
	if a.db != nil {
		if err := a.db.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"status": "not_ready",
				"error":  err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := audit.RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

// handleError maps internal failures onto the uniform error body. Internal
// detail goes to the log; the caller sees a minimal message.
func (a *API) handleError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		invalidParam *rpc.InvalidParamError
		rejected     *payments.RejectedError
		otpMismatch  *account.OTPMismatchError
	)
	switch {
	case errors.Is(err, account.ErrInvalidCredentials):
		writeError(w, r, http.StatusUnauthorized, "Invalid email or password")
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrUnauthorized):
		writeError(w, r, http.StatusUnauthorized, "Unauthorized")
	case errors.Is(err, account.ErrEmailTaken):
		writeError(w, r, http.StatusBadRequest, "This email is already registered")
	case errors.Is(err, account.ErrPasswordTooShort):
		writeError(w, r, http.StatusBadRequest, "Password must be at least 6 characters")
	case errors.Is(err, account.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, "Missing required fields")
	case errors.Is(err, account.ErrResetTokenInvalid):
		writeError(w, r, http.StatusBadRequest, "Invalid or expired reset code. Please request a new one.")
	case errors.Is(err, account.ErrTooManyAttempts):
		writeError(w, r, http.StatusBadRequest, "Too many failed attempts. Please request a new reset code.")
	case errors.As(err, &otpMismatch):
		writeError(w, r, http.StatusBadRequest, otpMismatchMessage(otpMismatch.Remaining))
	case errors.Is(err, rpc.ErrUnknownProcedure):
		writeError(w, r, http.StatusNotFound, err.Error())
	case errors.As(err, &invalidParam):
		writeError(w, r, http.StatusBadRequest, "Invalid or missing UUID for parameter "+invalidParam.Param)
	case errors.Is(err, db.ErrInvalidIdentity):
		writeError(w, r, http.StatusBadRequest, "Invalid user id")
	case errors.Is(err, payments.ErrVerificationFailed):
		writeError(w, r, http.StatusBadRequest, "Payment verification failed")
	case errors.Is(err, payments.ErrAmountTooSmall):
		writeError(w, r, http.StatusBadRequest, "Minimum amount is ₹21")
	case errors.Is(err, payments.ErrInvalidPurpose):
		writeError(w, r, http.StatusBadRequest, "Invalid payment purpose")
	case errors.As(err, &rejected):
		writeError(w, r, http.StatusBadRequest, rejected.Message)
	case errors.Is(err, payments.ErrNotConfigured):
		a.logInternal(r, err)
		writeError(w, r, http.StatusInternalServerError, "Payment not configured")
	case errors.Is(err, payments.ErrGateway):
		a.logInternal(r, err)
		writeError(w, r, http.StatusInternalServerError, "Failed to create order")
	case errors.Is(err, sql.ErrNoRows):
		writeError(w, r, http.StatusNotFound, "Not found")
	default:
		a.logInternal(r, err)
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

func (a *API) logInternal(r *http.Request, err error) {
	obs.LogRequest(map[string]any{
		"ts":         time.Now().UTC().Format(time.RFC3339Nano),
		"level":      "error",
		"msg":        "request_failed",
		"method":     r.Method,
		"path":       r.URL.Path,
		"request_id": audit.RequestIDFromContext(r.Context()),
		"error":      err.Error(),
	})
}

func otpMismatchMessage(remaining int) string {
	if remaining == 1 {
		return "Invalid code. 1 attempt remaining."
	}
	return "Invalid code. " + strconv.Itoa(remaining) + " attempts remaining."
}

// identity returns the verified caller, guaranteed present behind requireAuth.
func identity(ctx context.Context) auth.Identity {
	id, _ := auth.IdentityFromContext(ctx)
	return id
}
