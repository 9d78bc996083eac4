package httpapi

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"covoy.app/internal/db"
)

// --- shared query plumbing ---
//
// Every /data handler runs inside the caller's row-security context; access
// control lives in the database policies, not here. Handlers only shape the
// query and the response.

func (a *API) queryRows(ctx context.Context, userID, query string, args ...any) ([]map[string]any, error) {
	var out []map[string]any
	err := a.db.WithUser(ctx, userID, func(ctx context.Context, tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		out, err = db.CollectRows(rows)
		return err
	})
	return out, err
}

// queryRow returns the first row or sql.ErrNoRows.
func (a *API) queryRow(ctx context.Context, userID, query string, args ...any) (map[string]any, error) {
	rows, err := a.queryRows(ctx, userID, query, args...)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, sql.ErrNoRows
	}
	return rows[0], nil
}

// buildUpdate assembles a whitelisted SET clause. Column names come from the
// allowed list only, never from the request, so interpolating them is safe.
// $1 is reserved for the row key.
func buildUpdate(table, keyCol string, body map[string]any, allowed []string) (string, []any, bool) {
	var (
		sets []string
		args []any
		i    = 2
	)
	for _, col := range allowed {
		v, ok := body[col]
		if !ok {
			continue
		}
		sets = append(sets, fmt.Sprintf("%s = $%d", col, i))
		args = append(args, v)
		i++
	}
	if len(sets) == 0 {
		return "", nil, false
	}
	q := fmt.Sprintf("UPDATE public.%s SET %s WHERE %s = $1 RETURNING *", table, strings.Join(sets, ", "), keyCol)
	return q, args, true
}

func (a *API) patchOne(w http.ResponseWriter, r *http.Request, table, keyCol string, key any, allowed []string) {
	var body map[string]any
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	q, args, ok := buildUpdate(table, keyCol, body, allowed)
	if !ok {
		writeError(w, r, http.StatusBadRequest, "No allowed fields to update")
		return
	}
	row, err := a.queryRow(r.Context(), identity(r.Context()).UserID, q, append([]any{key}, args...)...)
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func stringField(body map[string]any, key string) string {
	s, _ := body[key].(string)
	return s
}

func boolOr(body map[string]any, key string, fallback bool) bool {
	if v, ok := body[key].(bool); ok {
		return v
	}
	return fallback
}

func orNil(v any) any {
	if s, ok := v.(string); ok && s == "" {
		return nil
	}
	if v == nil {
		return nil
	}
	return v
}

// --- profiles ---

var profileSelfColumns = []string{
	"full_name", "phone_number", "avatar_url", "university_id_url",
	"verification_submitted_at", "is_verified", "is_blocked", "spin_used", "rewards_enabled",
}

// profileAdminColumns additionally covers the premium fields; row security
// decides whether the caller may touch someone else's row.
var profileAdminColumns = append(append([]string{}, profileSelfColumns...), "is_premium", "subscription_expiry")

func (a *API) handleGetMyProfile(w http.ResponseWriter, r *http.Request) {
	caller := identity(r.Context())
	row, err := a.queryRow(r.Context(), caller.UserID,
		"SELECT * FROM public.profiles WHERE user_id = $1", caller.UserID)
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (a *API) handlePatchMyProfile(w http.ResponseWriter, r *http.Request) {
	a.patchOne(w, r, "profiles", "user_id", identity(r.Context()).UserID, profileSelfColumns)
}

func (a *API) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	row, err := a.queryRow(r.Context(), identity(r.Context()).UserID,
		"SELECT * FROM public.profiles WHERE user_id = $1", chi.URLParam(r, "user_id"))
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (a *API) handlePatchProfile(w http.ResponseWriter, r *http.Request) {
	a.patchOne(w, r, "profiles", "user_id", chi.URLParam(r, "user_id"), profileAdminColumns)
}

func (a *API) handleListProfiles(w http.ResponseWriter, r *http.Request) {
	caller := identity(r.Context())
	if raw := r.URL.Query().Get("ids"); raw != "" {
		var ids []string
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
		if len(ids) > 0 {
			rows, err := a.queryRows(r.Context(), caller.UserID, `
				SELECT user_id, full_name, email, avatar_url, is_verified, is_premium,
				       subscription_expiry, free_connections_left
				FROM public.profiles
				WHERE user_id = ANY($1::uuid[])
			`, "{"+strings.Join(ids, ",")+"}")
			if err != nil {
				a.handleError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, rows)
			return
		}
	}
	rows, err := a.queryRows(r.Context(), caller.UserID,
		"SELECT * FROM public.profiles ORDER BY created_at DESC")
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// --- rides ---

func (a *API) handleListRides(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sb := strings.Builder{}
	sb.WriteString("SELECT * FROM public.rides WHERE 1=1")
	var args []any
	add := func(clause string, v any) {
		args = append(args, v)
		fmt.Fprintf(&sb, " AND %s $%d", clause, len(args))
	}
	if v := q.Get("user_id"); v != "" {
		add("user_id =", v)
	}
	if v := q.Get("from_location"); v != "" {
		add("from_location =", v)
	}
	if v := q.Get("to_location"); v != "" {
		add("to_location =", v)
	}
	if v := q.Get("from_ilike"); v != "" {
		add("from_location ILIKE", "%"+v+"%")
	}
	if v := q.Get("to_ilike"); v != "" {
		add("to_location ILIKE", "%"+v+"%")
	}
	if v := q.Get("ride_date_gte"); v != "" {
		add("ride_date >=", v)
	}
	if v := q.Get("id"); v != "" {
		add("id =", v)
	}
	sb.WriteString(" ORDER BY ride_date ASC, created_at DESC")

	rows, err := a.queryRows(r.Context(), identity(r.Context()).UserID, sb.String(), args...)
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (a *API) handleCreateRide(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if stringField(body, "from_location") == "" || stringField(body, "to_location") == "" ||
		stringField(body, "ride_date") == "" || stringField(body, "ride_time") == "" ||
		body["seats_available"] == nil {
		writeError(w, r, http.StatusBadRequest, "Missing required fields")
		return
	}
	mode := stringField(body, "transport_mode")
	if mode == "" {
		mode = "car"
	}
	caller := identity(r.Context())
	row, err := a.queryRow(r.Context(), caller.UserID, `
		INSERT INTO public.rides
			(user_id, from_location, to_location, from_location_id, to_location_id,
			 ride_date, ride_time, seats_available, transport_mode)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING *
	`, caller.UserID,
		body["from_location"], body["to_location"],
		orNil(body["from_location_id"]), orNil(body["to_location_id"]),
		body["ride_date"], body["ride_time"], body["seats_available"], mode)
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, row)
}

func (a *API) handlePatchRide(w http.ResponseWriter, r *http.Request) {
	a.patchOne(w, r, "rides", "id", chi.URLParam(r, "id"),
		[]string{"from_location", "to_location", "ride_date", "ride_time", "seats_available", "transport_mode"})
}

// --- ride requests ---

func (a *API) handleListRideRequests(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := "SELECT * FROM public.ride_requests WHERE 1=1"
	var args []any
	if v := q.Get("ride_id"); v != "" {
		args = append(args, v)
		query += fmt.Sprintf(" AND ride_id = $%d", len(args))
	}
	if v := q.Get("requester_id"); v != "" {
		args = append(args, v)
		query += fmt.Sprintf(" AND requester_id = $%d", len(args))
	}
	query += " ORDER BY created_at DESC"
	rows, err := a.queryRows(r.Context(), identity(r.Context()).UserID, query, args...)
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (a *API) handleCreateRideRequest(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	status := stringField(body, "status")
	if status == "" {
		status = "pending"
	}
	caller := identity(r.Context())
	row, err := a.queryRow(r.Context(), caller.UserID, `
		INSERT INTO public.ride_requests
			(ride_id, requester_id, status, show_profile_photo, show_mobile_number,
			 requester_show_profile_photo, requester_show_mobile_number)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING *
	`, body["ride_id"], caller.UserID, status,
		boolOr(body, "show_profile_photo", false),
		boolOr(body, "show_mobile_number", false),
		boolOr(body, "requester_show_profile_photo", true),
		boolOr(body, "requester_show_mobile_number", false))
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, row)
}

func (a *API) handlePatchRideRequest(w http.ResponseWriter, r *http.Request) {
	a.patchOne(w, r, "ride_requests", "id", chi.URLParam(r, "id"),
		[]string{"status", "request_payment_status", "accept_payment_status"})
}

// --- connections ---

func (a *API) handleListConnections(w http.ResponseWriter, r *http.Request) {
	caller := identity(r.Context())
	rows, err := a.queryRows(r.Context(), caller.UserID,
		"SELECT * FROM public.connections WHERE user1_id = $1 OR user2_id = $1 ORDER BY created_at DESC",
		caller.UserID)
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (a *API) handleCreateConnection(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	for _, field := range []string{"ride_id", "ride_request_id", "user1_id", "user2_id"} {
		if stringField(body, field) == "" {
			writeError(w, r, http.StatusBadRequest, "ride_id, ride_request_id, user1_id, user2_id required")
			return
		}
	}
	row, err := a.queryRow(r.Context(), identity(r.Context()).UserID, `
		INSERT INTO public.connections (ride_id, ride_request_id, user1_id, user2_id)
		VALUES ($1, $2, $3, $4)
		RETURNING *
	`, body["ride_id"], body["ride_request_id"], body["user1_id"], body["user2_id"])
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, row)
}

// --- chat ---

func (a *API) handleListChatMessages(w http.ResponseWriter, r *http.Request) {
	connectionID := r.URL.Query().Get("connection_id")
	if connectionID == "" {
		writeError(w, r, http.StatusBadRequest, "connection_id required")
		return
	}
	rows, err := a.queryRows(r.Context(), identity(r.Context()).UserID,
		"SELECT * FROM public.chat_messages WHERE connection_id = $1 ORDER BY created_at ASC",
		connectionID)
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (a *API) handleCreateChatMessage(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	connectionID := stringField(body, "connection_id")
	message, hasMessage := body["message"].(string)
	if connectionID == "" || !hasMessage {
		writeError(w, r, http.StatusBadRequest, "connection_id and message required")
		return
	}
	caller := identity(r.Context())
	row, err := a.queryRow(r.Context(), caller.UserID, `
		INSERT INTO public.chat_messages (connection_id, sender_id, message)
		VALUES ($1, $2, $3)
		RETURNING *
	`, connectionID, caller.UserID, a.sanitizer.Sanitize(message))
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, row)
}

func (a *API) handleMarkChatMessageRead(w http.ResponseWriter, r *http.Request) {
	row, err := a.queryRow(r.Context(), identity(r.Context()).UserID,
		"UPDATE public.chat_messages SET read = true WHERE id = $1 RETURNING *",
		chi.URLParam(r, "id"))
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

// --- group chat ---

func (a *API) handleListGroupChatMessages(w http.ResponseWriter, r *http.Request) {
	groupChatID := r.URL.Query().Get("group_chat_id")
	if groupChatID == "" {
		writeError(w, r, http.StatusBadRequest, "group_chat_id required")
		return
	}
	rows, err := a.queryRows(r.Context(), identity(r.Context()).UserID,
		"SELECT * FROM public.group_chat_messages WHERE group_chat_id = $1 ORDER BY created_at ASC",
		groupChatID)
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (a *API) handleCreateGroupChatMessage(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	groupChatID := stringField(body, "group_chat_id")
	message, hasMessage := body["message"].(string)
	if groupChatID == "" || !hasMessage {
		writeError(w, r, http.StatusBadRequest, "group_chat_id and message required")
		return
	}
	caller := identity(r.Context())
	row, err := a.queryRow(r.Context(), caller.UserID, `
		INSERT INTO public.group_chat_messages (group_chat_id, sender_id, message)
		VALUES ($1, $2, $3)
		RETURNING *
	`, groupChatID, caller.UserID, a.sanitizer.Sanitize(message))
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, row)
}

func (a *API) handleListGroupChatMembers(w http.ResponseWriter, r *http.Request) {
	groupChatID := r.URL.Query().Get("group_chat_id")
	if groupChatID == "" {
		writeError(w, r, http.StatusBadRequest, "group_chat_id required")
		return
	}
	rows, err := a.queryRows(r.Context(), identity(r.Context()).UserID,
		"SELECT * FROM public.group_chat_members WHERE group_chat_id = $1", groupChatID)
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// --- notifications ---

func (a *API) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	caller := identity(r.Context())
	rows, err := a.queryRows(r.Context(), caller.UserID,
		"SELECT * FROM public.notifications WHERE user_id = $1 ORDER BY created_at DESC",
		caller.UserID)
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (a *API) handleCreateNotification(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	caller := identity(r.Context())
	target := stringField(body, "user_id")
	if target == "" {
		target = caller.UserID
	}
	kind := stringField(body, "type")
	if kind == "" {
		kind = "info"
	}
	row, err := a.queryRow(r.Context(), caller.UserID, `
		INSERT INTO public.notifications (user_id, title, message, type, ride_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING *
	`, target, stringField(body, "title"), stringField(body, "message"), kind, orNil(body["ride_id"]))
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, row)
}

func (a *API) handleMarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	caller := identity(r.Context())
	row, err := a.queryRow(r.Context(), caller.UserID,
		"UPDATE public.notifications SET read = true WHERE id = $1 AND user_id = $2 RETURNING *",
		chi.URLParam(r, "id"), caller.UserID)
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (a *API) handleMarkAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	caller := identity(r.Context())
	err := a.db.WithUser(r.Context(), caller.UserID, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			"UPDATE public.notifications SET read = true WHERE user_id = $1 AND read = false",
			caller.UserID)
		return err
	})
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// --- roles, reports, locations, ratings, rewards ---

func (a *API) handleListUserRoles(w http.ResponseWriter, r *http.Request) {
	caller := identity(r.Context())
	rows, err := a.queryRows(r.Context(), caller.UserID,
		"SELECT * FROM public.user_roles WHERE user_id = $1", caller.UserID)
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (a *API) handleListUserReports(w http.ResponseWriter, r *http.Request) {
	rows, err := a.queryRows(r.Context(), identity(r.Context()).UserID,
		"SELECT * FROM public.user_reports ORDER BY created_at DESC")
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (a *API) handleCreateUserReport(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if stringField(body, "reported_user_id") == "" || stringField(body, "ride_id") == "" ||
		stringField(body, "reason") == "" {
		writeError(w, r, http.StatusBadRequest, "reported_user_id, ride_id, reason required")
		return
	}
	var description any
	if s := stringField(body, "description"); s != "" {
		description = a.sanitizer.Sanitize(s)
	}
	caller := identity(r.Context())
	row, err := a.queryRow(r.Context(), caller.UserID, `
		INSERT INTO public.user_reports (reporter_id, reported_user_id, ride_id, reason, description)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING *
	`, caller.UserID, body["reported_user_id"], body["ride_id"], body["reason"], description)
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, row)
}

func (a *API) handlePatchUserReport(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	status := stringField(body, "status")
	if status == "" {
		writeError(w, r, http.StatusBadRequest, "status required")
		return
	}
	row, err := a.queryRow(r.Context(), identity(r.Context()).UserID,
		"UPDATE public.user_reports SET status = $1 WHERE id = $2 RETURNING *",
		status, chi.URLParam(r, "id"))
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (a *API) handleListLocations(w http.ResponseWriter, r *http.Request) {
	rows, err := a.queryRows(r.Context(), identity(r.Context()).UserID,
		"SELECT * FROM public.locations ORDER BY category, display_order, name")
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (a *API) handleCreateLocation(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if stringField(body, "name") == "" || stringField(body, "category") == "" {
		writeError(w, r, http.StatusBadRequest, "name and category required")
		return
	}
	city := stringField(body, "city")
	if city == "" {
		city = "Vadodara"
	}
	displayOrder := body["display_order"]
	if displayOrder == nil {
		displayOrder = 0
	}
	row, err := a.queryRow(r.Context(), identity(r.Context()).UserID, `
		INSERT INTO public.locations (name, category, city, display_order, active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING *
	`, body["name"], body["category"], city, displayOrder, boolOr(body, "active", true))
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, row)
}

func (a *API) handlePatchLocation(w http.ResponseWriter, r *http.Request) {
	a.patchOne(w, r, "locations", "id", chi.URLParam(r, "id"),
		[]string{"active", "name", "category", "city", "display_order"})
}

func (a *API) handleListRatings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := "SELECT * FROM public.ratings WHERE 1=1"
	var args []any
	if v := q.Get("rated_user_id"); v != "" {
		args = append(args, v)
		query += fmt.Sprintf(" AND rated_user_id = $%d", len(args))
	}
	if v := q.Get("ride_id"); v != "" {
		args = append(args, v)
		query += fmt.Sprintf(" AND ride_id = $%d", len(args))
	}
	rows, err := a.queryRows(r.Context(), identity(r.Context()).UserID, query, args...)
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (a *API) handleCreateRating(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if stringField(body, "rated_user_id") == "" || stringField(body, "ride_id") == "" ||
		body["rating"] == nil {
		writeError(w, r, http.StatusBadRequest, "rated_user_id, ride_id, rating required")
		return
	}
	var comment any
	if s := stringField(body, "comment"); s != "" {
		comment = a.sanitizer.Sanitize(s)
	}
	caller := identity(r.Context())
	row, err := a.queryRow(r.Context(), caller.UserID, `
		INSERT INTO public.ratings (rater_user_id, rated_user_id, ride_id, rating, comment)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING *
	`, caller.UserID, body["rated_user_id"], body["ride_id"], body["rating"], comment)
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, row)
}

func (a *API) handleListRewardHistory(w http.ResponseWriter, r *http.Request) {
	caller := identity(r.Context())
	rows, err := a.queryRows(r.Context(), caller.UserID,
		"SELECT * FROM public.reward_history WHERE user_id = $1 ORDER BY created_at DESC",
		caller.UserID)
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}
