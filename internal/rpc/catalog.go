// Package rpc exposes the fixed catalogue of server-side SQL functions to
// authenticated callers and dispatches calls through the row-level-security
// transaction runner.
package rpc

// ParamType is the wire type of one procedure parameter. It doubles as the
// PostgreSQL cast attached to the placeholder so the server never sees an
// "unknown" typed argument.
type ParamType string

const (
	TypeUUID    ParamType = "uuid"
	TypeText    ParamType = "text"
	TypeBoolean ParamType = "boolean"
)

// Param couples the body key with the declared type. Keeping name and type in
// one struct means the positional order cannot drift between two lists.
type Param struct {
	Name string
	Type ParamType
}

// Descriptor declares one callable procedure. Slice order is call order.
type Descriptor struct {
	Params []Param
	// CurrentUserFirst marks procedures whose first parameter is the acting
	// user: a missing, blank or malformed value there is replaced with the
	// verified caller id instead of failing the call.
	CurrentUserFirst bool
}

// catalog is the closed set of procedures reachable over /rpc. Adding an
// entry here is the only step needed to expose a new SQL function.
var catalog = map[string]Descriptor{
	"get_public_profile": {
		Params: []Param{{"_user_id", TypeUUID}},
	},
	"get_approved_contact_details": {
		Params: []Param{{"_target_user_id", TypeUUID}, {"_requesting_user_id", TypeUUID}},
	},
	"owner_delete_ride": {
		Params: []Param{{"_user_id", TypeUUID}, {"_ride_id", TypeUUID}},
	},
	"get_user_connections": {
		Params:           []Param{{"_user_id", TypeUUID}},
		CurrentUserFirst: true,
	},
	"admin_force_cancel_ride": {
		Params: []Param{{"_ride_id", TypeUUID}},
	},
	"admin_get_all_rewards": {},
	"admin_mark_reward_delivered": {
		Params: []Param{{"_reward_id", TypeUUID}},
	},
	"admin_toggle_user_rewards": {
		Params: []Param{{"_user_id", TypeUUID}, {"_enabled", TypeBoolean}},
	},
	"admin_gift_premium": {
		Params: []Param{{"_target_user_id", TypeUUID}},
	},
	"admin_remove_premium": {
		Params: []Param{{"_target_user_id", TypeUUID}},
	},
	"get_user_group_chats": {
		Params:           []Param{{"_user_id", TypeUUID}},
		CurrentUserFirst: true,
	},
	"pay_accept_request": {
		Params: []Param{
			{"_user_id", TypeUUID},
			{"_ride_request_id", TypeUUID},
			{"_payment_source", TypeText},
			{"_razorpay_payment_id", TypeText},
		},
	},
	"get_connection_for_request": {
		Params: []Param{{"_ride_request_id", TypeUUID}},
	},
	"get_group_chat_members": {
		Params: []Param{{"_group_chat_id", TypeUUID}},
	},
	"get_spin_progress": {
		Params:           []Param{{"_user_id", TypeUUID}},
		CurrentUserFirst: true,
	},
	"get_user_reward_history": {
		Params:           []Param{{"_user_id", TypeUUID}},
		CurrentUserFirst: true,
	},
	"perform_spin": {
		Params:           []Param{{"_user_id", TypeUUID}},
		CurrentUserFirst: true,
	},
	"get_user_rating": {
		Params:           []Param{{"_user_id", TypeUUID}},
		CurrentUserFirst: true,
	},
	"has_rated_user": {
		Params: []Param{{"_rater_id", TypeUUID}, {"_rated_id", TypeUUID}, {"_ride_id", TypeUUID}},
	},
	"create_and_pay_join_request": {
		Params: []Param{
			{"_requester_id", TypeUUID},
			{"_ride_id", TypeUUID},
			{"_payment_source", TypeText},
			{"_requester_show_profile_photo", TypeBoolean},
			{"_requester_show_mobile_number", TypeBoolean},
			{"_razorpay_payment_id", TypeText},
		},
	},
	"activate_premium_subscription": {
		Params: []Param{
			{"_user_id", TypeUUID},
			{"_razorpay_payment_id", TypeText},
			{"_razorpay_order_id", TypeText},
		},
	},
}

// Lookup returns the descriptor for name.
func Lookup(name string) (Descriptor, bool) {
	d, ok := catalog[name]
	return d, ok
}
