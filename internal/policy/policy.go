package policy

import "fmt"

// Role is the coarse role an upstream gateway assigns to a caller
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Actor is the caller an operation is performed for
type Actor struct {
	ID   string
	Role Role
}

// Anonymous reports whether no identity was supplied
func (a Actor) Anonymous() bool {
	return a.ID == ""
}

// Action names an order operation subject to access control
type Action string

const (
	ActionCreateOrder Action = "order:create"
	ActionReadOrder   Action = "order:read"
	ActionListOrders  Action = "order:list"
	ActionUpdateOrder Action = "order:update"
	ActionDeleteOrder Action = "order:delete"
)

// Decision is the outcome of an access check
type Decision struct {
	Allowed bool
	Reason  string
}

func allow(reason string) Decision { return Decision{Allowed: true, Reason: reason} }
func deny(reason string) Decision  { return Decision{Allowed: false, Reason: reason} }

// Decide checks whether actor may perform action on resources owned by ownerID.
// Admins may do anything; users only act on their own orders.
func Decide(actor Actor, action Action, ownerID string) Decision {
	if actor.Anonymous() {
		return deny("no actor identity supplied")
	}

	switch actor.Role {
	case RoleAdmin:
		return allow("admin")
	case RoleUser:
	default:
		return deny(fmt.Sprintf("unknown role %q", actor.Role))
	}

	switch action {
	case ActionCreateOrder, ActionReadOrder, ActionListOrders, ActionUpdateOrder, ActionDeleteOrder:
		if actor.ID != ownerID {
			return deny(fmt.Sprintf("user %s may not %s for user %s", actor.ID, action, ownerID))
		}
		return allow("owner")
	default:
		return deny(fmt.Sprintf("unknown action %q", action))
	}
}
