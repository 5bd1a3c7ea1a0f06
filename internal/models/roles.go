package models

// Capability names a single permitted action. Route handlers declare the
// capability they require and the boundary checks it once.
type Capability string

const (
	CapQuote           Capability = "quote"
	CapBook            Capability = "book"
	CapCancel          Capability = "cancel"
	CapReadAll         Capability = "read_all"
	CapManageInventory Capability = "manage_inventory"
	CapOverridePolicy  Capability = "override_policy"
)

// Role is the closed set of caller roles. Each role carries an explicit
// capability set instead of ad hoc string comparisons in handlers.
type Role string

const (
	RoleGuest Role = "guest"
	RoleStaff Role = "staff"
	RoleAdmin Role = "admin"
)

var roleCapabilities = map[Role]map[Capability]struct{}{
	RoleGuest: {
		CapQuote:  {},
		CapBook:   {},
		CapCancel: {},
	},
	RoleStaff: {
		CapQuote:          {},
		CapBook:           {},
		CapCancel:         {},
		CapReadAll:        {},
		CapOverridePolicy: {},
	},
	RoleAdmin: {
		CapQuote:           {},
		CapBook:            {},
		CapCancel:          {},
		CapReadAll:         {},
		CapOverridePolicy:  {},
		CapManageInventory: {},
	},
}

// ParseRole validates a raw role string; unknown roles map to guest.
func ParseRole(raw string) Role {
	r := Role(raw)
	if _, ok := roleCapabilities[r]; ok {
		return r
	}
	return RoleGuest
}

// Can reports whether the role carries the capability.
func (r Role) Can(c Capability) bool {
	caps, ok := roleCapabilities[r]
	if !ok {
		return false
	}
	_, ok = caps[c]
	return ok
}
