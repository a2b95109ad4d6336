package model

// Role is one of the fixed portal accounts.
type Role string

const (
	RoleAuditor          Role = "auditor"
	RoleAdmin            Role = "admin"
	RoleChancellor       Role = "chancellor"
	RoleViceChancellor   Role = "vice_chancellor"
	RoleDirector         Role = "director"
	RoleIQACCoordinators Role = "iqac_coordinators"
)

// AllRoles lists every account in the order the login form offers them.
var AllRoles = []Role{
	RoleAuditor,
	RoleAdmin,
	RoleChancellor,
	RoleViceChancellor,
	RoleDirector,
	RoleIQACCoordinators,
}

var roleDisplay = map[Role]string{
	RoleAuditor:          "Auditor",
	RoleAdmin:            "Admin",
	RoleChancellor:       "Chancellor",
	RoleViceChancellor:   "Vice Chancellor",
	RoleDirector:         "Director",
	RoleIQACCoordinators: "IQAC Coordinators",
}

// ParseRole returns the Role for a login identifier, or false if unknown.
func ParseRole(s string) (Role, bool) {
	r := Role(s)
	if _, ok := roleDisplay[r]; !ok {
		return "", false
	}
	return r, true
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	_, ok := roleDisplay[r]
	return ok
}

// DisplayName returns the human-readable name, falling back to the identifier.
func (r Role) DisplayName() string {
	if name, ok := roleDisplay[r]; ok {
		return name
	}
	return string(r)
}

// RoleDisplayNames returns a copy of the identifier → display name table.
func RoleDisplayNames() map[string]string {
	out := make(map[string]string, len(roleDisplay))
	for r, name := range roleDisplay {
		out[string(r)] = name
	}
	return out
}
