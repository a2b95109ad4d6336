package model

import "time"

// IdentityKind is the authentication state of a session.
type IdentityKind string

const (
	IdentityAnonymous IdentityKind = ""
	IdentityAdmin     IdentityKind = "admin"
	IdentityRole      IdentityKind = "role"
)

// Identity is who a session is signed in as. Role is only meaningful when
// Kind is IdentityRole; the constructors below are the only way to build
// a non-anonymous identity.
type Identity struct {
	Kind IdentityKind `json:"kind,omitempty"`
	Role Role         `json:"role,omitempty"`
}

// AdminIdentity is the elevated admin identity.
func AdminIdentity() Identity {
	return Identity{Kind: IdentityAdmin}
}

// RoleIdentity is a non-admin role identity. Passing RoleAdmin yields the
// admin identity so the two can never coexist.
func RoleIdentity(r Role) Identity {
	if r == RoleAdmin {
		return AdminIdentity()
	}
	return Identity{Kind: IdentityRole, Role: r}
}

// Normalize drops inconsistent combinations that may arrive from storage.
func (id Identity) Normalize() Identity {
	switch id.Kind {
	case IdentityAdmin:
		return AdminIdentity()
	case IdentityRole:
		if !id.Role.Valid() {
			return Identity{}
		}
		return RoleIdentity(id.Role)
	default:
		return Identity{}
	}
}

// Session is the per-client state carried across requests.
type Session struct {
	ID                string    `json:"id"`
	Identity          Identity  `json:"identity"`
	SelectedInstitute string    `json:"selected_institute,omitempty"`
	Captcha           string    `json:"captcha,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// NewSession returns an empty anonymous session.
func NewSession(id string) *Session {
	return &Session{ID: id, CreatedAt: time.Now().UTC()}
}

// IsAdmin reports whether the session holds the admin identity.
func (s *Session) IsAdmin() bool {
	return s.Identity.Kind == IdentityAdmin
}

// Role returns the non-admin role, if any.
func (s *Session) Role() (Role, bool) {
	if s.Identity.Kind != IdentityRole {
		return "", false
	}
	return s.Identity.Role, true
}

// IsAuthenticated reports whether the session is admin or holds a role.
func (s *Session) IsAuthenticated() bool {
	return s.Identity.Kind == IdentityAdmin || s.Identity.Kind == IdentityRole
}

// SignIn replaces the identity and resets the per-login state.
func (s *Session) SignIn(id Identity) {
	s.Identity = id.Normalize()
	s.SelectedInstitute = ""
	s.Captcha = ""
}

// Clear returns the session to the anonymous state.
func (s *Session) Clear() {
	s.Identity = Identity{}
	s.SelectedInstitute = ""
	s.Captcha = ""
}
