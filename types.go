package campushub

import (
	"strings"
	"time"
)

// Role is the dashboard role assigned to a user. Roles are stored and
// compared in normalized (lower-case) form.
type Role string

// Known roles.
const (
	RoleSuperAdmin  Role = "super_admin"
	RoleSchoolAdmin Role = "school_admin"
	RoleAdmin       Role = "admin"
	RoleTeacher     Role = "teacher"
	RoleStudent     Role = "student"
	RoleParent      Role = "parent"
)

// NormalizeRole lower-cases and trims a role string. All role comparisons in
// this module go through normalization, so "Teacher" and "teacher" are the
// same role everywhere.
func NormalizeRole(s string) Role {
	return Role(strings.ToLower(strings.TrimSpace(s)))
}

// Normalize returns the normalized form of the role.
func (r Role) Normalize() Role { return NormalizeRole(string(r)) }

// Valid reports whether the role belongs to the known enumeration.
func (r Role) Valid() bool {
	switch r.Normalize() {
	case RoleSuperAdmin, RoleSchoolAdmin, RoleAdmin, RoleTeacher, RoleStudent, RoleParent:
		return true
	}
	return false
}

// Identity is the user record decoded from the access-token payload.
// It is owned by the session controller; nothing else mutates it.
type Identity struct {
	ID         string
	FirstName  string
	LastName   string
	Email      string
	Role       Role
	SchoolID   string
	SchoolName string
}

// FullName returns "First Last", trimming when either part is empty.
func (i Identity) FullName() string {
	return strings.TrimSpace(i.FirstName + " " + i.LastName)
}

// TokenPair holds the two credentials persisted between runs.
type TokenPair struct {
	Access  string
	Refresh string
}

// Empty reports whether neither token is present.
func (p TokenPair) Empty() bool { return p.Access == "" && p.Refresh == "" }

// Session is the in-memory representation of "who is logged in and with what
// credentials". A Session value is a snapshot; the live state is owned
// exclusively by the session controller.
type Session struct {
	AccessToken  string
	RefreshToken string
	User         *Identity
	Loading      bool
}

// Authenticated reports whether an access token is present. This is the
// single source of truth: protected surfaces must never render when it is
// false.
func (s Session) Authenticated() bool { return s.AccessToken != "" }

// NotificationType categorizes a notification for display purposes.
type NotificationType string

// Known notification types. Unrecognized types fall back to TypeInfo.
const (
	TypeSuccess NotificationType = "success"
	TypeError   NotificationType = "error"
	TypeWarning NotificationType = "warning"
	TypeMessage NotificationType = "message"
	TypeInfo    NotificationType = "info"
)

// Notification is one item in the user's notification feed.
type Notification struct {
	ID        string
	Message   string
	Type      NotificationType
	CreatedAt time.Time
	Read      bool
}

// RegisterInput is the new-account form posted to the public registration
// endpoint. Validation tags are enforced client-side before any request is
// sent.
type RegisterInput struct {
	Username  string `json:"username" validate:"required,min=3"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Role      Role   `json:"role,omitempty"`
	SchoolID  string `json:"school_id,omitempty"`
}

// RegisterResponse is the backend's answer to a registration. Token-bearing
// responses are treated as an implicit login.
type RegisterResponse struct {
	Tokens TokenPair
	User   *Identity
}

// RegisterResult is what the session controller reports back to the caller.
// Field-level validation errors are kept separate from generic failure so
// forms can highlight individual inputs.
type RegisterResult struct {
	OK            bool
	Authenticated bool
	Message       string
	FieldErrors   map[string][]string
}

// ProfilePatch carries the fields of a partial profile update. Nil fields are
// omitted from the request body.
type ProfilePatch struct {
	FirstName  *string `json:"first_name,omitempty"`
	LastName   *string `json:"last_name,omitempty"`
	Email      *string `json:"email,omitempty"`
	SchoolName *string `json:"school_name,omitempty"`
}
