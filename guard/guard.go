// Package guard provides the route-guard decision functions.
//
// Guards are pure: they take a Session snapshot and return a Decision, and
// the caller (a router, middleware, or view layer) performs the actual
// redirect or render. Role comparison is normalized on both sides, so a
// token carrying "Teacher" passes a route allowing "teacher".
package guard

import (
	"net/url"

	campushub "github.com/campushub/campushub-go"
)

// Redirect targets.
const (
	LoginPath        = "/login"
	UnauthorizedPath = "/unauthorized"
)

// State is the outcome of a guard check.
type State int

const (
	// StateLoading means the session is still hydrating; suspend rendering.
	StateLoading State = iota

	// StateRedirectLogin means no session is present; go to the login view.
	StateRedirectLogin

	// StateRedirectUnauthorized means the session's role is not allowed here.
	StateRedirectUnauthorized

	// StateAllow means the protected content may render.
	StateAllow
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateRedirectLogin:
		return "redirect-login"
	case StateRedirectUnauthorized:
		return "redirect-unauthorized"
	case StateAllow:
		return "allow"
	default:
		return "unknown"
	}
}

// Decision is a guard outcome plus, for redirects, where to go.
type Decision struct {
	State    State
	Location string
}

// Allowed reports whether the protected content may render.
func (d Decision) Allowed() bool { return d.State == StateAllow }

// Auth is the presence guard: loading suspends, an absent session redirects
// to the login view (preserving the originally requested location so the
// login flow can return there), an authenticated session renders.
func Auth(s campushub.Session, requested string) Decision {
	if s.Loading {
		return Decision{State: StateLoading}
	}
	if !s.Authenticated() {
		return Decision{State: StateRedirectLogin, Location: loginLocation(requested)}
	}
	return Decision{State: StateAllow}
}

// Role is the role guard: like Auth, but additionally requires the session
// user's role to be in the allowed set. An empty allowed set admits any
// authenticated user. Both sides of the comparison are normalized.
func Role(s campushub.Session, requested string, allowed ...campushub.Role) Decision {
	if s.Loading {
		return Decision{State: StateLoading}
	}
	if !s.Authenticated() || s.User == nil {
		return Decision{State: StateRedirectLogin, Location: loginLocation(requested)}
	}
	if len(allowed) == 0 {
		return Decision{State: StateAllow}
	}

	have := s.User.Role.Normalize()
	for _, r := range allowed {
		if r.Normalize() == have {
			return Decision{State: StateAllow}
		}
	}
	return Decision{State: StateRedirectUnauthorized, Location: UnauthorizedPath}
}

func loginLocation(requested string) string {
	if requested == "" || requested == LoginPath {
		return LoginPath
	}
	return LoginPath + "?next=" + url.QueryEscape(requested)
}
