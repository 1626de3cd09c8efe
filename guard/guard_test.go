package guard_test

import (
	"testing"

	campushub "github.com/campushub/campushub-go"
	"github.com/campushub/campushub-go/guard"
)

func teacherSession() campushub.Session {
	return campushub.Session{
		AccessToken: "tok",
		User:        &campushub.Identity{ID: "u1", Role: campushub.RoleTeacher},
	}
}

func TestAuth_Loading(t *testing.T) {
	d := guard.Auth(campushub.Session{Loading: true}, "/dashboard")
	if d.State != guard.StateLoading {
		t.Errorf("State = %v, want loading", d.State)
	}
	if d.Allowed() {
		t.Error("loading must not render protected content")
	}
}

func TestAuth_Unauthenticated(t *testing.T) {
	d := guard.Auth(campushub.Session{}, "/dashboard/grades")
	if d.State != guard.StateRedirectLogin {
		t.Fatalf("State = %v, want redirect-login", d.State)
	}
	if d.Location != "/login?next=%2Fdashboard%2Fgrades" {
		t.Errorf("Location = %q", d.Location)
	}
}

func TestAuth_NoRequestedLocation(t *testing.T) {
	d := guard.Auth(campushub.Session{}, "")
	if d.Location != "/login" {
		t.Errorf("Location = %q, want bare /login", d.Location)
	}
}

func TestAuth_LoginItself(t *testing.T) {
	// Requesting the login view must not produce /login?next=/login.
	d := guard.Auth(campushub.Session{}, "/login")
	if d.Location != "/login" {
		t.Errorf("Location = %q, want bare /login", d.Location)
	}
}

func TestAuth_Authenticated(t *testing.T) {
	d := guard.Auth(teacherSession(), "/dashboard")
	if !d.Allowed() {
		t.Errorf("State = %v, want allow", d.State)
	}
}

func TestRole_Allowed(t *testing.T) {
	d := guard.Role(teacherSession(), "/grades", campushub.RoleTeacher)
	if !d.Allowed() {
		t.Errorf("State = %v, want allow", d.State)
	}
}

func TestRole_NotAllowed(t *testing.T) {
	d := guard.Role(teacherSession(), "/admin", campushub.RoleSuperAdmin, campushub.RoleSchoolAdmin)
	if d.State != guard.StateRedirectUnauthorized {
		t.Fatalf("State = %v, want redirect-unauthorized", d.State)
	}
	if d.Location != guard.UnauthorizedPath {
		t.Errorf("Location = %q, want %q", d.Location, guard.UnauthorizedPath)
	}
}

func TestRole_NormalizesBothSides(t *testing.T) {
	s := teacherSession()
	s.User.Role = campushub.Role("TEACHER")

	if d := guard.Role(s, "/grades", campushub.Role("Teacher")); !d.Allowed() {
		t.Errorf("State = %v, mixed-case roles should match after normalization", d.State)
	}
}

func TestRole_EmptyAllowedSetAdmitsAnyone(t *testing.T) {
	d := guard.Role(teacherSession(), "/dashboard")
	if !d.Allowed() {
		t.Errorf("State = %v, want allow with no role restriction", d.State)
	}
}

func TestRole_Unauthenticated(t *testing.T) {
	d := guard.Role(campushub.Session{}, "/admin", campushub.RoleSuperAdmin)
	if d.State != guard.StateRedirectLogin {
		t.Errorf("State = %v, missing session outranks missing role", d.State)
	}
}

func TestRole_Loading(t *testing.T) {
	d := guard.Role(campushub.Session{Loading: true}, "/admin", campushub.RoleSuperAdmin)
	if d.State != guard.StateLoading {
		t.Errorf("State = %v, want loading", d.State)
	}
}

func TestRole_AuthenticatedWithoutUser(t *testing.T) {
	s := campushub.Session{AccessToken: "tok"}
	d := guard.Role(s, "/admin", campushub.RoleSuperAdmin)
	if d.State != guard.StateRedirectLogin {
		t.Errorf("State = %v, token without identity cannot pass a role guard", d.State)
	}
}

func TestState_String(t *testing.T) {
	cases := map[guard.State]string{
		guard.StateLoading:              "loading",
		guard.StateRedirectLogin:        "redirect-login",
		guard.StateRedirectUnauthorized: "redirect-unauthorized",
		guard.StateAllow:                "allow",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Errorf("String() = %q, want %q", got, want)
		}
	}
}
