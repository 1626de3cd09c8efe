package ginmw_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	campushub "github.com/campushub/campushub-go"
	"github.com/campushub/campushub-go/middleware/ginmw"
	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubSource implements ginmw.SessionSource.
type stubSource struct{ session campushub.Session }

func (s stubSource) Current() campushub.Session { return s.session }

func teacherSource() stubSource {
	return stubSource{session: campushub.Session{
		AccessToken: "tok",
		User:        &campushub.Identity{ID: "u1", FirstName: "Grace", Role: campushub.RoleTeacher},
	}}
}

func perform(router *gin.Engine, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	router.ServeHTTP(w, req)
	return w
}

func TestRequireSession_Allows(t *testing.T) {
	router := gin.New()
	router.GET("/dashboard", ginmw.RequireSession(teacherSource()), func(c *gin.Context) {
		id := ginmw.GetIdentity(c)
		if id == nil || id.ID != "u1" {
			t.Errorf("GetIdentity = %+v", id)
		}
		if got := ginmw.GetRole(c); got != campushub.RoleTeacher {
			t.Errorf("GetRole = %q", got)
		}
		c.Status(http.StatusOK)
	})

	w := perform(router, "/dashboard")
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestRequireSession_Unauthenticated(t *testing.T) {
	router := gin.New()
	router.GET("/dashboard", ginmw.RequireSession(stubSource{}), func(c *gin.Context) {
		t.Error("handler must not run")
	})

	w := perform(router, "/dashboard")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestRequireSession_RedirectMode(t *testing.T) {
	router := gin.New()
	router.GET("/dashboard", ginmw.RequireSession(stubSource{}, ginmw.WithRedirects()), func(c *gin.Context) {
		t.Error("handler must not run")
	})

	w := perform(router, "/dashboard?tab=grades")
	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/login?next=%2Fdashboard%3Ftab%3Dgrades" {
		t.Errorf("Location = %q", loc)
	}
}

func TestRequireSession_Loading(t *testing.T) {
	src := stubSource{session: campushub.Session{Loading: true}}
	router := gin.New()
	router.GET("/dashboard", ginmw.RequireSession(src), func(c *gin.Context) {
		t.Error("handler must not run")
	})

	w := perform(router, "/dashboard")
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

func TestRequireRoles_Allows(t *testing.T) {
	router := gin.New()
	router.GET("/grades", ginmw.RequireRoles(teacherSource(), []campushub.Role{campushub.RoleTeacher}), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := perform(router, "/grades")
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestRequireRoles_Forbidden(t *testing.T) {
	router := gin.New()
	allowed := []campushub.Role{campushub.RoleSuperAdmin, campushub.RoleSchoolAdmin}
	router.GET("/admin", ginmw.RequireRoles(teacherSource(), allowed), func(c *gin.Context) {
		t.Error("handler must not run")
	})

	w := perform(router, "/admin")
	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
}

func TestRequireRoles_ForbiddenRedirect(t *testing.T) {
	router := gin.New()
	allowed := []campushub.Role{campushub.RoleSuperAdmin}
	router.GET("/admin", ginmw.RequireRoles(teacherSource(), allowed, ginmw.WithRedirects()), func(c *gin.Context) {
		t.Error("handler must not run")
	})

	w := perform(router, "/admin")
	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/unauthorized" {
		t.Errorf("Location = %q, want /unauthorized", loc)
	}
}

func TestRequireRoles_MixedCase(t *testing.T) {
	src := stubSource{session: campushub.Session{
		AccessToken: "tok",
		User:        &campushub.Identity{ID: "u1", Role: campushub.Role("TEACHER")},
	}}
	router := gin.New()
	router.GET("/grades", ginmw.RequireRoles(src, []campushub.Role{campushub.RoleTeacher}), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := perform(router, "/grades")
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, roles should match after normalization", w.Code)
	}
}

func TestRequireRoles_EmptySet(t *testing.T) {
	router := gin.New()
	router.GET("/dashboard", ginmw.RequireRoles(teacherSource(), nil), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := perform(router, "/dashboard")
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, empty role set should admit any session", w.Code)
	}
}

func TestGetIdentity_Absent(t *testing.T) {
	router := gin.New()
	router.GET("/public", func(c *gin.Context) {
		if ginmw.GetIdentity(c) != nil {
			t.Error("GetIdentity on a public route should be nil")
		}
		if ginmw.GetRole(c) != "" {
			t.Error("GetRole on a public route should be empty")
		}
		c.Status(http.StatusOK)
	})

	perform(router, "/public")
}
