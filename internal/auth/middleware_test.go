package auth

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	appdb "dormtrack/internal/db"
	"dormtrack/internal/models"
	"dormtrack/internal/perm"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := appdb.AutoMigrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return gdb
}

func seedUser(t *testing.T, gdb *gorm.DB, active bool, perms ...string) *models.User {
	t.Helper()
	role := models.Role{Name: "tester-" + perms[0]}
	if err := gdb.Create(&role).Error; err != nil {
		t.Fatalf("create role: %v", err)
	}
	for _, name := range perms {
		p := models.Permission{Name: name}
		if err := gdb.Create(&p).Error; err != nil {
			t.Fatalf("create permission: %v", err)
		}
		if err := gdb.Model(&role).Association("Permissions").Append(&p); err != nil {
			t.Fatalf("link permission: %v", err)
		}
	}
	user := models.User{
		Username:       "u-" + perms[0],
		Email:          perms[0] + "@example.com",
		HashedPassword: "x",
		IsActive:       active,
	}
	if err := gdb.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := gdb.Model(&user).Association("Roles").Append(&role); err != nil {
		t.Fatalf("link role: %v", err)
	}
	return &user
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newProtected builds a one-route engine whose handler reports what the
// middleware resolved.
func newProtected(gdb *gorm.DB, mgr *Manager) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/probe", Identity(gdb, mgr, testLogger()), func(c *gin.Context) {
		user := UserFrom(c)
		set := PermissionsFrom(c)
		c.JSON(http.StatusOK, gin.H{"username": user.Username, "perm_count": len(set)})
	})
	return r
}

func TestIdentityRejectsMissingToken(t *testing.T) {
	r := newProtected(setupDB(t), NewManager("s", time.Hour, 0))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/probe", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestIdentityRejectsMalformedToken(t *testing.T) {
	r := newProtected(setupDB(t), NewManager("s", time.Hour, 0))

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestIdentityResolvesActiveUser(t *testing.T) {
	gdb := setupDB(t)
	mgr := NewManager("s", time.Hour, 0)
	user := seedUser(t, gdb, true, perm.InspectionsSubmitOwn)
	token, _, err := mgr.Issue(user.ID)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	r := newProtected(gdb, mgr)
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestIdentityAcceptsCookie(t *testing.T) {
	gdb := setupDB(t)
	mgr := NewManager("s", time.Hour, 0)
	user := seedUser(t, gdb, true, perm.InspectionsViewOwn)
	token, _, err := mgr.Issue(user.ID)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	r := newProtected(gdb, mgr)
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: token})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestIdentityRejectsInactiveUser(t *testing.T) {
	gdb := setupDB(t)
	mgr := NewManager("s", time.Hour, 0)
	user := seedUser(t, gdb, false, perm.InspectionsViewOwn)
	token, _, err := mgr.Issue(user.ID)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	r := newProtected(gdb, mgr)
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
}

func TestIdentityRejectsRevokedToken(t *testing.T) {
	gdb := setupDB(t)
	mgr := NewManager("s", time.Hour, 0)
	user := seedUser(t, gdb, true, perm.InspectionsViewOwn)
	token, claims, err := mgr.Issue(user.ID)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if err := Revoke(gdb, claims); err != nil {
		t.Fatalf("Revoke: %v", err)
	}

	r := newProtected(gdb, mgr)
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401 after revocation", w.Code)
	}
}

func TestIdentitySlidingRefresh(t *testing.T) {
	gdb := setupDB(t)
	// TTL shorter than the refresh threshold, so every request refreshes.
	mgr := NewManager("s", 10*time.Minute, 30*time.Minute)
	user := seedUser(t, gdb, true, perm.InspectionsViewOwn)
	token, _, err := mgr.Issue(user.ID)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	r := newProtected(gdb, mgr)
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	fresh := w.Header().Get(RefreshHeader)
	if fresh == "" {
		t.Fatal("expected a refreshed token in the response header")
	}
	if fresh == token {
		t.Fatal("refreshed token should differ from the presented one")
	}
	if _, err := mgr.Parse(fresh); err != nil {
		t.Fatalf("refreshed token does not parse: %v", err)
	}
}

func TestMaterializeFlattensAndDedupes(t *testing.T) {
	shared := models.Permission{Name: perm.RoomsView}
	u := &models.User{
		Roles: []models.Role{
			{Name: "a", Permissions: []models.Permission{shared, {Name: perm.RoomsManage}}},
			{Name: "b", Permissions: []models.Permission{shared}},
		},
	}
	set := Materialize(u)
	if len(set) != 2 {
		t.Fatalf("set size = %d, want 2", len(set))
	}
	if !set.Has(perm.RoomsView) || !set.Has(perm.RoomsManage) {
		t.Fatalf("unexpected set contents: %v", set)
	}
}
