package httpserver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"dormtrack/internal/audit"
	"dormtrack/internal/auth"
	"dormtrack/internal/config"
	appdb "dormtrack/internal/db"
	"dormtrack/internal/inspection"
	"dormtrack/internal/models"
	"dormtrack/internal/notify"
	"dormtrack/internal/ratelimit"
	"dormtrack/internal/seed"
	"dormtrack/internal/storage"
)

type testServer struct {
	engine *gin.Engine
	db     *gorm.DB
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := appdb.AutoMigrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if err := seed.Run(gdb, "admin", "admin12345", "admin@example.com", logger); err != nil {
		t.Fatalf("seed: %v", err)
	}

	files, err := storage.New(t.TempDir())
	if err != nil {
		t.Fatalf("storage: %v", err)
	}

	engine := NewRouter(Deps{
		DB:      gdb,
		Tokens:  auth.NewManager("test-secret", time.Hour, 30*time.Minute),
		Svc:     inspection.NewService(gdb, files, logger),
		Audit:   audit.NewRecorder(gdb, logger),
		Mailer:  notify.NewMailer(config.Config{}, logger),
		Limiter: ratelimit.New(100, false),
		Log:     logger,
		BaseURL: "http://test.local",
	})
	return &testServer{engine: engine, db: gdb}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func (s *testServer) login(t *testing.T, username, password string) string {
	t.Helper()
	form := url.Values{"username": {username}, "password": {password}}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/token",
		strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("login %s: status = %d, body = %s", username, w.Code, w.Body.String())
	}
	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	return out.AccessToken
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %s: %v", w.Body.String(), err)
	}
}

// seedStudentUser creates an active account holding only the student role.
func (s *testServer) seedStudentUser(t *testing.T, username string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("student123"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	user := models.User{
		Username:       username,
		Email:          username + "@example.com",
		HashedPassword: string(hash),
		IsActive:       true,
	}
	if err := s.db.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	var role models.Role
	if err := s.db.Where("name = ?", models.RoleStudent).First(&role).Error; err != nil {
		t.Fatalf("load student role: %v", err)
	}
	if err := s.db.Model(&user).Association("Roles").Append(&role); err != nil {
		t.Fatalf("assign role: %v", err)
	}
	return &user
}

func TestLoginAndMe(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, "admin", "admin12345")

	w := s.do(t, http.MethodGet, "/api/v1/me", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("me: status = %d, body = %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "admin:full_access") {
		t.Fatalf("expected superuser bypass in permissions, got %s", w.Body.String())
	}
}

func TestLoginWrongPassword(t *testing.T) {
	s := newTestServer(t)
	form := url.Values{"username": {"admin"}, "password": {"wrong"}}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/token",
		strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestGuardNamesMissingPermissions(t *testing.T) {
	s := newTestServer(t)
	s.seedStudentUser(t, "stu1")
	token := s.login(t, "stu1", "student123")

	w := s.do(t, http.MethodGet, "/api/v1/users", token, nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
	if !strings.Contains(w.Body.String(), "users:view") {
		t.Fatalf("403 should name the missing permission, got %s", w.Body.String())
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, "admin", "admin12345")

	if w := s.do(t, http.MethodPost, "/api/v1/auth/logout", token, nil); w.Code != http.StatusOK {
		t.Fatalf("logout: status = %d", w.Code)
	}
	if w := s.do(t, http.MethodGet, "/api/v1/me", token, nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("revoked token should be rejected, got %d", w.Code)
	}
}

func TestRegisterAfterSeedIsInactiveStudent(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"username": "newkid",
		"email":    "newkid@example.com",
		"password": "password123",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("register: status = %d, body = %s", w.Code, w.Body.String())
	}

	form := url.Values{"username": {"newkid"}, "password": {"password123"}}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/token",
		strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("inactive login: status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Inactive user") {
		t.Fatalf("expected inactive-user detail, got %s", rec.Body.String())
	}
}

// setupDormitory provisions a building, room and two beds over the API and
// returns their ids.
func setupDormitory(t *testing.T, s *testServer, token string) (roomID int, bedIDs []int) {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/v1/buildings", token, gin.H{"name": "North Hall"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create building: %d %s", w.Code, w.Body.String())
	}
	var building struct {
		ID int `json:"id"`
	}
	decode(t, w, &building)

	w = s.do(t, http.MethodPost, "/api/v1/rooms", token, gin.H{
		"building_id": building.ID,
		"room_number": "101",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create room: %d %s", w.Code, w.Body.String())
	}
	var room struct {
		ID int `json:"id"`
	}
	decode(t, w, &room)

	for _, n := range []string{"A", "B"} {
		w = s.do(t, http.MethodPost, "/api/v1/beds", token, gin.H{
			"room_id":    room.ID,
			"bed_number": n,
		})
		if w.Code != http.StatusCreated {
			t.Fatalf("create bed: %d %s", w.Code, w.Body.String())
		}
		var bed struct {
			ID int `json:"id"`
		}
		decode(t, w, &bed)
		bedIDs = append(bedIDs, bed.ID)
	}
	return room.ID, bedIDs
}

func createStudent(t *testing.T, s *testServer, token, number, name string) string {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/v1/students", token, gin.H{
		"student_number": number,
		"full_name":      name,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create student: %d %s", w.Code, w.Body.String())
	}
	var student struct {
		ID string `json:"id"`
	}
	decode(t, w, &student)
	return student.ID
}

func TestInspectionFlowOverAPI(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, "admin", "admin12345")

	_, beds := setupDormitory(t, s, token)
	studentID := createStudent(t, s, token, "S001", "Alice Chen")

	w := s.do(t, http.MethodPut, "/api/v1/students/"+studentID+"/bed", token,
		gin.H{"bed_id": beds[0]})
	if w.Code != http.StatusOK {
		t.Fatalf("assign bed: %d %s", w.Code, w.Body.String())
	}

	// Pick a seeded inspection item.
	w = s.do(t, http.MethodGet, "/api/v1/items", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list items: %d", w.Code)
	}
	var items []struct {
		ID string `json:"id"`
	}
	decode(t, w, &items)
	if len(items) == 0 {
		t.Fatal("expected seeded inspection items")
	}

	w = s.do(t, http.MethodPost, "/api/v1/inspections", token, gin.H{
		"student_id": studentID,
		"details": []gin.H{
			{"item_id": items[0].ID, "status": "damaged", "comment": "scratched"},
		},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("submit inspection: %d %s", w.Code, w.Body.String())
	}
	var record struct {
		ID     string `json:"id"`
		RoomID int    `json:"room_id"`
		Status string `json:"status"`
	}
	decode(t, w, &record)
	if record.Status != "submitted" {
		t.Fatalf("status = %q, want submitted", record.Status)
	}
	if record.RoomID == 0 {
		t.Fatal("room should be derived from the assigned bed")
	}

	w = s.do(t, http.MethodGet, "/api/v1/inspections/"+record.ID+"/pdf", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("pdf: %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("content type = %q", ct)
	}

	w = s.do(t, http.MethodPut, "/api/v1/inspections/"+record.ID+"/status", token,
		gin.H{"status": "approved"})
	if w.Code != http.StatusOK {
		t.Fatalf("approve: %d %s", w.Code, w.Body.String())
	}
}

func TestBedConflictReturns409(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, "admin", "admin12345")

	_, beds := setupDormitory(t, s, token)
	first := createStudent(t, s, token, "S001", "Alice Chen")
	second := createStudent(t, s, token, "S002", "Bob Lin")

	w := s.do(t, http.MethodPut, "/api/v1/students/"+first+"/bed", token,
		gin.H{"bed_id": beds[0]})
	if w.Code != http.StatusOK {
		t.Fatalf("assign first: %d %s", w.Code, w.Body.String())
	}

	w = s.do(t, http.MethodPut, "/api/v1/students/"+second+"/bed", token,
		gin.H{"bed_id": beds[0]})
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Alice Chen") {
		t.Fatalf("conflict should name the occupant, got %s", w.Body.String())
	}
}

func TestOwnScopedInspectionListing(t *testing.T) {
	s := newTestServer(t)
	admin := s.login(t, "admin", "admin12345")

	_, beds := setupDormitory(t, s, admin)
	mine := createStudent(t, s, admin, "S001", "Alice Chen")
	other := createStudent(t, s, admin, "S002", "Bob Lin")
	for i, id := range []string{mine, other} {
		w := s.do(t, http.MethodPut, fmt.Sprintf("/api/v1/students/%s/bed", id), admin,
			gin.H{"bed_id": beds[i]})
		if w.Code != http.StatusOK {
			t.Fatalf("assign bed: %d %s", w.Code, w.Body.String())
		}
	}

	user := s.seedStudentUser(t, "alice")
	if err := s.db.Model(&models.Student{}).Where("id = ?", mine).
		Update("user_id", user.ID).Error; err != nil {
		t.Fatalf("link student: %v", err)
	}

	var items []struct {
		ID string `json:"id"`
	}
	w := s.do(t, http.MethodGet, "/api/v1/items", admin, nil)
	decode(t, w, &items)

	for _, id := range []string{mine, other} {
		w := s.do(t, http.MethodPost, "/api/v1/inspections", admin, gin.H{
			"student_id": id,
			"details":    []gin.H{{"item_id": items[0].ID, "status": "ok"}},
		})
		if w.Code != http.StatusCreated {
			t.Fatalf("submit for %s: %d %s", id, w.Code, w.Body.String())
		}
	}

	token := s.login(t, "alice", "student123")
	w = s.do(t, http.MethodGet, "/api/v1/inspections", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list: %d %s", w.Code, w.Body.String())
	}
	var out struct {
		Total   int `json:"total"`
		Records []struct {
			StudentID string `json:"student_id"`
		} `json:"records"`
	}
	decode(t, w, &out)
	if out.Total != 1 || len(out.Records) != 1 || out.Records[0].StudentID != mine {
		t.Fatalf("own scope leaked: %+v", out)
	}
}

func TestBatchRequiresSubmitAny(t *testing.T) {
	s := newTestServer(t)
	s.seedStudentUser(t, "stu1")
	token := s.login(t, "stu1", "student123")

	w := s.do(t, http.MethodPost, "/api/v1/inspections/batch", token, gin.H{
		"inspections": []gin.H{{"student_id": "whatever", "details": []gin.H{}}},
	})
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
}
