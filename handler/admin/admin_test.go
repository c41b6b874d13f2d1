package admin

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mager/bandsaw/auth"
	"github.com/mager/bandsaw/bandsaw"
	"github.com/mager/bandsaw/database"
	"github.com/mager/bandsaw/logger"
	"go.uber.org/zap"
)

func adminDB(t *testing.T) (*database.DB, *zap.SugaredLogger) {
	t.Helper()
	log, _ := logger.NewTestLogger()
	db, err := database.Open(":memory:", log)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db, log
}

func userWithRole(role string) *bandsaw.User {
	return &bandsaw.User{ID: 1, Email: "who@example.com", Role: role}
}

func adminRequest(method, path, body string, u *bandsaw.User) *http.Request {
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	if u != nil {
		r = r.WithContext(auth.WithUser(r.Context(), u))
	}
	return r
}

func TestAdminHandlersRejectNonAdmins(t *testing.T) {
	db, log := adminDB(t)

	handlers := map[string]http.Handler{
		"list groups":  NewListGroupsHandler(log, db),
		"create group": NewCreateGroupHandler(log, db),
		"list users":   NewListUsersHandler(log, db),
		"create user":  NewCreateUserHandler(log, db),
	}
	callers := map[string]*bandsaw.User{
		"anonymous": nil,
		"editor":    userWithRole(bandsaw.RoleEditor),
		"readonly":  userWithRole(bandsaw.RoleReadonly),
	}

	for hname, h := range handlers {
		for cname, u := range callers {
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, adminRequest(http.MethodGet, "/api/admin", "{}", u))
			if rr.Code != http.StatusForbidden {
				t.Errorf("%s as %s: status = %d, want 403", hname, cname, rr.Code)
			}
		}
	}
}

func TestGroupHandlers(t *testing.T) {
	db, log := adminDB(t)
	admin := userWithRole(bandsaw.RoleAdmin)

	create := NewCreateGroupHandler(log, db)
	rr := httptest.NewRecorder()
	create.ServeHTTP(rr, adminRequest(http.MethodPost, "/api/admin/groups", `{"name": "Porch Dogs"}`, admin))
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
	var g bandsaw.Group
	if err := json.Unmarshal(rr.Body.Bytes(), &g); err != nil {
		t.Fatal(err)
	}
	if g.ID < 1 || g.Name != "Porch Dogs" {
		t.Errorf("group = %+v", g)
	}

	rr = httptest.NewRecorder()
	create.ServeHTTP(rr, adminRequest(http.MethodPost, "/api/admin/groups", `{"name": "Porch Dogs"}`, admin))
	if rr.Code != http.StatusConflict {
		t.Errorf("duplicate status = %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	create.ServeHTTP(rr, adminRequest(http.MethodPost, "/api/admin/groups", `{"name": "  "}`, admin))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("blank name status = %d", rr.Code)
	}

	list := NewListGroupsHandler(log, db)
	rr = httptest.NewRecorder()
	list.ServeHTTP(rr, adminRequest(http.MethodGet, "/api/admin/groups", "", admin))
	if rr.Code != http.StatusOK {
		t.Fatalf("list status = %d", rr.Code)
	}
	var groups []bandsaw.Group
	if err := json.Unmarshal(rr.Body.Bytes(), &groups); err != nil {
		t.Fatal(err)
	}
	if len(groups) != 1 || groups[0].Name != "Porch Dogs" {
		t.Errorf("groups = %v", groups)
	}
}

func TestUserHandlers(t *testing.T) {
	db, log := adminDB(t)
	admin := userWithRole(bandsaw.RoleSuperadmin)

	create := NewCreateUserHandler(log, db)
	rr := httptest.NewRecorder()
	create.ServeHTTP(rr, adminRequest(http.MethodPost, "/api/admin/users",
		`{"email": "dave@example.com", "password": "hunter2", "name": "Dave"}`, admin))
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
	var u bandsaw.User
	if err := json.Unmarshal(rr.Body.Bytes(), &u); err != nil {
		t.Fatal(err)
	}
	// Role defaults to editor, and the hash never leaves the server.
	if u.Role != bandsaw.RoleEditor {
		t.Errorf("role = %q, want editor", u.Role)
	}
	if strings.Contains(rr.Body.String(), "password") {
		t.Errorf("response leaks password material: %s", rr.Body.String())
	}

	// The stored hash verifies against the original password.
	stored, err := db.GetUserByEmail("dave@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if stored == nil || !auth.VerifyPassword("hunter2", stored.PasswordHash) {
		t.Error("stored hash does not verify")
	}

	rr = httptest.NewRecorder()
	create.ServeHTTP(rr, adminRequest(http.MethodPost, "/api/admin/users",
		`{"email": "dave@example.com", "password": "other"}`, admin))
	if rr.Code != http.StatusConflict {
		t.Errorf("duplicate status = %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	create.ServeHTTP(rr, adminRequest(http.MethodPost, "/api/admin/users",
		`{"email": "eve@example.com", "password": "x", "role": "owner"}`, admin))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("bad role status = %d", rr.Code)
	}

	gid, err := db.CreateGroup("Porch Dogs")
	if err != nil {
		t.Fatal(err)
	}
	if err := db.AssignUserToGroup(stored.ID, gid); err != nil {
		t.Fatal(err)
	}

	list := NewListUsersHandler(log, db)
	rr = httptest.NewRecorder()
	list.ServeHTTP(rr, adminRequest(http.MethodGet, "/api/admin/users", "", admin))
	if rr.Code != http.StatusOK {
		t.Fatalf("list status = %d", rr.Code)
	}
	var users []AdminUser
	if err := json.Unmarshal(rr.Body.Bytes(), &users); err != nil {
		t.Fatal(err)
	}
	if len(users) != 1 {
		t.Fatalf("got %d users, want 1", len(users))
	}
	if users[0].Email != "dave@example.com" || len(users[0].Groups) != 1 || users[0].Groups[0] != "Porch Dogs" {
		t.Errorf("user = %+v", users[0])
	}
}
