package hosted

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ogurasousui/onboard-sync/internal/core/role"
	"github.com/ogurasousui/onboard-sync/internal/core/user"
)

func TestClient_CreateUser_ReturnsServerRecord(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/users" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var body userRecord
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("body not decodable: %v", err)
		}
		body.ID = "user-1"
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)

	c := newTestClient(srv.URL)

	created, err := c.CreateUser(context.Background(), &user.User{
		Email:  "hanako@example.com",
		Name:   "Hanako Sato",
		Role:   role.Role("hr"),
		Status: user.StatusActive,
	})
	if err != nil {
		t.Fatalf("CreateUser returned error: %v", err)
	}
	if created.ID != "user-1" || created.Email != "hanako@example.com" {
		t.Fatalf("unexpected user: %+v", created)
	}
}

func TestClient_CreateUser_Conflict(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	t.Cleanup(srv.Close)

	c := newTestClient(srv.URL)

	_, err := c.CreateUser(context.Background(), &user.User{Email: "taken@example.com"})
	if !errors.Is(err, user.ErrEmailAlreadyExists) {
		t.Fatalf("expected ErrEmailAlreadyExists, got %v", err)
	}
}

func TestClient_UpdateUser_NotFound(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	c := newTestClient(srv.URL)

	name := "New Name"
	err := c.UpdateUser(context.Background(), "missing", user.Changes{Name: &name})
	if !errors.Is(err, user.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestClient_DeleteUser_NotFound(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	c := newTestClient(srv.URL)

	if err := c.DeleteUser(context.Background(), "missing"); !errors.Is(err, user.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestClient_CreateCustomRole_Conflict(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	t.Cleanup(srv.Close)

	c := newTestClient(srv.URL)

	_, err := c.CreateCustomRole(context.Background(), &role.CustomRole{Name: "Mentor"})
	if !errors.Is(err, role.ErrDuplicateName) {
		t.Fatalf("expected ErrDuplicateName, got %v", err)
	}
}

func TestClient_ListCustomRoles(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/roles" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`[{"id":"role-1","name":"Mentor","description":"Guides new hires"}]`))
	}))
	t.Cleanup(srv.Close)

	c := newTestClient(srv.URL)

	roles, err := c.ListCustomRoles(context.Background())
	if err != nil {
		t.Fatalf("ListCustomRoles returned error: %v", err)
	}
	if len(roles) != 1 || roles[0].Name != "Mentor" {
		t.Fatalf("unexpected roles: %+v", roles)
	}
}
