package user

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/ogurasousui/onboard-sync/internal/core/role"
)

type fakeUserGateway struct {
	users        []User
	roles        []role.CustomRole
	sequence     int
	subscribeErr error
	createErr    error
	updateErr    error
	deleteErr    error
	roleErr      error

	unsubscribes int
}

func (g *fakeUserGateway) SubscribeUsers(cb func(items []User)) (func(), error) {
	if g.subscribeErr != nil {
		return nil, g.subscribeErr
	}
	cb(CloneAll(g.users))
	return func() { g.unsubscribes++ }, nil
}

func (g *fakeUserGateway) CreateUser(_ context.Context, u *User) (*User, error) {
	if g.createErr != nil {
		return nil, g.createErr
	}
	for _, existing := range g.users {
		if existing.Email == u.Email {
			return nil, ErrEmailAlreadyExists
		}
	}
	created := u.Clone()
	g.sequence++
	created.ID = fmt.Sprintf("user-%d", g.sequence)
	g.users = append(g.users, *created.Clone())
	return created, nil
}

func (g *fakeUserGateway) UpdateUser(_ context.Context, id string, changes Changes) error {
	return g.updateErr
}

func (g *fakeUserGateway) DeleteUser(_ context.Context, id string) error {
	return g.deleteErr
}

func (g *fakeUserGateway) ListCustomRoles(_ context.Context) ([]role.CustomRole, error) {
	if g.roleErr != nil {
		return nil, g.roleErr
	}
	out := make([]role.CustomRole, len(g.roles))
	copy(out, g.roles)
	return out, nil
}

func (g *fakeUserGateway) CreateCustomRole(_ context.Context, r *role.CustomRole) (*role.CustomRole, error) {
	if g.roleErr != nil {
		return nil, g.roleErr
	}
	created := *r
	g.sequence++
	created.ID = fmt.Sprintf("role-%d", g.sequence)
	g.roles = append(g.roles, created)
	return &created, nil
}

func (g *fakeUserGateway) DeleteCustomRole(_ context.Context, id string) error {
	return g.roleErr
}

func seededUsers() []User {
	return []User{
		{ID: "user-a", Email: "taro@example.com", Name: "Taro Yamada", Role: role.Employee, Status: StatusActive},
		{ID: "user-b", Email: "hr@example.com", Name: "Hanako Sato", Role: role.Role("hr"), Status: StatusActive},
	}
}

func TestSlice_CreateAppendsAfterServerConfirmation(t *testing.T) {
	t.Parallel()

	gw := &fakeUserGateway{users: seededUsers()}
	s := NewSlice(gw)
	rel := s.Subscribe()
	defer rel()

	created, err := s.Create(context.Background(), User{
		Email: " New.User@Example.COM ",
		Name:  "  New User  ",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected server-assigned id")
	}
	if created.Email != "new.user@example.com" {
		t.Fatalf("email not normalized: %s", created.Email)
	}
	if created.Role != role.Employee {
		t.Fatalf("expected default employee role, got %s", created.Role)
	}
	if created.Status != StatusActive {
		t.Fatalf("expected default active status, got %s", created.Status)
	}

	view := s.View()
	if len(view.Users) != 3 {
		t.Fatalf("created user not appended: %d users", len(view.Users))
	}
	if view.Err != "" {
		t.Fatalf("error message must be cleared on success: %q", view.Err)
	}
}

func TestSlice_CreateValidatesBeforeGateway(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		input   User
		wantErr error
	}{
		{"bad email", User{Email: "not-an-email", Name: "Someone"}, ErrInvalidEmail},
		{"empty name", User{Email: "a@example.com", Name: "   "}, ErrInvalidName},
		{"bad status", User{Email: "a@example.com", Name: "A", Status: Status("frozen")}, ErrInvalidStatus},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			gw := &fakeUserGateway{}
			s := NewSlice(gw)

			_, err := s.Create(context.Background(), tc.input)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
			if gw.sequence != 0 {
				t.Fatal("gateway must not be reached when validation fails")
			}
			if s.LastError() != tc.wantErr.Error() {
				t.Fatalf("expected error string recorded, got %q", s.LastError())
			}
		})
	}
}

func TestSlice_FailuresAreExposedAsStrings(t *testing.T) {
	t.Parallel()

	gw := &fakeUserGateway{users: seededUsers(), createErr: ErrEmailAlreadyExists}
	s := NewSlice(gw)
	rel := s.Subscribe()
	defer rel()

	_, err := s.Create(context.Background(), User{Email: "dup@example.com", Name: "Dup"})
	if !errors.Is(err, ErrEmailAlreadyExists) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
	if got := s.LastError(); got != ErrEmailAlreadyExists.Error() {
		t.Fatalf("expected string channel %q, got %q", ErrEmailAlreadyExists.Error(), got)
	}
	if view := s.View(); view.Err != ErrEmailAlreadyExists.Error() {
		t.Fatalf("view must carry the message string, got %q", view.Err)
	}
}

func TestSlice_UpdateRollsBackOnGatewayFailure(t *testing.T) {
	t.Parallel()

	gw := &fakeUserGateway{users: seededUsers(), updateErr: errors.New("gateway down")}
	s := NewSlice(gw)
	rel := s.Subscribe()
	defer rel()

	name := "Renamed"
	if err := s.Update(context.Background(), "user-a", Changes{Name: &name}); err == nil {
		t.Fatal("expected error from gateway")
	}

	view := s.View()
	if view.Users[0].Name != "Taro Yamada" {
		t.Fatalf("optimistic change not rolled back: %s", view.Users[0].Name)
	}
	if view.Err == "" {
		t.Fatal("failure must be recorded as a message")
	}
}

func TestSlice_UpdateAppliesOptimistically(t *testing.T) {
	t.Parallel()

	gw := &fakeUserGateway{users: seededUsers()}
	s := NewSlice(gw)
	rel := s.Subscribe()
	defer rel()

	status := StatusInactive
	if err := s.Update(context.Background(), "user-a", Changes{Status: &status}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view := s.View(); view.Users[0].Status != StatusInactive {
		t.Fatalf("expected inactive, got %s", view.Users[0].Status)
	}
}

func TestSlice_DeleteIsPessimistic(t *testing.T) {
	t.Parallel()

	gw := &fakeUserGateway{users: seededUsers(), deleteErr: ErrUserNotFound}
	s := NewSlice(gw)
	rel := s.Subscribe()
	defer rel()

	if err := s.Delete(context.Background(), "user-a"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if view := s.View(); len(view.Users) != 2 {
		t.Fatal("user removed before gateway confirmation")
	}

	gw.deleteErr = nil
	if err := s.Delete(context.Background(), "user-a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view := s.View(); len(view.Users) != 1 {
		t.Fatal("user not removed after confirmation")
	}
}

func TestSlice_CreateRoleValidatesBeforeGateway(t *testing.T) {
	t.Parallel()

	gw := &fakeUserGateway{roles: []role.CustomRole{{ID: "role-1", Name: "Mentor"}}}
	s := NewSlice(gw)
	if err := s.LoadRoles(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := s.CreateRole(context.Background(), "mentor", "")
	if !errors.Is(err, role.ErrDuplicateName) {
		t.Fatalf("expected duplicate name error, got %v", err)
	}
	if len(gw.roles) != 1 {
		t.Fatal("gateway must not be reached when validation fails")
	}

	created, err := s.CreateRole(context.Background(), "  Buddy  ", " Pairs with new hires ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.Name != "Buddy" {
		t.Fatalf("name not trimmed: %q", created.Name)
	}
	if view := s.View(); len(view.Roles) != 2 {
		t.Fatalf("created role not appended: %d roles", len(view.Roles))
	}
}

func TestSlice_UsersMayReferenceMissingRoles(t *testing.T) {
	t.Parallel()

	// 役割の削除後もユーザー側の弱い参照は残ってよい。
	gw := &fakeUserGateway{
		users: []User{{ID: "user-a", Email: "a@example.com", Name: "A", Roles: []string{"Ghost"}, Status: StatusActive}},
	}
	s := NewSlice(gw)
	rel := s.Subscribe()
	defer rel()

	if err := s.LoadRoles(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	view := s.View()
	if len(view.Users[0].Roles) != 1 || view.Users[0].Roles[0] != "Ghost" {
		t.Fatalf("dangling role reference must be preserved: %+v", view.Users[0].Roles)
	}
}
