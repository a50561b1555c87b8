package localmock

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ogurasousui/onboard-sync/internal/core/identity"
	"github.com/ogurasousui/onboard-sync/internal/core/role"
)

func TestAuthenticator_SignIn_SynthesizesIdentity(t *testing.T) {
	t.Parallel()

	auth := New(t.TempDir())

	ident, err := auth.SignIn(context.Background(), "Taro.Yamada@Example.com", "anything")
	if err != nil {
		t.Fatalf("SignIn returned error: %v", err)
	}

	if ident.Email != "taro.yamada@example.com" {
		t.Fatalf("email not normalized: %q", ident.Email)
	}
	if ident.UserID != "local-taro.yamada@example.com" {
		t.Fatalf("unexpected user id: %q", ident.UserID)
	}
	if ident.Name != "Taro Yamada" {
		t.Fatalf("name not synthesized: %q", ident.Name)
	}
	if ident.Role != role.Employee {
		t.Fatalf("unexpected role: %s", ident.Role)
	}
}

func TestAuthenticator_SignIn_EmptyEmail(t *testing.T) {
	t.Parallel()

	auth := New(t.TempDir())

	if _, err := auth.SignIn(context.Background(), "  ", "pw"); !errors.Is(err, identity.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthenticator_SessionSurvivesNewInstance(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	auth := New(dir)

	if _, err := auth.SignIn(context.Background(), "hanako@example.com", "pw"); err != nil {
		t.Fatalf("SignIn returned error: %v", err)
	}

	// 別インスタンスからも同じセッションが見える。
	ident, err := New(dir).Current(context.Background())
	if err != nil {
		t.Fatalf("Current returned error: %v", err)
	}
	if ident.Email != "hanako@example.com" {
		t.Fatalf("unexpected identity: %+v", ident)
	}
}

func TestAuthenticator_SignOut_Idempotent(t *testing.T) {
	t.Parallel()

	auth := New(t.TempDir())

	if err := auth.SignOut(context.Background()); err != nil {
		t.Fatalf("SignOut without session returned error: %v", err)
	}

	if _, err := auth.SignIn(context.Background(), "taro@example.com", "pw"); err != nil {
		t.Fatalf("SignIn returned error: %v", err)
	}
	if err := auth.SignOut(context.Background()); err != nil {
		t.Fatalf("SignOut returned error: %v", err)
	}
	if err := auth.SignOut(context.Background()); err != nil {
		t.Fatalf("second SignOut returned error: %v", err)
	}

	if _, err := auth.Current(context.Background()); !errors.Is(err, identity.ErrNotSignedIn) {
		t.Fatalf("expected ErrNotSignedIn after sign-out, got %v", err)
	}
}

func TestAuthenticator_KnownUsersGateSignIn(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	users := `[{"email":"hanako@example.com","name":"Hanako Sato","role":"hr"}]`
	if err := os.WriteFile(filepath.Join(dir, "users.json"), []byte(users), 0o600); err != nil {
		t.Fatalf("failed to write users.json: %v", err)
	}

	auth := New(dir)

	ident, err := auth.SignIn(context.Background(), "hanako@example.com", "pw")
	if err != nil {
		t.Fatalf("SignIn returned error: %v", err)
	}
	if ident.Name != "Hanako Sato" || ident.Role != role.Role("hr") {
		t.Fatalf("users.json values not applied: %+v", ident)
	}

	if _, err := auth.SignIn(context.Background(), "stranger@example.com", "pw"); !errors.Is(err, identity.ErrInvalidCredentials) {
		t.Fatalf("unknown email must be rejected, got %v", err)
	}
}

func TestNameFromEmail(t *testing.T) {
	t.Parallel()

	cases := []struct {
		email string
		want  string
	}{
		{"taro.yamada@example.com", "Taro Yamada"},
		{"hanako_sato@example.com", "Hanako Sato"},
		{"jiro-m@example.com", "Jiro M"},
		{"solo@example.com", "Solo"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.email, func(t *testing.T) {
			t.Parallel()
			if got := nameFromEmail(tc.email); got != tc.want {
				t.Fatalf("nameFromEmail(%q) = %q, want %q", tc.email, got, tc.want)
			}
		})
	}
}
