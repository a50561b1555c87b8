//go:build integration

package integration

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	gw "github.com/ogurasousui/onboard-sync/internal/adapters/gateway/postgres"
	"github.com/ogurasousui/onboard-sync/internal/core/instance"
	"github.com/ogurasousui/onboard-sync/internal/core/role"
	"github.com/ogurasousui/onboard-sync/internal/core/store"
	"github.com/ogurasousui/onboard-sync/internal/core/user"
	"github.com/ogurasousui/onboard-sync/internal/platform/config"
	pg "github.com/ogurasousui/onboard-sync/internal/platform/db/postgres"
)

const migrationsDir = "assets/migrations"

func TestStoreSyncIntegration(t *testing.T) {
	cfgPath := configPathFromEnv()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if err := resetMigrations(cfg.Database.DSN(), migrationsDir); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	pool, err := pg.NewPool(ctx, cfg.Database)
	if err != nil {
		t.Fatalf("failed to create pool: %v", err)
	}
	t.Cleanup(pool.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	gateway := gw.New(pool, logger)
	go func() { _ = gateway.Run(ctx) }()

	st := store.New(store.Gateways{
		Instances:   gateway,
		Steps:       gateway,
		Users:       gateway,
		Activities:  gateway,
		Suggestions: gateway,
	})

	release := st.SubscribeForRole(role.Role("hr"))
	t.Cleanup(release)

	created, err := gateway.CreateInstance(ctx, &instance.OnboardingInstance{
		EmployeeName:  "Integration Tester",
		EmployeeEmail: "integration@example.com",
		Role:          role.Employee,
		Status:        instance.StatusActive,
		Steps: []instance.Step{
			{ID: 1, Title: "Setup laptop", Status: instance.StepPending},
			{ID: 2, Title: "Install IDE", Status: instance.StepPending},
		},
	})
	if err != nil {
		t.Fatalf("CreateInstance error: %v", err)
	}

	// LISTEN/NOTIFY 経由でストアに反映されるのを待つ。
	waitFor(t, "instance appears in store", func() bool {
		for _, inst := range st.Instances.View().Instances {
			if inst.ID == created.ID {
				return true
			}
		}
		return false
	})

	releaseSteps := st.Steps.Subscribe(created.ID)
	t.Cleanup(releaseSteps)

	waitFor(t, "steps snapshot loaded", func() bool {
		view := st.Steps.View(created.ID)
		return !view.Loading && len(view.Steps) == 2
	})

	if err := st.Steps.SetStatus(ctx, created.ID, 1, instance.StepCompleted); err != nil {
		t.Fatalf("SetStatus error: %v", err)
	}

	// サーバー側の再計算結果が配信され、進捗が 50% になる。
	waitFor(t, "progress recomputed", func() bool {
		inst := st.Instances.Find(created.ID)
		return inst != nil && inst.Progress == 50
	})

	found, err := gateway.FindByEmployeeEmail(ctx, "Integration@Example.com")
	if err != nil {
		t.Fatalf("FindByEmployeeEmail error: %v", err)
	}
	if found.ID != created.ID {
		t.Fatalf("expected instance %s, got %s", created.ID, found.ID)
	}

	// 監査エントリはインスタンス作成と同時に書き込まれている。
	waitFor(t, "audit entry recorded", func() bool {
		for _, a := range st.Activities.View().Activities {
			if a.ResourceID == created.ID {
				return true
			}
		}
		return false
	})

	createdUser, err := st.Users.Create(ctx, user.User{
		Email: "integration-user@example.com",
		Name:  "Integration User",
		Role:  role.Employee,
	})
	if err != nil {
		t.Fatalf("Users.Create error: %v", err)
	}

	if _, err := gateway.CreateUser(ctx, &user.User{
		Email:  "integration-user@example.com",
		Name:   "Duplicate",
		Role:   role.Employee,
		Status: user.StatusActive,
	}); !errors.Is(err, user.ErrEmailAlreadyExists) {
		t.Fatalf("expected ErrEmailAlreadyExists, got %v", err)
	}

	if err := st.Users.Delete(ctx, createdUser.ID); err != nil {
		t.Fatalf("Users.Delete error: %v", err)
	}
	if err := st.Instances.Remove(ctx, created.ID); err != nil {
		t.Fatalf("Instances.Remove error: %v", err)
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func resetMigrations(dsn, dir string) error {
	m, err := migrate.New("file://"+dir, dsn)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Down(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

func configPathFromEnv() string {
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		return v
	}
	return "assets/local.yaml"
}
