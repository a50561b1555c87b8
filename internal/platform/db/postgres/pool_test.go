package postgres

import (
	"testing"
	"time"

	"github.com/ogurasousui/onboard-sync/internal/platform/config"
)

func TestBuildPoolConfig_AppliesLimits(t *testing.T) {
	t.Parallel()

	cfg := config.DatabaseConfig{
		Host:            "localhost",
		Port:            5432,
		User:            "user",
		Password:        "pass",
		Name:            "app",
		SSLMode:         "disable",
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 15 * time.Minute,
		ConnMaxIdleTime: 5 * time.Minute,
	}

	poolCfg, err := BuildPoolConfig(cfg)
	if err != nil {
		t.Fatalf("BuildPoolConfig returned error: %v", err)
	}

	if poolCfg.MaxConns != 10 {
		t.Errorf("expected MaxConns 10, got %d", poolCfg.MaxConns)
	}
	if poolCfg.MinConns != 5 {
		t.Errorf("expected MinConns 5, got %d", poolCfg.MinConns)
	}
	if poolCfg.MaxConnLifetime != 15*time.Minute {
		t.Errorf("expected MaxConnLifetime 15m, got %v", poolCfg.MaxConnLifetime)
	}
	if poolCfg.MaxConnIdleTime != 5*time.Minute {
		t.Errorf("expected MaxConnIdleTime 5m, got %v", poolCfg.MaxConnIdleTime)
	}
	if poolCfg.ConnConfig.Database != "app" {
		t.Errorf("unexpected database: %s", poolCfg.ConnConfig.Database)
	}
}

func TestBuildPoolConfig_EscapedCredentials(t *testing.T) {
	t.Parallel()

	cfg := config.DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "user@domain",
		Password: "p@ss:word",
		Name:     "app",
		SSLMode:  "disable",
	}

	poolCfg, err := BuildPoolConfig(cfg)
	if err != nil {
		t.Fatalf("BuildPoolConfig returned error: %v", err)
	}
	if poolCfg.ConnConfig.User != "user@domain" {
		t.Errorf("unexpected user: %s", poolCfg.ConnConfig.User)
	}
	if poolCfg.ConnConfig.Password != "p@ss:word" {
		t.Errorf("unexpected password: %s", poolCfg.ConnConfig.Password)
	}
}
