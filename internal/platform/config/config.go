package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// GatewayMode はどのゲートウェイ実装を使うかを表します。
type GatewayMode string

const (
	// GatewayPostgres は自前の PostgreSQL を LISTEN/NOTIFY で購読します。
	GatewayPostgres GatewayMode = "postgres"
	// GatewayHosted はホスト型バックエンドを WebSocket + REST で利用します。
	GatewayHosted GatewayMode = "hosted"
)

// AuthMode は認証アダプタの選択を表します。
type AuthMode string

const (
	// AuthProvider は外部 ID プロバイダを利用します。
	AuthProvider AuthMode = "provider"
	// AuthMock は開発用のローカルモックを利用します。
	AuthMock AuthMode = "mock"
)

// Config はアプリケーション全体の設定を表現します。
type Config struct {
	Gateway  GatewayConfig  `yaml:"gateway"`
	Database DatabaseConfig `yaml:"database"`
	Hosted   HostedConfig   `yaml:"hosted"`
	Auth     AuthConfig     `yaml:"auth"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// GatewayConfig はゲートウェイ選択に関する設定です。
type GatewayConfig struct {
	Mode GatewayMode `yaml:"mode"`
}

// HostedConfig はホスト型バックエンドに関する設定です。
type HostedConfig struct {
	APIURL      string `yaml:"api_url"`
	RealtimeURL string `yaml:"realtime_url"`
	AnonKey     string `yaml:"anon_key"`
}

// AuthConfig は認証アダプタに関する設定です。
type AuthConfig struct {
	Mode      AuthMode `yaml:"mode"`
	IssuerURL string   `yaml:"issuer_url"`
	ClientID  string   `yaml:"client_id"`
	MockDir   string   `yaml:"mock_dir"`
}

// LoggingConfig はログ出力に関する設定です。
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DatabaseConfig は PostgreSQL 接続に関する設定です。
type DatabaseConfig struct {
	Host               string        `yaml:"host"`
	Port               int           `yaml:"port"`
	User               string        `yaml:"user"`
	Password           string        `yaml:"password"`
	Name               string        `yaml:"name"`
	SSLMode            string        `yaml:"ssl_mode"`
	MaxOpenConns       int           `yaml:"max_open_conns"`
	MaxIdleConns       int           `yaml:"max_idle_conns"`
	ConnMaxLifetime    time.Duration `yaml:"-"`
	ConnMaxIdleTime    time.Duration `yaml:"-"`
	ConnMaxLifetimeRaw string        `yaml:"conn_max_lifetime"`
	ConnMaxIdleTimeRaw string        `yaml:"conn_max_idle_time"`
}

// Load は指定されたパスから設定ファイルを読み込みます。
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := cfg.validateAndNormalize(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validateAndNormalize() error {
	switch c.Gateway.Mode {
	case GatewayPostgres:
		if err := c.Database.validateAndNormalize(); err != nil {
			return err
		}
	case GatewayHosted:
		if c.Hosted.APIURL == "" {
			return fmt.Errorf("config: hosted.api_url must be set")
		}
		if c.Hosted.RealtimeURL == "" {
			return fmt.Errorf("config: hosted.realtime_url must be set")
		}
	case "":
		return fmt.Errorf("config: gateway.mode must be set")
	default:
		return fmt.Errorf("config: unknown gateway.mode %q", c.Gateway.Mode)
	}

	switch c.Auth.Mode {
	case AuthProvider:
		if c.Auth.IssuerURL == "" {
			return fmt.Errorf("config: auth.issuer_url must be set")
		}
	case AuthMock, "":
		c.Auth.Mode = AuthMock
		if c.Auth.MockDir == "" {
			c.Auth.MockDir = ".onboard-sync"
		}
	default:
		return fmt.Errorf("config: unknown auth.mode %q", c.Auth.Mode)
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}

	return nil
}

func (d *DatabaseConfig) validateAndNormalize() error {
	if d.Host == "" {
		return fmt.Errorf("config: database.host must be set")
	}
	if d.Port == 0 {
		return fmt.Errorf("config: database.port must be set")
	}
	if d.User == "" {
		return fmt.Errorf("config: database.user must be set")
	}
	if d.Password == "" {
		return fmt.Errorf("config: database.password must be set")
	}
	if d.Name == "" {
		return fmt.Errorf("config: database.name must be set")
	}
	if d.SSLMode == "" {
		d.SSLMode = "disable"
	}

	lifetime, err := parseDurationAllowEmpty(d.ConnMaxLifetimeRaw)
	if err != nil {
		return fmt.Errorf("config: database.conn_max_lifetime: %w", err)
	}
	d.ConnMaxLifetime = lifetime

	idleTime, err := parseDurationAllowEmpty(d.ConnMaxIdleTimeRaw)
	if err != nil {
		return fmt.Errorf("config: database.conn_max_idle_time: %w", err)
	}
	d.ConnMaxIdleTime = idleTime

	return nil
}

func parseDurationAllowEmpty(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	return d, nil
}

// DSN は pgx 用の接続文字列を返します。資格情報は URL エスケープされます。
func (d DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.Name,
	}
	q := url.Values{}
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
