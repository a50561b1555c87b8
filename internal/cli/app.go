// Package cli は onboardctl コマンドの実装です。設定からゲートウェイと
// 認証アダプタを選択し、中央ストアと各ユースケースを組み立てます。
package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ogurasousui/onboard-sync/internal/adapters/auth/localmock"
	"github.com/ogurasousui/onboard-sync/internal/adapters/auth/provider"
	"github.com/ogurasousui/onboard-sync/internal/adapters/gateway/hosted"
	pggw "github.com/ogurasousui/onboard-sync/internal/adapters/gateway/postgres"
	"github.com/ogurasousui/onboard-sync/internal/core/activity"
	"github.com/ogurasousui/onboard-sync/internal/core/identity"
	"github.com/ogurasousui/onboard-sync/internal/core/instance"
	"github.com/ogurasousui/onboard-sync/internal/core/review"
	"github.com/ogurasousui/onboard-sync/internal/core/step"
	"github.com/ogurasousui/onboard-sync/internal/core/store"
	"github.com/ogurasousui/onboard-sync/internal/core/suggestion"
	"github.com/ogurasousui/onboard-sync/internal/core/user"
	"github.com/ogurasousui/onboard-sync/internal/platform/config"
	pgdb "github.com/ogurasousui/onboard-sync/internal/platform/db/postgres"
	"github.com/ogurasousui/onboard-sync/internal/platform/logging"
)

// gateway は全エンティティファミリーのゲートウェイを 1 つで満たすアダプタ
// です。postgres・hosted の両実装がこれを満たします。
type gateway interface {
	instance.Gateway
	step.Gateway
	user.Gateway
	activity.Gateway
	suggestion.Gateway
}

// App は 1 回のコマンド実行で使う依存の束です。
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	Store   *store.Store
	Session *identity.Session
	Review  *review.Service
	Gateway gateway

	runGateway func(ctx context.Context) error
	closeFn    func()
}

// NewApp は設定を読み込み、ゲートウェイ・認証・ストアを組み立てます。
func NewApp(ctx context.Context, cfgPath string) (*App, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	logger := logging.New(cfg.Logging.Level)

	app := &App{Config: cfg, Logger: logger}
	gw, err := app.buildGateway(ctx)
	if err != nil {
		return nil, err
	}

	app.Gateway = gw
	app.Store = store.New(store.Gateways{
		Instances:   gw,
		Steps:       gw,
		Users:       gw,
		Activities:  gw,
		Suggestions: gw,
	})
	app.Session = identity.NewSession(app.buildAuthenticator(), gw)
	app.Review = review.NewService(app.Store.Suggestions, gw, nil)
	return app, nil
}

func (a *App) buildGateway(ctx context.Context) (gateway, error) {
	switch a.Config.Gateway.Mode {
	case config.GatewayPostgres:
		pool, err := pgdb.NewPool(ctx, a.Config.Database)
		if err != nil {
			return nil, err
		}
		gw := pggw.New(pool, a.Logger)
		a.runGateway = gw.Run
		a.closeFn = pool.Close
		return gw, nil
	case config.GatewayHosted:
		client := hosted.NewClient(
			a.Config.Hosted.APIURL,
			a.Config.Hosted.RealtimeURL,
			a.Config.Hosted.AnonKey,
			a.Logger,
		)
		a.runGateway = client.Run
		return client, nil
	default:
		return nil, fmt.Errorf("cli: unknown gateway mode %q", a.Config.Gateway.Mode)
	}
}

func (a *App) buildAuthenticator() identity.Authenticator {
	if a.Config.Auth.Mode == config.AuthProvider {
		return provider.New(a.Config.Auth.IssuerURL, a.Config.Auth.ClientID)
	}
	return localmock.New(a.Config.Auth.MockDir)
}

// RunGateway は変更通知リスナーを起動します。購読中のコマンドが利用します。
func (a *App) RunGateway(ctx context.Context) error {
	if a.runGateway == nil {
		return nil
	}
	return a.runGateway(ctx)
}

// Close は保持しているリソースを解放します。
func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
