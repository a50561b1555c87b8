// Package postgres は PostgreSQL を直接利用するゲートウェイ実装です。
// 変更通知は LISTEN/NOTIFY で受け取り、通知のたびに対象ファミリーを再照会
// して購読者へ全量スナップショットを配送します。
package postgres

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	pgdb "github.com/ogurasousui/onboard-sync/internal/platform/db/postgres"
)

const (
	chanInstances   = "onboarding_instances_changed"
	chanUsers       = "users_changed"
	chanSuggestions = "suggestions_changed"
	chanActivities  = "activities_changed"
)

const reconnectDelay = 3 * time.Second

// Gateway は全エンティティファミリーのゲートウェイ実装をまとめます。
type Gateway struct {
	db     pgdb.Queryer
	tx     *pgdb.TransactionManager
	hub    *notifyHub
	logger *slog.Logger
	now    func() time.Time
}

// New は Gateway を生成します。
func New(pool *pgxpool.Pool, logger *slog.Logger) *Gateway {
	return &Gateway{
		db:     pool,
		tx:     pgdb.NewTransactionManager(pool),
		hub:    newNotifyHub(pool, logger),
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Run は通知リスナーを起動し、コンテキストがキャンセルされるまで維持します。
// 接続が切れた場合は少し待ってから張り直します。
func (g *Gateway) Run(ctx context.Context) error {
	for {
		err := g.hub.run(ctx)
		if ctx.Err() != nil {
			return nil
		}
		g.logger.Warn("notify listener stopped, reconnecting", "error", err)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(reconnectDelay):
		}
	}
}
