package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
)

// notifyHub は 1 本の専用コネクションで全チャネルを LISTEN し、届いた通知を
// 登録済みコールバックへ配送します。
type notifyHub struct {
	pool   *pgxpool.Pool
	logger *slog.Logger

	mu   sync.Mutex
	seq  int
	subs map[string]map[int]func(payload string)
}

func newNotifyHub(pool *pgxpool.Pool, logger *slog.Logger) *notifyHub {
	return &notifyHub{
		pool:   pool,
		logger: logger,
		subs:   make(map[string]map[int]func(payload string)),
	}
}

// subscribe は channel への通知コールバックを登録し、解除関数を返します。
func (h *notifyHub) subscribe(channel string, fn func(payload string)) (remove func()) {
	h.mu.Lock()
	h.seq++
	id := h.seq
	if h.subs[channel] == nil {
		h.subs[channel] = make(map[int]func(payload string))
	}
	h.subs[channel][id] = fn
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[channel], id)
			h.mu.Unlock()
		})
	}
}

func (h *notifyHub) dispatch(channel, payload string) {
	h.mu.Lock()
	fns := make([]func(payload string), 0, len(h.subs[channel]))
	for _, fn := range h.subs[channel] {
		fns = append(fns, fn)
	}
	h.mu.Unlock()

	for _, fn := range fns {
		fn(payload)
	}
}

// run は専用コネクションを確保して全チャネルを LISTEN し、通知を待ち受け
// ます。コンテキストのキャンセルまたは接続断で戻ります。
func (h *notifyHub) run(ctx context.Context) error {
	conn, err := h.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("postgres: acquire listen connection: %w", err)
	}
	defer conn.Release()

	for _, channel := range []string{chanInstances, chanUsers, chanSuggestions, chanActivities} {
		if _, err := conn.Exec(ctx, "LISTEN "+channel); err != nil {
			return fmt.Errorf("postgres: listen %s: %w", channel, err)
		}
	}

	for {
		notification, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("postgres: wait for notification: %w", err)
		}
		h.dispatch(notification.Channel, notification.Payload)
	}
}
