package postgres

import (
	"io"
	"log/slog"
	"testing"
	"time"

	pgdb "github.com/ogurasousui/onboard-sync/internal/platform/db/postgres"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

var fixedNow = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

type stubRow struct {
	scanFn func(dest ...any) error
}

func (s stubRow) Scan(dest ...any) error {
	return s.scanFn(dest...)
}

func newMockGateway(t *testing.T) (*Gateway, pgxmock.PgxPoolIface) {
	t.Helper()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	t.Cleanup(mock.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	g := &Gateway{
		db:     mock,
		tx:     pgdb.NewTransactionManager(mock),
		hub:    newNotifyHub(nil, logger),
		logger: logger,
		now:    func() time.Time { return fixedNow },
	}
	return g, mock
}
