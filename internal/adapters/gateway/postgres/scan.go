package postgres

import (
	"database/sql"
	"time"
)

// rowScanner は pgx.Row と互換の走査インターフェースです。テストでスタブ
// 行を差し込めるよう、Scan だけに依存します。
type rowScanner interface {
	Scan(dest ...any) error
}

func nullableTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}
