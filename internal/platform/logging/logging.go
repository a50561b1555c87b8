// Package logging は slog による構造化 JSON ロガーの組み立てを提供します。
package logging

import (
	"log/slog"
	"os"
	"strings"
)

// New は指定レベルの構造化 JSON ロガーを生成します。未知のレベル名は
// info として扱います。
func New(level string) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(level),
	}))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
