// Package activity は追記専用の監査ログエントリの共有状態を提供します。
package activity

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

// Activity は監査エントリです。作成後に書き換えられることはありません。
type Activity struct {
	ID            string
	ActorInitials string
	ActorName     string
	ActorID       string
	Action        string
	TimeLabel     string
	OccurredAt    *time.Time
	ResourceType  string
	ResourceID    string
}

// Clone は監査エントリの深いコピーを返します。
func (a *Activity) Clone() *Activity {
	if a == nil {
		return nil
	}
	clone := *a
	if a.OccurredAt != nil {
		occurred := *a.OccurredAt
		clone.OccurredAt = &occurred
	}
	return &clone
}

// CloneAll は監査エントリ配列の深いコピーを返します。
func CloneAll(items []Activity) []Activity {
	if items == nil {
		return nil
	}
	out := make([]Activity, len(items))
	for idx := range items {
		out[idx] = *items[idx].Clone()
	}
	return out
}

// Initials は表示名からイニシャルを導出します。空の場合は "?" を返します。
func Initials(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return "?"
	}
	var b strings.Builder
	for idx, f := range fields {
		if idx >= 2 {
			break
		}
		for _, r := range f {
			b.WriteRune(unicode.ToUpper(r))
			break
		}
	}
	return b.String()
}

// RelativeLabel は相対時刻ラベルを導出します。
func RelativeLabel(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
