package activity

import (
	"testing"
	"time"
)

func TestInitials(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"two names", "Taro Yamada", "TY"},
		{"single name", "Madonna", "M"},
		{"three names take first two", "Ana Maria Silva", "AM"},
		{"lowercase", "taro yamada", "TY"},
		{"empty", "", "?"},
		{"whitespace only", "   ", "?"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := Initials(tc.input); got != tc.want {
				t.Fatalf("Initials(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestRelativeLabel(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		at   time.Time
		want string
	}{
		{"seconds ago", now.Add(-30 * time.Second), "just now"},
		{"minutes ago", now.Add(-5 * time.Minute), "5m ago"},
		{"hours ago", now.Add(-3 * time.Hour), "3h ago"},
		{"days ago", now.Add(-49 * time.Hour), "2d ago"},
		{"same instant", now, "just now"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := RelativeLabel(tc.at, now); got != tc.want {
				t.Fatalf("RelativeLabel = %q, want %q", got, tc.want)
			}
		})
	}
}
