package optimistic

import (
	"context"
	"errors"
	"testing"
)

func TestRun_CommitSuccessKeepsAppliedState(t *testing.T) {
	t.Parallel()

	state := []string{"a"}
	restored := false

	err := Run(context.Background(),
		func() []string { return append([]string(nil), state...) },
		func() { state = append(state, "b") },
		func(context.Context) error { return nil },
		func([]string) { restored = true },
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if restored {
		t.Fatal("restore must not run on success")
	}
	if len(state) != 2 || state[1] != "b" {
		t.Fatalf("applied state lost: %v", state)
	}
}

func TestRun_CommitFailureRestoresSnapshot(t *testing.T) {
	t.Parallel()

	state := []string{"a"}
	commitErr := errors.New("gateway down")

	err := Run(context.Background(),
		func() []string { return append([]string(nil), state...) },
		func() { state = append(state, "b") },
		func(context.Context) error { return commitErr },
		func(snapshot []string) { state = snapshot },
	)
	if !errors.Is(err, commitErr) {
		t.Fatalf("expected commit error, got %v", err)
	}
	if len(state) != 1 || state[0] != "a" {
		t.Fatalf("state not rolled back: %v", state)
	}
}

func TestRun_SnapshotTakenBeforeApply(t *testing.T) {
	t.Parallel()

	state := 1
	var captured int

	_ = Run(context.Background(),
		func() int { captured = state; return state },
		func() { state = 2 },
		func(context.Context) error { return errors.New("fail") },
		func(snapshot int) { state = snapshot },
	)
	if captured != 1 {
		t.Fatalf("snapshot must precede apply, captured=%d", captured)
	}
	if state != 1 {
		t.Fatalf("expected rollback to pre-apply value, state=%d", state)
	}
}
