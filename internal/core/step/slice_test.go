package step

import (
	"context"
	"errors"
	"testing"

	"github.com/ogurasousui/onboard-sync/internal/core/instance"
)

type fakeInstanceGateway struct {
	items []instance.OnboardingInstance
}

func (g *fakeInstanceGateway) SubscribeInstances(cb func(items []instance.OnboardingInstance)) (func(), error) {
	cb(instance.CloneAll(g.items))
	return func() {}, nil
}

func (g *fakeInstanceGateway) CreateInstance(_ context.Context, inst *instance.OnboardingInstance) (*instance.OnboardingInstance, error) {
	return inst.Clone(), nil
}

func (g *fakeInstanceGateway) UpdateInstance(_ context.Context, id string, changes instance.Changes) error {
	return nil
}

func (g *fakeInstanceGateway) DeleteInstance(_ context.Context, id string) error {
	return nil
}

func (g *fakeInstanceGateway) FindByEmployeeEmail(_ context.Context, email string) (*instance.OnboardingInstance, error) {
	return nil, instance.ErrInstanceNotFound
}

func (g *fakeInstanceGateway) CreateTemplate(_ context.Context, tpl *instance.Template) (*instance.Template, error) {
	return tpl, nil
}

func (g *fakeInstanceGateway) FindTemplateByID(_ context.Context, id string) (*instance.Template, error) {
	return nil, instance.ErrTemplateNotFound
}

type fakeStepGateway struct {
	steps        map[string][]instance.Step
	subscribes   map[string]int
	unsubscribes map[string]int
	subscribeErr error
	updateErr    error
}

func newFakeStepGateway() *fakeStepGateway {
	return &fakeStepGateway{
		steps:        make(map[string][]instance.Step),
		subscribes:   make(map[string]int),
		unsubscribes: make(map[string]int),
	}
}

func (g *fakeStepGateway) SubscribeSteps(instanceID string, cb func(items []instance.Step)) (func(), error) {
	if g.subscribeErr != nil {
		return nil, g.subscribeErr
	}
	g.subscribes[instanceID]++
	cb(instance.CloneSteps(g.steps[instanceID]))
	return func() { g.unsubscribes[instanceID]++ }, nil
}

func (g *fakeStepGateway) UpdateStepStatus(_ context.Context, instanceID string, stepID int, status instance.StepStatus) error {
	return g.updateErr
}

func newTestSlices(t *testing.T) (*Slice, *instance.Slice, *fakeStepGateway) {
	t.Helper()

	instGw := &fakeInstanceGateway{items: []instance.OnboardingInstance{
		{
			ID:       "inst-1",
			Status:   instance.StatusActive,
			Progress: 50,
			Steps: []instance.Step{
				{ID: 1, Title: "Setup laptop", Status: instance.StepCompleted},
				{ID: 2, Title: "Install IDE", Status: instance.StepPending},
			},
		},
		{
			ID:       "inst-2",
			Status:   instance.StatusActive,
			Progress: 0,
			Steps: []instance.Step{
				{ID: 1, Title: "Meet the team", Status: instance.StepPending},
			},
		},
	}}
	instances := instance.NewSlice(instGw)
	t.Cleanup(instances.Subscribe())

	stepGw := newFakeStepGateway()
	stepGw.steps["inst-1"] = []instance.Step{
		{ID: 1, Title: "Setup laptop", Status: instance.StepCompleted},
		{ID: 2, Title: "Install IDE", Status: instance.StepPending},
	}
	stepGw.steps["inst-2"] = []instance.Step{
		{ID: 1, Title: "Meet the team", Status: instance.StepPending},
	}

	return NewSlice(stepGw, instances), instances, stepGw
}

func TestSlice_KeyedSubscriptionsAreIndependent(t *testing.T) {
	t.Parallel()

	s, _, gw := newTestSlices(t)

	rel1a := s.Subscribe("inst-1")
	rel1b := s.Subscribe("inst-1")
	rel2 := s.Subscribe("inst-2")

	if gw.subscribes["inst-1"] != 1 || gw.subscribes["inst-2"] != 1 {
		t.Fatalf("expected one subscription per key, got %v", gw.subscribes)
	}

	rel1a()
	rel1b()
	if gw.unsubscribes["inst-1"] != 1 {
		t.Fatalf("expected inst-1 unsubscribed once, got %d", gw.unsubscribes["inst-1"])
	}
	if gw.unsubscribes["inst-2"] != 0 {
		t.Fatal("closing inst-1 must not close inst-2")
	}
	if view := s.View("inst-1"); view.Steps != nil {
		t.Fatalf("inst-1 cache must be cleared: %+v", view.Steps)
	}
	if view := s.View("inst-2"); len(view.Steps) != 1 {
		t.Fatalf("inst-2 cache must survive: %+v", view.Steps)
	}

	rel2()
}

func TestSlice_SetStatusSyncsInstanceSlice(t *testing.T) {
	t.Parallel()

	s, instances, _ := newTestSlices(t)
	rel := s.Subscribe("inst-1")
	defer rel()

	if err := s.SetStatus(context.Background(), "inst-1", 2, instance.StepCompleted); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	view := s.View("inst-1")
	if view.Steps[1].Status != instance.StepCompleted {
		t.Fatalf("cache not updated: %+v", view.Steps)
	}

	inst := instances.Find("inst-1")
	if inst.Steps[1].Status != instance.StepCompleted {
		t.Fatalf("embedded steps not synced: %+v", inst.Steps)
	}
	if inst.Progress != 100 {
		t.Fatalf("progress not recomputed, got %d", inst.Progress)
	}
	if inst.Status != instance.StatusCompleted {
		t.Fatalf("status not recomputed, got %s", inst.Status)
	}
}

func TestSlice_SetStatusRollsBackBothViews(t *testing.T) {
	t.Parallel()

	s, instances, gw := newTestSlices(t)
	rel := s.Subscribe("inst-1")
	defer rel()

	gw.updateErr = errors.New("gateway down")

	err := s.SetStatus(context.Background(), "inst-1", 2, instance.StepCompleted)
	if err == nil {
		t.Fatal("expected error from gateway")
	}

	view := s.View("inst-1")
	if view.Steps[1].Status != instance.StepPending {
		t.Fatalf("cache not rolled back: %+v", view.Steps)
	}

	inst := instances.Find("inst-1")
	if inst.Steps[1].Status != instance.StepPending {
		t.Fatalf("embedded steps not rolled back: %+v", inst.Steps)
	}
	if inst.Progress != 50 {
		t.Fatalf("progress not rolled back, got %d", inst.Progress)
	}
	if inst.Status != instance.StatusActive {
		t.Fatalf("status not rolled back, got %s", inst.Status)
	}
}

func TestSlice_SetStatusWithoutCacheStillUpdatesInstances(t *testing.T) {
	t.Parallel()

	// キャッシュのキーを購読していなくても、インスタンス側の埋め込み
	// ステップは同期される。
	s, instances, _ := newTestSlices(t)

	if err := s.SetStatus(context.Background(), "inst-2", 1, instance.StepCompleted); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	inst := instances.Find("inst-2")
	if inst.Progress != 100 || inst.Status != instance.StatusCompleted {
		t.Fatalf("instance not updated: progress=%d status=%s", inst.Progress, inst.Status)
	}
	if view := s.View("inst-2"); view.Steps != nil {
		t.Fatal("cache key must not appear without a subscription")
	}
}

func TestSlice_ResubscribeFetchesFreshSnapshot(t *testing.T) {
	t.Parallel()

	s, _, gw := newTestSlices(t)

	rel := s.Subscribe("inst-1")
	rel()

	gw.steps["inst-1"] = []instance.Step{
		{ID: 1, Title: "Setup laptop", Status: instance.StepCompleted},
		{ID: 2, Title: "Install IDE", Status: instance.StepCompleted},
		{ID: 3, Title: "Read the handbook", Status: instance.StepPending},
	}

	rel = s.Subscribe("inst-1")
	defer rel()

	if gw.subscribes["inst-1"] != 2 {
		t.Fatalf("expected a fresh gateway subscription, got %d", gw.subscribes["inst-1"])
	}
	if view := s.View("inst-1"); len(view.Steps) != 3 {
		t.Fatalf("stale snapshot after resubscribe: %+v", view.Steps)
	}
}
