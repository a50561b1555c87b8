package hosted

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ogurasousui/onboard-sync/internal/core/instance"
)

func TestClient_SubscribeSteps_FiltersPushesByInstance(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/instances/inst-1" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"id":"inst-1","steps":[{"id":1,"title":"Setup laptop","status":"pending"}]}`))
	}))
	t.Cleanup(srv.Close)

	c := newTestClient(srv.URL)

	var snapshots [][]instance.Step
	remove, err := c.SubscribeSteps("inst-1", func(items []instance.Step) {
		snapshots = append(snapshots, items)
	})
	if err != nil {
		t.Fatalf("SubscribeSteps returned error: %v", err)
	}
	t.Cleanup(remove)

	if len(snapshots) != 1 || snapshots[0][0].Status != instance.StepPending {
		t.Fatalf("initial snapshot not delivered: %v", snapshots)
	}

	// 他インスタンスだけの配信では直前の状態を維持する。
	c.dispatch(topicInstances, json.RawMessage(`[{"id":"inst-2","steps":[]}]`))
	if len(snapshots) != 1 {
		t.Fatalf("foreign push must not notify, snapshots = %d", len(snapshots))
	}

	c.dispatch(topicInstances, json.RawMessage(`[{"id":"inst-2"},{"id":"inst-1","steps":[{"id":1,"title":"Setup laptop","status":"completed"}]}]`))
	if len(snapshots) != 2 {
		t.Fatalf("matching push not delivered, snapshots = %d", len(snapshots))
	}
	if snapshots[1][0].Status != instance.StepCompleted {
		t.Fatalf("pushed step state not applied: %+v", snapshots[1])
	}
}

func TestClient_SubscribeSteps_InstanceMissing(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	c := newTestClient(srv.URL)

	if _, err := c.SubscribeSteps("missing", func([]instance.Step) {}); !errors.Is(err, instance.ErrInstanceNotFound) {
		t.Fatalf("expected ErrInstanceNotFound, got %v", err)
	}
}

func TestClient_UpdateStepStatus(t *testing.T) {
	t.Parallel()

	var captured map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch || r.URL.Path != "/instances/inst-1/steps/2/status" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("body not decodable: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)

	c := newTestClient(srv.URL)

	if err := c.UpdateStepStatus(context.Background(), "inst-1", 2, instance.StepCompleted); err != nil {
		t.Fatalf("UpdateStepStatus returned error: %v", err)
	}
	if captured["status"] != "completed" {
		t.Fatalf("unexpected body: %v", captured)
	}
}

func TestClient_UpdateStepStatus_NotFound(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	c := newTestClient(srv.URL)

	err := c.UpdateStepStatus(context.Background(), "inst-1", 99, instance.StepCompleted)
	if !errors.Is(err, instance.ErrStepNotFound) {
		t.Fatalf("expected ErrStepNotFound, got %v", err)
	}
}
