package step

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ogurasousui/onboard-sync/internal/core/instance"
	"github.com/ogurasousui/onboard-sync/internal/core/optimistic"
	"github.com/ogurasousui/onboard-sync/internal/core/subscription"
)

// Slice はインスタンス ID をキーとするステップキャッシュです。キーごとに
// 独立した参照カウント・購読・ロード状態を持ち、あるキーの開始・停止は他の
// キーへ影響しません。
type Slice struct {
	gw        Gateway
	instances *instance.Slice
	coord     *subscription.KeyedCoordinator
	watchers  *subscription.Watchers

	mu      sync.Mutex
	data    map[string][]instance.Step
	loading map[string]bool
	errs    map[string]error
}

// View は 1 キー分の状態のスナップショットです。
type View struct {
	Steps   []instance.Step
	Loading bool
	Err     error
}

// NewSlice は Slice を生成します。instances はステップ状態の更新を
// インスタンス側の埋め込みステップへ同期させるために必要です。
func NewSlice(gw Gateway, instances *instance.Slice) *Slice {
	return &Slice{
		gw:        gw,
		instances: instances,
		coord:     subscription.NewKeyedCoordinator(),
		watchers:  subscription.NewWatchers(),
		data:      make(map[string][]instance.Step),
		loading:   make(map[string]bool),
		errs:      make(map[string]error),
	}
}

// Subscribe は instanceID のステップ購読への参照を取得し、解放関数を返し
// ます。キーごとの初回だけがゲートウェイ購読を開き、最後の解放でそのキー
// の状態を空に戻します。
func (s *Slice) Subscribe(instanceID string) (release func()) {
	return s.coord.Acquire(instanceID,
		func() (func(), error) { return s.open(instanceID) },
		func() { s.resetKey(instanceID) },
	)
}

func (s *Slice) open(instanceID string) (func(), error) {
	s.mu.Lock()
	s.loading[instanceID] = true
	delete(s.errs, instanceID)
	s.mu.Unlock()
	s.watchers.Notify()

	unsub, err := s.gw.SubscribeSteps(instanceID, func(items []instance.Step) {
		s.onPush(instanceID, items)
	})
	if err != nil {
		s.mu.Lock()
		s.errs[instanceID] = err
		s.loading[instanceID] = false
		s.mu.Unlock()
		s.watchers.Notify()
		return nil, err
	}
	return unsub, nil
}

func (s *Slice) onPush(instanceID string, items []instance.Step) {
	s.mu.Lock()
	s.data[instanceID] = instance.CloneSteps(items)
	s.loading[instanceID] = false
	s.mu.Unlock()
	s.watchers.Notify()
}

func (s *Slice) resetKey(instanceID string) {
	s.mu.Lock()
	delete(s.data, instanceID)
	delete(s.loading, instanceID)
	delete(s.errs, instanceID)
	s.mu.Unlock()
	s.watchers.Notify()
}

// View は instanceID の現在の状態のスナップショットを返します。
func (s *Slice) View(instanceID string) View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return View{
		Steps:   instance.CloneSteps(s.data[instanceID]),
		Loading: s.loading[instanceID],
		Err:     s.errs[instanceID],
	}
}

// Watch は状態変更の通知先を登録し、解除関数を返します。
func (s *Slice) Watch(fn func()) (remove func()) {
	return s.watchers.Add(fn)
}

// Reset は全キーの購読と状態を強制的に初期化します。
func (s *Slice) Reset() {
	s.coord.Reset()
	s.mu.Lock()
	s.data = make(map[string][]instance.Step)
	s.loading = make(map[string]bool)
	s.errs = make(map[string]error)
	s.mu.Unlock()
	s.watchers.Notify()
}

// snapshot は SetStatus の巻き戻しに使う両スライスのスナップショットです。
// キャッシュとインスタンス側の 2 つのビューは必ず一緒に巻き戻します。
type snapshot struct {
	steps     []instance.Step
	hadKey    bool
	instances []instance.OnboardingInstance
}

// SetStatus はステップの状態を更新します。キー付きキャッシュと、一致する
// インスタンスの埋め込みステップの両方を UI から見て同一ティック内で同期的
// に更新し、進捗率と状態を再計算します。ゲートウェイ呼び出しが失敗した
// 場合は両方のビューを変更前のスナップショットへまとめて巻き戻します。
func (s *Slice) SetStatus(ctx context.Context, instanceID string, stepID int, status instance.StepStatus) error {
	if strings.TrimSpace(instanceID) == "" {
		return fmt.Errorf("instance id: %w", instance.ErrInvalidID)
	}

	return optimistic.Run(ctx,
		func() snapshot {
			s.mu.Lock()
			steps, hadKey := s.data[instanceID]
			snap := snapshot{
				steps:  instance.CloneSteps(steps),
				hadKey: hadKey,
			}
			s.mu.Unlock()
			snap.instances = s.instances.SnapshotAll()
			return snap
		},
		func() {
			s.applyStatus(instanceID, stepID, status)
			s.instances.ApplyStepStatus(instanceID, stepID, status)
		},
		func(ctx context.Context) error {
			return s.gw.UpdateStepStatus(ctx, instanceID, stepID, status)
		},
		func(snap snapshot) {
			s.mu.Lock()
			if snap.hadKey {
				s.data[instanceID] = instance.CloneSteps(snap.steps)
			} else {
				delete(s.data, instanceID)
			}
			s.mu.Unlock()
			s.instances.Restore(snap.instances)
			s.watchers.Notify()
		},
	)
}

func (s *Slice) applyStatus(instanceID string, stepID int, status instance.StepStatus) {
	s.mu.Lock()
	steps, ok := s.data[instanceID]
	if ok {
		next := instance.CloneSteps(steps)
		for idx := range next {
			if next[idx].ID == stepID {
				next[idx].Status = status
				break
			}
		}
		s.data[instanceID] = next
	}
	s.mu.Unlock()
	if ok {
		s.watchers.Notify()
	}
}
