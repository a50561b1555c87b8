package instance

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ogurasousui/onboard-sync/internal/core/optimistic"
	"github.com/ogurasousui/onboard-sync/internal/core/subscription"
)

// Slice はインスタンス一覧の共有状態を保持します。状態の更新は常に新しい
// 値を作って公開する copy-on-write で行い、公開済みの配列を後から書き換える
// ことはありません。
type Slice struct {
	gw       Gateway
	coord    *subscription.Coordinator
	watchers *subscription.Watchers

	mu      sync.Mutex
	data    []OnboardingInstance
	loading bool
	err     error
}

// View はスライス状態のスナップショットです。
type View struct {
	Instances []OnboardingInstance
	Loading   bool
	Err       error
}

// NewSlice は Slice を生成します。
func NewSlice(gw Gateway) *Slice {
	return &Slice{
		gw:       gw,
		coord:    subscription.NewCoordinator(),
		watchers: subscription.NewWatchers(),
	}
}

// Subscribe はインスタンス購読への参照を取得し、解放関数を返します。
// 最初の呼び出しだけがゲートウェイ購読を開き、最後の解放で閉じます。
// 購読開始の失敗はエラーとして状態に記録され、呼び出し元へは伝播しません。
func (s *Slice) Subscribe() (release func()) {
	return s.coord.Acquire(s.open, s.resetState)
}

func (s *Slice) open() (func(), error) {
	s.mu.Lock()
	s.loading = true
	s.err = nil
	s.mu.Unlock()
	s.watchers.Notify()

	unsub, err := s.gw.SubscribeInstances(s.onPush)
	if err != nil {
		s.mu.Lock()
		s.err = err
		s.loading = false
		s.mu.Unlock()
		s.watchers.Notify()
		return nil, err
	}
	return unsub, nil
}

func (s *Slice) onPush(items []OnboardingInstance) {
	s.mu.Lock()
	s.data = CloneAll(items)
	s.loading = false
	s.mu.Unlock()
	s.watchers.Notify()
}

func (s *Slice) resetState() {
	s.mu.Lock()
	s.data = nil
	s.loading = false
	s.err = nil
	s.mu.Unlock()
	s.watchers.Notify()
}

// View は現在の状態のスナップショットを返します。
func (s *Slice) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return View{Instances: CloneAll(s.data), Loading: s.loading, Err: s.err}
}

// Watch は状態変更の通知先を登録し、解除関数を返します。
func (s *Slice) Watch(fn func()) (remove func()) {
	return s.watchers.Add(fn)
}

// Reset は購読と状態を強制的に初期化します。
func (s *Slice) Reset() {
	s.coord.Reset()
	s.resetState()
}

// Add はサーバー側で作成が確定したインスタンスを一覧へ追加します。
// 作成自体は既に完了しているため、楽観的更新や巻き戻しはありません。
func (s *Slice) Add(inst *OnboardingInstance) {
	if inst == nil {
		return
	}
	s.mu.Lock()
	next := make([]OnboardingInstance, 0, len(s.data)+1)
	next = append(next, s.data...)
	next = append(next, *inst.Clone())
	s.data = next
	s.mu.Unlock()
	s.watchers.Notify()
}

// Remove はインスタンスを削除します。削除は悲観的に行います。先にゲート
// ウェイ呼び出しを完了させ、成功した場合のみローカル状態から取り除きます。
// 失敗時は状態へ一切手を付けずエラーを返します。
func (s *Slice) Remove(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("id: %w", ErrInvalidID)
	}

	if err := s.gw.DeleteInstance(ctx, id); err != nil {
		return err
	}

	s.mu.Lock()
	next := make([]OnboardingInstance, 0, len(s.data))
	for _, inst := range s.data {
		if inst.ID != id {
			next = append(next, inst)
		}
	}
	s.data = next
	s.mu.Unlock()
	s.watchers.Notify()
	return nil
}

// UpdateFields は差分を楽観的に適用してからゲートウェイへ反映します。
// ゲートウェイ呼び出しが失敗した場合は配列全体を変更前のスナップショット
// へ巻き戻した上でエラーを返します。
func (s *Slice) UpdateFields(ctx context.Context, id string, changes Changes) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("id: %w", ErrInvalidID)
	}
	if changes.IsZero() {
		return nil
	}

	return optimistic.Run(ctx,
		s.SnapshotAll,
		func() {
			s.mu.Lock()
			next := CloneAll(s.data)
			for idx := range next {
				if next[idx].ID == id {
					changes.applyTo(&next[idx])
					break
				}
			}
			s.data = next
			s.mu.Unlock()
			s.watchers.Notify()
		},
		func(ctx context.Context) error {
			return s.gw.UpdateInstance(ctx, id, changes)
		},
		s.Restore,
	)
}

// SnapshotAll は現在の一覧の深いコピーを返します。巻き戻し用スナップ
// ショットとして利用します。
func (s *Slice) SnapshotAll() []OnboardingInstance {
	s.mu.Lock()
	defer s.mu.Unlock()
	return CloneAll(s.data)
}

// Restore は一覧をスナップショットの内容へ置き換えます。
func (s *Slice) Restore(snapshot []OnboardingInstance) {
	s.mu.Lock()
	s.data = CloneAll(snapshot)
	s.mu.Unlock()
	s.watchers.Notify()
}

// ApplyStepStatus は対象インスタンスに埋め込まれたステップの状態を同期的に
// 更新し、進捗率と状態を不変条件どおりに再計算します。対象が見つかった
// 場合は true を返します。ゲートウェイ呼び出しは行いません。
func (s *Slice) ApplyStepStatus(instanceID string, stepID int, status StepStatus) bool {
	s.mu.Lock()
	found := false
	next := CloneAll(s.data)
	for idx := range next {
		if next[idx].ID != instanceID {
			continue
		}
		for sIdx := range next[idx].Steps {
			if next[idx].Steps[sIdx].ID == stepID {
				next[idx].Steps[sIdx].Status = status
				found = true
				break
			}
		}
		if found {
			next[idx].Progress = ComputeProgress(next[idx].Steps)
			next[idx].Status = NextStatus(next[idx].Status, next[idx].Progress)
		}
		break
	}
	if found {
		s.data = next
	}
	s.mu.Unlock()

	if found {
		s.watchers.Notify()
	}
	return found
}

// Find は ID からインスタンスのコピーを返します。存在しない場合は nil です。
func (s *Slice) Find(id string) *OnboardingInstance {
	s.mu.Lock()
	defer s.mu.Unlock()
	for idx := range s.data {
		if s.data[idx].ID == id {
			return s.data[idx].Clone()
		}
	}
	return nil
}
