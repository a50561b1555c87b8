package activity

import (
	"context"
	"sync"

	"github.com/ogurasousui/onboard-sync/internal/core/subscription"
)

// Gateway は監査ログのリモート操作の抽象です。エントリの作成は機能側
// (提案レビューやインスタンス作成)が行い、スライス自体は読み取り専用です。
type Gateway interface {
	SubscribeActivities(cb func(items []Activity)) (unsubscribe func(), err error)
	CreateActivity(ctx context.Context, a *Activity) (*Activity, error)
}

// Slice は監査ログ一覧の共有状態を保持します。変更操作は持ちません。
type Slice struct {
	gw       Gateway
	coord    *subscription.Coordinator
	watchers *subscription.Watchers

	mu      sync.Mutex
	data    []Activity
	loading bool
	err     error
}

// View はスライス状態のスナップショットです。
type View struct {
	Activities []Activity
	Loading    bool
	Err        error
}

// NewSlice は Slice を生成します。
func NewSlice(gw Gateway) *Slice {
	return &Slice{
		gw:       gw,
		coord:    subscription.NewCoordinator(),
		watchers: subscription.NewWatchers(),
	}
}

// Subscribe は監査ログ購読への参照を取得し、解放関数を返します。
func (s *Slice) Subscribe() (release func()) {
	return s.coord.Acquire(s.open, s.resetState)
}

func (s *Slice) open() (func(), error) {
	s.mu.Lock()
	s.loading = true
	s.err = nil
	s.mu.Unlock()
	s.watchers.Notify()

	unsub, err := s.gw.SubscribeActivities(s.onPush)
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

func (s *Slice) onPush(items []Activity) {
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
	return View{Activities: CloneAll(s.data), Loading: s.loading, Err: s.err}
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
