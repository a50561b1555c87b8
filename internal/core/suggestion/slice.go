package suggestion

import (
	"context"
	"sync"

	"github.com/ogurasousui/onboard-sync/internal/core/subscription"
)

// Gateway は提案のリモート操作の抽象です。
type Gateway interface {
	SubscribeSuggestions(cb func(items []Suggestion)) (unsubscribe func(), err error)
	CreateSuggestion(ctx context.Context, s *Suggestion) (*Suggestion, error)
	UpdateSuggestionStatus(ctx context.Context, id string, status Status) error
	DeleteSuggestion(ctx context.Context, id string) error
}

// Slice は提案一覧の共有状態を保持します。
//
// 完結した CRUD の代わりに、ApplyStatus・Remove・Rollback という 3 つの
// 合成可能なプリミティブを公開します。それぞれが変更前のスナップショットを
// 返す(または受け取る)ため、機能側のコードはゲートウェイ呼び出しを挟んだ
// 独自の楽観的更新列を組み立てられます。提案の承認が監査ログも書くといった
// 複合操作はこのスライスの関知するところではありません。
type Slice struct {
	gw       Gateway
	coord    *subscription.Coordinator
	watchers *subscription.Watchers

	mu      sync.Mutex
	data    []Suggestion
	loading bool
	err     error
}

// View はスライス状態のスナップショットです。
type View struct {
	Suggestions []Suggestion
	Loading     bool
	Err         error
}

// NewSlice は Slice を生成します。
func NewSlice(gw Gateway) *Slice {
	return &Slice{
		gw:       gw,
		coord:    subscription.NewCoordinator(),
		watchers: subscription.NewWatchers(),
	}
}

// Gateway はこのスライスが利用するゲートウェイを返します。機能側が一次
// プリミティブと組み合わせて直接呼び出すために公開しています。
func (s *Slice) Gateway() Gateway {
	return s.gw
}

// Subscribe は提案購読への参照を取得し、解放関数を返します。
func (s *Slice) Subscribe() (release func()) {
	return s.coord.Acquire(s.open, s.resetState)
}

func (s *Slice) open() (func(), error) {
	s.mu.Lock()
	s.loading = true
	s.err = nil
	s.mu.Unlock()
	s.watchers.Notify()

	unsub, err := s.gw.SubscribeSuggestions(s.onPush)
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

func (s *Slice) onPush(items []Suggestion) {
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
	return View{Suggestions: CloneAll(s.data), Loading: s.loading, Err: s.err}
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

// ApplyStatus は提案の状態をその場で書き換え、変更前のスナップショットを
// 返します。ゲートウェイ呼び出しは行いません。
func (s *Slice) ApplyStatus(id string, status Status) (snapshot []Suggestion) {
	s.mu.Lock()
	snapshot = CloneAll(s.data)
	next := CloneAll(s.data)
	for idx := range next {
		if next[idx].ID == id {
			next[idx].Status = status
			break
		}
	}
	s.data = next
	s.mu.Unlock()
	s.watchers.Notify()
	return snapshot
}

// Remove は提案をその場で取り除き、変更前のスナップショットを返します。
// ゲートウェイ呼び出しは行いません。
func (s *Slice) Remove(id string) (snapshot []Suggestion) {
	s.mu.Lock()
	snapshot = CloneAll(s.data)
	next := make([]Suggestion, 0, len(s.data))
	for _, item := range s.data {
		if item.ID != id {
			next = append(next, item)
		}
	}
	s.data = next
	s.mu.Unlock()
	s.watchers.Notify()
	return snapshot
}

// Rollback は一覧をスナップショットの内容へ戻します。
func (s *Slice) Rollback(snapshot []Suggestion) {
	s.mu.Lock()
	s.data = CloneAll(snapshot)
	s.mu.Unlock()
	s.watchers.Notify()
}
