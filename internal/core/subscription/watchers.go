package subscription

import "sync"

// Watchers はスライスの状態変更を購読する通知先の一覧です。
// 通知はロックを保持せずに行うため、コールバック内から Add や remove を
// 呼び出しても安全です。
type Watchers struct {
	mu       sync.Mutex
	seq      int
	watchers map[int]func()
}

// NewWatchers は Watchers を生成します。
func NewWatchers() *Watchers {
	return &Watchers{watchers: make(map[int]func())}
}

// Add は通知先を登録し、登録解除関数を返します。解除関数は冪等です。
func (w *Watchers) Add(fn func()) (remove func()) {
	w.mu.Lock()
	w.seq++
	id := w.seq
	w.watchers[id] = fn
	w.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			w.mu.Lock()
			delete(w.watchers, id)
			w.mu.Unlock()
		})
	}
}

// Notify は登録中の全通知先を呼び出します。
func (w *Watchers) Notify() {
	w.mu.Lock()
	fns := make([]func(), 0, len(w.watchers))
	for _, fn := range w.watchers {
		fns = append(fns, fn)
	}
	w.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
