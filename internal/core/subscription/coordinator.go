package subscription

import "sync"

// OpenFunc はゲートウェイ購読を開始し、購読解除関数を返します。
// 開始に失敗した場合はエラーを返し、購読解除関数は生成されません。
type OpenFunc func() (func(), error)

// Coordinator は 1 つのエンティティファミリーに対するゲートウェイ購読を
// 参照カウントで多重化します。最初の Acquire で購読を開き、最後の解放で
// 閉じます。ファイルスコープのグローバル変数ではなく、Store が所有する
// 明示的なインスタンスとして構築します。
type Coordinator struct {
	mu          sync.Mutex
	count       int
	gen         int
	unsubscribe func()
}

// NewCoordinator は Coordinator を生成します。
func NewCoordinator() *Coordinator {
	return &Coordinator{}
}

// Acquire は購読への参照を 1 つ取得し、解放関数を返します。
// 参照カウントが 0 から 1 になる時のみ open を呼び出します。open が失敗しても
// 参照カウントは加算済みのままで、購読解除ハンドルだけが存在しない状態に
// なります(呼び出し側はエラーを状態として保持します)。
// 返される解放関数は冪等です。2 回目以降の呼び出しは何もしません。
// 参照カウントが 0 に戻った時点で保持中の購読解除ハンドルを呼び出し、
// ハンドルを破棄した後に onIdle を呼び出します。
//
// open はロックの外で呼び出します。open の中で同じ Coordinator への
// Acquire や解放(購読直後の同期スナップショット配信から再入するケース)
// が発生してもデッドロックしません。
func (c *Coordinator) Acquire(open OpenFunc, onIdle func()) (release func()) {
	c.mu.Lock()
	c.count++
	first := c.count == 1
	gen := c.gen
	c.mu.Unlock()

	if first {
		if unsub, err := open(); err == nil {
			c.adopt(gen, unsub)
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			c.release(onIdle)
		})
	}
}

// adopt は open が返した購読解除ハンドルを保持します。open の実行中に
// 最後の解放や Reset で世代が進んでいた場合、ハンドルは保持せず即座に
// 呼び出して購読を閉じます。
func (c *Coordinator) adopt(gen int, unsub func()) {
	c.mu.Lock()
	if gen == c.gen && c.count > 0 {
		c.unsubscribe = unsub
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	unsub()
}

func (c *Coordinator) release(onIdle func()) {
	c.mu.Lock()
	if c.count > 0 {
		c.count--
	}
	var unsub func()
	idle := c.count == 0
	if idle {
		unsub = c.unsubscribe
		c.unsubscribe = nil
		c.gen++
	}
	c.mu.Unlock()

	if !idle {
		return
	}
	if unsub != nil {
		unsub()
	}
	if onIdle != nil {
		onIdle()
	}
}

// Count は現在の参照カウントを返します。
func (c *Coordinator) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

// Reset は参照カウントに関わらず購読を強制的に解除し、初期状態へ戻します。
// テストの後始末や Store の破棄で利用します。Reset 後に残存する解放関数の
// 呼び出しは無害です。
func (c *Coordinator) Reset() {
	c.mu.Lock()
	unsub := c.unsubscribe
	c.unsubscribe = nil
	c.count = 0
	c.gen++
	c.mu.Unlock()

	if unsub != nil {
		unsub()
	}
}
