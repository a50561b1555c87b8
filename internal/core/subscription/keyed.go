package subscription

import "sync"

// keyState はキーごとの参照カウントと購読解除ハンドルをまとめて保持します。
// カウントとハンドルを別々のマップに持つと整合が崩れやすいため、1 レコードに
// まとめています(count > 0 のエントリだけがマップに存在します)。
type keyState struct {
	count       int
	unsubscribe func()
}

// KeyedCoordinator はキー(インスタンス ID など)ごとに独立した参照カウント
// と購読を管理します。あるキーの開始・停止は他のキーへ一切影響しません。
type KeyedCoordinator struct {
	mu      sync.Mutex
	entries map[string]*keyState
}

// NewKeyedCoordinator は KeyedCoordinator を生成します。
func NewKeyedCoordinator() *KeyedCoordinator {
	return &KeyedCoordinator{entries: make(map[string]*keyState)}
}

// Acquire は key に対する購読への参照を 1 つ取得し、解放関数を返します。
// セマンティクスは Coordinator.Acquire と同一で、キー単位に適用されます。
// 参照カウントが 0 に戻るとエントリ自体を削除し、onIdle を呼び出します。
//
// open はロックの外で呼び出します。open の中から同じキーへの再入や
// 別キーの Acquire が発生してもデッドロックせず、キー間の独立性も
// 保たれます。
func (c *KeyedCoordinator) Acquire(key string, open OpenFunc, onIdle func()) (release func()) {
	c.mu.Lock()
	st, ok := c.entries[key]
	if !ok {
		st = &keyState{}
		c.entries[key] = st
	}
	st.count++
	first := st.count == 1
	c.mu.Unlock()

	if first {
		if unsub, err := open(); err == nil {
			c.adopt(key, st, unsub)
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			c.release(key, onIdle)
		})
	}
}

// adopt は open が返した購読解除ハンドルをエントリに保持します。open の
// 実行中に最後の解放や Reset でエントリが削除されていた(または別の
// エントリに置き換わっていた)場合、ハンドルは保持せず即座に呼び出して
// 購読を閉じます。
func (c *KeyedCoordinator) adopt(key string, st *keyState, unsub func()) {
	c.mu.Lock()
	if cur, ok := c.entries[key]; ok && cur == st && st.count > 0 {
		st.unsubscribe = unsub
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	unsub()
}

func (c *KeyedCoordinator) release(key string, onIdle func()) {
	c.mu.Lock()
	st, ok := c.entries[key]
	if !ok {
		c.mu.Unlock()
		return
	}
	if st.count > 0 {
		st.count--
	}
	var unsub func()
	idle := st.count == 0
	if idle {
		unsub = st.unsubscribe
		delete(c.entries, key)
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

// Count は key の現在の参照カウントを返します。
func (c *KeyedCoordinator) Count(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if st, ok := c.entries[key]; ok {
		return st.count
	}
	return 0
}

// Reset は全キーの購読を強制的に解除し、初期状態へ戻します。
func (c *KeyedCoordinator) Reset() {
	c.mu.Lock()
	unsubs := make([]func(), 0, len(c.entries))
	for key, st := range c.entries {
		if st.unsubscribe != nil {
			unsubs = append(unsubs, st.unsubscribe)
		}
		delete(c.entries, key)
	}
	c.mu.Unlock()

	for _, unsub := range unsubs {
		unsub()
	}
}
