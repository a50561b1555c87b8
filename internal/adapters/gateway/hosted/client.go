// Package hosted はホスト型バックエンドを利用するゲートウェイ実装です。
// 変更通知はトピック単位の WebSocket 購読で受け取り、サーバーは購読開始時と
// 変更のたびに対象ファミリーの全量スナップショットを配信します。変更系の
// 呼び出しは REST で行います。
package hosted

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const reconnectDelay = 3 * time.Second

// frame は realtime 接続上のメッセージです。クライアントからは event と
// topic を、サーバーからは topic と data を利用します。
type frame struct {
	Event string          `json:"event,omitempty"`
	Topic string          `json:"topic"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Client はホスト型バックエンドへの接続をまとめます。
type Client struct {
	apiURL      string
	realtimeURL string
	token       string
	httpClient  *http.Client
	logger      *slog.Logger

	mu   sync.Mutex
	seq  int
	subs map[string]map[int]func(json.RawMessage)
	conn *websocket.Conn
}

// NewClient は Client を生成します。token には匿名キーまたはアクセス
// トークンを渡します。
func NewClient(apiURL, realtimeURL, token string, logger *slog.Logger) *Client {
	return &Client{
		apiURL:      apiURL,
		realtimeURL: realtimeURL,
		token:       token,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		logger:      logger,
		subs:        make(map[string]map[int]func(json.RawMessage)),
	}
}

// Run は realtime 接続を維持します。接続が切れた場合は少し待ってから張り
// 直し、購読中のトピックを再送します。コンテキストのキャンセルで戻ります。
func (c *Client) Run(ctx context.Context) error {
	for {
		if err := c.connectAndRead(ctx); err != nil && ctx.Err() == nil {
			c.logger.Warn("realtime connection lost, reconnecting", "error", err)
		}
		if ctx.Err() != nil {
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(reconnectDelay):
		}
	}
}

func (c *Client) connectAndRead(ctx context.Context) error {
	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.realtimeURL, header)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.conn = conn
	topics := make([]string, 0, len(c.subs))
	for topic, fns := range c.subs {
		if len(fns) > 0 {
			topics = append(topics, topic)
		}
	}
	c.mu.Unlock()

	for _, topic := range topics {
		c.send(frame{Event: "subscribe", Topic: topic})
	}

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	defer func() {
		c.mu.Lock()
		if c.conn == conn {
			c.conn = nil
		}
		c.mu.Unlock()
		_ = conn.Close()
	}()

	for {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			return err
		}
		c.dispatch(f.Topic, f.Data)
	}
}

// send は接続中であればフレームを送信します。未接続時は何もしません
// (再接続時に購読フレームが再送されます)。
func (c *Client) send(f frame) {
	c.mu.Lock()
	conn := c.conn
	if conn != nil {
		if err := conn.WriteJSON(f); err != nil {
			c.logger.Warn("realtime send failed", "topic", f.Topic, "error", err)
		}
	}
	c.mu.Unlock()
}

// subscribe は topic の購読コールバックを登録し、解除関数を返します。
// topic ごとの最初の登録で購読フレームを送り、最後の解除で購読解除フレーム
// を送ります。
func (c *Client) subscribe(topic string, fn func(json.RawMessage)) (remove func()) {
	c.mu.Lock()
	c.seq++
	id := c.seq
	if c.subs[topic] == nil {
		c.subs[topic] = make(map[int]func(json.RawMessage))
	}
	first := len(c.subs[topic]) == 0
	c.subs[topic][id] = fn
	c.mu.Unlock()

	if first {
		c.send(frame{Event: "subscribe", Topic: topic})
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs[topic], id)
			last := len(c.subs[topic]) == 0
			c.mu.Unlock()
			if last {
				c.send(frame{Event: "unsubscribe", Topic: topic})
			}
		})
	}
}

func (c *Client) dispatch(topic string, data json.RawMessage) {
	c.mu.Lock()
	fns := make([]func(json.RawMessage), 0, len(c.subs[topic]))
	for _, fn := range c.subs[topic] {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(data)
	}
}
