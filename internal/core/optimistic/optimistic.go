// Package optimistic は楽観的更新のプロトコルを 1 箇所に集約します。
// スナップショット取得 → 同期適用 → ゲートウェイ呼び出し → 失敗時の巻き戻し、
// という流れを各スライスで再実装せずに共有するためのヘルパーです。
package optimistic

import "context"

// Run は楽観的更新を 1 回実行します。
//
// capture は変更前の状態のスナップショットを返します。apply は意図した変更を
// 同期的にメモリ上へ適用します。apply は commit の await 前に完全に終わるため、
// 呼び出し側は楽観的な値を即座に観測できます。commit が失敗した場合は restore
// にスナップショットを渡して巻き戻した上で、エラーをそのまま返します。
//
// 同一状態に対する並行実行は直列化しません。後から取得したスナップショットが
// 先行する commit の結果を上書きする last-write-wins の挙動になります。
func Run[S any](ctx context.Context, capture func() S, apply func(), commit func(context.Context) error, restore func(S)) error {
	snapshot := capture()
	apply()
	if err := commit(ctx); err != nil {
		restore(snapshot)
		return err
	}
	return nil
}
