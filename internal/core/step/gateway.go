// Package step はインスタンス ID をキーにしたステップ一覧の共有状態と、
// インスタンス側に埋め込まれたステップとの同期更新を提供します。
package step

import (
	"context"

	"github.com/ogurasousui/onboard-sync/internal/core/instance"
)

// Gateway はステップのリモート操作の抽象です。購読はインスタンス ID 単位で
// 行い、コールバックは対象インスタンスのステップ全量で都度置換されます。
type Gateway interface {
	SubscribeSteps(instanceID string, cb func(items []instance.Step)) (unsubscribe func(), err error)
	UpdateStepStatus(ctx context.Context, instanceID string, stepID int, status instance.StepStatus) error
}
