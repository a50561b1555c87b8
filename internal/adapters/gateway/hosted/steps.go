package hosted

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ogurasousui/onboard-sync/internal/core/instance"
)

// SubscribeSteps は対象インスタンスのステップを購読します。realtime 配信は
// インスタンス一覧の全量なので、対象 ID の要素だけを抜き出して通知します。
// 配信に対象インスタンスが含まれない場合は直前の状態を維持します。
func (c *Client) SubscribeSteps(instanceID string, cb func(items []instance.Step)) (func(), error) {
	path := "/instances/" + url.PathEscape(instanceID)
	var record instanceRecord
	if err := c.doJSON(context.Background(), http.MethodGet, path, nil, &record); err != nil {
		return nil, translateInstanceError(err)
	}
	cb(stepsFromRecords(record.Steps))

	return c.subscribe(topicInstances, func(data json.RawMessage) {
		var pushed []instanceRecord
		if err := json.Unmarshal(data, &pushed); err != nil {
			c.logger.Warn("steps push decode failed", "instance_id", instanceID, "error", err)
			return
		}
		for _, r := range pushed {
			if r.ID == instanceID {
				cb(stepsFromRecords(r.Steps))
				return
			}
		}
	}), nil
}

// UpdateStepStatus はステップの状態を更新します。進捗率とインスタンス状態の
// 再計算はサーバー側で行われます。
func (c *Client) UpdateStepStatus(ctx context.Context, instanceID string, stepID int, status instance.StepStatus) error {
	path := fmt.Sprintf("/instances/%s/steps/%d/status", url.PathEscape(instanceID), stepID)
	body := map[string]string{"status": string(status)}
	if err := c.doJSON(ctx, http.MethodPatch, path, body, nil); err != nil {
		if isStatus(err, http.StatusNotFound) {
			return instance.ErrStepNotFound
		}
		return err
	}
	return nil
}
