package hosted

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/ogurasousui/onboard-sync/internal/core/activity"
)

// SubscribeActivities は監査ログ一覧を購読します。
func (c *Client) SubscribeActivities(cb func(items []activity.Activity)) (func(), error) {
	var records []activityRecord
	if err := c.doJSON(context.Background(), http.MethodGet, "/activities", nil, &records); err != nil {
		return nil, err
	}
	cb(activitiesFromRecords(records))

	return c.subscribe(topicActivity, func(data json.RawMessage) {
		var pushed []activityRecord
		if err := json.Unmarshal(data, &pushed); err != nil {
			c.logger.Warn("activities push decode failed", "error", err)
			return
		}
		cb(activitiesFromRecords(pushed))
	}), nil
}

// CreateActivity は監査エントリを追記します。
func (c *Client) CreateActivity(ctx context.Context, a *activity.Activity) (*activity.Activity, error) {
	body := activityRecord{
		ActorInitials: a.ActorInitials,
		ActorName:     a.ActorName,
		ActorID:       a.ActorID,
		Action:        a.Action,
		TimeLabel:     a.TimeLabel,
		ResourceType:  a.ResourceType,
		ResourceID:    a.ResourceID,
	}

	var created activityRecord
	if err := c.doJSON(ctx, http.MethodPost, "/activities", body, &created); err != nil {
		return nil, err
	}
	result := activityFromRecord(created)
	return &result, nil
}
