package hosted

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/ogurasousui/onboard-sync/internal/core/instance"
)

const (
	topicInstances = "onboarding_instances"
	topicUsers     = "users"
	topicSuggest   = "suggestions"
	topicActivity  = "activities"
)

// SubscribeInstances はインスタンス一覧を購読します。初回スナップショットは
// REST で同期取得し、以降は realtime 配信で全置換します。
func (c *Client) SubscribeInstances(cb func(items []instance.OnboardingInstance)) (func(), error) {
	var records []instanceRecord
	if err := c.doJSON(context.Background(), http.MethodGet, "/instances", nil, &records); err != nil {
		return nil, err
	}
	cb(instancesFromRecords(records))

	return c.subscribe(topicInstances, func(data json.RawMessage) {
		var pushed []instanceRecord
		if err := json.Unmarshal(data, &pushed); err != nil {
			c.logger.Warn("instances push decode failed", "error", err)
			return
		}
		cb(instancesFromRecords(pushed))
	}), nil
}

// CreateInstance はインスタンスを作成し、サーバー側で確定した値を返します。
func (c *Client) CreateInstance(ctx context.Context, inst *instance.OnboardingInstance) (*instance.OnboardingInstance, error) {
	body := instanceRecord{
		EmployeeName:  inst.EmployeeName,
		EmployeeEmail: inst.EmployeeEmail,
		Role:          string(inst.Role),
		Department:    inst.Department,
		TemplateID:    inst.TemplateID,
		Steps:         stepsToRecords(inst.Steps),
		Progress:      inst.Progress,
		Status:        string(inst.Status),
		StartedAt:     inst.StartedAt,
	}

	var created instanceRecord
	if err := c.doJSON(ctx, http.MethodPost, "/instances", body, &created); err != nil {
		return nil, translateInstanceError(err)
	}
	result := instanceFromRecord(created)
	return &result, nil
}

// UpdateInstance は差分のあるフィールドだけを PATCH で送ります。
func (c *Client) UpdateInstance(ctx context.Context, id string, changes instance.Changes) error {
	patch := map[string]any{}
	if changes.EmployeeName != nil {
		patch["employee_name"] = *changes.EmployeeName
	}
	if changes.Role != nil {
		patch["role"] = string(*changes.Role)
	}
	if changes.Department != nil {
		patch["department"] = *changes.Department
	}
	if changes.Status != nil {
		patch["status"] = string(*changes.Status)
	}
	if changes.Steps != nil {
		patch["steps"] = stepsToRecords(changes.Steps)
	}
	if changes.Progress != nil {
		patch["progress"] = *changes.Progress
	}
	if changes.CompletedAtSet {
		patch["completed_at"] = changes.CompletedAt
	}
	if len(patch) == 0 {
		return nil
	}

	if err := c.doJSON(ctx, http.MethodPatch, "/instances/"+url.PathEscape(id), patch, nil); err != nil {
		return translateInstanceError(err)
	}
	return nil
}

// DeleteInstance はインスタンスを削除します。
func (c *Client) DeleteInstance(ctx context.Context, id string) error {
	if err := c.doJSON(ctx, http.MethodDelete, "/instances/"+url.PathEscape(id), nil, nil); err != nil {
		return translateInstanceError(err)
	}
	return nil
}

// FindByEmployeeEmail はメールアドレスからインスタンスを検索します。
func (c *Client) FindByEmployeeEmail(ctx context.Context, email string) (*instance.OnboardingInstance, error) {
	path := "/instances/by-email?email=" + url.QueryEscape(email)
	var record instanceRecord
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &record); err != nil {
		return nil, translateInstanceError(err)
	}
	result := instanceFromRecord(record)
	return &result, nil
}

// CreateTemplate はテンプレートを作成します。
func (c *Client) CreateTemplate(ctx context.Context, tpl *instance.Template) (*instance.Template, error) {
	body := templateRecord{
		Name:       tpl.Name,
		Role:       string(tpl.Role),
		Department: tpl.Department,
		Steps:      stepsToRecords(tpl.Steps),
	}

	var created templateRecord
	if err := c.doJSON(ctx, http.MethodPost, "/templates", body, &created); err != nil {
		return nil, err
	}
	result := templateFromRecord(created)
	return &result, nil
}

// FindTemplateByID はテンプレートを取得します。
func (c *Client) FindTemplateByID(ctx context.Context, id string) (*instance.Template, error) {
	var record templateRecord
	if err := c.doJSON(ctx, http.MethodGet, "/templates/"+url.PathEscape(id), nil, &record); err != nil {
		if isStatus(err, http.StatusNotFound) {
			return nil, instance.ErrTemplateNotFound
		}
		return nil, err
	}
	result := templateFromRecord(record)
	return &result, nil
}

func translateInstanceError(err error) error {
	if isStatus(err, http.StatusNotFound) {
		return instance.ErrInstanceNotFound
	}
	return err
}
