package hosted

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/ogurasousui/onboard-sync/internal/core/role"
	"github.com/ogurasousui/onboard-sync/internal/core/user"
)

// SubscribeUsers はユーザー一覧を購読します。
func (c *Client) SubscribeUsers(cb func(items []user.User)) (func(), error) {
	var records []userRecord
	if err := c.doJSON(context.Background(), http.MethodGet, "/users", nil, &records); err != nil {
		return nil, err
	}
	cb(usersFromRecords(records))

	return c.subscribe(topicUsers, func(data json.RawMessage) {
		var pushed []userRecord
		if err := json.Unmarshal(data, &pushed); err != nil {
			c.logger.Warn("users push decode failed", "error", err)
			return
		}
		cb(usersFromRecords(pushed))
	}), nil
}

// CreateUser はユーザーを作成し、サーバー側で確定した値を返します。
func (c *Client) CreateUser(ctx context.Context, u *user.User) (*user.User, error) {
	body := userRecord{
		Email:  u.Email,
		Name:   u.Name,
		Role:   string(u.Role),
		Roles:  u.Roles,
		Status: string(u.Status),
	}

	var created userRecord
	if err := c.doJSON(ctx, http.MethodPost, "/users", body, &created); err != nil {
		return nil, translateUserError(err)
	}
	result := userFromRecord(created)
	return &result, nil
}

// UpdateUser は差分のあるフィールドだけを PATCH で送ります。
func (c *Client) UpdateUser(ctx context.Context, id string, changes user.Changes) error {
	patch := map[string]any{}
	if changes.Email != nil {
		patch["email"] = *changes.Email
	}
	if changes.Name != nil {
		patch["name"] = *changes.Name
	}
	if changes.Role != nil {
		patch["role"] = string(*changes.Role)
	}
	if changes.Roles != nil {
		patch["roles"] = changes.Roles
	}
	if changes.Status != nil {
		patch["status"] = string(*changes.Status)
	}
	if len(patch) == 0 {
		return nil
	}

	if err := c.doJSON(ctx, http.MethodPatch, "/users/"+url.PathEscape(id), patch, nil); err != nil {
		return translateUserError(err)
	}
	return nil
}

// DeleteUser はユーザーを削除します。
func (c *Client) DeleteUser(ctx context.Context, id string) error {
	if err := c.doJSON(ctx, http.MethodDelete, "/users/"+url.PathEscape(id), nil, nil); err != nil {
		return translateUserError(err)
	}
	return nil
}

// ListCustomRoles はカスタム役割の一覧を返します。
func (c *Client) ListCustomRoles(ctx context.Context) ([]role.CustomRole, error) {
	var records []customRoleRecord
	if err := c.doJSON(ctx, http.MethodGet, "/roles", nil, &records); err != nil {
		return nil, err
	}

	items := make([]role.CustomRole, len(records))
	for idx, r := range records {
		items[idx] = customRoleFromRecord(r)
	}
	return items, nil
}

// CreateCustomRole はカスタム役割を作成します。
func (c *Client) CreateCustomRole(ctx context.Context, r *role.CustomRole) (*role.CustomRole, error) {
	body := customRoleRecord{Name: r.Name, Description: r.Description}

	var created customRoleRecord
	if err := c.doJSON(ctx, http.MethodPost, "/roles", body, &created); err != nil {
		if isStatus(err, http.StatusConflict) {
			return nil, role.ErrDuplicateName
		}
		return nil, err
	}
	result := customRoleFromRecord(created)
	return &result, nil
}

// DeleteCustomRole はカスタム役割を削除します。ユーザー側の参照は弱いため
// 付け替えや掃除は行われません。
func (c *Client) DeleteCustomRole(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/roles/"+url.PathEscape(id), nil, nil)
}

func translateUserError(err error) error {
	if isStatus(err, http.StatusNotFound) {
		return user.ErrUserNotFound
	}
	if isStatus(err, http.StatusConflict) {
		return user.ErrEmailAlreadyExists
	}
	return err
}
