package user

import (
	"time"

	"github.com/ogurasousui/onboard-sync/internal/core/role"
)

// Status はユーザーの状態を表します。
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// User は管理対象のユーザーエンティティです。Roles はカスタム役割名による
// 弱い多対多参照で、参照先の役割が消えていても許容されます。
type User struct {
	ID        string
	Email     string
	Name      string
	Role      role.Role
	Roles     []string
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone はユーザーの深いコピーを返します。
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	clone := *u
	if u.Roles != nil {
		clone.Roles = make([]string, len(u.Roles))
		copy(clone.Roles, u.Roles)
	}
	return &clone
}

// CloneAll はユーザー配列の深いコピーを返します。
func CloneAll(users []User) []User {
	if users == nil {
		return nil
	}
	out := make([]User, len(users))
	for idx := range users {
		out[idx] = *users[idx].Clone()
	}
	return out
}

// Changes はユーザーの部分更新の差分です。nil のフィールドは据え置かれます。
type Changes struct {
	Email  *string
	Name   *string
	Role   *role.Role
	Roles  []string
	Status *Status
}

// IsZero は差分が空かどうかを返します。
func (c Changes) IsZero() bool {
	return c.Email == nil && c.Name == nil && c.Role == nil && c.Roles == nil && c.Status == nil
}

func (c Changes) applyTo(u *User) {
	if c.Email != nil {
		u.Email = *c.Email
	}
	if c.Name != nil {
		u.Name = *c.Name
	}
	if c.Role != nil {
		u.Role = *c.Role
	}
	if c.Roles != nil {
		roles := make([]string, len(c.Roles))
		copy(roles, c.Roles)
		u.Roles = roles
	}
	if c.Status != nil {
		u.Status = *c.Status
	}
}
