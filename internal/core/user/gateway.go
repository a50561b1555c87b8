package user

import (
	"context"

	"github.com/ogurasousui/onboard-sync/internal/core/role"
)

// Gateway はユーザーおよびカスタム役割のリモート操作の抽象です。
type Gateway interface {
	SubscribeUsers(cb func(items []User)) (unsubscribe func(), err error)
	CreateUser(ctx context.Context, u *User) (*User, error)
	UpdateUser(ctx context.Context, id string, changes Changes) error
	DeleteUser(ctx context.Context, id string) error

	ListCustomRoles(ctx context.Context) ([]role.CustomRole, error)
	CreateCustomRole(ctx context.Context, r *role.CustomRole) (*role.CustomRole, error)
	DeleteCustomRole(ctx context.Context, id string) error
}
