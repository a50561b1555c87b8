package instance

import (
	"context"
	"time"

	"github.com/ogurasousui/onboard-sync/internal/core/role"
)

// Gateway はインスタンスとテンプレートのリモート操作の抽象です。
// SubscribeInstances のコールバックはサーバー側の最新スナップショットで
// 都度全置換されます。購読の開始に失敗した場合はエラーを返します。
type Gateway interface {
	SubscribeInstances(cb func(items []OnboardingInstance)) (unsubscribe func(), err error)
	CreateInstance(ctx context.Context, inst *OnboardingInstance) (*OnboardingInstance, error)
	UpdateInstance(ctx context.Context, id string, changes Changes) error
	DeleteInstance(ctx context.Context, id string) error
	FindByEmployeeEmail(ctx context.Context, email string) (*OnboardingInstance, error)

	CreateTemplate(ctx context.Context, tpl *Template) (*Template, error)
	FindTemplateByID(ctx context.Context, id string) (*Template, error)
}

// Changes はインスタンスの部分更新の差分です。nil のフィールドは据え置かれ
// ます。CompletedAt だけは nil への明示的な更新を区別するため Set フラグを
// 併用します。
type Changes struct {
	EmployeeName   *string
	Role           *role.Role
	Department     *string
	Status         *Status
	Steps          []Step
	Progress       *int
	CompletedAt    *time.Time
	CompletedAtSet bool
}

// IsZero は差分が空かどうかを返します。
func (c Changes) IsZero() bool {
	return c.EmployeeName == nil && c.Role == nil && c.Department == nil &&
		c.Status == nil && c.Steps == nil && c.Progress == nil && !c.CompletedAtSet
}

func (c Changes) applyTo(inst *OnboardingInstance) {
	if c.EmployeeName != nil {
		inst.EmployeeName = *c.EmployeeName
	}
	if c.Role != nil {
		inst.Role = *c.Role
	}
	if c.Department != nil {
		inst.Department = *c.Department
	}
	if c.Status != nil {
		inst.Status = *c.Status
	}
	if c.Steps != nil {
		inst.Steps = CloneSteps(c.Steps)
	}
	if c.Progress != nil {
		inst.Progress = *c.Progress
	}
	if c.CompletedAtSet {
		inst.CompletedAt = cloneTime(c.CompletedAt)
	}
}
