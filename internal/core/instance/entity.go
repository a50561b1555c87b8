package instance

import (
	"math"
	"time"

	"github.com/ogurasousui/onboard-sync/internal/core/role"
)

// Status はオンボーディング実行の進行状態を表します。
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusOnHold    Status = "on_hold"
)

// StepStatus はステップの進行状態を表します。
type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepCompleted StepStatus = "completed"
	StepStuck     StepStatus = "stuck"
)

// Step はインスタンスまたはテンプレート内のタスクです。ID は親の中でのみ
// 一意で、親をまたいで共有されることはありません。
type Step struct {
	ID          int
	Title       string
	Description string
	Role        role.Role
	Department  string
	Expert      string
	Status      StepStatus
	Link        string
}

// OnboardingInstance は 1 人の従業員のオンボーディング実行を表します。
// Steps はテンプレートから値でコピーされたスナップショットであり、作成後に
// ステップが取り除かれることはありません(各ステップの状態だけが変わります)。
type OnboardingInstance struct {
	ID            string
	EmployeeName  string
	EmployeeEmail string
	Role          role.Role
	Department    string
	TemplateID    string
	Steps         []Step
	Progress      int
	Status        Status
	CreatedAt     time.Time
	UpdatedAt     time.Time
	StartedAt     *time.Time
	CompletedAt   *time.Time
}

// Template はオンボーディングの雛形です。インスタンス化の時点でステップが
// 値でコピーされ、以後のテンプレート編集はインスタンスへ波及しません。
type Template struct {
	ID         string
	Name       string
	Role       role.Role
	Department string
	Steps      []Step
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ComputeProgress は完了ステップの比率から進捗率(0〜100)を計算します。
// ステップが空の場合は 0 を返します。
func ComputeProgress(steps []Step) int {
	if len(steps) == 0 {
		return 0
	}
	completed := 0
	for _, s := range steps {
		if s.Status == StepCompleted {
			completed++
		}
	}
	return int(math.Round(100 * float64(completed) / float64(len(steps))))
}

// NextStatus は進捗率の変化に応じた状態遷移を返します。進捗が 100 に達した
// 時点で completed になり、completed だったものが 100 を下回ると active へ
// 戻ります。それ以外の状態は維持されます。
func NextStatus(current Status, progress int) Status {
	if progress >= 100 {
		return StatusCompleted
	}
	if current == StatusCompleted {
		return StatusActive
	}
	return current
}

// CloneSteps はステップ配列の深いコピーを返します。
func CloneSteps(steps []Step) []Step {
	if steps == nil {
		return nil
	}
	out := make([]Step, len(steps))
	copy(out, steps)
	return out
}

// Clone はインスタンスの深いコピーを返します。
func (i *OnboardingInstance) Clone() *OnboardingInstance {
	if i == nil {
		return nil
	}
	clone := *i
	clone.Steps = CloneSteps(i.Steps)
	clone.StartedAt = cloneTime(i.StartedAt)
	clone.CompletedAt = cloneTime(i.CompletedAt)
	return &clone
}

// CloneAll はインスタンス配列の深いコピーを返します。
func CloneAll(instances []OnboardingInstance) []OnboardingInstance {
	if instances == nil {
		return nil
	}
	out := make([]OnboardingInstance, len(instances))
	for idx := range instances {
		out[idx] = *instances[idx].Clone()
	}
	return out
}

// NewFromTemplate はテンプレートからインスタンスを作成します。ステップは
// 値でコピーされ、全ステップの状態は pending に初期化されます。
func NewFromTemplate(tpl *Template, employeeName, employeeEmail string, now time.Time) *OnboardingInstance {
	steps := CloneSteps(tpl.Steps)
	for idx := range steps {
		steps[idx].Status = StepPending
	}
	started := now
	return &OnboardingInstance{
		EmployeeName:  employeeName,
		EmployeeEmail: employeeEmail,
		Role:          tpl.Role,
		Department:    tpl.Department,
		TemplateID:    tpl.ID,
		Steps:         steps,
		Progress:      ComputeProgress(steps),
		Status:        StatusActive,
		CreatedAt:     now,
		UpdatedAt:     now,
		StartedAt:     &started,
	}
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	clone := *t
	return &clone
}
