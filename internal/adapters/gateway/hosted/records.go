package hosted

import (
	"time"

	"github.com/ogurasousui/onboard-sync/internal/core/activity"
	"github.com/ogurasousui/onboard-sync/internal/core/instance"
	"github.com/ogurasousui/onboard-sync/internal/core/role"
	"github.com/ogurasousui/onboard-sync/internal/core/suggestion"
	"github.com/ogurasousui/onboard-sync/internal/core/user"
)

type stepRecord struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Role        string `json:"role"`
	Department  string `json:"department"`
	Expert      string `json:"expert"`
	Status      string `json:"status"`
	Link        string `json:"link,omitempty"`
}

type instanceRecord struct {
	ID            string       `json:"id"`
	EmployeeName  string       `json:"employee_name"`
	EmployeeEmail string       `json:"employee_email"`
	Role          string       `json:"role"`
	Department    string       `json:"department"`
	TemplateID    string       `json:"template_id"`
	Steps         []stepRecord `json:"steps"`
	Progress      int          `json:"progress"`
	Status        string       `json:"status"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
	StartedAt     *time.Time   `json:"started_at,omitempty"`
	CompletedAt   *time.Time   `json:"completed_at,omitempty"`
}

type templateRecord struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	Role       string       `json:"role"`
	Department string       `json:"department"`
	Steps      []stepRecord `json:"steps"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

type userRecord struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	Roles     []string  `json:"roles"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type customRoleRecord struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

type suggestionRecord struct {
	ID         string     `json:"id"`
	StepID     int        `json:"step_id"`
	Author     string     `json:"author"`
	Text       string     `json:"text"`
	Status     string     `json:"status"`
	CreatedAt  *time.Time `json:"created_at,omitempty"`
	InstanceID string     `json:"instance_id,omitempty"`
}

type activityRecord struct {
	ID            string     `json:"id"`
	ActorInitials string     `json:"actor_initials"`
	ActorName     string     `json:"actor_name"`
	ActorID       string     `json:"actor_id"`
	Action        string     `json:"action"`
	TimeLabel     string     `json:"time_label"`
	OccurredAt    *time.Time `json:"occurred_at,omitempty"`
	ResourceType  string     `json:"resource_type,omitempty"`
	ResourceID    string     `json:"resource_id,omitempty"`
}

func stepsFromRecords(records []stepRecord) []instance.Step {
	if records == nil {
		return nil
	}
	out := make([]instance.Step, len(records))
	for idx, r := range records {
		out[idx] = instance.Step{
			ID:          r.ID,
			Title:       r.Title,
			Description: r.Description,
			Role:        role.Role(r.Role),
			Department:  r.Department,
			Expert:      r.Expert,
			Status:      instance.StepStatus(r.Status),
			Link:        r.Link,
		}
	}
	return out
}

func stepsToRecords(steps []instance.Step) []stepRecord {
	if steps == nil {
		return nil
	}
	out := make([]stepRecord, len(steps))
	for idx, s := range steps {
		out[idx] = stepRecord{
			ID:          s.ID,
			Title:       s.Title,
			Description: s.Description,
			Role:        string(s.Role),
			Department:  s.Department,
			Expert:      s.Expert,
			Status:      string(s.Status),
			Link:        s.Link,
		}
	}
	return out
}

func instanceFromRecord(r instanceRecord) instance.OnboardingInstance {
	return instance.OnboardingInstance{
		ID:            r.ID,
		EmployeeName:  r.EmployeeName,
		EmployeeEmail: r.EmployeeEmail,
		Role:          role.Role(r.Role),
		Department:    r.Department,
		TemplateID:    r.TemplateID,
		Steps:         stepsFromRecords(r.Steps),
		Progress:      r.Progress,
		Status:        instance.Status(r.Status),
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
		StartedAt:     r.StartedAt,
		CompletedAt:   r.CompletedAt,
	}
}

func instancesFromRecords(records []instanceRecord) []instance.OnboardingInstance {
	if records == nil {
		return nil
	}
	out := make([]instance.OnboardingInstance, len(records))
	for idx, r := range records {
		out[idx] = instanceFromRecord(r)
	}
	return out
}

func templateFromRecord(r templateRecord) instance.Template {
	return instance.Template{
		ID:         r.ID,
		Name:       r.Name,
		Role:       role.Role(r.Role),
		Department: r.Department,
		Steps:      stepsFromRecords(r.Steps),
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

func userFromRecord(r userRecord) user.User {
	return user.User{
		ID:        r.ID,
		Email:     r.Email,
		Name:      r.Name,
		Role:      role.Role(r.Role),
		Roles:     r.Roles,
		Status:    user.Status(r.Status),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func usersFromRecords(records []userRecord) []user.User {
	if records == nil {
		return nil
	}
	out := make([]user.User, len(records))
	for idx, r := range records {
		out[idx] = userFromRecord(r)
	}
	return out
}

func customRoleFromRecord(r customRoleRecord) role.CustomRole {
	return role.CustomRole{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		CreatedAt:   r.CreatedAt,
	}
}

func suggestionFromRecord(r suggestionRecord) suggestion.Suggestion {
	return suggestion.Suggestion{
		ID:         r.ID,
		StepID:     r.StepID,
		Author:     r.Author,
		Text:       r.Text,
		Status:     suggestion.Status(r.Status),
		CreatedAt:  r.CreatedAt,
		InstanceID: r.InstanceID,
	}
}

func suggestionsFromRecords(records []suggestionRecord) []suggestion.Suggestion {
	if records == nil {
		return nil
	}
	out := make([]suggestion.Suggestion, len(records))
	for idx, r := range records {
		out[idx] = suggestionFromRecord(r)
	}
	return out
}

func activityFromRecord(r activityRecord) activity.Activity {
	return activity.Activity{
		ID:            r.ID,
		ActorInitials: r.ActorInitials,
		ActorName:     r.ActorName,
		ActorID:       r.ActorID,
		Action:        r.Action,
		TimeLabel:     r.TimeLabel,
		OccurredAt:    r.OccurredAt,
		ResourceType:  r.ResourceType,
		ResourceID:    r.ResourceID,
	}
}

func activitiesFromRecords(records []activityRecord) []activity.Activity {
	if records == nil {
		return nil
	}
	out := make([]activity.Activity, len(records))
	for idx, r := range records {
		out[idx] = activityFromRecord(r)
	}
	return out
}
