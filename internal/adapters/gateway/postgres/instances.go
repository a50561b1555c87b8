package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/ogurasousui/onboard-sync/internal/core/activity"
	"github.com/ogurasousui/onboard-sync/internal/core/instance"
	"github.com/ogurasousui/onboard-sync/internal/core/role"
	pgdb "github.com/ogurasousui/onboard-sync/internal/platform/db/postgres"
)

const foreignKeyViolationCode = "23503"

// stepRecord は jsonb カラムに格納するステップの表現です。ステップは
// インスタンス(またはテンプレート)行へ値で埋め込まれ、行をまたいで共有
// されません。
type stepRecord struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Role        string `json:"role,omitempty"`
	Department  string `json:"department,omitempty"`
	Expert      string `json:"expert,omitempty"`
	Status      string `json:"status"`
	Link        string `json:"link,omitempty"`
}

func encodeSteps(steps []instance.Step) ([]byte, error) {
	records := make([]stepRecord, len(steps))
	for idx, s := range steps {
		records[idx] = stepRecord{
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
	b, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("postgres: encode steps: %w", err)
	}
	return b, nil
}

func decodeSteps(raw []byte) ([]instance.Step, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var records []stepRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("postgres: decode steps: %w", err)
	}
	steps := make([]instance.Step, len(records))
	for idx, r := range records {
		steps[idx] = instance.Step{
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
	return steps, nil
}

const instanceColumns = `id, employee_name, employee_email, role, department, template_id, steps, progress, status, created_at, updated_at, started_at, completed_at`

func scanInstance(row rowScanner) (*instance.OnboardingInstance, error) {
	var (
		inst        instance.OnboardingInstance
		roleName    string
		status      string
		stepsRaw    []byte
		templateID  sql.NullString
		startedAt   sql.NullTime
		completedAt sql.NullTime
	)
	if err := row.Scan(
		&inst.ID,
		&inst.EmployeeName,
		&inst.EmployeeEmail,
		&roleName,
		&inst.Department,
		&templateID,
		&stepsRaw,
		&inst.Progress,
		&status,
		&inst.CreatedAt,
		&inst.UpdatedAt,
		&startedAt,
		&completedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, instance.ErrInstanceNotFound
		}
		return nil, fmt.Errorf("postgres: scan instance: %w", err)
	}

	steps, err := decodeSteps(stepsRaw)
	if err != nil {
		return nil, err
	}

	inst.Role = role.Role(roleName)
	inst.Status = instance.Status(status)
	inst.TemplateID = templateID.String
	inst.Steps = steps
	inst.StartedAt = timePtr(startedAt)
	inst.CompletedAt = timePtr(completedAt)
	return &inst, nil
}

// SubscribeInstances は初回スナップショットを同期的に配送した後、変更通知
// のたびに全量を再照会して配送します。初回照会の失敗は購読開始の失敗として
// 返します。
func (g *Gateway) SubscribeInstances(cb func(items []instance.OnboardingInstance)) (func(), error) {
	push := func() error {
		items, err := g.listInstances(context.Background())
		if err != nil {
			return err
		}
		cb(items)
		return nil
	}

	if err := push(); err != nil {
		return nil, err
	}

	return g.hub.subscribe(chanInstances, func(string) {
		if err := push(); err != nil {
			g.logger.Warn("instances refresh failed", "error", err)
		}
	}), nil
}

func (g *Gateway) listInstances(ctx context.Context) ([]instance.OnboardingInstance, error) {
	exec := pgdb.QueryerFromContext(ctx, g.db)
	rows, err := exec.Query(ctx, `
        SELECT `+instanceColumns+`
          FROM onboarding_instances
         ORDER BY created_at
    `)
	if err != nil {
		return nil, fmt.Errorf("postgres: list instances: %w", err)
	}
	defer rows.Close()

	var items []instance.OnboardingInstance
	for rows.Next() {
		inst, err := scanInstance(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *inst)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list instances: %w", err)
	}
	return items, nil
}

// CreateInstance はインスタンスを作成し、開始の監査エントリを同一トランザク
// ションで書き込みます。
func (g *Gateway) CreateInstance(ctx context.Context, inst *instance.OnboardingInstance) (*instance.OnboardingInstance, error) {
	stepsRaw, err := encodeSteps(inst.Steps)
	if err != nil {
		return nil, err
	}

	created := inst.Clone()
	created.ID = uuid.NewString()
	now := g.now()
	created.CreatedAt = now
	created.UpdatedAt = now

	if err := g.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		exec := pgdb.QueryerFromContext(txCtx, g.db)
		if _, err := exec.Exec(txCtx, `
            INSERT INTO onboarding_instances
                (id, employee_name, employee_email, role, department, template_id, steps, progress, status, created_at, updated_at, started_at, completed_at)
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
        `,
			created.ID,
			created.EmployeeName,
			created.EmployeeEmail,
			string(created.Role),
			created.Department,
			nullableString(created.TemplateID),
			stepsRaw,
			created.Progress,
			string(created.Status),
			created.CreatedAt,
			created.UpdatedAt,
			nullableTime(created.StartedAt),
			nullableTime(created.CompletedAt),
		); err != nil {
			return translateInstancePgError(err)
		}

		_, err := g.insertActivity(txCtx, &activity.Activity{
			ActorInitials: activity.Initials(created.EmployeeName),
			ActorName:     created.EmployeeName,
			Action:        fmt.Sprintf("started onboarding for %s", created.EmployeeName),
			TimeLabel:     activity.RelativeLabel(now, now),
			OccurredAt:    &now,
			ResourceType:  "instance",
			ResourceID:    created.ID,
		})
		return err
	}); err != nil {
		return nil, err
	}

	return created, nil
}

// UpdateInstance は差分のあるカラムだけを更新します。
func (g *Gateway) UpdateInstance(ctx context.Context, id string, changes instance.Changes) error {
	var (
		sets []string
		args []any
	)
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, column+" = $"+strconv.Itoa(len(args)))
	}

	if changes.EmployeeName != nil {
		add("employee_name", *changes.EmployeeName)
	}
	if changes.Role != nil {
		add("role", string(*changes.Role))
	}
	if changes.Department != nil {
		add("department", *changes.Department)
	}
	if changes.Status != nil {
		add("status", string(*changes.Status))
	}
	if changes.Steps != nil {
		stepsRaw, err := encodeSteps(changes.Steps)
		if err != nil {
			return err
		}
		add("steps", stepsRaw)
	}
	if changes.Progress != nil {
		add("progress", *changes.Progress)
	}
	if changes.CompletedAtSet {
		add("completed_at", nullableTime(changes.CompletedAt))
	}
	if len(sets) == 0 {
		return nil
	}
	add("updated_at", g.now())

	args = append(args, id)
	query := "UPDATE onboarding_instances SET " + strings.Join(sets, ", ") +
		" WHERE id = $" + strconv.Itoa(len(args))

	exec := pgdb.QueryerFromContext(ctx, g.db)
	tag, err := exec.Exec(ctx, query, args...)
	if err != nil {
		return translateInstancePgError(err)
	}
	if tag.RowsAffected() == 0 {
		return instance.ErrInstanceNotFound
	}
	return nil
}

// DeleteInstance はインスタンスを削除します。
func (g *Gateway) DeleteInstance(ctx context.Context, id string) error {
	exec := pgdb.QueryerFromContext(ctx, g.db)
	tag, err := exec.Exec(ctx, `DELETE FROM onboarding_instances WHERE id = $1`, id)
	if err != nil {
		return translateInstancePgError(err)
	}
	if tag.RowsAffected() == 0 {
		return instance.ErrInstanceNotFound
	}
	return nil
}

// FindByEmployeeEmail は従業員メールアドレスからインスタンスを検索します。
func (g *Gateway) FindByEmployeeEmail(ctx context.Context, email string) (*instance.OnboardingInstance, error) {
	exec := pgdb.QueryerFromContext(ctx, g.db)
	row := exec.QueryRow(ctx, `
        SELECT `+instanceColumns+`
          FROM onboarding_instances
         WHERE lower(employee_email) = lower($1)
         ORDER BY created_at DESC
         LIMIT 1
    `, email)
	return scanInstance(row)
}

// CreateTemplate はテンプレートを作成します。
func (g *Gateway) CreateTemplate(ctx context.Context, tpl *instance.Template) (*instance.Template, error) {
	stepsRaw, err := encodeSteps(tpl.Steps)
	if err != nil {
		return nil, err
	}

	created := *tpl
	created.Steps = instance.CloneSteps(tpl.Steps)
	created.ID = uuid.NewString()
	now := g.now()
	created.CreatedAt = now
	created.UpdatedAt = now

	exec := pgdb.QueryerFromContext(ctx, g.db)
	if _, err := exec.Exec(ctx, `
        INSERT INTO onboarding_templates (id, name, role, department, steps, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `,
		created.ID,
		created.Name,
		string(created.Role),
		created.Department,
		stepsRaw,
		created.CreatedAt,
		created.UpdatedAt,
	); err != nil {
		return nil, translateInstancePgError(err)
	}

	return &created, nil
}

// FindTemplateByID はテンプレートを取得します。
func (g *Gateway) FindTemplateByID(ctx context.Context, id string) (*instance.Template, error) {
	exec := pgdb.QueryerFromContext(ctx, g.db)
	row := exec.QueryRow(ctx, `
        SELECT id, name, role, department, steps, created_at, updated_at
          FROM onboarding_templates
         WHERE id = $1
    `, id)

	var (
		tpl      instance.Template
		roleName string
		stepsRaw []byte
	)
	if err := row.Scan(&tpl.ID, &tpl.Name, &roleName, &tpl.Department, &stepsRaw, &tpl.CreatedAt, &tpl.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, instance.ErrTemplateNotFound
		}
		return nil, fmt.Errorf("postgres: scan template: %w", err)
	}

	steps, err := decodeSteps(stepsRaw)
	if err != nil {
		return nil, err
	}
	tpl.Role = role.Role(roleName)
	tpl.Steps = steps
	return &tpl, nil
}

func nullableString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func translateInstancePgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolationCode {
		return instance.ErrTemplateNotFound
	}
	return err
}
