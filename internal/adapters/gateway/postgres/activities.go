package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/ogurasousui/onboard-sync/internal/core/activity"
	pgdb "github.com/ogurasousui/onboard-sync/internal/platform/db/postgres"
)

func scanActivity(row rowScanner) (*activity.Activity, error) {
	var (
		a            activity.Activity
		occurredAt   sql.NullTime
		resourceType sql.NullString
		resourceID   sql.NullString
	)
	if err := row.Scan(&a.ID, &a.ActorInitials, &a.ActorName, &a.ActorID, &a.Action, &a.TimeLabel, &occurredAt, &resourceType, &resourceID); err != nil {
		return nil, fmt.Errorf("postgres: scan activity: %w", err)
	}
	a.OccurredAt = timePtr(occurredAt)
	a.ResourceType = resourceType.String
	a.ResourceID = resourceID.String
	return &a, nil
}

// SubscribeActivities は監査ログ一覧を購読します。
func (g *Gateway) SubscribeActivities(cb func(items []activity.Activity)) (func(), error) {
	push := func() error {
		items, err := g.listActivities(context.Background())
		if err != nil {
			return err
		}
		cb(items)
		return nil
	}

	if err := push(); err != nil {
		return nil, err
	}

	return g.hub.subscribe(chanActivities, func(string) {
		if err := push(); err != nil {
			g.logger.Warn("activities refresh failed", "error", err)
		}
	}), nil
}

func (g *Gateway) listActivities(ctx context.Context) ([]activity.Activity, error) {
	exec := pgdb.QueryerFromContext(ctx, g.db)
	rows, err := exec.Query(ctx, `
        SELECT id, actor_initials, actor_name, actor_id, action, time_label, occurred_at, resource_type, resource_id
          FROM activities
         ORDER BY occurred_at DESC
    `)
	if err != nil {
		return nil, fmt.Errorf("postgres: list activities: %w", err)
	}
	defer rows.Close()

	var items []activity.Activity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list activities: %w", err)
	}
	return items, nil
}

// CreateActivity は監査エントリを追記します。エントリが後から書き換え
// られることはありません。
func (g *Gateway) CreateActivity(ctx context.Context, a *activity.Activity) (*activity.Activity, error) {
	return g.insertActivity(ctx, a)
}

func (g *Gateway) insertActivity(ctx context.Context, a *activity.Activity) (*activity.Activity, error) {
	created := a.Clone()
	created.ID = uuid.NewString()
	if created.OccurredAt == nil {
		now := g.now()
		created.OccurredAt = &now
	}

	exec := pgdb.QueryerFromContext(ctx, g.db)
	if _, err := exec.Exec(ctx, `
        INSERT INTO activities (id, actor_initials, actor_name, actor_id, action, time_label, occurred_at, resource_type, resource_id)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `,
		created.ID,
		created.ActorInitials,
		created.ActorName,
		created.ActorID,
		created.Action,
		created.TimeLabel,
		*created.OccurredAt,
		nullableString(created.ResourceType),
		nullableString(created.ResourceID),
	); err != nil {
		return nil, fmt.Errorf("postgres: create activity: %w", err)
	}

	return created, nil
}
