package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/ogurasousui/onboard-sync/internal/core/suggestion"
	pgdb "github.com/ogurasousui/onboard-sync/internal/platform/db/postgres"
)

func scanSuggestion(row rowScanner) (*suggestion.Suggestion, error) {
	var (
		s          suggestion.Suggestion
		status     string
		createdAt  sql.NullTime
		instanceID sql.NullString
	)
	if err := row.Scan(&s.ID, &s.StepID, &s.Author, &s.Text, &status, &createdAt, &instanceID); err != nil {
		return nil, fmt.Errorf("postgres: scan suggestion: %w", err)
	}
	s.Status = suggestion.Status(status)
	s.CreatedAt = timePtr(createdAt)
	s.InstanceID = instanceID.String
	return &s, nil
}

// SubscribeSuggestions は提案一覧を購読します。
func (g *Gateway) SubscribeSuggestions(cb func(items []suggestion.Suggestion)) (func(), error) {
	push := func() error {
		items, err := g.listSuggestions(context.Background())
		if err != nil {
			return err
		}
		cb(items)
		return nil
	}

	if err := push(); err != nil {
		return nil, err
	}

	return g.hub.subscribe(chanSuggestions, func(string) {
		if err := push(); err != nil {
			g.logger.Warn("suggestions refresh failed", "error", err)
		}
	}), nil
}

func (g *Gateway) listSuggestions(ctx context.Context) ([]suggestion.Suggestion, error) {
	exec := pgdb.QueryerFromContext(ctx, g.db)
	rows, err := exec.Query(ctx, `
        SELECT id, step_id, author, text, status, created_at, instance_id
          FROM suggestions
         ORDER BY created_at
    `)
	if err != nil {
		return nil, fmt.Errorf("postgres: list suggestions: %w", err)
	}
	defer rows.Close()

	var items []suggestion.Suggestion
	for rows.Next() {
		s, err := scanSuggestion(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list suggestions: %w", err)
	}
	return items, nil
}

// CreateSuggestion は提案を作成します。
func (g *Gateway) CreateSuggestion(ctx context.Context, s *suggestion.Suggestion) (*suggestion.Suggestion, error) {
	created := s.Clone()
	created.ID = uuid.NewString()
	now := g.now()
	created.CreatedAt = &now
	if created.Status == "" {
		created.Status = suggestion.StatusPending
	}

	exec := pgdb.QueryerFromContext(ctx, g.db)
	if _, err := exec.Exec(ctx, `
        INSERT INTO suggestions (id, step_id, author, text, status, created_at, instance_id)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `,
		created.ID,
		created.StepID,
		created.Author,
		created.Text,
		string(created.Status),
		*created.CreatedAt,
		nullableString(created.InstanceID),
	); err != nil {
		return nil, fmt.Errorf("postgres: create suggestion: %w", err)
	}

	return created, nil
}

// UpdateSuggestionStatus は提案の状態を更新します。
func (g *Gateway) UpdateSuggestionStatus(ctx context.Context, id string, status suggestion.Status) error {
	exec := pgdb.QueryerFromContext(ctx, g.db)
	tag, err := exec.Exec(ctx, `UPDATE suggestions SET status = $1 WHERE id = $2`, string(status), id)
	if err != nil {
		return fmt.Errorf("postgres: update suggestion status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return suggestion.ErrSuggestionNotFound
	}
	return nil
}

// DeleteSuggestion は提案を削除します。
func (g *Gateway) DeleteSuggestion(ctx context.Context, id string) error {
	exec := pgdb.QueryerFromContext(ctx, g.db)
	tag, err := exec.Exec(ctx, `DELETE FROM suggestions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: delete suggestion: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return suggestion.ErrSuggestionNotFound
	}
	return nil
}
