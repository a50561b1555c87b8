package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/ogurasousui/onboard-sync/internal/core/instance"
	pgdb "github.com/ogurasousui/onboard-sync/internal/platform/db/postgres"
)

// SubscribeSteps は対象インスタンスのステップを購読します。インスタンス
// 行の変更通知のうち、ペイロードが対象 ID のもの(またはペイロードなしの
// 一斉通知)だけで再照会します。
func (g *Gateway) SubscribeSteps(instanceID string, cb func(items []instance.Step)) (func(), error) {
	push := func() error {
		steps, err := g.fetchSteps(context.Background(), instanceID)
		if err != nil {
			return err
		}
		cb(steps)
		return nil
	}

	if err := push(); err != nil {
		return nil, err
	}

	return g.hub.subscribe(chanInstances, func(payload string) {
		if payload != "" && payload != instanceID {
			return
		}
		if err := push(); err != nil {
			g.logger.Warn("steps refresh failed", "instance_id", instanceID, "error", err)
		}
	}), nil
}

func (g *Gateway) fetchSteps(ctx context.Context, instanceID string) ([]instance.Step, error) {
	exec := pgdb.QueryerFromContext(ctx, g.db)
	row := exec.QueryRow(ctx, `SELECT steps FROM onboarding_instances WHERE id = $1`, instanceID)

	var stepsRaw []byte
	if err := row.Scan(&stepsRaw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, instance.ErrInstanceNotFound
		}
		return nil, fmt.Errorf("postgres: fetch steps: %w", err)
	}
	return decodeSteps(stepsRaw)
}

// UpdateStepStatus はステップの状態を更新し、埋め込みステップ・進捗率・
// インスタンス状態を 1 トランザクションで整合させます。完了への遷移で
// completed_at を記録し、完了から戻った場合はクリアします。
func (g *Gateway) UpdateStepStatus(ctx context.Context, instanceID string, stepID int, status instance.StepStatus) error {
	return g.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		exec := pgdb.QueryerFromContext(txCtx, g.db)
		row := exec.QueryRow(txCtx, `
            SELECT steps, status FROM onboarding_instances WHERE id = $1 FOR UPDATE
        `, instanceID)

		var (
			stepsRaw   []byte
			statusName string
		)
		if err := row.Scan(&stepsRaw, &statusName); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return instance.ErrInstanceNotFound
			}
			return fmt.Errorf("postgres: lock instance: %w", err)
		}

		steps, err := decodeSteps(stepsRaw)
		if err != nil {
			return err
		}

		found := false
		for idx := range steps {
			if steps[idx].ID == stepID {
				steps[idx].Status = status
				found = true
				break
			}
		}
		if !found {
			return instance.ErrStepNotFound
		}

		progress := instance.ComputeProgress(steps)
		nextStatus := instance.NextStatus(instance.Status(statusName), progress)

		encoded, err := encodeSteps(steps)
		if err != nil {
			return err
		}

		now := g.now()
		completedAt := nullableTime(nil)
		if nextStatus == instance.StatusCompleted {
			completedAt = nullableTime(&now)
		}

		if _, err := exec.Exec(txCtx, `
            UPDATE onboarding_instances
               SET steps = $1, progress = $2, status = $3, completed_at = $4, updated_at = $5
             WHERE id = $6
        `, encoded, progress, string(nextStatus), completedAt, now, instanceID); err != nil {
			return fmt.Errorf("postgres: update step status: %w", err)
		}
		return nil
	})
}
