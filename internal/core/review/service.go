// Package review はマネージャーによる提案レビューのユースケースをまとめます。
// 提案スライスのプリミティブ(ApplyStatus・Remove・Rollback)とゲートウェイ
// 呼び出しを組み合わせ、承認・却下それぞれの楽観的更新列を構築します。
package review

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ogurasousui/onboard-sync/internal/core/activity"
	"github.com/ogurasousui/onboard-sync/internal/core/suggestion"
)

// Clock は現在時刻を提供します。
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

// Service は提案レビューのユースケースをまとめます。
type Service struct {
	suggestions *suggestion.Slice
	activities  activity.Gateway
	clock       Clock
}

// NewService は Service を生成します。
func NewService(suggestions *suggestion.Slice, activities activity.Gateway, clock Clock) *Service {
	if clock == nil {
		clock = realClock{}
	}
	return &Service{suggestions: suggestions, activities: activities, clock: clock}
}

// Approve は提案を承認します。状態を implemented へ楽観的に書き換えてから
// ゲートウェイへ反映し、失敗時はスナップショットへ巻き戻します。反映に
// 成功した後は監査ログを書き込みます。監査ログの失敗は承認自体を巻き戻し
// ません(提案の状態は既にサーバー側で確定しているため)。
func (s *Service) Approve(ctx context.Context, id, reviewerName string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("id: %w", suggestion.ErrInvalidID)
	}

	snapshot := s.suggestions.ApplyStatus(id, suggestion.StatusImplemented)
	if err := s.suggestions.Gateway().UpdateSuggestionStatus(ctx, id, suggestion.StatusImplemented); err != nil {
		s.suggestions.Rollback(snapshot)
		return err
	}

	return s.logActivity(ctx, reviewerName, fmt.Sprintf("approved suggestion %s", id), id)
}

// Reject は提案を却下します。一覧から楽観的に取り除いてからゲートウェイへ
// 反映し、失敗時はスナップショットへ巻き戻します。
func (s *Service) Reject(ctx context.Context, id, reviewerName string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("id: %w", suggestion.ErrInvalidID)
	}

	snapshot := s.suggestions.Remove(id)
	if err := s.suggestions.Gateway().DeleteSuggestion(ctx, id); err != nil {
		s.suggestions.Rollback(snapshot)
		return err
	}

	return s.logActivity(ctx, reviewerName, fmt.Sprintf("rejected suggestion %s", id), id)
}

func (s *Service) logActivity(ctx context.Context, actorName, action, suggestionID string) error {
	now := s.clock.Now()
	_, err := s.activities.CreateActivity(ctx, &activity.Activity{
		ActorInitials: activity.Initials(actorName),
		ActorName:     actorName,
		Action:        action,
		TimeLabel:     activity.RelativeLabel(now, now),
		OccurredAt:    &now,
		ResourceType:  "suggestion",
		ResourceID:    suggestionID,
	})
	if err != nil {
		return fmt.Errorf("review: log activity: %w", err)
	}
	return nil
}
