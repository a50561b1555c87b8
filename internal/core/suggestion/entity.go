// Package suggestion は従業員がステップに対して提出するフィードバック提案の
// 共有状態と、機能側が楽観的更新を組み立てるための部品を提供します。
package suggestion

import (
	"errors"
	"time"
)

// Status は提案のレビュー状態を表します。
type Status string

const (
	StatusPending     Status = "pending"
	StatusReviewed    Status = "reviewed"
	StatusImplemented Status = "implemented"
)

var (
	// ErrSuggestionNotFound は提案が存在しない場合に返却されます。
	ErrSuggestionNotFound = errors.New("suggestion: not found")
	// ErrInvalidID は ID が不正な場合に返却されます。
	ErrInvalidID = errors.New("suggestion: invalid id")
	// ErrInvalidText は本文が不正な場合に返却されます。
	ErrInvalidText = errors.New("suggestion: invalid text")
)

// Suggestion は 1 件の提案です。StepID と InstanceID は弱い参照で、参照先が
// 消えていても許容されます。提出後に従業員側から更新されることはありません。
type Suggestion struct {
	ID         string
	StepID     int
	Author     string
	Text       string
	Status     Status
	CreatedAt  *time.Time
	InstanceID string
}

// Clone は提案の深いコピーを返します。
func (s *Suggestion) Clone() *Suggestion {
	if s == nil {
		return nil
	}
	clone := *s
	if s.CreatedAt != nil {
		created := *s.CreatedAt
		clone.CreatedAt = &created
	}
	return &clone
}

// CloneAll は提案配列の深いコピーを返します。
func CloneAll(items []Suggestion) []Suggestion {
	if items == nil {
		return nil
	}
	out := make([]Suggestion, len(items))
	for idx := range items {
		out[idx] = *items[idx].Clone()
	}
	return out
}
