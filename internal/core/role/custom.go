package role

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

var (
	// ErrInvalidName は役割名の形式が不正な場合に返却されます。
	ErrInvalidName = errors.New("role: invalid name")
	// ErrNameTooShort は役割名が短すぎる場合に返却されます。
	ErrNameTooShort = errors.New("role: name too short")
	// ErrNameTooLong は役割名が長すぎる場合に返却されます。
	ErrNameTooLong = errors.New("role: name too long")
	// ErrDuplicateName は大文字小文字を無視した役割名の重複時に返却されます。
	ErrDuplicateName = errors.New("role: name already exists")
	// ErrDescriptionTooLong は説明文が長すぎる場合に返却されます。
	ErrDescriptionTooLong = errors.New("role: description too long")
)

const (
	minNameLength        = 2
	maxNameLength        = 40
	maxDescriptionLength = 200
)

var namePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9 _-]*$`)

// CustomRole は管理者が定義する役割タグです。ユーザーとは役割名の文字列で
// 弱く参照し合います(多対多、所有関係なし)。
type CustomRole struct {
	ID          string
	Name        string
	Description string
	CreatedAt   time.Time
}

// ValidateName は役割名を検証します。existing との比較は大文字小文字を
// 無視して行います。永続化やメモリ上の状態変更の前に呼び出してください。
func ValidateName(name string, existing []CustomRole) error {
	trimmed := strings.TrimSpace(name)
	if len(trimmed) < minNameLength {
		return ErrNameTooShort
	}
	if len(trimmed) > maxNameLength {
		return ErrNameTooLong
	}
	if !namePattern.MatchString(trimmed) {
		return ErrInvalidName
	}

	lower := strings.ToLower(trimmed)
	for _, r := range existing {
		if strings.ToLower(strings.TrimSpace(r.Name)) == lower {
			return ErrDuplicateName
		}
	}
	return nil
}

// ValidateDescription は役割の説明文を検証します。
func ValidateDescription(description string) error {
	if len(strings.TrimSpace(description)) > maxDescriptionLength {
		return ErrDescriptionTooLong
	}
	return nil
}
