package instance

import "errors"

var (
	// ErrInstanceNotFound はインスタンスが存在しない場合に返却されます。
	ErrInstanceNotFound = errors.New("instance: not found")
	// ErrTemplateNotFound はテンプレートが存在しない場合に返却されます。
	ErrTemplateNotFound = errors.New("instance: template not found")
	// ErrInvalidID は ID が不正な場合に返却されます。
	ErrInvalidID = errors.New("instance: invalid id")
	// ErrInvalidEmployee は従業員名またはメールアドレスが不正な場合に返却されます。
	ErrInvalidEmployee = errors.New("instance: invalid employee")
	// ErrInvalidStatus は状態値が不正な場合に返却されます。
	ErrInvalidStatus = errors.New("instance: invalid status")
	// ErrStepNotFound は対象のステップが存在しない場合に返却されます。
	ErrStepNotFound = errors.New("instance: step not found")
)
