// Package role は役割名と権限判定を提供します。役割は閉じた列挙ではなく、
// 管理者が定義するカスタム役割を受け入れるオープンな文字列として扱います。
package role

// Role は役割名を表します。
type Role string

// Employee は既定の従業員役割です。
const Employee Role = "employee"

// HasManagerAccess はマネージャー向け機能へのアクセス可否を返します。
// 新しい役割名が追加されてもコード変更を要しないよう、従業員以外の
// 非空役割をすべてマネージャー相当として扱います。
func (r Role) HasManagerAccess() bool {
	return r != "" && r != Employee
}

// String は役割名の文字列表現を返します。
func (r Role) String() string {
	return string(r)
}
