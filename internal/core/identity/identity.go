// Package identity はサインイン・サインアウトと、解決済みの役割に基づく
// セッション情報を提供します。認証そのものは外部の ID プロバイダ(または
// 開発用のローカルモック)が担い、このパッケージは抽象越しに利用します。
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ogurasousui/onboard-sync/internal/core/instance"
	"github.com/ogurasousui/onboard-sync/internal/core/role"
)

var (
	// ErrInvalidCredentials は資格情報が不正な場合に返却されます。
	ErrInvalidCredentials = errors.New("identity: invalid credentials")
	// ErrNotSignedIn はセッションが存在しない場合に返却されます。
	ErrNotSignedIn = errors.New("identity: not signed in")
)

// Identity はプロバイダが解決した本人情報です。
type Identity struct {
	UserID string
	Email  string
	Name   string
	Role   role.Role
}

// Authenticator は ID プロバイダの抽象です。
type Authenticator interface {
	SignIn(ctx context.Context, email, password string) (*Identity, error)
	SignOut(ctx context.Context) error
	Current(ctx context.Context) (*Identity, error)
}

// Login はサインインの結果です。従業員の場合は本人のオンボーディング
// インスタンスが解決されます(存在しなければ nil のまま)。
type Login struct {
	Identity      Identity
	Instance      *instance.OnboardingInstance
	ManagerAccess bool
}

// Session はサインイン状態の調整役です。
type Session struct {
	auth      Authenticator
	instances instance.Gateway
}

// NewSession は Session を生成します。
func NewSession(auth Authenticator, instances instance.Gateway) *Session {
	return &Session{auth: auth, instances: instances}
}

// SignIn は資格情報でサインインし、役割と本人インスタンスを解決します。
// インスタンスの照会はメールアドレスによる一回限りの検索で、見つからなく
// てもエラーにはなりません(未開始の従業員やマネージャーを許容します)。
func (s *Session) SignIn(ctx context.Context, email, password string) (*Login, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	ident, err := s.auth.SignIn(ctx, email, password)
	if err != nil {
		return nil, fmt.Errorf("identity: sign in: %w", err)
	}

	login := &Login{Identity: *ident, ManagerAccess: ident.Role.HasManagerAccess()}

	inst, err := s.instances.FindByEmployeeEmail(ctx, ident.Email)
	if err != nil && !errors.Is(err, instance.ErrInstanceNotFound) {
		return nil, fmt.Errorf("identity: resolve instance: %w", err)
	}
	login.Instance = inst
	return login, nil
}

// SignOut はサインアウトします。
func (s *Session) SignOut(ctx context.Context) error {
	return s.auth.SignOut(ctx)
}

// Current は現在のセッションの本人情報を返します。
func (s *Session) Current(ctx context.Context) (*Identity, error) {
	return s.auth.Current(ctx)
}
