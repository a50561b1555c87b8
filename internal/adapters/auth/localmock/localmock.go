// Package localmock は開発用のローカル認証です。任意の資格情報を受け付け、
// メールアドレスから本人情報を合成します。セッションは作業ディレクトリ配下
// の JSON ファイルに永続化され、プロセスをまたいで維持されます。
package localmock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ogurasousui/onboard-sync/internal/core/identity"
	"github.com/ogurasousui/onboard-sync/internal/core/role"
)

const sessionFile = "session.json"

// knownUser は users.json に置ける既知ユーザーの定義です。ファイルが無い
// 場合はすべてのメールアドレスを従業員として受け付けます。
type knownUser struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

type sessionRecord struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   string `json:"role"`
}

// Authenticator は identity.Authenticator のローカルモック実装です。
type Authenticator struct {
	dir string
}

// New は dir をセッション保存先とする Authenticator を生成します。
func New(dir string) *Authenticator {
	return &Authenticator{dir: dir}
}

// SignIn は資格情報を検証せずにサインインします。users.json があれば
// そこに載っているユーザーのみ受け付け、役割もそこから引きます。
func (a *Authenticator) SignIn(ctx context.Context, email, password string) (*identity.Identity, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, identity.ErrInvalidCredentials
	}

	ident := identity.Identity{
		UserID: "local-" + email,
		Email:  email,
		Name:   nameFromEmail(email),
		Role:   role.Employee,
	}

	users, err := a.loadKnownUsers()
	if err != nil {
		return nil, err
	}
	if users != nil {
		found := false
		for _, u := range users {
			if strings.EqualFold(u.Email, email) {
				if u.Name != "" {
					ident.Name = u.Name
				}
				if u.Role != "" {
					ident.Role = role.Role(u.Role)
				}
				found = true
				break
			}
		}
		if !found {
			return nil, identity.ErrInvalidCredentials
		}
	}

	if err := a.saveSession(ident); err != nil {
		return nil, err
	}
	return &ident, nil
}

// SignOut はセッションファイルを削除します。存在しない場合も成功します。
func (a *Authenticator) SignOut(ctx context.Context) error {
	err := os.Remove(filepath.Join(a.dir, sessionFile))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("localmock: remove session: %w", err)
	}
	return nil
}

// Current は保存済みのセッションを返します。
func (a *Authenticator) Current(ctx context.Context) (*identity.Identity, error) {
	raw, err := os.ReadFile(filepath.Join(a.dir, sessionFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, identity.ErrNotSignedIn
		}
		return nil, fmt.Errorf("localmock: read session: %w", err)
	}

	var record sessionRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("localmock: decode session: %w", err)
	}
	return &identity.Identity{
		UserID: record.UserID,
		Email:  record.Email,
		Name:   record.Name,
		Role:   role.Role(record.Role),
	}, nil
}

func (a *Authenticator) loadKnownUsers() ([]knownUser, error) {
	raw, err := os.ReadFile(filepath.Join(a.dir, "users.json"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("localmock: read users: %w", err)
	}

	var users []knownUser
	if err := json.Unmarshal(raw, &users); err != nil {
		return nil, fmt.Errorf("localmock: decode users: %w", err)
	}
	return users, nil
}

func (a *Authenticator) saveSession(ident identity.Identity) error {
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return fmt.Errorf("localmock: create session dir: %w", err)
	}

	record := sessionRecord{
		UserID: ident.UserID,
		Email:  ident.Email,
		Name:   ident.Name,
		Role:   string(ident.Role),
	}
	raw, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("localmock: encode session: %w", err)
	}
	if err := os.WriteFile(filepath.Join(a.dir, sessionFile), raw, 0o600); err != nil {
		return fmt.Errorf("localmock: write session: %w", err)
	}
	return nil
}

// nameFromEmail はローカル部から表示名を合成します ("taro.yamada" →
// "Taro Yamada")。
func nameFromEmail(email string) string {
	local := email
	if at := strings.IndexByte(email, '@'); at >= 0 {
		local = email[:at]
	}
	parts := strings.FieldsFunc(local, func(r rune) bool {
		return r == '.' || r == '_' || r == '-'
	})
	for idx, p := range parts {
		if p == "" {
			continue
		}
		parts[idx] = strings.ToUpper(p[:1]) + p[1:]
	}
	if len(parts) == 0 {
		return local
	}
	return strings.Join(parts, " ")
}
