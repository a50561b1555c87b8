// Package provider は外部 ID プロバイダに対する認証アダプタです。パスワード
// グラントでトークンを取得し、アクセストークンのクレームから本人情報を
// 読み取ります。トークンはプロバイダ側で署名検証済みのチャネルから受け取る
// ため、ここでは検証せずにデコードのみ行います。
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/ogurasousui/onboard-sync/internal/core/identity"
	"github.com/ogurasousui/onboard-sync/internal/core/role"
)

// Authenticator は identity.Authenticator の ID プロバイダ実装です。
type Authenticator struct {
	issuerURL  string
	clientID   string
	httpClient *http.Client

	mu      sync.Mutex
	token   string
	current *identity.Identity
}

// New は Authenticator を生成します。
func New(issuerURL, clientID string) *Authenticator {
	return &Authenticator{
		issuerURL:  strings.TrimRight(issuerURL, "/"),
		clientID:   clientID,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// SignIn はパスワードグラントでサインインします。
func (a *Authenticator) SignIn(ctx context.Context, email, password string) (*identity.Identity, error) {
	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("client_id", a.clientID)
	form.Set("username", email)
	form.Set("password", password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.issuerURL+"/token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("provider: build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("provider: token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusBadRequest {
		return nil, identity.ErrInvalidCredentials
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("provider: token endpoint status %d", resp.StatusCode)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("provider: decode token response: %w", err)
	}

	ident, err := identityFromToken(payload.AccessToken)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	a.token = payload.AccessToken
	a.current = ident
	a.mu.Unlock()

	result := *ident
	return &result, nil
}

// SignOut はローカルのセッションを破棄します。
func (a *Authenticator) SignOut(ctx context.Context) error {
	a.mu.Lock()
	a.token = ""
	a.current = nil
	a.mu.Unlock()
	return nil
}

// Current は現在のセッションの本人情報を返します。
func (a *Authenticator) Current(ctx context.Context) (*identity.Identity, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current == nil {
		return nil, identity.ErrNotSignedIn
	}
	result := *a.current
	return &result, nil
}

// Token は現在のアクセストークンを返します。ホスト型ゲートウェイの Bearer
// 認証に利用します。
func (a *Authenticator) Token() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.token
}

func identityFromToken(token string) (*identity.Identity, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("provider: parse access token: %w", err)
	}

	ident := &identity.Identity{
		UserID: stringClaim(claims, "sub"),
		Email:  stringClaim(claims, "email"),
		Name:   stringClaim(claims, "name"),
		Role:   role.Role(stringClaim(claims, "role")),
	}
	if ident.UserID == "" {
		return nil, fmt.Errorf("provider: access token missing sub claim")
	}
	if ident.Role == "" {
		ident.Role = role.Employee
	}
	return ident, nil
}

func stringClaim(claims jwt.MapClaims, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}
