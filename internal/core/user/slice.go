package user

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/ogurasousui/onboard-sync/internal/core/optimistic"
	"github.com/ogurasousui/onboard-sync/internal/core/role"
	"github.com/ogurasousui/onboard-sync/internal/core/subscription"
)

const maxNameLength = 100

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Slice はユーザーとカスタム役割の共有状態を保持します。
//
// 他のスライスと異なり、このスライスだけはエラーを文字列メッセージとして
// 公開します。ゲートウェイ呼び出しの失敗は呼び出し元へ error として返しつつ、
// 二次チャネルとして LastError にも文字列で記録されます。
type Slice struct {
	gw       Gateway
	coord    *subscription.Coordinator
	watchers *subscription.Watchers

	mu      sync.Mutex
	users   []User
	roles   []role.CustomRole
	loading bool
	errMsg  string
}

// View はスライス状態のスナップショットです。
type View struct {
	Users   []User
	Roles   []role.CustomRole
	Loading bool
	Err     string
}

// NewSlice は Slice を生成します。
func NewSlice(gw Gateway) *Slice {
	return &Slice{
		gw:       gw,
		coord:    subscription.NewCoordinator(),
		watchers: subscription.NewWatchers(),
	}
}

// Subscribe はユーザー購読への参照を取得し、解放関数を返します。
func (s *Slice) Subscribe() (release func()) {
	return s.coord.Acquire(s.open, s.resetState)
}

func (s *Slice) open() (func(), error) {
	s.mu.Lock()
	s.loading = true
	s.errMsg = ""
	s.mu.Unlock()
	s.watchers.Notify()

	unsub, err := s.gw.SubscribeUsers(s.onPush)
	if err != nil {
		s.mu.Lock()
		s.errMsg = err.Error()
		s.loading = false
		s.mu.Unlock()
		s.watchers.Notify()
		return nil, err
	}
	return unsub, nil
}

func (s *Slice) onPush(items []User) {
	s.mu.Lock()
	s.users = CloneAll(items)
	s.loading = false
	s.mu.Unlock()
	s.watchers.Notify()
}

func (s *Slice) resetState() {
	s.mu.Lock()
	s.users = nil
	s.roles = nil
	s.loading = false
	s.errMsg = ""
	s.mu.Unlock()
	s.watchers.Notify()
}

// View は現在の状態のスナップショットを返します。
func (s *Slice) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	roles := make([]role.CustomRole, len(s.roles))
	copy(roles, s.roles)
	return View{Users: CloneAll(s.users), Roles: roles, Loading: s.loading, Err: s.errMsg}
}

// LastError は直近の失敗の文字列メッセージを返します。成功後は空文字です。
func (s *Slice) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMsg
}

// Watch は状態変更の通知先を登録し、解除関数を返します。
func (s *Slice) Watch(fn func()) (remove func()) {
	return s.watchers.Add(fn)
}

// Reset は購読と状態を強制的に初期化します。
func (s *Slice) Reset() {
	s.coord.Reset()
	s.resetState()
}

// Create はユーザーを作成します。サーバーが ID を確定した後に一覧へ追加
// するため、楽観的な適用はありません。
func (s *Slice) Create(ctx context.Context, u User) (*User, error) {
	if err := validateUser(&u); err != nil {
		return nil, s.fail(err)
	}

	created, err := s.gw.CreateUser(ctx, &u)
	if err != nil {
		return nil, s.fail(err)
	}

	s.mu.Lock()
	next := make([]User, 0, len(s.users)+1)
	next = append(next, s.users...)
	next = append(next, *created.Clone())
	s.users = next
	s.errMsg = ""
	s.mu.Unlock()
	s.watchers.Notify()
	return created, nil
}

// Update は差分を楽観的に適用してからゲートウェイへ反映します。失敗時は
// 一覧全体を変更前のスナップショットへ巻き戻します。
func (s *Slice) Update(ctx context.Context, id string, changes Changes) error {
	if strings.TrimSpace(id) == "" {
		return s.fail(fmt.Errorf("id: %w", ErrInvalidID))
	}
	if changes.IsZero() {
		return nil
	}
	if changes.Email != nil && !emailPattern.MatchString(strings.TrimSpace(*changes.Email)) {
		return s.fail(ErrInvalidEmail)
	}
	if changes.Name != nil && !validName(*changes.Name) {
		return s.fail(ErrInvalidName)
	}

	err := optimistic.Run(ctx,
		s.snapshotUsers,
		func() {
			s.mu.Lock()
			next := CloneAll(s.users)
			for idx := range next {
				if next[idx].ID == id {
					changes.applyTo(&next[idx])
					break
				}
			}
			s.users = next
			s.mu.Unlock()
			s.watchers.Notify()
		},
		func(ctx context.Context) error {
			return s.gw.UpdateUser(ctx, id, changes)
		},
		func(snapshot []User) {
			s.mu.Lock()
			s.users = snapshot
			s.mu.Unlock()
			s.watchers.Notify()
		},
	)
	if err != nil {
		return s.fail(err)
	}
	return nil
}

// Delete はユーザーを削除します。インスタンスの削除と同様に悲観的で、
// ゲートウェイ呼び出しの成功後にのみローカル状態から取り除きます。
func (s *Slice) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return s.fail(fmt.Errorf("id: %w", ErrInvalidID))
	}

	if err := s.gw.DeleteUser(ctx, id); err != nil {
		return s.fail(err)
	}

	s.mu.Lock()
	next := make([]User, 0, len(s.users))
	for _, u := range s.users {
		if u.ID != id {
			next = append(next, u)
		}
	}
	s.users = next
	s.errMsg = ""
	s.mu.Unlock()
	s.watchers.Notify()
	return nil
}

// LoadRoles はカスタム役割の一覧を取得して状態へ反映します。
func (s *Slice) LoadRoles(ctx context.Context) error {
	roles, err := s.gw.ListCustomRoles(ctx)
	if err != nil {
		return s.fail(err)
	}

	s.mu.Lock()
	s.roles = roles
	s.errMsg = ""
	s.mu.Unlock()
	s.watchers.Notify()
	return nil
}

// CreateRole はカスタム役割を作成します。検証はメモリ上の状態変更および
// ゲートウェイ呼び出しの前に行い、失敗した場合は何も変更しません。
func (s *Slice) CreateRole(ctx context.Context, name, description string) (*role.CustomRole, error) {
	s.mu.Lock()
	existing := make([]role.CustomRole, len(s.roles))
	copy(existing, s.roles)
	s.mu.Unlock()

	if err := role.ValidateName(name, existing); err != nil {
		return nil, s.fail(err)
	}
	if err := role.ValidateDescription(description); err != nil {
		return nil, s.fail(err)
	}

	created, err := s.gw.CreateCustomRole(ctx, &role.CustomRole{
		Name:        strings.TrimSpace(name),
		Description: strings.TrimSpace(description),
	})
	if err != nil {
		return nil, s.fail(err)
	}

	s.mu.Lock()
	next := make([]role.CustomRole, 0, len(s.roles)+1)
	next = append(next, s.roles...)
	next = append(next, *created)
	s.roles = next
	s.errMsg = ""
	s.mu.Unlock()
	s.watchers.Notify()
	return created, nil
}

// DeleteRole はカスタム役割を削除します。悲観的に行います。
func (s *Slice) DeleteRole(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return s.fail(fmt.Errorf("id: %w", ErrInvalidID))
	}

	if err := s.gw.DeleteCustomRole(ctx, id); err != nil {
		return s.fail(err)
	}

	s.mu.Lock()
	next := make([]role.CustomRole, 0, len(s.roles))
	for _, r := range s.roles {
		if r.ID != id {
			next = append(next, r)
		}
	}
	s.roles = next
	s.errMsg = ""
	s.mu.Unlock()
	s.watchers.Notify()
	return nil
}

func (s *Slice) snapshotUsers() []User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return CloneAll(s.users)
}

// fail は失敗を文字列チャネルへ記録した上で、同じエラーをそのまま返します。
func (s *Slice) fail(err error) error {
	s.mu.Lock()
	s.errMsg = err.Error()
	s.mu.Unlock()
	s.watchers.Notify()
	return err
}

func validateUser(u *User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if !emailPattern.MatchString(u.Email) {
		return ErrInvalidEmail
	}
	u.Name = strings.TrimSpace(u.Name)
	if !validName(u.Name) {
		return ErrInvalidName
	}
	if u.Status == "" {
		u.Status = StatusActive
	}
	if u.Status != StatusActive && u.Status != StatusInactive {
		return ErrInvalidStatus
	}
	if u.Role == "" {
		u.Role = role.Employee
	}
	return nil
}

func validName(name string) bool {
	trimmed := strings.TrimSpace(name)
	return trimmed != "" && len(trimmed) <= maxNameLength
}
