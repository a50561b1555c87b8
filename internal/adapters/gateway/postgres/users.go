package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/ogurasousui/onboard-sync/internal/core/role"
	"github.com/ogurasousui/onboard-sync/internal/core/user"
	pgdb "github.com/ogurasousui/onboard-sync/internal/platform/db/postgres"
)

const uniqueViolationCode = "23505"

func scanUser(row rowScanner) (*user.User, error) {
	var (
		u        user.User
		roleName string
		rolesRaw []byte
		status   string
	)
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &roleName, &rolesRaw, &status, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrUserNotFound
		}
		return nil, fmt.Errorf("postgres: scan user: %w", err)
	}

	if len(rolesRaw) > 0 {
		if err := json.Unmarshal(rolesRaw, &u.Roles); err != nil {
			return nil, fmt.Errorf("postgres: decode user roles: %w", err)
		}
	}
	u.Role = role.Role(roleName)
	u.Status = user.Status(status)
	return &u, nil
}

// SubscribeUsers はユーザー一覧を購読します。
func (g *Gateway) SubscribeUsers(cb func(items []user.User)) (func(), error) {
	push := func() error {
		items, err := g.listUsers(context.Background())
		if err != nil {
			return err
		}
		cb(items)
		return nil
	}

	if err := push(); err != nil {
		return nil, err
	}

	return g.hub.subscribe(chanUsers, func(string) {
		if err := push(); err != nil {
			g.logger.Warn("users refresh failed", "error", err)
		}
	}), nil
}

func (g *Gateway) listUsers(ctx context.Context) ([]user.User, error) {
	exec := pgdb.QueryerFromContext(ctx, g.db)
	rows, err := exec.Query(ctx, `
        SELECT id, email, name, role, roles, status, created_at, updated_at
          FROM users
         ORDER BY created_at
    `)
	if err != nil {
		return nil, fmt.Errorf("postgres: list users: %w", err)
	}
	defer rows.Close()

	var items []user.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list users: %w", err)
	}
	return items, nil
}

// CreateUser はユーザーを作成し、サーバー側で確定した ID を返します。
func (g *Gateway) CreateUser(ctx context.Context, u *user.User) (*user.User, error) {
	rolesRaw, err := json.Marshal(u.Roles)
	if err != nil {
		return nil, fmt.Errorf("postgres: encode user roles: %w", err)
	}

	created := u.Clone()
	created.ID = uuid.NewString()
	now := g.now()
	created.CreatedAt = now
	created.UpdatedAt = now

	exec := pgdb.QueryerFromContext(ctx, g.db)
	if _, err := exec.Exec(ctx, `
        INSERT INTO users (id, email, name, role, roles, status, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `,
		created.ID,
		created.Email,
		created.Name,
		string(created.Role),
		rolesRaw,
		string(created.Status),
		created.CreatedAt,
		created.UpdatedAt,
	); err != nil {
		return nil, translateUserPgError(err)
	}

	return created, nil
}

// UpdateUser は差分のあるカラムだけを更新します。
func (g *Gateway) UpdateUser(ctx context.Context, id string, changes user.Changes) error {
	var (
		sets []string
		args []any
	)
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, column+" = $"+strconv.Itoa(len(args)))
	}

	if changes.Email != nil {
		add("email", *changes.Email)
	}
	if changes.Name != nil {
		add("name", *changes.Name)
	}
	if changes.Role != nil {
		add("role", string(*changes.Role))
	}
	if changes.Roles != nil {
		rolesRaw, err := json.Marshal(changes.Roles)
		if err != nil {
			return fmt.Errorf("postgres: encode user roles: %w", err)
		}
		add("roles", rolesRaw)
	}
	if changes.Status != nil {
		add("status", string(*changes.Status))
	}
	if len(sets) == 0 {
		return nil
	}
	add("updated_at", g.now())

	args = append(args, id)
	query := "UPDATE users SET " + strings.Join(sets, ", ") +
		" WHERE id = $" + strconv.Itoa(len(args))

	exec := pgdb.QueryerFromContext(ctx, g.db)
	tag, err := exec.Exec(ctx, query, args...)
	if err != nil {
		return translateUserPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return user.ErrUserNotFound
	}
	return nil
}

// DeleteUser はユーザーを削除します。
func (g *Gateway) DeleteUser(ctx context.Context, id string) error {
	exec := pgdb.QueryerFromContext(ctx, g.db)
	tag, err := exec.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return user.ErrUserNotFound
	}
	return nil
}

// ListCustomRoles はカスタム役割の一覧を返します。
func (g *Gateway) ListCustomRoles(ctx context.Context) ([]role.CustomRole, error) {
	exec := pgdb.QueryerFromContext(ctx, g.db)
	rows, err := exec.Query(ctx, `
        SELECT id, name, description, created_at
          FROM custom_roles
         ORDER BY created_at
    `)
	if err != nil {
		return nil, fmt.Errorf("postgres: list custom roles: %w", err)
	}
	defer rows.Close()

	var items []role.CustomRole
	for rows.Next() {
		var r role.CustomRole
		if err := rows.Scan(&r.ID, &r.Name, &r.Description, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan custom role: %w", err)
		}
		items = append(items, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list custom roles: %w", err)
	}
	return items, nil
}

// CreateCustomRole はカスタム役割を作成します。
func (g *Gateway) CreateCustomRole(ctx context.Context, r *role.CustomRole) (*role.CustomRole, error) {
	created := *r
	created.ID = uuid.NewString()
	created.CreatedAt = g.now()

	exec := pgdb.QueryerFromContext(ctx, g.db)
	if _, err := exec.Exec(ctx, `
        INSERT INTO custom_roles (id, name, description, created_at)
        VALUES ($1, $2, $3, $4)
    `, created.ID, created.Name, created.Description, created.CreatedAt); err != nil {
		return nil, translateRolePgError(err)
	}

	return &created, nil
}

// DeleteCustomRole はカスタム役割を削除します。
func (g *Gateway) DeleteCustomRole(ctx context.Context, id string) error {
	exec := pgdb.QueryerFromContext(ctx, g.db)
	tag, err := exec.Exec(ctx, `DELETE FROM custom_roles WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: custom role %s: %w", id, pgx.ErrNoRows)
	}
	return nil
}

func translateUserPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
		return user.ErrEmailAlreadyExists
	}
	return err
}

func translateRolePgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
		return role.ErrDuplicateName
	}
	return err
}
