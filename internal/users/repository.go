package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-hrm/internal/access"
	"github.com/odyssey-erp/odyssey-hrm/internal/platform/db"
	"github.com/odyssey-erp/odyssey-hrm/internal/shared"
)

// Repository provides PostgreSQL backed persistence. Stored roles and
// departments are resolved through the engine on every read.
type Repository struct {
	pool   *pgxpool.Pool
	engine *access.Engine
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool, engine *access.Engine) *Repository {
	return &Repository{pool: pool, engine: engine}
}

const userColumns = `id, email, name, role, department, is_active, created_at, updated_at`

// ListUsers returns one page of users and the total matching count.
func (r *Repository) ListUsers(ctx context.Context, filter ListFilter) ([]User, int, error) {
	where := ""
	args := []any{}
	if filter.Department != "" {
		where = " WHERE lower(trim(department)) = $1"
		args = append(args, string(filter.Department))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("users: count: %w", err)
	}

	perPage := shared.NewPagination(filter.Page, filter.PerPage, total).PerPage
	offset := shared.Offset(filter.Page, filter.PerPage)
	query := fmt.Sprintf(`SELECT %s FROM users%s ORDER BY id LIMIT $%d OFFSET $%d`, userColumns, where, len(args)+1, len(args)+2)
	args = append(args, perPage, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("users: list: %w", err)
	}
	defer rows.Close()
	var users []User
	for rows.Next() {
		user, err := r.scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// GetUser fetches a user by id.
func (r *Repository) GetUser(ctx context.Context, id int64) (User, error) {
	user, err := r.scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, shared.ErrNotFound
	}
	return user, err
}

// UpdateAssignment locks the user row, lets decide compute the new
// assignment from the current row and persists it. It returns the row before
// and after the change.
func (r *Repository) UpdateAssignment(ctx context.Context, id int64, decide func(User) (Assignment, error)) (User, User, error) {
	var before, after User
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SET LOCAL lock_timeout = '5s'`); err != nil {
			return err
		}
		var err error
		before, err = r.scanUser(tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id))
		if errors.Is(err, pgx.ErrNoRows) {
			return shared.ErrNotFound
		}
		if err != nil {
			return err
		}
		next, err := decide(before)
		if err != nil {
			return err
		}
		after, err = r.scanUser(tx.QueryRow(ctx,
			`UPDATE users SET role = $2, department = $3, updated_at = NOW() WHERE id = $1 RETURNING `+userColumns,
			id, string(next.Role), string(next.Department)))
		return err
	})
	if err != nil {
		return User{}, User{}, err
	}
	return before, after, nil
}

func (r *Repository) scanUser(row pgx.Row) (User, error) {
	var (
		user       User
		role, dept string
	)
	if err := row.Scan(&user.ID, &user.Email, &user.Name, &role, &dept, &user.IsActive, &user.CreatedAt, &user.UpdatedAt); err != nil {
		return User{}, err
	}
	user.Role, user.Department = r.engine.ResolveAssignment(role, dept)
	return user, nil
}

var _ RepositoryPort = (*Repository)(nil)
