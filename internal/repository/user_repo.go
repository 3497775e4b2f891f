package repository

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/tutordesk/backend/internal/models"
)

type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type UserRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

type CreateUserInput struct {
	Name         string
	Email        string
	PasswordHash string
	Role         models.Role
}

type UpdateUserInput struct {
	Name   *string
	Email  *string
	Avatar *string
}

const userColumns = "id, name, email, password_hash, role, avatar, created_at"

func scanUser(row pgx.Row) (*models.User, error) {
	var (
		user models.User
		role string
	)
	if err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&role,
		&user.Avatar,
		&user.CreatedAt,
	); err != nil {
		return nil, err
	}
	user.Role = models.Role(role)
	return &user, nil
}

func (r *UserRepository) CreateUser(ctx context.Context, input CreateUserInput) (*models.User, error) {
	query := `
		INSERT INTO users (name, email, password_hash, role)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + userColumns
	return scanUser(r.db.QueryRow(ctx, query, input.Name, input.Email, input.PasswordHash, string(input.Role)))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.db.QueryRow(ctx, query, email))
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRow(ctx, query, id))
}

// LockForBootstrap blocks concurrent writers to users until the surrounding
// transaction ends. Only meaningful inside a transaction.
func (r *UserRepository) LockForBootstrap(ctx context.Context) error {
	_, err := r.db.Exec(ctx, `LOCK TABLE users IN EXCLUSIVE MODE`)
	return err
}

func (r *UserRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (r *UserRepository) List(ctx context.Context, role models.Role) ([]models.User, error) {
	builder := psql.Select(userColumns).From("users").OrderBy("name ASC", "id ASC")
	if role != "" {
		builder = builder.Where(sq.Eq{"role": string(role)})
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]models.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *UserRepository) Update(ctx context.Context, id uuid.UUID, input UpdateUserInput) (*models.User, error) {
	query := `
		UPDATE users
		SET name = COALESCE($2, name),
		    email = COALESCE($3, email),
		    avatar = COALESCE($4, avatar)
		WHERE id = $1
		RETURNING ` + userColumns
	return scanUser(r.db.QueryRow(ctx, query, id, input.Name, input.Email, input.Avatar))
}
