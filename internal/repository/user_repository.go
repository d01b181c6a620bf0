package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/grievance-service/internal/domain"
)

// UserRepository defines persistence access for accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, user *domain.User) error
	GetByUserID(ctx context.Context, userID string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	TouchLastLogin(ctx context.Context, userID string) error
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

const userColumns = `user_id, email, password_hash, display_name, role, department,
               hostel_block, room_number, phone_number, created_at, last_login_at, is_active`

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (user_id, email, password_hash, display_name, role, department,
                           hostel_block, room_number, phone_number, is_active)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        RETURNING created_at, last_login_at`

	return r.pool.QueryRow(ctx, query,
		user.UserID,
		user.Email,
		user.PasswordHash,
		user.DisplayName,
		user.Role,
		user.Department,
		user.HostelBlock,
		user.RoomNumber,
		user.PhoneNumber,
		user.IsActive,
	).Scan(&user.CreatedAt, &user.LastLoginAt)
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	const query = `
        UPDATE users SET display_name=$1, department=$2, hostel_block=$3, room_number=$4,
            phone_number=$5, is_active=$6
        WHERE user_id=$7`

	cmd, err := r.pool.Exec(ctx, query,
		user.DisplayName,
		user.Department,
		user.HostelBlock,
		user.RoomNumber,
		user.PhoneNumber,
		user.IsActive,
		user.UserID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *userRepository) GetByUserID(ctx context.Context, userID string) (*domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE user_id=$1`
	return r.fetchSingle(ctx, query, userID)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE email=$1`
	return r.fetchSingle(ctx, query, email)
}

func (r *userRepository) TouchLastLogin(ctx context.Context, userID string) error {
	const query = `UPDATE users SET last_login_at=NOW() WHERE user_id=$1`
	cmd, err := r.pool.Exec(ctx, query, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *userRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.User, error) {
	var user domain.User
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&user.UserID,
		&user.Email,
		&user.PasswordHash,
		&user.DisplayName,
		&user.Role,
		&user.Department,
		&user.HostelBlock,
		&user.RoomNumber,
		&user.PhoneNumber,
		&user.CreatedAt,
		&user.LastLoginAt,
		&user.IsActive,
	); err != nil {
		return nil, err
	}
	return &user, nil
}
