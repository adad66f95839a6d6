package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"quizarena/internal/common"
	"quizarena/internal/domain/model"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByID(ctx context.Context, id string) (*model.User, error)
	UpdateType(ctx context.Context, id, userType string, isAdmin *bool) (*model.User, error)
	List(ctx context.Context, userType string, isAdmin *bool, limit, offset int) ([]model.User, int, error)
}

type pgUserRepository struct {
	db *sql.DB
}

func NewPgUserRepository(db *sql.DB) UserRepository {
	return &pgUserRepository{db: db}
}

func (r *pgUserRepository) Create(ctx context.Context, user *model.User) error {
	query := `INSERT INTO users (id, name, email, hashed_password, user_type, is_admin)
	          VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.db.ExecContext(ctx, query, user.ID, user.Name, user.Email, user.HashedPassword, user.UserType, user.IsAdmin)
	if err != nil {
		if common.IsUniqueViolation(err, "") {
			return fmt.Errorf("user with given email already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgUserRepository.Create: %w", err)
	}
	return nil
}

func (r *pgUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx, `WHERE email = $1`, email)
}

func (r *pgUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	return r.findOne(ctx, `WHERE id = $1`, id)
}

func (r *pgUserRepository) findOne(ctx context.Context, where string, arg interface{}) (*model.User, error) {
	query := `SELECT id, name, email, hashed_password, user_type, is_admin, created_at, updated_at
	          FROM users ` + where
	user := &model.User{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID, &user.Name, &user.Email, &user.HashedPassword, &user.UserType, &user.IsAdmin, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgUserRepository.findOne: %w", err)
	}
	return user, nil
}

func (r *pgUserRepository) UpdateType(ctx context.Context, id, userType string, isAdmin *bool) (*model.User, error) {
	query := `UPDATE users SET
	            user_type = COALESCE(NULLIF($2, ''), user_type),
	            is_admin  = COALESCE($3, is_admin),
	            updated_at = CURRENT_TIMESTAMP
	          WHERE id = $1
	          RETURNING id, name, email, hashed_password, user_type, is_admin, created_at, updated_at`
	user := &model.User{}
	err := r.db.QueryRowContext(ctx, query, id, userType, isAdmin).Scan(
		&user.ID, &user.Name, &user.Email, &user.HashedPassword, &user.UserType, &user.IsAdmin, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgUserRepository.UpdateType: %w", err)
	}
	return user, nil
}

func (r *pgUserRepository) List(ctx context.Context, userType string, isAdmin *bool, limit, offset int) ([]model.User, int, error) {
	where := ` WHERE ($1 = '' OR user_type = $1) AND ($2::boolean IS NULL OR is_admin = $2)`

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`+where, userType, isAdmin).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgUserRepository.List count: %w", err)
	}

	query := `SELECT id, name, email, user_type, is_admin, created_at, updated_at FROM users` + where +
		` ORDER BY created_at DESC LIMIT $3 OFFSET $4`
	rows, err := r.db.QueryContext(ctx, query, userType, isAdmin, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("pgUserRepository.List query: %w", err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.UserType, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("pgUserRepository.List scan: %w", err)
		}
		users = append(users, u)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("pgUserRepository.List rows.Err: %w", err)
	}
	return users, total, nil
}
