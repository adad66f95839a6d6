package repository

import (
	"context"
	"database/sql"
	"fmt"
	"quizarena/internal/common"
	"quizarena/internal/domain/model"
)

type PrizeRepository interface {
	Create(ctx context.Context, prize *model.Prize) error
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.Prize, int, error)
	ListAll(ctx context.Context, limit, offset int) ([]model.Prize, int, error)
}

type pgPrizeRepository struct {
	db *sql.DB
}

func NewPgPrizeRepository(db *sql.DB) PrizeRepository {
	return &pgPrizeRepository{db: db}
}

func (r *pgPrizeRepository) Create(ctx context.Context, p *model.Prize) error {
	query := `INSERT INTO prizes (id, user_id, contest_id, prize, won_at)
	          VALUES ($1, $2, $3, $4, $5)`
	_, err := r.db.ExecContext(ctx, query, p.ID, p.UserID, p.ContestID, p.Prize, p.WonAt)
	if err != nil {
		if common.IsUniqueViolation(err, "") {
			return fmt.Errorf("prize already awarded for this contest and user: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgPrizeRepository.Create: %w", err)
	}
	return nil
}

func (r *pgPrizeRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.Prize, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM prizes WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgPrizeRepository.ListByUser count: %w", err)
	}

	query := `SELECT p.id, p.user_id, p.contest_id, p.prize, p.won_at, p.created_at, c.name, u.name
	          FROM prizes p
	          JOIN contests c ON p.contest_id = c.id
	          JOIN users u ON p.user_id = u.id
	          WHERE p.user_id = $1 ORDER BY p.won_at DESC LIMIT $2 OFFSET $3`
	return r.list(ctx, query, total, userID, limit, offset)
}

func (r *pgPrizeRepository) ListAll(ctx context.Context, limit, offset int) ([]model.Prize, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM prizes`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgPrizeRepository.ListAll count: %w", err)
	}

	query := `SELECT p.id, p.user_id, p.contest_id, p.prize, p.won_at, p.created_at, c.name, u.name
	          FROM prizes p
	          JOIN contests c ON p.contest_id = c.id
	          JOIN users u ON p.user_id = u.id
	          ORDER BY p.won_at DESC LIMIT $1 OFFSET $2`
	return r.list(ctx, query, total, limit, offset)
}

func (r *pgPrizeRepository) list(ctx context.Context, query string, total int, args ...interface{}) ([]model.Prize, int, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgPrizeRepository.list query: %w", err)
	}
	defer rows.Close()

	prizes := []model.Prize{}
	for rows.Next() {
		var p model.Prize
		if err := rows.Scan(&p.ID, &p.UserID, &p.ContestID, &p.Prize, &p.WonAt, &p.CreatedAt, &p.ContestName, &p.UserName); err != nil {
			return nil, 0, fmt.Errorf("pgPrizeRepository.list scan: %w", err)
		}
		prizes = append(prizes, p)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("pgPrizeRepository.list rows.Err: %w", err)
	}
	return prizes, total, nil
}
