package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"quizarena/internal/common"
	"quizarena/internal/domain/model"
	"time"
)

// ContestFilter narrows contest listings. A nil VipOnly means both kinds.
type ContestFilter struct {
	Status  model.ContestStatus
	VipOnly *bool
}

type ContestRepository interface {
	Create(ctx context.Context, tx *sql.Tx, contest *model.Contest) error
	Update(ctx context.Context, tx *sql.Tx, contest *model.Contest) error
	Delete(ctx context.Context, tx *sql.Tx, id string) error
	UpdateStatus(ctx context.Context, id string, status model.ContestStatus) error
	FindByID(ctx context.Context, id string) (*model.Contest, error)
	FindBySlug(ctx context.Context, slug string) (*model.Contest, error)
	// FindByIDForUpdate locks the contest row so the capacity check and the
	// participants_count increment act as one unit inside a join transaction.
	FindByIDForUpdate(ctx context.Context, tx *sql.Tx, id string) (*model.Contest, error)
	IncrementParticipantsCount(ctx context.Context, tx *sql.Tx, id string) error
	List(ctx context.Context, filter ContestFilter, limit, offset int) ([]model.Contest, int, error)

	// Scheduler transitions, driven by wall clock. Each returns the ids it moved.
	MarkLiveDue(ctx context.Context, now time.Time) ([]string, error)
	MarkCompleteDue(ctx context.Context, now time.Time) ([]string, error)
	CancelUnderfilledDue(ctx context.Context, now time.Time) ([]string, error)
}

type pgContestRepository struct {
	db *sql.DB
}

func NewPgContestRepository(db *sql.DB) ContestRepository {
	return &pgContestRepository{db: db}
}

const contestColumns = `id, name, slug, description, start_time, end_time, prize, status,
	is_vip_only, participants_count, max_participants, min_participants, created_by, created_at, updated_at`

func scanContest(row interface{ Scan(...interface{}) error }) (*model.Contest, error) {
	c := &model.Contest{}
	err := row.Scan(
		&c.ID, &c.Name, &c.Slug, &c.Description, &c.StartTime, &c.EndTime, &c.Prize, &c.Status,
		&c.IsVipOnly, &c.ParticipantsCount, &c.MaxParticipants, &c.MinParticipants, &c.CreatedByID, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *pgContestRepository) Create(ctx context.Context, tx *sql.Tx, c *model.Contest) error {
	query := `INSERT INTO contests (id, name, slug, description, start_time, end_time, prize, status,
	            is_vip_only, participants_count, max_participants, min_participants, created_by)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := tx.ExecContext(ctx, query, c.ID, c.Name, c.Slug, c.Description, c.StartTime, c.EndTime, c.Prize, c.Status,
		c.IsVipOnly, c.ParticipantsCount, c.MaxParticipants, c.MinParticipants, c.CreatedByID)
	if err != nil {
		if common.IsUniqueViolation(err, "") {
			return fmt.Errorf("contest with this slug already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgContestRepository.Create: %w", err)
	}
	return nil
}

func (r *pgContestRepository) Update(ctx context.Context, tx *sql.Tx, c *model.Contest) error {
	query := `UPDATE contests SET
	            name = $1, slug = $2, description = $3, start_time = $4, end_time = $5, prize = $6,
	            is_vip_only = $7, max_participants = $8, min_participants = $9, updated_at = CURRENT_TIMESTAMP
	          WHERE id = $10`
	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, c.Name, c.Slug, c.Description, c.StartTime, c.EndTime, c.Prize,
			c.IsVipOnly, c.MaxParticipants, c.MinParticipants, c.ID)
	} else {
		_, err = r.db.ExecContext(ctx, query, c.Name, c.Slug, c.Description, c.StartTime, c.EndTime, c.Prize,
			c.IsVipOnly, c.MaxParticipants, c.MinParticipants, c.ID)
	}
	if err != nil {
		return fmt.Errorf("pgContestRepository.Update: %w", err)
	}
	return nil
}

func (r *pgContestRepository) Delete(ctx context.Context, tx *sql.Tx, id string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM contests WHERE id = $1`, id); err != nil {
		return fmt.Errorf("pgContestRepository.Delete: %w", err)
	}
	return nil
}

func (r *pgContestRepository) UpdateStatus(ctx context.Context, id string, status model.ContestStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE contests SET status = $2, updated_at = CURRENT_TIMESTAMP WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("pgContestRepository.UpdateStatus: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *pgContestRepository) FindByID(ctx context.Context, id string) (*model.Contest, error) {
	c, err := scanContest(r.db.QueryRowContext(ctx, `SELECT `+contestColumns+` FROM contests WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgContestRepository.FindByID: %w", err)
	}
	return c, nil
}

func (r *pgContestRepository) FindBySlug(ctx context.Context, slug string) (*model.Contest, error) {
	c, err := scanContest(r.db.QueryRowContext(ctx, `SELECT `+contestColumns+` FROM contests WHERE slug = $1`, slug))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgContestRepository.FindBySlug: %w", err)
	}
	return c, nil
}

func (r *pgContestRepository) FindByIDForUpdate(ctx context.Context, tx *sql.Tx, id string) (*model.Contest, error) {
	c, err := scanContest(tx.QueryRowContext(ctx, `SELECT `+contestColumns+` FROM contests WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgContestRepository.FindByIDForUpdate: %w", err)
	}
	return c, nil
}

func (r *pgContestRepository) IncrementParticipantsCount(ctx context.Context, tx *sql.Tx, id string) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE contests SET participants_count = participants_count + 1, updated_at = CURRENT_TIMESTAMP WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("pgContestRepository.IncrementParticipantsCount: %w", err)
	}
	return nil
}

func (r *pgContestRepository) List(ctx context.Context, filter ContestFilter, limit, offset int) ([]model.Contest, int, error) {
	where := ` WHERE ($1 = '' OR status = $1) AND ($2::boolean IS NULL OR is_vip_only = $2)`

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM contests`+where, string(filter.Status), filter.VipOnly).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgContestRepository.List count: %w", err)
	}

	query := `SELECT ` + contestColumns + ` FROM contests` + where + ` ORDER BY start_time ASC LIMIT $3 OFFSET $4`
	rows, err := r.db.QueryContext(ctx, query, string(filter.Status), filter.VipOnly, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("pgContestRepository.List query: %w", err)
	}
	defer rows.Close()

	contests := []model.Contest{}
	for rows.Next() {
		c, err := scanContest(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("pgContestRepository.List scan: %w", err)
		}
		contests = append(contests, *c)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("pgContestRepository.List rows.Err: %w", err)
	}
	return contests, total, nil
}

func (r *pgContestRepository) MarkLiveDue(ctx context.Context, now time.Time) ([]string, error) {
	return r.transition(ctx,
		`UPDATE contests SET status = 'live', updated_at = CURRENT_TIMESTAMP
		 WHERE status = 'pending' AND start_time <= $1 AND participants_count >= min_participants
		 RETURNING id`, now)
}

func (r *pgContestRepository) MarkCompleteDue(ctx context.Context, now time.Time) ([]string, error) {
	return r.transition(ctx,
		`UPDATE contests SET status = 'complete', updated_at = CURRENT_TIMESTAMP
		 WHERE status = 'live' AND end_time <= $1
		 RETURNING id`, now)
}

func (r *pgContestRepository) CancelUnderfilledDue(ctx context.Context, now time.Time) ([]string, error) {
	return r.transition(ctx,
		`UPDATE contests SET status = 'cancelled', updated_at = CURRENT_TIMESTAMP
		 WHERE status = 'pending' AND start_time <= $1 AND participants_count < min_participants
		 RETURNING id`, now)
}

func (r *pgContestRepository) transition(ctx context.Context, query string, now time.Time) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("pgContestRepository.transition: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("pgContestRepository.transition scan: %w", err)
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgContestRepository.transition rows.Err: %w", err)
	}
	return ids, nil
}
