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

type LeaderboardRepository interface {
	// Create inserts the entry inside the same transaction that flips the
	// participation to submitted. A second entry for the same participation
	// is rejected with ErrDuplicateEntry.
	Create(ctx context.Context, tx *sql.Tx, entry *model.LeaderboardEntry) error
	ListByContest(ctx context.Context, contestID string, limit, offset int) ([]model.LeaderboardEntry, int, error)
	FindByContestAndUser(ctx context.Context, contestID, userID string) (*model.LeaderboardEntry, error)
	// CountBetter counts entries that strictly dominate the given score and
	// submission time under the ranking order (higher score, or equal score
	// and earlier finish). Rank = CountBetter + 1.
	CountBetter(ctx context.Context, contestID string, score int, submissionTime time.Time) (int, error)
}

type pgLeaderboardRepository struct {
	db *sql.DB
}

func NewPgLeaderboardRepository(db *sql.DB) LeaderboardRepository {
	return &pgLeaderboardRepository{db: db}
}

func (r *pgLeaderboardRepository) Create(ctx context.Context, tx *sql.Tx, e *model.LeaderboardEntry) error {
	query := `INSERT INTO leaderboard_entries (id, contest_id, user_id, participation_id, score, submission_time)
	          VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := tx.ExecContext(ctx, query, e.ID, e.ContestID, e.UserID, e.ParticipationID, e.Score, e.SubmissionTime)
	if err != nil {
		if common.IsUniqueViolation(err, "") {
			return fmt.Errorf("leaderboard entry exists for participation %s: %w", e.ParticipationID, common.ErrDuplicateEntry)
		}
		return fmt.Errorf("pgLeaderboardRepository.Create: %w", err)
	}
	return nil
}

func (r *pgLeaderboardRepository) ListByContest(ctx context.Context, contestID string, limit, offset int) ([]model.LeaderboardEntry, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM leaderboard_entries WHERE contest_id = $1`, contestID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgLeaderboardRepository.ListByContest count: %w", err)
	}

	query := `SELECT e.id, e.contest_id, e.user_id, e.participation_id, e.score, e.submission_time, e.created_at, u.name
	          FROM leaderboard_entries e
	          JOIN users u ON e.user_id = u.id
	          WHERE e.contest_id = $1
	          ORDER BY e.score DESC, e.submission_time ASC
	          LIMIT $2 OFFSET $3`
	rows, err := r.db.QueryContext(ctx, query, contestID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("pgLeaderboardRepository.ListByContest query: %w", err)
	}
	defer rows.Close()

	entries := []model.LeaderboardEntry{}
	for rows.Next() {
		var e model.LeaderboardEntry
		if err := rows.Scan(&e.ID, &e.ContestID, &e.UserID, &e.ParticipationID, &e.Score, &e.SubmissionTime, &e.CreatedAt, &e.UserName); err != nil {
			return nil, 0, fmt.Errorf("pgLeaderboardRepository.ListByContest scan: %w", err)
		}
		entries = append(entries, e)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("pgLeaderboardRepository.ListByContest rows.Err: %w", err)
	}
	return entries, total, nil
}

func (r *pgLeaderboardRepository) FindByContestAndUser(ctx context.Context, contestID, userID string) (*model.LeaderboardEntry, error) {
	query := `SELECT e.id, e.contest_id, e.user_id, e.participation_id, e.score, e.submission_time, e.created_at, u.name
	          FROM leaderboard_entries e
	          JOIN users u ON e.user_id = u.id
	          WHERE e.contest_id = $1 AND e.user_id = $2`
	e := &model.LeaderboardEntry{}
	err := r.db.QueryRowContext(ctx, query, contestID, userID).Scan(
		&e.ID, &e.ContestID, &e.UserID, &e.ParticipationID, &e.Score, &e.SubmissionTime, &e.CreatedAt, &e.UserName,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgLeaderboardRepository.FindByContestAndUser: %w", err)
	}
	return e, nil
}

func (r *pgLeaderboardRepository) CountBetter(ctx context.Context, contestID string, score int, submissionTime time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM leaderboard_entries
	          WHERE contest_id = $1 AND (score > $2 OR (score = $2 AND submission_time < $3))`
	var count int
	if err := r.db.QueryRowContext(ctx, query, contestID, score, submissionTime).Scan(&count); err != nil {
		return 0, fmt.Errorf("pgLeaderboardRepository.CountBetter: %w", err)
	}
	return count, nil
}
