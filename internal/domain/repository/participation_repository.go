package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"quizarena/internal/common"
	"quizarena/internal/domain/model"
	"time"
)

type ParticipationRepository interface {
	Create(ctx context.Context, tx *sql.Tx, p *model.Participation) error
	FindByContestAndUser(ctx context.Context, contestID, userID string) (*model.Participation, error)
	// FindByContestAndUserForUpdate locks the participation row, serializing
	// concurrent answer submissions for the same participation.
	FindByContestAndUserForUpdate(ctx context.Context, tx *sql.Tx, contestID, userID string) (*model.Participation, error)
	// FindActiveByUser returns a pending participation whose owning contest is
	// itself pending or live, if the user has one anywhere.
	FindActiveByUser(ctx context.Context, userID string) (*model.Participation, error)
	UpdateProgress(ctx context.Context, tx *sql.Tx, p *model.Participation, now time.Time) error
	AppendAnswer(ctx context.Context, tx *sql.Tx, a *model.Answer) error
	ListAnswers(ctx context.Context, participationID string) ([]model.Answer, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.Participation, int, error)
	ListByContest(ctx context.Context, contestID string, limit, offset int) ([]model.Participation, int, error)
}

type pgParticipationRepository struct {
	db *sql.DB
}

func NewPgParticipationRepository(db *sql.DB) ParticipationRepository {
	return &pgParticipationRepository{db: db}
}

const participationColumns = `id, contest_id, user_id, submission_state, current_question_index,
	score, start_time, submission_time, created_at, updated_at`

func scanParticipation(row interface{ Scan(...interface{}) error }) (*model.Participation, error) {
	p := &model.Participation{}
	err := row.Scan(&p.ID, &p.ContestID, &p.UserID, &p.SubmissionState, &p.CurrentQuestionIndex,
		&p.Score, &p.StartTime, &p.SubmissionTime, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *pgParticipationRepository) Create(ctx context.Context, tx *sql.Tx, p *model.Participation) error {
	query := `INSERT INTO participations (id, contest_id, user_id, submission_state, current_question_index, score, start_time, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`
	_, err := tx.ExecContext(ctx, query, p.ID, p.ContestID, p.UserID, p.SubmissionState, p.CurrentQuestionIndex, p.Score, p.StartTime)
	if err != nil {
		if common.IsUniqueViolation(err, "") {
			return fmt.Errorf("participation exists for this contest and user: %w", common.ErrAlreadyJoined)
		}
		return fmt.Errorf("pgParticipationRepository.Create: %w", err)
	}
	return nil
}

func (r *pgParticipationRepository) FindByContestAndUser(ctx context.Context, contestID, userID string) (*model.Participation, error) {
	query := `SELECT ` + participationColumns + ` FROM participations WHERE contest_id = $1 AND user_id = $2`
	p, err := scanParticipation(r.db.QueryRowContext(ctx, query, contestID, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgParticipationRepository.FindByContestAndUser: %w", err)
	}
	return p, nil
}

func (r *pgParticipationRepository) FindByContestAndUserForUpdate(ctx context.Context, tx *sql.Tx, contestID, userID string) (*model.Participation, error) {
	query := `SELECT ` + participationColumns + ` FROM participations WHERE contest_id = $1 AND user_id = $2 FOR UPDATE`
	p, err := scanParticipation(tx.QueryRowContext(ctx, query, contestID, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgParticipationRepository.FindByContestAndUserForUpdate: %w", err)
	}
	return p, nil
}

func (r *pgParticipationRepository) FindActiveByUser(ctx context.Context, userID string) (*model.Participation, error) {
	query := `SELECT p.id, p.contest_id, p.user_id, p.submission_state, p.current_question_index,
	                 p.score, p.start_time, p.submission_time, p.created_at, p.updated_at
	          FROM participations p
	          JOIN contests c ON p.contest_id = c.id
	          WHERE p.user_id = $1 AND p.submission_state = 'pending' AND c.status IN ('pending', 'live')
	          LIMIT 1`
	p, err := scanParticipation(r.db.QueryRowContext(ctx, query, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgParticipationRepository.FindActiveByUser: %w", err)
	}
	return p, nil
}

func (r *pgParticipationRepository) UpdateProgress(ctx context.Context, tx *sql.Tx, p *model.Participation, now time.Time) error {
	query := `UPDATE participations SET
	            submission_state = $2, current_question_index = $3, score = $4,
	            submission_time = $5, updated_at = $6
	          WHERE id = $1`
	_, err := tx.ExecContext(ctx, query, p.ID, p.SubmissionState, p.CurrentQuestionIndex, p.Score, p.SubmissionTime, now)
	if err != nil {
		return fmt.Errorf("pgParticipationRepository.UpdateProgress: %w", err)
	}
	return nil
}

func (r *pgParticipationRepository) AppendAnswer(ctx context.Context, tx *sql.Tx, a *model.Answer) error {
	selectedJSON, err := json.Marshal(a.Selected)
	if err != nil {
		return fmt.Errorf("pgParticipationRepository.AppendAnswer marshal: %w", err)
	}
	query := `INSERT INTO answers (id, participation_id, question_id, position, selected)
	          VALUES ($1, $2, $3, $4, $5)`
	if _, err := tx.ExecContext(ctx, query, a.ID, a.ParticipationID, a.QuestionID, a.Position, selectedJSON); err != nil {
		return fmt.Errorf("pgParticipationRepository.AppendAnswer: %w", err)
	}
	return nil
}

func (r *pgParticipationRepository) ListAnswers(ctx context.Context, participationID string) ([]model.Answer, error) {
	query := `SELECT id, participation_id, question_id, position, selected, created_at
	          FROM answers WHERE participation_id = $1 ORDER BY position ASC`
	rows, err := r.db.QueryContext(ctx, query, participationID)
	if err != nil {
		return nil, fmt.Errorf("pgParticipationRepository.ListAnswers query: %w", err)
	}
	defer rows.Close()

	var answers []model.Answer
	for rows.Next() {
		var a model.Answer
		var selectedJSON []byte
		if err := rows.Scan(&a.ID, &a.ParticipationID, &a.QuestionID, &a.Position, &selectedJSON, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("pgParticipationRepository.ListAnswers scan: %w", err)
		}
		if err := json.Unmarshal(selectedJSON, &a.Selected); err != nil {
			return nil, fmt.Errorf("pgParticipationRepository.ListAnswers unmarshal: %w", err)
		}
		answers = append(answers, a)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgParticipationRepository.ListAnswers rows.Err: %w", err)
	}
	return answers, nil
}

func (r *pgParticipationRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.Participation, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM participations WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgParticipationRepository.ListByUser count: %w", err)
	}

	query := `SELECT p.id, p.contest_id, p.user_id, p.submission_state, p.current_question_index,
	                 p.score, p.start_time, p.submission_time, p.created_at, p.updated_at, c.name
	          FROM participations p
	          JOIN contests c ON p.contest_id = c.id
	          WHERE p.user_id = $1 ORDER BY p.created_at DESC LIMIT $2 OFFSET $3`
	return r.list(ctx, query, total, userID, limit, offset)
}

func (r *pgParticipationRepository) ListByContest(ctx context.Context, contestID string, limit, offset int) ([]model.Participation, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM participations WHERE contest_id = $1`, contestID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgParticipationRepository.ListByContest count: %w", err)
	}

	query := `SELECT p.id, p.contest_id, p.user_id, p.submission_state, p.current_question_index,
	                 p.score, p.start_time, p.submission_time, p.created_at, p.updated_at, c.name
	          FROM participations p
	          JOIN contests c ON p.contest_id = c.id
	          WHERE p.contest_id = $1 ORDER BY p.created_at DESC LIMIT $2 OFFSET $3`
	return r.list(ctx, query, total, contestID, limit, offset)
}

func (r *pgParticipationRepository) list(ctx context.Context, query string, total int, args ...interface{}) ([]model.Participation, int, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgParticipationRepository.list query: %w", err)
	}
	defer rows.Close()

	participations := []model.Participation{}
	for rows.Next() {
		var p model.Participation
		if err := rows.Scan(&p.ID, &p.ContestID, &p.UserID, &p.SubmissionState, &p.CurrentQuestionIndex,
			&p.Score, &p.StartTime, &p.SubmissionTime, &p.CreatedAt, &p.UpdatedAt, &p.ContestName); err != nil {
			return nil, 0, fmt.Errorf("pgParticipationRepository.list scan: %w", err)
		}
		participations = append(participations, p)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("pgParticipationRepository.list rows.Err: %w", err)
	}
	return participations, total, nil
}
