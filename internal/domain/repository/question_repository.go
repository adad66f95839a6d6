package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"quizarena/internal/common"
	"quizarena/internal/domain/model"
)

type QuestionRepository interface {
	CreateBatch(ctx context.Context, tx *sql.Tx, questions []model.Question) error
	FindByContestAndPosition(ctx context.Context, contestID string, position int) (*model.Question, error)
	ListByContest(ctx context.Context, contestID string) ([]model.Question, error)
	DeleteByContest(ctx context.Context, tx *sql.Tx, contestID string) error
}

type pgQuestionRepository struct {
	db *sql.DB
}

func NewPgQuestionRepository(db *sql.DB) QuestionRepository {
	return &pgQuestionRepository{db: db}
}

func (r *pgQuestionRepository) CreateBatch(ctx context.Context, tx *sql.Tx, questions []model.Question) error {
	if len(questions) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO questions (id, contest_id, position, prompt, prompt_hash, question_type, options, correct, score)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`)
	if err != nil {
		return fmt.Errorf("pgQuestionRepository.CreateBatch prepare: %w", err)
	}
	defer stmt.Close()

	for _, q := range questions {
		optionsJSON, err := json.Marshal(q.Options)
		if err != nil {
			return fmt.Errorf("pgQuestionRepository.CreateBatch marshal options: %w", err)
		}
		correctJSON, err := json.Marshal(q.Correct)
		if err != nil {
			return fmt.Errorf("pgQuestionRepository.CreateBatch marshal correct: %w", err)
		}
		_, err = stmt.ExecContext(ctx, q.ID, q.ContestID, q.Position, q.Prompt, q.PromptHash, q.QuestionType, optionsJSON, correctJSON, q.Score)
		if err != nil {
			if common.IsUniqueViolation(err, "") {
				return fmt.Errorf("duplicate question in contest: %w", common.ErrConflict)
			}
			return fmt.Errorf("pgQuestionRepository.CreateBatch exec for question %d: %w", q.Position, err)
		}
	}
	return nil
}

func (r *pgQuestionRepository) FindByContestAndPosition(ctx context.Context, contestID string, position int) (*model.Question, error) {
	query := `SELECT id, contest_id, position, prompt, prompt_hash, question_type, options, correct, score, created_at, updated_at
	          FROM questions WHERE contest_id = $1 AND position = $2`
	q, err := scanQuestion(r.db.QueryRowContext(ctx, query, contestID, position))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgQuestionRepository.FindByContestAndPosition: %w", err)
	}
	return q, nil
}

func (r *pgQuestionRepository) ListByContest(ctx context.Context, contestID string) ([]model.Question, error) {
	query := `SELECT id, contest_id, position, prompt, prompt_hash, question_type, options, correct, score, created_at, updated_at
	          FROM questions WHERE contest_id = $1 ORDER BY position ASC`
	rows, err := r.db.QueryContext(ctx, query, contestID)
	if err != nil {
		return nil, fmt.Errorf("pgQuestionRepository.ListByContest query: %w", err)
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, fmt.Errorf("pgQuestionRepository.ListByContest scan: %w", err)
		}
		questions = append(questions, *q)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgQuestionRepository.ListByContest rows.Err: %w", err)
	}
	return questions, nil
}

func (r *pgQuestionRepository) DeleteByContest(ctx context.Context, tx *sql.Tx, contestID string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM questions WHERE contest_id = $1`, contestID); err != nil {
		return fmt.Errorf("pgQuestionRepository.DeleteByContest: %w", err)
	}
	return nil
}

func scanQuestion(row interface{ Scan(...interface{}) error }) (*model.Question, error) {
	q := &model.Question{}
	var optionsJSON, correctJSON []byte
	err := row.Scan(&q.ID, &q.ContestID, &q.Position, &q.Prompt, &q.PromptHash, &q.QuestionType,
		&optionsJSON, &correctJSON, &q.Score, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(optionsJSON, &q.Options); err != nil {
		return nil, fmt.Errorf("unmarshal options: %w", err)
	}
	if err := json.Unmarshal(correctJSON, &q.Correct); err != nil {
		return nil, fmt.Errorf("unmarshal correct: %w", err)
	}
	return q, nil
}
