package service

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"quizarena/internal/common"
	"quizarena/internal/domain/model"
	"quizarena/internal/domain/repository"
	"time"

	"github.com/google/uuid"
)

// JoinLocker serializes join attempts per user. The single-active-contest rule
// spans contests, so the (contest_id, user_id) uniqueness constraint alone
// cannot enforce it; Join holds this advisory lock across its check-and-create.
type JoinLocker interface {
	AcquireUserLock(ctx context.Context, userID string) (release func(), ok bool, err error)
}

// ParticipationService is the contest participation and scoring engine: it
// owns the pending -> submitted state machine, answer evaluation and the
// emission of leaderboard entries.
type ParticipationService struct {
	contestRepo       repository.ContestRepository
	questionRepo      repository.QuestionRepository
	participationRepo repository.ParticipationRepository
	leaderboardRepo   repository.LeaderboardRepository
	tx                repository.TxRunner
	locker            JoinLocker

	questionsPerContest int
	questionTimeLimit   time.Duration
}

func NewParticipationService(
	contestRepo repository.ContestRepository,
	questionRepo repository.QuestionRepository,
	participationRepo repository.ParticipationRepository,
	leaderboardRepo repository.LeaderboardRepository,
	tx repository.TxRunner,
	locker JoinLocker,
	questionsPerContest int,
	questionTimeLimit time.Duration,
) *ParticipationService {
	return &ParticipationService{
		contestRepo:         contestRepo,
		questionRepo:        questionRepo,
		participationRepo:   participationRepo,
		leaderboardRepo:     leaderboardRepo,
		tx:                  tx,
		locker:              locker,
		questionsPerContest: questionsPerContest,
		questionTimeLimit:   questionTimeLimit,
	}
}

// AnswerResult is returned to the client after each accepted answer.
type AnswerResult struct {
	IsCorrect     bool `json:"is_correct"`
	PointsAwarded int  `json:"points_awarded"`
	TotalScore    int  `json:"total_score"`
	NextIndex     int  `json:"next_question_index"`
	Completed     bool `json:"completed"`
}

// checkEligibility applies the join preconditions in their fixed order; the
// first failure wins.
func (s *ParticipationService) checkEligibility(ctx context.Context, contest *model.Contest, user *model.User) error {
	if !contest.IsJoinable() {
		return common.ErrContestNotJoinable
	}
	if contest.IsVipOnly && user.UserType != model.UserTypeVip {
		return common.ErrVipRequired
	}
	if contest.ParticipantsCount >= contest.MaxParticipants {
		return common.ErrCapacityReached
	}
	if _, err := s.participationRepo.FindByContestAndUser(ctx, contest.ID, user.ID); err == nil {
		return common.ErrAlreadyJoined
	} else if !errors.Is(err, common.ErrNotFound) {
		return err
	}
	if _, err := s.participationRepo.FindActiveByUser(ctx, user.ID); err == nil {
		return common.ErrAlreadyActiveElsewhere
	} else if !errors.Is(err, common.ErrNotFound) {
		return err
	}
	return nil
}

// Join registers the user for a contest and creates their participation in
// state pending. The eligibility checks and the creation run under a per-user
// advisory lock, and the capacity re-check, insert and participants_count
// increment share one transaction.
func (s *ParticipationService) Join(ctx context.Context, contestID string, user *model.User, now time.Time) (*model.Participation, error) {
	contest, err := s.contestRepo.FindByID(ctx, contestID)
	if err != nil {
		return nil, err
	}
	if err := s.checkEligibility(ctx, contest, user); err != nil {
		return nil, err
	}

	release, ok, err := s.locker.AcquireUserLock(ctx, user.ID)
	if err != nil {
		return nil, common.Errorf("acquire join lock: %w", err)
	}
	if !ok {
		return nil, common.ErrTxConflict
	}
	defer release()

	// Re-check under the lock: a join on another contest may have slipped in
	// between the pre-check and the lock acquisition.
	if _, err := s.participationRepo.FindActiveByUser(ctx, user.ID); err == nil {
		return nil, common.ErrAlreadyActiveElsewhere
	} else if !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}

	participation := &model.Participation{
		ID:                   uuid.NewString(),
		ContestID:            contest.ID,
		UserID:               user.ID,
		SubmissionState:      model.SubmissionPending,
		CurrentQuestionIndex: 0,
		Score:                0,
		StartTime:            now,
		UpdatedAt:            now,
	}

	err = s.withRetry(ctx, func(tx *sql.Tx) error {
		locked, err := s.contestRepo.FindByIDForUpdate(ctx, tx, contest.ID)
		if err != nil {
			return err
		}
		if !locked.IsJoinable() {
			return common.ErrContestNotJoinable
		}
		if locked.ParticipantsCount >= locked.MaxParticipants {
			return common.ErrCapacityReached
		}
		if err := s.participationRepo.Create(ctx, tx, participation); err != nil {
			return err
		}
		return s.contestRepo.IncrementParticipantsCount(ctx, tx, contest.ID)
	})
	if err != nil {
		return nil, err
	}
	return participation, nil
}

// SubmitAnswer evaluates the selection for the participation's current
// question, records it, and advances the pointer. Answering the final
// question also flips the participation to submitted and emits the
// leaderboard entry, all in the same transaction.
func (s *ParticipationService) SubmitAnswer(ctx context.Context, contestID, userID string, questionIndex int, sel model.Selection, now time.Time) (*AnswerResult, error) {
	var result *AnswerResult
	err := s.withRetry(ctx, func(tx *sql.Tx) error {
		result = nil
		p, err := s.participationRepo.FindByContestAndUserForUpdate(ctx, tx, contestID, userID)
		if err != nil {
			return err
		}
		if p.SubmissionState != model.SubmissionPending {
			return common.ErrAlreadySubmitted
		}
		if questionIndex != p.CurrentQuestionIndex {
			return common.ErrStaleQuestionIndex
		}
		// The per-question clock is anchored on the last state change. A late
		// answer is rejected without mutating anything; only SubmitContest can
		// close out a timed-out participation.
		if now.Sub(p.UpdatedAt) > s.questionTimeLimit {
			return common.ErrTimeLimitExceeded
		}

		question, err := s.questionRepo.FindByContestAndPosition(ctx, contestID, questionIndex)
		if err != nil {
			return err
		}

		isCorrect, points := Evaluate(question, sel)

		answer := &model.Answer{
			ID:              uuid.NewString(),
			ParticipationID: p.ID,
			QuestionID:      question.ID,
			Position:        questionIndex,
			Selected:        sel,
		}
		if err := s.participationRepo.AppendAnswer(ctx, tx, answer); err != nil {
			return err
		}

		p.Score += points
		p.CurrentQuestionIndex++

		completed := p.CurrentQuestionIndex >= s.questionsPerContest
		if completed {
			p.SubmissionState = model.SubmissionSubmitted
			p.SubmissionTime = &now
		}
		if err := s.participationRepo.UpdateProgress(ctx, tx, p, now); err != nil {
			return err
		}
		if completed {
			if err := s.recordFinish(ctx, tx, p); err != nil {
				return err
			}
		}

		result = &AnswerResult{
			IsCorrect:     isCorrect,
			PointsAwarded: points,
			TotalScore:    p.Score,
			NextIndex:     p.CurrentQuestionIndex,
			Completed:     completed,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// SubmitContest force-closes a pending participation with its current score.
// Unanswered questions contribute zero; nothing is retroactively scored.
func (s *ParticipationService) SubmitContest(ctx context.Context, contestID, userID string, now time.Time) (*model.Participation, error) {
	var submitted *model.Participation
	err := s.withRetry(ctx, func(tx *sql.Tx) error {
		p, err := s.participationRepo.FindByContestAndUserForUpdate(ctx, tx, contestID, userID)
		if err != nil {
			return err
		}
		if p.SubmissionState != model.SubmissionPending {
			return common.ErrAlreadySubmitted
		}

		p.SubmissionState = model.SubmissionSubmitted
		p.SubmissionTime = &now
		if err := s.participationRepo.UpdateProgress(ctx, tx, p, now); err != nil {
			return err
		}
		if err := s.recordFinish(ctx, tx, p); err != nil {
			return err
		}
		submitted = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return submitted, nil
}

// Get returns the caller's participation in a contest with its answers.
func (s *ParticipationService) Get(ctx context.Context, contestID, userID string) (*model.Participation, []model.Answer, error) {
	p, err := s.participationRepo.FindByContestAndUser(ctx, contestID, userID)
	if err != nil {
		return nil, nil, err
	}
	answers, err := s.participationRepo.ListAnswers(ctx, p.ID)
	if err != nil {
		return nil, nil, err
	}
	return p, answers, nil
}

// ListByContest returns one page of a contest's participations for admin use.
func (s *ParticipationService) ListByContest(ctx context.Context, contestID string, page, pageSize int) ([]model.Participation, common.Pagination, error) {
	participations, total, err := s.participationRepo.ListByContest(ctx, contestID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, common.Pagination{}, err
	}
	return participations, common.NewPagination(page, pageSize, total), nil
}

// CurrentQuestion returns the question the participation currently points at
// along with the time remaining on its clock. The correct answer is excluded
// from the question's serialized form.
func (s *ParticipationService) CurrentQuestion(ctx context.Context, contestID, userID string, now time.Time) (*model.Question, time.Duration, error) {
	p, err := s.participationRepo.FindByContestAndUser(ctx, contestID, userID)
	if err != nil {
		return nil, 0, err
	}
	if p.SubmissionState != model.SubmissionPending {
		return nil, 0, common.ErrAlreadySubmitted
	}
	question, err := s.questionRepo.FindByContestAndPosition(ctx, contestID, p.CurrentQuestionIndex)
	if err != nil {
		return nil, 0, err
	}
	remaining := s.questionTimeLimit - now.Sub(p.UpdatedAt)
	if remaining < 0 {
		remaining = 0
	}
	return question, remaining, nil
}

// recordFinish emits the immutable leaderboard entry inside the transaction
// that flips the participation to submitted: both happen or neither does.
func (s *ParticipationService) recordFinish(ctx context.Context, tx *sql.Tx, p *model.Participation) error {
	entry := &model.LeaderboardEntry{
		ID:              uuid.NewString(),
		ContestID:       p.ContestID,
		UserID:          p.UserID,
		ParticipationID: p.ID,
		Score:           p.Score,
		SubmissionTime:  *p.SubmissionTime,
	}
	if err := s.leaderboardRepo.Create(ctx, tx, entry); err != nil {
		if errors.Is(err, common.ErrDuplicateEntry) {
			// The state machine makes this unreachable; if it happens anyway
			// something upstream is broken.
			log.Printf("ERROR: invariant violation, duplicate leaderboard entry for participation %s: %v", p.ID, err)
		}
		return err
	}
	return nil
}

// withRetry re-runs the transaction once on a serialization or deadlock
// failure; anything past that surfaces as a conflict to the caller.
func (s *ParticipationService) withRetry(ctx context.Context, fn func(tx *sql.Tx) error) error {
	err := s.tx.RunInTx(ctx, fn)
	if err != nil && common.IsSerializationFailure(err) {
		err = s.tx.RunInTx(ctx, fn)
		if err != nil && common.IsSerializationFailure(err) {
			return common.ErrTxConflict
		}
	}
	return err
}
