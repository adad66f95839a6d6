package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"quizarena/internal/common"
	"quizarena/internal/common/security"
	"quizarena/internal/domain/model"
	"quizarena/internal/domain/repository"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// ContestService is the contest catalog: the cached public listings, the
// admin CRUD, and the question sets. The participation engine only reads
// from it.
type ContestService struct {
	contestRepo  repository.ContestRepository
	questionRepo repository.QuestionRepository
	tx           repository.TxRunner
	rdb          *redis.Client
	cacheTTL     time.Duration
	sf           singleflight.Group

	questionsPerContest  int
	defaultQuestionScore int
	maxParticipants      int
	minParticipants      int
}

func NewContestService(
	contestRepo repository.ContestRepository,
	questionRepo repository.QuestionRepository,
	tx repository.TxRunner,
	rdb *redis.Client,
	cacheTTL time.Duration,
	questionsPerContest, defaultQuestionScore, maxParticipants, minParticipants int,
) *ContestService {
	return &ContestService{
		contestRepo:          contestRepo,
		questionRepo:         questionRepo,
		tx:                   tx,
		rdb:                  rdb,
		cacheTTL:             cacheTTL,
		questionsPerContest:  questionsPerContest,
		defaultQuestionScore: defaultQuestionScore,
		maxParticipants:      maxParticipants,
		minParticipants:      minParticipants,
	}
}

// ContestPage is the cached shape of one listing page.
type ContestPage struct {
	Contests   []model.Contest   `json:"contests"`
	Pagination common.Pagination `json:"pagination"`
}

// List returns one page of contests. Guests only ever see live, non-VIP
// contests; authenticated users may filter freely. Pages are cached in Redis
// and cache fills are collapsed through singleflight.
func (s *ContestService) List(ctx context.Context, filter repository.ContestFilter, authenticated bool, page, pageSize int) (*ContestPage, error) {
	if !authenticated {
		vipOnly := false
		filter = repository.ContestFilter{Status: model.ContestLive, VipOnly: &vipOnly}
	}

	key := listCacheKey(filter, page, pageSize)
	if cached, err := s.rdb.Get(ctx, key).Bytes(); err == nil {
		var result ContestPage
		if err := json.Unmarshal(cached, &result); err == nil {
			return &result, nil
		}
	}

	v, err, _ := s.sf.Do(key, func() (interface{}, error) {
		contests, total, err := s.contestRepo.List(ctx, filter, pageSize, (page-1)*pageSize)
		if err != nil {
			return nil, err
		}
		result := &ContestPage{
			Contests:   contests,
			Pagination: common.NewPagination(page, pageSize, total),
		}
		if payload, err := json.Marshal(result); err == nil {
			if err := s.rdb.Set(ctx, key, payload, s.cacheTTL).Err(); err != nil {
				log.Printf("WARN: failed to cache contest listing %s: %v", key, err)
			}
		}
		return result, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*ContestPage), nil
}

func listCacheKey(filter repository.ContestFilter, page, pageSize int) string {
	vip := "any"
	if filter.VipOnly != nil {
		vip = strconv.FormatBool(*filter.VipOnly)
	}
	return "contests:" + string(filter.Status) + ":" + vip + ":" + strconv.Itoa(page) + ":" + strconv.Itoa(pageSize)
}

// GetBySlug returns a contest. VIP-only contest details are restricted to VIP
// users and admins.
func (s *ContestService) GetBySlug(ctx context.Context, contestSlug string, user *model.User) (*model.Contest, error) {
	contest, err := s.contestRepo.FindBySlug(ctx, contestSlug)
	if err != nil {
		return nil, err
	}
	if contest.IsVipOnly {
		if user == nil || (!user.IsAdmin && user.UserType != model.UserTypeVip) {
			return nil, common.Errorf("access to VIP contest details is restricted: %w", common.ErrForbidden)
		}
	}
	return contest, nil
}

func (s *ContestService) GetByID(ctx context.Context, id string) (*model.Contest, error) {
	return s.contestRepo.FindByID(ctx, id)
}

// QuestionInput is the admin payload for one question at contest creation.
type QuestionInput struct {
	Prompt       string             `json:"prompt"`
	QuestionType model.QuestionType `json:"question_type"`
	Options      []string           `json:"options"`
	Correct      model.Selection    `json:"correct"`
	Score        int                `json:"score"`
}

// CreateContestRequest is the admin payload for a new contest with its full
// question set.
type CreateContestRequest struct {
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	StartTime       time.Time       `json:"start_time"`
	EndTime         time.Time       `json:"end_time"`
	Prize           string          `json:"prize"`
	IsVipOnly       bool            `json:"is_vip_only"`
	MaxParticipants int             `json:"max_participants"`
	MinParticipants int             `json:"min_participants"`
	Questions       []QuestionInput `json:"questions"`
}

// Create validates and persists a contest together with its fixed question
// set in one transaction.
func (s *ContestService) Create(ctx context.Context, createdBy string, req CreateContestRequest) (*model.Contest, error) {
	if req.Name == "" || req.Description == "" || req.Prize == "" || req.StartTime.IsZero() || req.EndTime.IsZero() {
		return nil, common.Errorf("name, description, prize, start_time and end_time are required: %w", common.ErrValidation)
	}
	if !req.StartTime.Before(req.EndTime) {
		return nil, common.Errorf("end time must be after start time: %w", common.ErrValidation)
	}
	if len(req.Questions) != s.questionsPerContest {
		return nil, common.Errorf("contest must have exactly %d questions: %w", s.questionsPerContest, common.ErrValidation)
	}

	maxParticipants := req.MaxParticipants
	if maxParticipants <= 0 {
		maxParticipants = s.maxParticipants
	}
	minParticipants := req.MinParticipants
	if minParticipants <= 0 {
		minParticipants = s.minParticipants
	}

	contest := &model.Contest{
		ID:              uuid.NewString(),
		Name:            req.Name,
		Slug:            slug.Make(req.Name),
		Description:     req.Description,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		Prize:           req.Prize,
		Status:          model.ContestPending,
		IsVipOnly:       req.IsVipOnly,
		MaxParticipants: maxParticipants,
		MinParticipants: minParticipants,
		CreatedByID:     createdBy,
	}

	questions := make([]model.Question, 0, len(req.Questions))
	for i, in := range req.Questions {
		q, err := s.buildQuestion(contest.ID, i, in)
		if err != nil {
			return nil, err
		}
		questions = append(questions, *q)
	}

	err := s.tx.RunInTx(ctx, func(tx *sql.Tx) error {
		if err := s.contestRepo.Create(ctx, tx, contest); err != nil {
			return err
		}
		return s.questionRepo.CreateBatch(ctx, tx, questions)
	})
	if err != nil {
		return nil, err
	}

	s.InvalidateListCache(ctx)
	return contest, nil
}

func (s *ContestService) buildQuestion(contestID string, position int, in QuestionInput) (*model.Question, error) {
	if in.Prompt == "" {
		return nil, common.Errorf("question %d: prompt is required: %w", position, common.ErrValidation)
	}
	if len(in.Options) < 2 {
		return nil, common.Errorf("question %d: at least two options are required: %w", position, common.ErrValidation)
	}

	switch in.QuestionType {
	case model.QuestionBoolean:
		if len(in.Options) != 2 {
			return nil, common.Errorf("question %d: boolean questions must have exactly 2 options: %w", position, common.ErrValidation)
		}
		fallthrough
	case model.QuestionSingle:
		if in.Correct.IsMulti {
			return nil, common.Errorf("question %d: correct option must be a single index: %w", position, common.ErrValidation)
		}
		if in.Correct.Single < 0 || in.Correct.Single >= len(in.Options) {
			return nil, common.Errorf("question %d: correct option index out of range: %w", position, common.ErrValidation)
		}
	case model.QuestionMultiple:
		if !in.Correct.IsMulti || len(in.Correct.Multi) == 0 {
			return nil, common.Errorf("question %d: correct options must be a non-empty array of indices: %w", position, common.ErrValidation)
		}
		for _, idx := range in.Correct.Multi {
			if idx < 0 || idx >= len(in.Options) {
				return nil, common.Errorf("question %d: correct option index out of range: %w", position, common.ErrValidation)
			}
		}
	default:
		return nil, common.Errorf("question %d: unknown question type %q: %w", position, in.QuestionType, common.ErrValidation)
	}

	score := in.Score
	if score <= 0 {
		score = s.defaultQuestionScore
	}

	return &model.Question{
		ID:           uuid.NewString(),
		ContestID:    contestID,
		Position:     position,
		Prompt:       in.Prompt,
		PromptHash:   security.SHA256Hex(in.Prompt),
		QuestionType: in.QuestionType,
		Options:      in.Options,
		Correct:      in.Correct,
		Score:        score,
	}, nil
}

// UpdateContestRequest carries the mutable contest fields. Nil means keep.
type UpdateContestRequest struct {
	Name            *string    `json:"name"`
	Description     *string    `json:"description"`
	StartTime       *time.Time `json:"start_time"`
	EndTime         *time.Time `json:"end_time"`
	Prize           *string    `json:"prize"`
	IsVipOnly       *bool      `json:"is_vip_only"`
	MaxParticipants *int       `json:"max_participants"`
	MinParticipants *int       `json:"min_participants"`
}

// Update edits a contest. Only pending contests can be updated.
func (s *ContestService) Update(ctx context.Context, id string, req UpdateContestRequest) (*model.Contest, error) {
	contest, err := s.contestRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if contest.Status != model.ContestPending {
		return nil, common.Errorf("only pending contests can be updated: %w", common.ErrBadRequest)
	}

	if req.Name != nil && *req.Name != "" {
		contest.Name = *req.Name
		contest.Slug = slug.Make(*req.Name)
	}
	if req.Description != nil {
		contest.Description = *req.Description
	}
	if req.StartTime != nil {
		contest.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		contest.EndTime = *req.EndTime
	}
	if !contest.StartTime.Before(contest.EndTime) {
		return nil, common.Errorf("end time must be after start time: %w", common.ErrValidation)
	}
	if req.Prize != nil {
		contest.Prize = *req.Prize
	}
	if req.IsVipOnly != nil {
		contest.IsVipOnly = *req.IsVipOnly
	}
	if req.MaxParticipants != nil && *req.MaxParticipants > 0 {
		contest.MaxParticipants = *req.MaxParticipants
	}
	if req.MinParticipants != nil && *req.MinParticipants > 0 {
		contest.MinParticipants = *req.MinParticipants
	}

	if err := s.contestRepo.Update(ctx, nil, contest); err != nil {
		return nil, err
	}
	s.InvalidateListCache(ctx)
	return contest, nil
}

// Delete removes a contest and its questions. Only pending contests with no
// participants can be deleted.
func (s *ContestService) Delete(ctx context.Context, id string) error {
	contest, err := s.contestRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if contest.Status != model.ContestPending || contest.ParticipantsCount > 0 {
		return common.Errorf("only pending contests without participants can be deleted: %w", common.ErrBadRequest)
	}

	err = s.tx.RunInTx(ctx, func(tx *sql.Tx) error {
		if err := s.questionRepo.DeleteByContest(ctx, tx, contest.ID); err != nil {
			return err
		}
		return s.contestRepo.Delete(ctx, tx, contest.ID)
	})
	if err != nil {
		return err
	}
	s.InvalidateListCache(ctx)
	return nil
}

// Cancel marks a pending contest cancelled.
func (s *ContestService) Cancel(ctx context.Context, id string) (*model.Contest, error) {
	contest, err := s.contestRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if contest.Status != model.ContestPending {
		return nil, common.Errorf("only pending contests can be cancelled: %w", common.ErrBadRequest)
	}

	if err := s.contestRepo.UpdateStatus(ctx, contest.ID, model.ContestCancelled); err != nil {
		return nil, err
	}
	contest.Status = model.ContestCancelled
	s.InvalidateListCache(ctx)
	return contest, nil
}

// AdminList is the uncached listing for the admin view.
func (s *ContestService) AdminList(ctx context.Context, filter repository.ContestFilter, page, pageSize int) (*ContestPage, error) {
	contests, total, err := s.contestRepo.List(ctx, filter, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}
	return &ContestPage{
		Contests:   contests,
		Pagination: common.NewPagination(page, pageSize, total),
	}, nil
}

// Questions returns a contest's full question set, correct answers included.
// Admin only.
func (s *ContestService) Questions(ctx context.Context, contestID string) ([]model.Question, error) {
	return s.questionRepo.ListByContest(ctx, contestID)
}

// InvalidateListCache drops every cached listing page after a contest write.
func (s *ContestService) InvalidateListCache(ctx context.Context) {
	iter := s.rdb.Scan(ctx, 0, "contests:*", 0).Iterator()
	for iter.Next(ctx) {
		if err := s.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			log.Printf("WARN: failed to invalidate contest cache key %s: %v", iter.Val(), err)
		}
	}
	if err := iter.Err(); err != nil {
		log.Printf("WARN: contest cache invalidation scan: %v", err)
	}
}
