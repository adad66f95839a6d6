package service

import (
	"context"
	"errors"
	"quizarena/internal/common"
	"quizarena/internal/domain/model"
	"quizarena/internal/domain/repository"
	"time"

	"github.com/google/uuid"
)

type PrizeService struct {
	prizeRepo         repository.PrizeRepository
	userRepo          repository.UserRepository
	contestRepo       repository.ContestRepository
	participationRepo repository.ParticipationRepository
}

func NewPrizeService(
	prizeRepo repository.PrizeRepository,
	userRepo repository.UserRepository,
	contestRepo repository.ContestRepository,
	participationRepo repository.ParticipationRepository,
) *PrizeService {
	return &PrizeService{
		prizeRepo:         prizeRepo,
		userRepo:          userRepo,
		contestRepo:       contestRepo,
		participationRepo: participationRepo,
	}
}

type AwardPrizeRequest struct {
	UserID    string `json:"user_id"`
	ContestID string `json:"contest_id"`
	Prize     string `json:"prize"`
}

// Award records a prize for a user. The contest must be complete and the
// user must have participated in it.
func (s *PrizeService) Award(ctx context.Context, req AwardPrizeRequest) (*model.Prize, error) {
	if req.UserID == "" || req.ContestID == "" || req.Prize == "" {
		return nil, common.Errorf("user_id, contest_id and prize are required: %w", common.ErrBadRequest)
	}

	if _, err := s.userRepo.FindByID(ctx, req.UserID); err != nil {
		return nil, err
	}
	contest, err := s.contestRepo.FindByID(ctx, req.ContestID)
	if err != nil {
		return nil, err
	}
	if contest.Status != model.ContestComplete {
		return nil, common.Errorf("prizes can only be awarded for completed contests: %w", common.ErrBadRequest)
	}
	if _, err := s.participationRepo.FindByContestAndUser(ctx, req.ContestID, req.UserID); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.Errorf("user did not participate in this contest: %w", common.ErrBadRequest)
		}
		return nil, err
	}

	prize := &model.Prize{
		ID:        uuid.NewString(),
		UserID:    req.UserID,
		ContestID: req.ContestID,
		Prize:     req.Prize,
		WonAt:     time.Now(),
	}
	if err := s.prizeRepo.Create(ctx, prize); err != nil {
		return nil, err
	}
	return prize, nil
}

func (s *PrizeService) AdminList(ctx context.Context, page, pageSize int) ([]model.Prize, common.Pagination, error) {
	prizes, total, err := s.prizeRepo.ListAll(ctx, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, common.Pagination{}, err
	}
	return prizes, common.NewPagination(page, pageSize, total), nil
}
