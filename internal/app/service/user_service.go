package service

import (
	"context"
	"quizarena/internal/common"
	"quizarena/internal/domain/model"
	"quizarena/internal/domain/repository"
)

type UserService struct {
	userRepo          repository.UserRepository
	participationRepo repository.ParticipationRepository
	prizeRepo         repository.PrizeRepository
}

func NewUserService(
	userRepo repository.UserRepository,
	participationRepo repository.ParticipationRepository,
	prizeRepo repository.PrizeRepository,
) *UserService {
	return &UserService{userRepo: userRepo, participationRepo: participationRepo, prizeRepo: prizeRepo}
}

func (s *UserService) Me(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.HashedPassword = ""
	return user, nil
}

// UpgradeToVip flips the user's type. Payment processing would sit in front
// of this in a real deployment.
func (s *UserService) UpgradeToVip(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.userRepo.UpdateType(ctx, userID, model.UserTypeVip, nil)
	if err != nil {
		return nil, err
	}
	user.HashedPassword = ""
	return user, nil
}

func (s *UserService) Participations(ctx context.Context, userID string, page, pageSize int) ([]model.Participation, common.Pagination, error) {
	participations, total, err := s.participationRepo.ListByUser(ctx, userID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, common.Pagination{}, err
	}
	return participations, common.NewPagination(page, pageSize, total), nil
}

func (s *UserService) Prizes(ctx context.Context, userID string, page, pageSize int) ([]model.Prize, common.Pagination, error) {
	prizes, total, err := s.prizeRepo.ListByUser(ctx, userID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, common.Pagination{}, err
	}
	return prizes, common.NewPagination(page, pageSize, total), nil
}

// AdminList lists users with optional type/admin filters.
func (s *UserService) AdminList(ctx context.Context, userType string, isAdmin *bool, page, pageSize int) ([]model.User, common.Pagination, error) {
	users, total, err := s.userRepo.List(ctx, userType, isAdmin, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, common.Pagination{}, err
	}
	return users, common.NewPagination(page, pageSize, total), nil
}

// AdminUpdate changes a user's type and admin flag.
func (s *UserService) AdminUpdate(ctx context.Context, userID, userType string, isAdmin *bool) (*model.User, error) {
	if userType != "" && userType != model.UserTypeNormal && userType != model.UserTypeVip {
		return nil, common.Errorf("user_type must be Normal or VIP: %w", common.ErrValidation)
	}
	user, err := s.userRepo.UpdateType(ctx, userID, userType, isAdmin)
	if err != nil {
		return nil, err
	}
	user.HashedPassword = ""
	return user, nil
}
