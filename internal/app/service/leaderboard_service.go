package service

import (
	"context"
	"quizarena/internal/domain/model"
	"quizarena/internal/domain/repository"
)

// LeaderboardService answers ranking queries over finished participations.
// Entries themselves are emitted by the participation engine; this service
// never writes.
type LeaderboardService struct {
	leaderboardRepo repository.LeaderboardRepository
	contestRepo     repository.ContestRepository
}

func NewLeaderboardService(leaderboardRepo repository.LeaderboardRepository, contestRepo repository.ContestRepository) *LeaderboardService {
	return &LeaderboardService{leaderboardRepo: leaderboardRepo, contestRepo: contestRepo}
}

// Rank returns one page of the contest ranking, ordered by score descending
// with earlier finishers breaking ties. Ranks are assigned by position in the
// full listing.
func (s *LeaderboardService) Rank(ctx context.Context, contestID string, page, pageSize int) ([]model.RankedEntry, int, error) {
	offset := (page - 1) * pageSize
	entries, total, err := s.leaderboardRepo.ListByContest(ctx, contestID, pageSize, offset)
	if err != nil {
		return nil, 0, err
	}

	ranked := make([]model.RankedEntry, 0, len(entries))
	for i, e := range entries {
		ranked = append(ranked, model.RankedEntry{
			Rank:           offset + i + 1,
			UserID:         e.UserID,
			UserName:       e.UserName,
			Score:          e.Score,
			SubmissionTime: e.SubmissionTime,
		})
	}
	return ranked, total, nil
}

// MyRank computes the user's position without materializing the listing:
// rank = number of entries that strictly dominate it (higher score, or equal
// score with an earlier finish) + 1.
func (s *LeaderboardService) MyRank(ctx context.Context, contestID, userID string) (*model.RankedEntry, error) {
	entry, err := s.leaderboardRepo.FindByContestAndUser(ctx, contestID, userID)
	if err != nil {
		return nil, err
	}
	better, err := s.leaderboardRepo.CountBetter(ctx, contestID, entry.Score, entry.SubmissionTime)
	if err != nil {
		return nil, err
	}
	return &model.RankedEntry{
		Rank:           better + 1,
		UserID:         entry.UserID,
		UserName:       entry.UserName,
		Score:          entry.Score,
		SubmissionTime: entry.SubmissionTime,
	}, nil
}
