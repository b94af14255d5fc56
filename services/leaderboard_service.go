package services

import (
	"context"
	"fmt"

	"github.com/yashrajoria/flash-sale-service/models"
	"github.com/yashrajoria/flash-sale-service/repository"
	"go.uber.org/zap"
)

const DefaultLeaderboardSize = 10

type LeaderboardService struct {
	leaderboard repository.LeaderboardRepository
	accounts    repository.AccountRepository
	logger      *zap.Logger
}

func NewLeaderboardService(leaderboard repository.LeaderboardRepository, accounts repository.AccountRepository, logger *zap.Logger) *LeaderboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LeaderboardService{leaderboard: leaderboard, accounts: accounts, logger: logger}
}

// Top returns the earliest confirmed buyers with their display names.
// Entries whose account no longer exists are dropped.
func (s *LeaderboardService) Top(ctx context.Context, limit int64) ([]models.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = DefaultLeaderboardSize
	}
	entries, err := s.leaderboard.Top(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("load leaderboard: %w", err)
	}
	if len(entries) == 0 {
		return []models.LeaderboardEntry{}, nil
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.UserID)
	}
	accounts, err := s.accounts.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load leaderboard accounts: %w", err)
	}

	out := make([]models.LeaderboardEntry, 0, len(entries))
	for _, e := range entries {
		acc, ok := accounts[e.UserID]
		if !ok {
			s.logger.Warn("Leaderboard entry without account", zap.String("user_id", e.UserID))
			continue
		}
		e.Name = acc.DisplayName()
		out = append(out, e)
	}
	return out, nil
}
