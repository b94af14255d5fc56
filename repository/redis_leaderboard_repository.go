package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/yashrajoria/flash-sale-service/models"
)

// RedisLeaderboardRepository keeps buyers in a sorted set scored by the
// unix-millisecond time of their first confirmed purchase.
type RedisLeaderboardRepository struct {
	client *redis.Client
	key    string
}

func NewRedisLeaderboardRepository(client *redis.Client, key string) *RedisLeaderboardRepository {
	return &RedisLeaderboardRepository{client: client, key: key}
}

// Record adds the user with NX so a later purchase never moves them down.
func (r *RedisLeaderboardRepository) Record(ctx context.Context, userID string, at time.Time) error {
	err := r.client.ZAddNX(ctx, r.key, redis.Z{
		Score:  float64(at.UnixMilli()),
		Member: userID,
	}).Err()
	if err != nil {
		return fmt.Errorf("record leaderboard entry: %w", err)
	}
	return nil
}

func (r *RedisLeaderboardRepository) Top(ctx context.Context, limit int64) ([]models.LeaderboardEntry, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = limit - 1
	}
	zs, err := r.client.ZRangeWithScores(ctx, r.key, 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("read leaderboard: %w", err)
	}

	entries := make([]models.LeaderboardEntry, 0, len(zs))
	for _, z := range zs {
		member, ok := z.Member.(string)
		if !ok {
			continue
		}
		entries = append(entries, models.LeaderboardEntry{
			UserID:    member,
			Timestamp: time.UnixMilli(int64(z.Score)).UTC(),
		})
	}
	return entries, nil
}
