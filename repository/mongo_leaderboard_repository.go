package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/yashrajoria/flash-sale-service/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoLeaderboardRepository derives the ranking from purchases whose payment
// succeeded, so Record has nothing to write.
type MongoLeaderboardRepository struct {
	purchases *mongo.Collection
}

func NewMongoLeaderboardRepository(db *mongo.Database) *MongoLeaderboardRepository {
	return &MongoLeaderboardRepository{purchases: db.Collection(purchasesCollection)}
}

func (r *MongoLeaderboardRepository) Record(ctx context.Context, userID string, at time.Time) error {
	return nil
}

func (r *MongoLeaderboardRepository) Top(ctx context.Context, limit int64) ([]models.LeaderboardEntry, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$lookup", Value: bson.M{
			"from":         paymentsCollection,
			"localField":   "paymentId",
			"foreignField": "_id",
			"as":           "payment",
		}}},
		{{Key: "$unwind", Value: "$payment"}},
		{{Key: "$match", Value: bson.M{"payment.status": string(models.PaymentSuccess)}}},
		{{Key: "$group", Value: bson.M{
			"_id":       "$userId",
			"timestamp": bson.M{"$min": "$payment.updatedAt"},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "timestamp", Value: 1}}}},
	}
	if limit > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$limit", Value: limit}})
	}

	cursor, err := r.purchases.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate leaderboard: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		UserID    string    `bson:"_id"`
		Timestamp time.Time `bson:"timestamp"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode leaderboard: %w", err)
	}
	entries := make([]models.LeaderboardEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, models.LeaderboardEntry{UserID: row.UserID, Timestamp: row.Timestamp})
	}
	return entries, nil
}
