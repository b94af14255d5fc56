package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yashrajoria/flash-sale-service/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type MongoPurchaseRepository struct {
	collection *mongo.Collection
}

func NewMongoPurchaseRepository(db *mongo.Database) *MongoPurchaseRepository {
	return &MongoPurchaseRepository{collection: db.Collection(purchasesCollection)}
}

func (r *MongoPurchaseRepository) Create(ctx context.Context, purchase *models.Purchase) error {
	purchase.CreatedAt = time.Now().UTC()
	doc := purchaseDoc{
		ID:        purchase.ID,
		UserID:    purchase.UserID,
		ProductID: purchase.ProductID,
		PaymentID: purchase.PaymentID,
		Quantity:  purchase.Quantity,
		CreatedAt: purchase.CreatedAt,
	}
	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert purchase: %w", err)
	}
	return nil
}

func (r *MongoPurchaseRepository) FindByPaymentID(ctx context.Context, paymentID string) (*models.Purchase, error) {
	var doc purchaseDoc
	if err := r.collection.FindOne(ctx, bson.M{"paymentId": paymentID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find purchase for payment %s: %w", paymentID, err)
	}
	return &models.Purchase{
		ID:        doc.ID,
		UserID:    doc.UserID,
		ProductID: doc.ProductID,
		PaymentID: doc.PaymentID,
		Quantity:  doc.Quantity,
		CreatedAt: doc.CreatedAt,
	}, nil
}
