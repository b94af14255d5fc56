package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yashrajoria/flash-sale-service/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoPaymentRepository struct {
	collection *mongo.Collection
}

func NewMongoPaymentRepository(db *mongo.Database) *MongoPaymentRepository {
	return &MongoPaymentRepository{collection: db.Collection(paymentsCollection)}
}

func (r *MongoPaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	now := time.Now().UTC()
	payment.CreatedAt, payment.UpdatedAt = now, now
	doc, err := newPaymentDoc(payment)
	if err != nil {
		return err
	}
	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

func (r *MongoPaymentRepository) FindByReference(ctx context.Context, reference string) (*models.Payment, error) {
	var doc paymentDoc
	if err := r.collection.FindOne(ctx, bson.M{"paymentRef": reference}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find payment %s: %w", reference, err)
	}
	return doc.model()
}

// TransitionStatus sets the status only while the stored status is still
// pending. Concurrent webhook and verify calls race on this filter and
// exactly one of them matches.
func (r *MongoPaymentRepository) TransitionStatus(ctx context.Context, reference string, to models.PaymentStatus) (*models.Payment, error) {
	filter := bson.M{"paymentRef": reference, "status": string(models.PaymentPending)}
	update := bson.M{"$set": bson.M{"status": string(to), "updatedAt": time.Now().UTC()}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc paymentDoc
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if err == nil {
		return doc.model()
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("transition payment %s: %w", reference, err)
	}

	if _, err := r.FindByReference(ctx, reference); err != nil {
		return nil, err
	}
	return nil, ErrAlreadyFinalized
}
