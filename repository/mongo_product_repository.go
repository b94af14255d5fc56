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

// MongoProductRepository stores products and, through the same documents,
// their stock. It satisfies both ProductRepository and InventoryStore.
type MongoProductRepository struct {
	collection *mongo.Collection
}

func NewMongoProductRepository(db *mongo.Database) *MongoProductRepository {
	return &MongoProductRepository{collection: db.Collection(productsCollection)}
}

func (r *MongoProductRepository) FindByID(ctx context.Context, id string) (*models.Product, error) {
	var doc productDoc
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find product %s: %w", id, err)
	}
	return doc.model()
}

func (r *MongoProductRepository) FindAll(ctx context.Context) ([]*models.Product, error) {
	cursor, err := r.collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find products: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []productDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}
	products := make([]*models.Product, 0, len(docs))
	for i := range docs {
		p, err := docs[i].model()
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, nil
}

func (r *MongoProductRepository) Create(ctx context.Context, product *models.Product) error {
	now := time.Now().UTC()
	product.CreatedAt, product.UpdatedAt = now, now
	doc, err := newProductDoc(product)
	if err != nil {
		return err
	}
	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// ReserveStock decrements stock only when stock >= quantity, in a single
// findOneAndUpdate. A miss is classified afterwards without writing.
func (r *MongoProductRepository) ReserveStock(ctx context.Context, productID string, quantity int64) (int64, error) {
	filter := bson.M{"_id": productID, "stock": bson.M{"$gte": quantity}}
	update := bson.M{
		"$inc": bson.M{"stock": -quantity},
		"$set": bson.M{"updatedAt": time.Now().UTC()},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc productDoc
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if err == nil {
		return doc.Stock, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return 0, fmt.Errorf("reserve stock for %s: %w", productID, err)
	}

	n, err := r.collection.CountDocuments(ctx, bson.M{"_id": productID})
	if err != nil {
		return 0, fmt.Errorf("classify reserve miss for %s: %w", productID, err)
	}
	if n == 0 {
		return 0, ErrNotFound
	}
	return 0, ErrInsufficientStock
}

func (r *MongoProductRepository) GetStock(ctx context.Context, productID string) (int64, error) {
	var doc struct {
		Stock int64 `bson:"stock"`
	}
	opts := options.FindOne().SetProjection(bson.M{"stock": 1})
	if err := r.collection.FindOne(ctx, bson.M{"_id": productID}, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("get stock for %s: %w", productID, err)
	}
	return doc.Stock, nil
}

func (r *MongoProductRepository) SetStock(ctx context.Context, productID string, stock int64) error {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": productID},
		bson.M{"$set": bson.M{"stock": stock, "updatedAt": time.Now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("set stock for %s: %w", productID, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
