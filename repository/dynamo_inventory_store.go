package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoAPI is the subset of *dynamodb.Client the inventory store calls.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// DynamoInventoryStore keeps stock in its own table keyed by product_id,
// separate from the product catalog.
type DynamoInventoryStore struct {
	client DynamoAPI
	table  string
}

func NewDynamoInventoryStore(client DynamoAPI, table string) *DynamoInventoryStore {
	return &DynamoInventoryStore{client: client, table: table}
}

type ddbStock struct {
	ProductID string `dynamodbav:"product_id"`
	Stock     int64  `dynamodbav:"stock"`
	UpdatedAt string `dynamodbav:"updated_at"`
}

func (s *DynamoInventoryStore) key(productID string) (map[string]types.AttributeValue, error) {
	key, err := attributevalue.MarshalMap(map[string]string{"product_id": productID})
	if err != nil {
		return nil, fmt.Errorf("marshal key: %w", err)
	}
	return key, nil
}

// ReserveStock decrements stock under a condition expression. When the
// condition fails the old item (if any) comes back on the exception, which
// tells a missing product apart from short stock.
func (s *DynamoInventoryStore) ReserveStock(ctx context.Context, productID string, quantity int64) (int64, error) {
	key, err := s.key(productID)
	if err != nil {
		return 0, err
	}

	expr := "SET #stock = #stock - :qty, updated_at = :now"
	condExpr := "attribute_exists(product_id) AND #stock >= :qty"

	out, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(s.table),
		Key:                 key,
		UpdateExpression:    aws.String(expr),
		ConditionExpression: aws.String(condExpr),
		ExpressionAttributeNames: map[string]string{
			"#stock": "stock",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":qty": &types.AttributeValueMemberN{Value: strconv.FormatInt(quantity, 10)},
			":now": &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339)},
		},
		ReturnValues:                        types.ReturnValueUpdatedNew,
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			if len(ccf.Item) == 0 {
				return 0, ErrNotFound
			}
			return 0, ErrInsufficientStock
		}
		return 0, fmt.Errorf("reserve failed: %w", err)
	}

	var updated ddbStock
	if err := attributevalue.UnmarshalMap(out.Attributes, &updated); err != nil {
		return 0, fmt.Errorf("unmarshal reserve result: %w", err)
	}
	return updated.Stock, nil
}

func (s *DynamoInventoryStore) GetStock(ctx context.Context, productID string) (int64, error) {
	key, err := s.key(productID)
	if err != nil {
		return 0, err
	}
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            key,
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return 0, fmt.Errorf("dynamodb GetItem failed: %w", err)
	}
	if len(out.Item) == 0 {
		return 0, ErrNotFound
	}
	var item ddbStock
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return 0, fmt.Errorf("unmarshal item: %w", err)
	}
	return item.Stock, nil
}

func (s *DynamoInventoryStore) SetStock(ctx context.Context, productID string, stock int64) error {
	item, err := attributevalue.MarshalMap(ddbStock{
		ProductID: productID,
		Stock:     stock,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("marshal stock: %w", err)
	}
	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("dynamodb PutItem failed: %w", err)
	}
	return nil
}
