package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoSlot persists the record as a single DynamoDB item keyed by a fixed
// slot key, for deployments where carts should survive host restarts.
type DynamoSlot struct {
	client    *dynamodb.Client
	tableName string
	slotKey   string
}

// dynamoSlotItem is the DynamoDB item structure. The record is stored as an
// opaque string; schema changes are overwritten on the next Save.
type dynamoSlotItem struct {
	SlotKey   string `dynamodbav:"slot_key"`
	Data      string `dynamodbav:"data"`
	UpdatedAt string `dynamodbav:"updated_at"`
}

func NewDynamoSlot(client *dynamodb.Client, tableName, slotKey string) *DynamoSlot {
	return &DynamoSlot{
		client:    client,
		tableName: tableName,
		slotKey:   slotKey,
	}
}

func (s *DynamoSlot) Load(ctx context.Context) ([]byte, bool, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"slot_key": &types.AttributeValueMemberS{Value: s.slotKey},
		},
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to get slot item: %w", err)
	}
	if result.Item == nil {
		return nil, false, nil
	}

	var item dynamoSlotItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal slot item: %w", err)
	}
	return []byte(item.Data), true, nil
}

func (s *DynamoSlot) Save(ctx context.Context, data []byte) error {
	item := dynamoSlotItem{
		SlotKey:   s.slotKey,
		Data:      string(data),
		UpdatedAt: time.Now().Format(time.RFC3339Nano),
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal slot item: %w", err)
	}

	// Overwrite unconditionally; writes are last-write-wins.
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("failed to put slot item: %w", err)
	}
	return nil
}
