package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type dynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// DynamoSessionStore keeps sessions in DynamoDB, used by the Lambda entry
// point where there is no Redis to reach. Item expiry is handled by a TTL
// attribute on the table.
type DynamoSessionStore struct {
	api   dynamoAPI
	table string
	ttl   time.Duration
	now   func() time.Time
}

type dynamoSessionItem struct {
	SessionID string `dynamodbav:"session_id"`
	State     State  `dynamodbav:"state"`
	ExpiresAt int64  `dynamodbav:"expires_at"`
}

// NewDynamoSessionStore wraps a DynamoDB client. ttl <= 0 defaults to 30
// minutes.
func NewDynamoSessionStore(api dynamoAPI, table string, ttl time.Duration) *DynamoSessionStore {
	if api == nil {
		panic("agent: dynamodb client required")
	}
	if table == "" {
		panic("agent: dynamodb table required")
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &DynamoSessionStore{api: api, table: table, ttl: ttl, now: time.Now}
}

func (s *DynamoSessionStore) Load(ctx context.Context, sessionID string) (State, error) {
	out, err := s.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key: map[string]ddbtypes.AttributeValue{
			"session_id": &ddbtypes.AttributeValueMemberS{Value: sessionID},
		},
	})
	if err != nil {
		return State{}, fmt.Errorf("agent: load session: %w", err)
	}
	if out.Item == nil {
		return State{}, ErrSessionNotFound
	}

	var item dynamoSessionItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return State{}, fmt.Errorf("agent: decode session: %w", err)
	}
	if item.ExpiresAt > 0 && item.ExpiresAt <= s.now().Unix() {
		return State{}, ErrSessionNotFound
	}
	return item.State, nil
}

func (s *DynamoSessionStore) Save(ctx context.Context, sessionID string, state State) error {
	item, err := attributevalue.MarshalMap(dynamoSessionItem{
		SessionID: sessionID,
		State:     state,
		ExpiresAt: s.now().Add(s.ttl).Unix(),
	})
	if err != nil {
		return fmt.Errorf("agent: encode session: %w", err)
	}
	if _, err := s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("agent: save session: %w", err)
	}
	return nil
}

func (s *DynamoSessionStore) Delete(ctx context.Context, sessionID string) error {
	if _, err := s.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.table),
		Key: map[string]ddbtypes.AttributeValue{
			"session_id": &ddbtypes.AttributeValueMemberS{Value: sessionID},
		},
	}); err != nil {
		return fmt.Errorf("agent: delete session: %w", err)
	}
	return nil
}

var _ SessionStore = (*DynamoSessionStore)(nil)
