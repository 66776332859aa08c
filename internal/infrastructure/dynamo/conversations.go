package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/waveradio/realtime-api/internal/domain"
	"github.com/waveradio/realtime-api/internal/pkg/id"
)

// ConversationRepo provides typed DynamoDB operations for the conversations table.
type ConversationRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewConversationRepo(client *dynamodb.Client, tableName string) *ConversationRepo {
	return &ConversationRepo{client: client, tableName: tableName}
}

func (r *ConversationRepo) Get(ctx context.Context, conversationID string) (*domain.Conversation, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("conversation_id", conversationID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("conversation %s: %w", conversationID, domain.ErrNotFound)
	}
	var c domain.Conversation
	if err := attributevalue.UnmarshalMap(out.Item, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// GetByPair looks up the conversation between two users via the
// participant_pair GSI. The pair key is order-independent.
func (r *ConversationRepo) GetByPair(ctx context.Context, userA, userB string) (*domain.Conversation, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("participant_pair-index"),
		KeyConditionExpression: aws.String("participant_pair = :pair"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pair": &types.AttributeValueMemberS{Value: domain.PairKey(userA, userB)},
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("conversation for pair: %w", domain.ErrNotFound)
	}
	var c domain.Conversation
	if err := attributevalue.UnmarshalMap(out.Items[0], &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// GetOrCreate returns the conversation between the two users, creating it
// lazily on the first message between the pair.
func (r *ConversationRepo) GetOrCreate(ctx context.Context, userA, userB string) (*domain.Conversation, error) {
	c, err := r.GetByPair(ctx, userA, userB)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	c = &domain.Conversation{
		ConversationID:  id.New(),
		Participant1ID:  userA,
		Participant2ID:  userB,
		ParticipantPair: domain.PairKey(userA, userB),
		LastMessageAt:   now,
		CreatedAt:       now,
	}
	item, err := attributevalue.MarshalMap(c)
	if err != nil {
		return nil, fmt.Errorf("marshal conversation: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(conversation_id)"),
	})
	if err != nil {
		// Lost a create race: the other participant's first send won. Re-read.
		var cce *types.ConditionalCheckFailedException
		if errors.As(err, &cce) {
			return r.GetByPair(ctx, userA, userB)
		}
		return nil, err
	}
	return c, nil
}

// TouchLastMessage bumps last_message_at. Callers treat failure as soft; the
// message row is already durably persisted when this runs.
func (r *ConversationRepo) TouchLastMessage(ctx context.Context, conversationID string, at time.Time) error {
	ue, err := buildUpdateExpr(map[string]interface{}{"last_message_at": at})
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("conversation_id", conversationID),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	return err
}
