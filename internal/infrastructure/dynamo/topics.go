package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/waveradio/realtime-api/internal/domain"
)

// TopicRepo reads forum topic records to build notification display content.
// Topic CRUD is owned by the forum backend.
type TopicRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewTopicRepo(client *dynamodb.Client, tableName string) *TopicRepo {
	return &TopicRepo{client: client, tableName: tableName}
}

func (r *TopicRepo) Get(ctx context.Context, topicID string) (*domain.Topic, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("topic_id", topicID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("topic %s: %w", topicID, domain.ErrNotFound)
	}
	var t domain.Topic
	if err := attributevalue.UnmarshalMap(out.Item, &t); err != nil {
		return nil, err
	}
	return &t, nil
}
