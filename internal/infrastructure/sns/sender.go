package sns

import (
	"context"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/waveradio/realtime-api/internal/config"
)

// BroadcastSender mirrors station broadcast notifications to an SNS topic so
// mobile push and mail fan-out can pick them up. Delivery is best effort; the
// notification rows are the durable record.
type BroadcastSender interface {
	SendBroadcast(ctx context.Context, subject, body string) error
}

type sender struct {
	client   *sns.Client
	topicARN string
}

func NewSender(cfg *config.Config) (BroadcastSender, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.AWSRegion),
	)
	if err != nil {
		return nil, err
	}
	return &sender{client: sns.NewFromConfig(awsCfg), topicARN: cfg.SNSBroadcastTopicARN}, nil
}

func (s *sender) SendBroadcast(ctx context.Context, subject, body string) error {
	_, err := s.client.Publish(ctx, &sns.PublishInput{
		TopicArn: &s.topicARN,
		Subject:  &subject,
		Message:  &body,
	})
	return err
}
