package sns

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/empire-parts-api/internal/config"
	"github.com/empire-parts-api/internal/domain"
)

// PushSender delivers a payload to one subscription endpoint. Implementations
// must collapse their wire errors into the three-way outcome the dispatcher
// understands: nil (delivered), domain.ErrEndpointGone (permanent), anything
// else (recoverable).
type PushSender interface {
	Deliver(ctx context.Context, sub domain.PushSubscription, payload []byte) error
}

type sender struct {
	client *sns.Client
}

// NewSender creates an SNS-backed push sender. The subscription's endpoint
// descriptor is the SNS platform-endpoint ARN registered by the device.
func NewSender(cfg *config.Config) (PushSender, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.AWSRegion),
	}
	if cfg.AWSAccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, err
	}

	clientOpts := []func(*sns.Options){}
	if cfg.AWSEndpointURL != "" {
		clientOpts = append(clientOpts, func(o *sns.Options) {
			o.BaseEndpoint = aws.String(cfg.AWSEndpointURL)
		})
	}
	return &sender{client: sns.NewFromConfig(awsCfg, clientOpts...)}, nil
}

func (s *sender) Deliver(ctx context.Context, sub domain.PushSubscription, payload []byte) error {
	_, err := s.client.Publish(ctx, &sns.PublishInput{
		TargetArn: aws.String(sub.Endpoint),
		Message:   aws.String(string(payload)),
	})
	if err != nil {
		return classify(err)
	}
	return nil
}

// classify reclassifies the SNS error into the channel contract. A disabled
// or deleted endpoint is permanent; everything else (throttling, 5xx,
// timeouts) may succeed on a later attempt.
func classify(err error) error {
	var disabled *types.EndpointDisabledException
	if errors.As(err, &disabled) {
		return fmt.Errorf("%v: %w", err, domain.ErrEndpointGone)
	}
	var notFound *types.NotFoundException
	if errors.As(err, &notFound) {
		return fmt.Errorf("%v: %w", err, domain.ErrEndpointGone)
	}
	return err
}
