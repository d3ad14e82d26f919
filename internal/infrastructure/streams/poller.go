package streams

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodbstreams"
	streamtypes "github.com/aws/aws-sdk-go-v2/service/dynamodbstreams/types"
	"github.com/empire-parts-api/internal/config"
	"github.com/empire-parts-api/internal/domain"
	"github.com/empire-parts-api/internal/realtime"
)

// NewClient creates a DynamoDB Streams client, honouring the LocalStack
// endpoint override like the other AWS clients.
func NewClient(cfg *config.Config) *dynamodbstreams.Client {
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
		panic("failed to load AWS config for streams: " + err.Error())
	}

	clientOpts := []func(*dynamodbstreams.Options){}
	if cfg.AWSEndpointURL != "" {
		clientOpts = append(clientOpts, func(o *dynamodbstreams.Options) {
			o.BaseEndpoint = aws.String(cfg.AWSEndpointURL)
		})
	}
	return dynamodbstreams.NewFromConfig(awsCfg, clientOpts...)
}

// Poller tails the notifications table's change stream and republishes each
// inserted or updated row to the hub. It is the bridge between the durable
// store and currently-connected foreground clients; it never touches the
// push delivery channel, and the two may race freely.
type Poller struct {
	db       *dynamodb.Client
	streams  *dynamodbstreams.Client
	table    string
	hub      *realtime.Hub
	interval time.Duration

	// shard id -> current iterator
	iterators map[string]string
}

func NewPoller(db *dynamodb.Client, sc *dynamodbstreams.Client, table string, hub *realtime.Hub, interval time.Duration) *Poller {
	return &Poller{
		db:        db,
		streams:   sc,
		table:     table,
		hub:       hub,
		interval:  interval,
		iterators: make(map[string]string),
	}
}

// Run polls until ctx is cancelled. Errors are logged and retried on the
// next tick; the bridge is best-effort and must not take the process down.
func (p *Poller) Run(ctx context.Context) error {
	streamArn, err := p.waitForStream(ctx)
	if err != nil {
		return err
	}
	slog.Info("realtime bridge started", "table", p.table, "stream", streamArn)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := p.poll(ctx, streamArn); err != nil {
				slog.Warn("stream poll failed", "table", p.table, "err", err)
			}
		}
	}
}

func (p *Poller) waitForStream(ctx context.Context) (string, error) {
	for {
		out, err := p.db.DescribeTable(ctx, &dynamodb.DescribeTableInput{
			TableName: aws.String(p.table),
		})
		if err == nil && out.Table != nil && out.Table.LatestStreamArn != nil {
			return *out.Table.LatestStreamArn, nil
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(p.interval):
		}
	}
}

func (p *Poller) poll(ctx context.Context, streamArn string) error {
	desc, err := p.streams.DescribeStream(ctx, &dynamodbstreams.DescribeStreamInput{
		StreamArn: aws.String(streamArn),
	})
	if err != nil {
		return fmt.Errorf("describe stream: %w", err)
	}

	for _, shard := range desc.StreamDescription.Shards {
		shardID := aws.ToString(shard.ShardId)
		iter, ok := p.iterators[shardID]
		if !ok {
			// New shards start at LATEST: the bridge forwards fresh changes,
			// it does not replay history. Clients load history from the store.
			out, err := p.streams.GetShardIterator(ctx, &dynamodbstreams.GetShardIteratorInput{
				StreamArn:         aws.String(streamArn),
				ShardId:           shard.ShardId,
				ShardIteratorType: streamtypes.ShardIteratorTypeLatest,
			})
			if err != nil {
				return fmt.Errorf("get shard iterator: %w", err)
			}
			iter = aws.ToString(out.ShardIterator)
		}

		records, err := p.streams.GetRecords(ctx, &dynamodbstreams.GetRecordsInput{
			ShardIterator: aws.String(iter),
		})
		if err != nil {
			// Expired iterators are re-acquired on the next tick.
			delete(p.iterators, shardID)
			return fmt.Errorf("get records: %w", err)
		}

		for _, rec := range records.Records {
			p.forward(rec)
		}

		if records.NextShardIterator == nil {
			// Shard closed.
			delete(p.iterators, shardID)
			continue
		}
		p.iterators[shardID] = *records.NextShardIterator
	}
	return nil
}

func (p *Poller) forward(rec streamtypes.Record) {
	switch rec.EventName {
	case streamtypes.OperationTypeInsert, streamtypes.OperationTypeModify:
	default:
		return
	}
	if rec.Dynamodb == nil || rec.Dynamodb.NewImage == nil {
		return
	}
	n, ok := notificationFromImage(rec.Dynamodb.NewImage)
	if !ok {
		slog.Warn("skipping malformed stream record", "event_id", aws.ToString(rec.EventID))
		return
	}
	p.hub.Publish(n)
}

// notificationFromImage maps a raw stream image onto the domain row. The
// streams SDK has its own AttributeValue types, so the mapping is by hand.
func notificationFromImage(img map[string]streamtypes.AttributeValue) (domain.Notification, bool) {
	n := domain.Notification{
		NotificationID: imageString(img, "notification_id"),
		Title:          imageString(img, "title"),
		Message:        imageString(img, "message"),
		Type:           domain.NotificationType(imageString(img, "notification_type")),
		Category:       imageString(img, "category"),
		Link:           imageString(img, "link"),
		RecipientType:  imageString(img, "recipient_type"),
		CreatedSort:    imageString(img, "created_sort"),
	}
	if n.NotificationID == "" || n.RecipientType == "" {
		return domain.Notification{}, false
	}
	if v, ok := img["recipient_id"].(*streamtypes.AttributeValueMemberS); ok {
		rid := v.Value
		n.RecipientID = &rid
	}
	if v, ok := img["is_read"].(*streamtypes.AttributeValueMemberBOOL); ok {
		n.IsRead = v.Value
	}
	if ts, err := time.Parse(time.RFC3339Nano, imageString(img, "created_at")); err == nil {
		n.CreatedAt = ts
	}
	return n, true
}

func imageString(img map[string]streamtypes.AttributeValue, key string) string {
	if v, ok := img[key].(*streamtypes.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}
