package dynamo

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/empire-parts-api/internal/domain"
)

const recipientSortIndex = "recipient_type-created_sort-index"

// NotificationRepo provides typed DynamoDB operations for the notifications table.
// Rows are append-only: the only mutations are the one-directional read flag
// and the purge of already-read rows.
type NotificationRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewNotificationRepo(client *dynamodb.Client, tableName string) *NotificationRepo {
	return &NotificationRepo{client: client, tableName: tableName}
}

// Append inserts a new notification. The condition rejects overwrites so an
// id collision can never silently replace an existing row.
func (r *NotificationRepo) Append(ctx context.Context, n *domain.Notification) error {
	item, err := attributevalue.MarshalMap(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(notification_id)"),
	})
	if err != nil {
		return fmt.Errorf("append notification: %w", err)
	}
	return nil
}

func (r *NotificationRepo) Get(ctx context.Context, notificationID string) (*domain.Notification, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("notification_id", notificationID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("notification not found: %w", domain.ErrNotFound)
	}
	var n domain.Notification
	if err := attributevalue.UnmarshalMap(out.Item, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// ListForRecipient queries the recipient_type GSI newest-first. The sort key
// is created_sort (timestamp + ULID), so the order is stable even when two
// rows share a creation timestamp. When recipientID is set, broadcast rows
// (no recipient_id attribute) and rows targeted at that user both match.
func (r *NotificationRepo) ListForRecipient(ctx context.Context, recipientType string, limit int32, unreadOnly bool, recipientID *string) ([]domain.Notification, error) {
	values := map[string]types.AttributeValue{
		":rt": &types.AttributeValueMemberS{Value: recipientType},
	}
	var filters []string
	if unreadOnly {
		filters = append(filters, "is_read = :f")
		values[":f"] = &types.AttributeValueMemberBOOL{Value: false}
	}
	if recipientID != nil {
		filters = append(filters, "(attribute_not_exists(recipient_id) OR recipient_id = :rid)")
		values[":rid"] = &types.AttributeValueMemberS{Value: *recipientID}
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(recipientSortIndex),
		KeyConditionExpression:    aws.String("recipient_type = :rt"),
		ExpressionAttributeValues: values,
		ScanIndexForward:          aws.Bool(false),
		Limit:                     aws.Int32(limit),
	}
	if len(filters) > 0 {
		input.FilterExpression = aws.String(joinAnd(filters))
	}

	var notifications []domain.Notification
	for {
		out, err := r.client.Query(ctx, input)
		if err != nil {
			return nil, err
		}
		var page []domain.Notification
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, err
		}
		notifications = append(notifications, page...)
		if out.LastEvaluatedKey == nil || int32(len(notifications)) >= limit {
			break
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
	if int32(len(notifications)) > limit {
		notifications = notifications[:limit]
	}
	return notifications, nil
}

// MarkRead sets the read flag and returns the updated row. Calling it on an
// already-read row is a no-op that still succeeds. Missing rows map to
// domain.ErrNotFound.
func (r *NotificationRepo) MarkRead(ctx context.Context, notificationID string) (*domain.Notification, error) {
	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey("notification_id", notificationID),
		UpdateExpression:    aws.String("SET is_read = :t"),
		ConditionExpression: aws.String("attribute_exists(notification_id)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":t": &types.AttributeValueMemberBOOL{Value: true},
		},
		ReturnValues: types.ReturnValueAllNew,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return nil, fmt.Errorf("notification %s: %w", notificationID, domain.ErrNotFound)
		}
		return nil, err
	}
	var n domain.Notification
	if err := attributevalue.UnmarshalMap(out.Attributes, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// CountUnread counts unread rows for the recipient scope, paging through the
// GSI with Select COUNT so no items are transferred.
func (r *NotificationRepo) CountUnread(ctx context.Context, recipientType string, recipientID *string) (int, error) {
	values := map[string]types.AttributeValue{
		":rt": &types.AttributeValueMemberS{Value: recipientType},
		":f":  &types.AttributeValueMemberBOOL{Value: false},
	}
	filter := "is_read = :f"
	if recipientID != nil {
		filter += " AND (attribute_not_exists(recipient_id) OR recipient_id = :rid)"
		values[":rid"] = &types.AttributeValueMemberS{Value: *recipientID}
	}
	input := &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(recipientSortIndex),
		KeyConditionExpression:    aws.String("recipient_type = :rt"),
		FilterExpression:          aws.String(filter),
		ExpressionAttributeValues: values,
		Select:                    types.SelectCount,
	}
	total := 0
	for {
		out, err := r.client.Query(ctx, input)
		if err != nil {
			return 0, err
		}
		total += int(out.Count)
		if out.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
	return total, nil
}

// ListReadIDs returns the ids of read rows inside the caller's recipient
// scope: a set recipientID restricts the result to broadcast rows plus rows
// targeted at that user, the same visibility ListForRecipient applies. Used
// by the purge path to enumerate candidates; the actual delete re-checks the
// flag per row.
func (r *NotificationRepo) ListReadIDs(ctx context.Context, recipientType string, recipientID *string) ([]string, error) {
	values := map[string]types.AttributeValue{
		":rt": &types.AttributeValueMemberS{Value: recipientType},
		":t":  &types.AttributeValueMemberBOOL{Value: true},
	}
	filters := []string{"is_read = :t"}
	if recipientID != nil {
		filters = append(filters, "(attribute_not_exists(recipient_id) OR recipient_id = :rid)")
		values[":rid"] = &types.AttributeValueMemberS{Value: *recipientID}
	}
	input := &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(recipientSortIndex),
		KeyConditionExpression:    aws.String("recipient_type = :rt"),
		FilterExpression:          aws.String(joinAnd(filters)),
		ExpressionAttributeValues: values,
		ProjectionExpression:      aws.String("notification_id"),
	}
	var ids []string
	for {
		out, err := r.client.Query(ctx, input)
		if err != nil {
			return nil, err
		}
		for _, item := range out.Items {
			if s, ok := item["notification_id"].(*types.AttributeValueMemberS); ok {
				ids = append(ids, s.Value)
			}
		}
		if out.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
	return ids, nil
}

// DeleteIfRead deletes a row only if its read flag is still true at delete
// time. A concurrent markRead racing a purge therefore cannot lose an unread
// row: the condition is evaluated by DynamoDB, not against a stale snapshot.
// Returns whether the row was actually deleted.
func (r *NotificationRepo) DeleteIfRead(ctx context.Context, notificationID string) (bool, error) {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey("notification_id", notificationID),
		ConditionExpression: aws.String("is_read = :t"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":t": &types.AttributeValueMemberBOOL{Value: true},
		},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func joinAnd(exprs []string) string {
	out := exprs[0]
	for _, e := range exprs[1:] {
		out += " AND " + e
	}
	return out
}
