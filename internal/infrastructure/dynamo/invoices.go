package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/empire-parts-api/internal/domain"
)

// InvoiceRepo provides typed DynamoDB operations for the invoices table.
type InvoiceRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewInvoiceRepo(client *dynamodb.Client, tableName string) *InvoiceRepo {
	return &InvoiceRepo{client: client, tableName: tableName}
}

func (r *InvoiceRepo) Put(ctx context.Context, inv *domain.Invoice) error {
	item, err := attributevalue.MarshalMap(inv)
	if err != nil {
		return fmt.Errorf("marshal invoice: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *InvoiceRepo) Get(ctx context.Context, invoiceID string) (*domain.Invoice, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("invoice_id", invoiceID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("invoice not found: %w", domain.ErrNotFound)
	}
	var inv domain.Invoice
	if err := attributevalue.UnmarshalMap(out.Item, &inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

// ListNumbersByDay returns the invoice numbers already issued on a YYYYMMDD
// day. The invoice service uses this to pick the next per-day sequence.
func (r *InvoiceRepo) ListNumbersByDay(ctx context.Context, day string) ([]string, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("invoice_day-index"),
		KeyConditionExpression: aws.String("invoice_day = :d"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":d": &types.AttributeValueMemberS{Value: day},
		},
		ProjectionExpression: aws.String("invoice_number"),
	})
	if err != nil {
		return nil, err
	}
	numbers := make([]string, 0, len(out.Items))
	for _, item := range out.Items {
		if s, ok := item["invoice_number"].(*types.AttributeValueMemberS); ok {
			numbers = append(numbers, s.Value)
		}
	}
	return numbers, nil
}

func (r *InvoiceRepo) Scan(ctx context.Context) ([]domain.Invoice, error) {
	out, err := r.client.Scan(ctx, &dynamodb.ScanInput{
		TableName: aws.String(r.tableName),
	})
	if err != nil {
		return nil, err
	}
	var invoices []domain.Invoice
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &invoices); err != nil {
		return nil, err
	}
	return invoices, nil
}
