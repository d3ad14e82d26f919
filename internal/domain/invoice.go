package domain

import "time"

type InvoiceItem struct {
	ItemName  string  `json:"item_name" dynamodbav:"item_name"`
	Quantity  int     `json:"quantity" dynamodbav:"quantity"`
	UnitPrice float64 `json:"unit_price" dynamodbav:"unit_price"`
	LineTotal float64 `json:"line_total" dynamodbav:"line_total"`
}

type Invoice struct {
	InvoiceID     string        `json:"id" dynamodbav:"invoice_id"`
	InvoiceNumber string        `json:"invoice_number" dynamodbav:"invoice_number"`
	// InvoiceDay is the YYYYMMDD partition the per-day sequence is scoped to.
	InvoiceDay   string        `json:"-" dynamodbav:"invoice_day"`
	OrderID      *string       `json:"order_id" dynamodbav:"order_id"`
	CustomerName string        `json:"customer_name" dynamodbav:"customer_name"`
	Items        []InvoiceItem `json:"items" dynamodbav:"items"`
	Subtotal     float64       `json:"subtotal" dynamodbav:"subtotal"`
	TaxPercent   float64       `json:"tax_percent" dynamodbav:"tax_percent"`
	TaxAmount    float64       `json:"tax_amount" dynamodbav:"tax_amount"`
	Total        float64       `json:"total" dynamodbav:"total"`
	IssuedAt     time.Time     `json:"issued_at" dynamodbav:"issued_at"`
	CreatedAt    time.Time     `json:"created" dynamodbav:"created_at"`
}

type CreateInvoiceRequest struct {
	OrderID      *string `json:"order_id"`
	CustomerName string  `json:"customer_name" validate:"required"`
	TaxPercent   float64 `json:"tax_percent" validate:"gte=0"`
	Items        []struct {
		ItemName  string  `json:"item_name" validate:"required"`
		Quantity  int     `json:"quantity" validate:"required,gt=0"`
		UnitPrice float64 `json:"unit_price" validate:"gte=0"`
	} `json:"items" validate:"required,min=1,dive"`
}
