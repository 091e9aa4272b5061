// Package pdf renders quotation documents with maroto.
package pdf

import (
	"context"
	"io"
)

type Provider interface {
	GenerateQuotation(ctx context.Context, data QuotationData) (io.Reader, error)
}

// QuotationData is the fully formatted document input. All monetary values
// arrive pre-formatted; the renderer never computes.
type QuotationData struct {
	OrgName         string
	QuotationNumber string
	IssueDate       string
	Status          string

	CustomerName    string
	CustomerContact string
	ProjectRef      string

	Currency string
	Systems  []SystemBlock

	TotalCost    string
	Subtotal     string
	RiskAddition string
	VATLabel     string
	VATAmount    string
	FinalTotal   string

	CategoryRows []CategoryRow
}

type SystemBlock struct {
	Name  string
	Items []ItemRow
}

type ItemRow struct {
	DisplayNumber string
	Description   string
	Qty           int
	UnitPrice     string
	TotalPrice    string
}

type CategoryRow struct {
	Label string
	Price string
	Share string
}

type NoOpProvider struct{}

func (p *NoOpProvider) GenerateQuotation(ctx context.Context, data QuotationData) (io.Reader, error) {
	return nil, nil
}
