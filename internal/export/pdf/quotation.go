package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

type MarotoProvider struct{}

func New() Provider {
	return &MarotoProvider{}
}

func (p *MarotoProvider) GenerateQuotation(ctx context.Context, data QuotationData) (io.Reader, error) {
	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(12,
		text.NewCol(8, "Quotation", props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
		text.NewCol(4, data.OrgName, props.Text{
			Size:  12,
			Align: align.Right,
			Top:   4,
		}),
	)

	m.AddRow(20,
		col.New(6).Add(
			text.New("Quotation number: "+data.QuotationNumber, props.Text{Top: 0}),
			text.New("Date of issue: "+data.IssueDate, props.Text{Top: 4}),
			text.New("Status: "+data.Status, props.Text{Top: 8}),
		),
		col.New(6).Add(
			text.New("Customer", props.Text{Style: fontstyle.Bold}),
			text.New(data.CustomerName, props.Text{Top: 4}),
			text.New(data.CustomerContact, props.Text{Top: 8}),
			text.New(data.ProjectRef, props.Text{Top: 12}),
		),
	)

	for _, system := range data.Systems {
		m.AddRow(10,
			text.NewCol(12, system.Name, props.Text{
				Size:  12,
				Style: fontstyle.Bold,
				Top:   2,
			}),
		)

		m.AddRow(8,
			text.NewCol(1, "#", props.Text{Style: fontstyle.Bold, Size: 9}),
			text.NewCol(5, "Description", props.Text{Style: fontstyle.Bold, Size: 9}),
			text.NewCol(2, "Qty", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
			text.NewCol(2, "Unit price", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
			text.NewCol(2, "Amount", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		)

		for _, item := range system.Items {
			m.AddRow(8,
				text.NewCol(1, item.DisplayNumber, props.Text{Size: 9}),
				text.NewCol(5, item.Description, props.Text{Size: 9}),
				text.NewCol(2, fmt.Sprintf("%d", item.Qty), props.Text{Size: 9, Align: align.Right}),
				text.NewCol(2, item.UnitPrice, props.Text{Size: 9, Align: align.Right}),
				text.NewCol(2, item.TotalPrice, props.Text{Size: 9, Align: align.Right}),
			)
		}
	}

	if len(data.CategoryRows) > 0 {
		m.AddRow(10,
			text.NewCol(12, "Breakdown", props.Text{
				Size:  12,
				Style: fontstyle.Bold,
				Top:   2,
			}),
		)
		for _, row := range data.CategoryRows {
			m.AddRow(7,
				text.NewCol(6, row.Label, props.Text{Size: 9}),
				text.NewCol(3, row.Price, props.Text{Size: 9, Align: align.Right}),
				text.NewCol(3, row.Share, props.Text{Size: 9, Align: align.Right}),
			)
		}
	}

	m.AddRow(10,
		col.New(8),
		text.NewCol(2, "Subtotal", props.Text{Size: 9}),
		text.NewCol(2, data.Subtotal, props.Text{Size: 9, Align: align.Right}),
	)
	if data.RiskAddition != "" {
		m.AddRow(10,
			col.New(8),
			text.NewCol(2, "Risk addition", props.Text{Size: 9}),
			text.NewCol(2, data.RiskAddition, props.Text{Size: 9, Align: align.Right}),
		)
	}
	if data.VATAmount != "" {
		m.AddRow(10,
			col.New(8),
			text.NewCol(2, data.VATLabel, props.Text{Size: 9}),
			text.NewCol(2, data.VATAmount, props.Text{Size: 9, Align: align.Right}),
		)
	}
	m.AddRow(10,
		col.New(8),
		text.NewCol(2, "Total", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, data.FinalTotal, props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(doc.GetBytes()), nil
}
