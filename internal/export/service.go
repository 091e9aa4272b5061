// Package export assembles computed quotations into downloadable documents.
package export

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/bwmarrin/snowflake"
	"github.com/craftbom/quotora/internal/config"
	"github.com/craftbom/quotora/internal/export/pdf"
	quotationdomain "github.com/craftbom/quotora/internal/quotation/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Service interface {
	// QuotationPDF renders the quotation with its current calculations,
	// recomputing first when stale.
	QuotationPDF(ctx context.Context, id string) (io.Reader, error)
}

type Params struct {
	fx.In

	Log        *zap.Logger
	Cfg        config.Config
	Quotations quotationdomain.Service
	Provider   pdf.Provider
}

type service struct {
	log        *zap.Logger
	cfg        config.Config
	quotations quotationdomain.Service
	provider   pdf.Provider
}

func New(p Params) Service {
	return &service{
		log:        p.Log.Named("export.service"),
		cfg:        p.Cfg,
		quotations: p.Quotations,
		provider:   p.Provider,
	}
}

func (s *service) QuotationPDF(ctx context.Context, id string) (io.Reader, error) {
	project, err := s.quotations.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	calc, err := s.quotations.Calculations(ctx, id)
	if err != nil {
		return nil, err
	}

	currency := project.Parameters.BaseCurrency
	money := func(v float64) string {
		return fmt.Sprintf("%.2f %s", v, currency)
	}

	systemNames := make(map[snowflake.ID]string, len(project.Systems))
	for _, system := range project.Systems {
		systemNames[system.ID] = system.Name
	}
	itemNotes := make(map[snowflake.ID]string, len(project.Items))
	for _, item := range project.Items {
		itemNotes[item.ID] = item.Notes
	}

	blocks := make(map[snowflake.ID]*pdf.SystemBlock, len(project.Systems))
	order := make([]snowflake.ID, 0, len(project.Systems))
	for _, line := range calc.Items {
		block, ok := blocks[line.SystemID]
		if !ok {
			block = &pdf.SystemBlock{Name: systemNames[line.SystemID]}
			blocks[line.SystemID] = block
			order = append(order, line.SystemID)
		}
		description := itemNotes[line.ItemID]
		if description == "" {
			description = line.ItemType
		}
		block.Items = append(block.Items, pdf.ItemRow{
			DisplayNumber: line.DisplayNumber,
			Description:   description,
			Qty:           line.Quantity,
			UnitPrice:     money(line.UnitPrice),
			TotalPrice:    money(line.TotalPrice),
		})
	}
	systems := make([]pdf.SystemBlock, 0, len(order))
	for _, systemID := range order {
		systems = append(systems, *blocks[systemID])
	}

	categories := make([]pdf.CategoryRow, 0, len(calc.Calculations.Shares))
	for label, raw := range calc.Calculations.Shares {
		share, _ := raw.(float64)
		categories = append(categories, pdf.CategoryRow{
			Label: label,
			Share: fmt.Sprintf("%.1f%%", share),
		})
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i].Label < categories[j].Label })

	data := pdf.QuotationData{
		OrgName:         s.cfg.AppName,
		QuotationNumber: project.ID.String(),
		IssueDate:       calc.Calculations.ComputedAt.Format("2006-01-02"),
		Status:          string(project.Status),
		CustomerName:    project.CustomerName,
		CustomerContact: project.CustomerContact,
		ProjectRef:      project.ProjectRef,
		Currency:        currency,
		Systems:         systems,
		TotalCost:       money(calc.Calculations.TotalCost),
		Subtotal:        money(calc.Calculations.Subtotal),
		FinalTotal:      money(calc.Calculations.FinalTotal),
		CategoryRows:    categories,
	}
	if calc.Calculations.RiskAddition > 0 {
		data.RiskAddition = money(calc.Calculations.RiskAddition)
	}
	if calc.Calculations.VATAmount > 0 {
		data.VATLabel = fmt.Sprintf("VAT (%.0f%%)", project.Parameters.VATRatePercent)
		data.VATAmount = money(calc.Calculations.VATAmount)
	}

	s.log.Info("quotation pdf generated",
		zap.String("quotation_id", project.ID.String()),
		zap.Int("systems", len(systems)),
	)
	return s.provider.GenerateQuotation(ctx, data)
}
