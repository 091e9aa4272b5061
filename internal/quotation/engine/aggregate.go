package engine

// CategoryTotals is the cost/price fold of one partition of the item list.
type CategoryTotals struct {
	Items int     `json:"items"`
	Cost  float64 `json:"cost"`
	Price float64 `json:"price"`
}

func (t *CategoryTotals) add(item ComputedItem) {
	t.Items++
	t.Cost += item.TotalCost
	t.Price += item.TotalPrice
}

// Calculations is the derived snapshot of a whole quotation. It is rebuilt
// from scratch on every recompute and never partially mutated.
type Calculations struct {
	Hardware CategoryTotals `json:"hardware"`
	Software CategoryTotals `json:"software"`
	Labor    CategoryTotals `json:"labor"`

	LaborEngineering   CategoryTotals `json:"labor_engineering"`
	LaborCommissioning CategoryTotals `json:"labor_commissioning"`
	LaborInstallation  CategoryTotals `json:"labor_installation"`

	TotalCost           float64 `json:"total_cost"`
	Subtotal            float64 `json:"subtotal"`
	RiskAddition        float64 `json:"risk_addition"`
	VATAmount           float64 `json:"vat_amount"`
	FinalTotal          float64 `json:"final_total"`
	ProfitMarginPercent float64 `json:"profit_margin_percent"`

	// Read-only reporting views. They are derived from the partitions above
	// and never feed back into the totals.
	CategoryShares map[string]float64 `json:"category_shares"`
}

// aggregate folds materialized items into a Calculations snapshot. Every item
// contributes to exactly one top-level partition, so Σ totalPrice over the
// items always equals the subtotal the risk and VAT lines are built on.
func aggregate(items []ComputedItem, riskPercent float64, includeVAT bool, vatRatePercent float64) (Calculations, error) {
	var calc Calculations

	for _, item := range items {
		switch item.Type {
		case ItemTypeHardware:
			calc.Hardware.add(item)
		case ItemTypeSoftware:
			calc.Software.add(item)
		case ItemTypeLabor:
			calc.Labor.add(item)
			switch item.LaborSubtype {
			case LaborEngineering:
				calc.LaborEngineering.add(item)
			case LaborCommissioning:
				calc.LaborCommissioning.add(item)
			case LaborInstallation:
				calc.LaborInstallation.add(item)
			}
		default:
			return Calculations{}, ErrInvalidItemType
		}
	}

	calc.TotalCost = calc.Hardware.Cost + calc.Software.Cost + calc.Labor.Cost
	calc.Subtotal = calc.Hardware.Price + calc.Software.Price + calc.Labor.Price
	calc.RiskAddition = calc.Subtotal * riskPercent / 100
	if includeVAT {
		calc.VATAmount = (calc.Subtotal + calc.RiskAddition) * vatRatePercent / 100
	}
	calc.FinalTotal = calc.Subtotal + calc.RiskAddition + calc.VATAmount

	margin, err := CalculateMargin(calc.TotalCost, calc.Subtotal)
	if err != nil {
		return Calculations{}, err
	}
	calc.ProfitMarginPercent = margin

	calc.CategoryShares = categoryShares(calc)
	return calc, nil
}

func categoryShares(calc Calculations) map[string]float64 {
	shares := make(map[string]float64, 6)
	if calc.Subtotal <= 0 {
		return shares
	}
	put := func(key string, t CategoryTotals) {
		if t.Items > 0 {
			shares[key] = t.Price / calc.Subtotal * 100
		}
	}
	put("hardware", calc.Hardware)
	put("software", calc.Software)
	put("labor", calc.Labor)
	put("labor_engineering", calc.LaborEngineering)
	put("labor_commissioning", calc.LaborCommissioning)
	put("labor_installation", calc.LaborInstallation)
	return shares
}
