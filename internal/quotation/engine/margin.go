package engine

import "fmt"

// MarkupResult carries the computed price plus the zero-clamp flag. A markup
// below -100% would produce a negative price; the price is floored at zero
// and the clamp reported so the caller can warn instead of billing a credit.
type MarkupResult struct {
	Price   float64
	Clamped bool
}

// ApplyMarkup derives a customer price from a cost and a markup percentage.
// Negative markups (discounts) are allowed; negative costs are not.
func ApplyMarkup(cost, markupPercent float64) (MarkupResult, error) {
	if cost < 0 {
		return MarkupResult{}, fmt.Errorf("%w: negative cost %f", ErrInvalidInput, cost)
	}
	price := cost * (1 + markupPercent/100)
	if price < 0 {
		return MarkupResult{Price: 0, Clamped: true}, nil
	}
	return MarkupResult{Price: price}, nil
}

// CalculateMargin is the inverse of ApplyMarkup. Margin at zero cost is
// defined as zero so downstream sums never see NaN.
func CalculateMargin(cost, price float64) (float64, error) {
	if cost < 0 {
		return 0, fmt.Errorf("%w: negative cost %f", ErrInvalidInput, cost)
	}
	if price < 0 {
		return 0, fmt.Errorf("%w: negative price %f", ErrInvalidInput, price)
	}
	if cost == 0 {
		return 0, nil
	}
	return (price - cost) / cost * 100, nil
}
