package engine

import (
	"fmt"
	"strings"
)

// RateTable maps a currency code to the number of base-currency units one
// unit of that currency is worth. The base currency itself needs no entry.
type RateTable struct {
	Base  string
	Rates map[string]float64
}

// NewRateTable normalizes codes to upper case and drops non-positive rates.
func NewRateTable(base string, rates map[string]float64) RateTable {
	t := RateTable{
		Base:  strings.ToUpper(strings.TrimSpace(base)),
		Rates: make(map[string]float64, len(rates)),
	}
	for code, rate := range rates {
		if rate <= 0 {
			continue
		}
		t.Rates[strings.ToUpper(strings.TrimSpace(code))] = rate
	}
	return t
}

// ToBase converts amount from the given currency into the base currency.
func (t RateTable) ToBase(amount float64, from string) (float64, error) {
	if amount < 0 {
		return 0, fmt.Errorf("%w: negative amount %f", ErrInvalidInput, amount)
	}
	code := strings.ToUpper(strings.TrimSpace(from))
	if code == "" {
		return 0, fmt.Errorf("%w: empty currency code", ErrInvalidInput)
	}
	if code == t.Base {
		return amount, nil
	}
	rate, ok := t.Rates[code]
	if !ok {
		return 0, fmt.Errorf("%w: no rate for %s", ErrInvalidRate, code)
	}
	return amount * rate, nil
}

// FromBase converts a base-currency amount into the given currency. Together
// with ToBase it round-trips within floating-point tolerance for any positive
// rate, which keeps repeated recomputation stable.
func (t RateTable) FromBase(amount float64, to string) (float64, error) {
	if amount < 0 {
		return 0, fmt.Errorf("%w: negative amount %f", ErrInvalidInput, amount)
	}
	code := strings.ToUpper(strings.TrimSpace(to))
	if code == "" {
		return 0, fmt.Errorf("%w: empty currency code", ErrInvalidInput)
	}
	if code == t.Base {
		return amount, nil
	}
	rate, ok := t.Rates[code]
	if !ok {
		return 0, fmt.Errorf("%w: no rate for %s", ErrInvalidRate, code)
	}
	return amount / rate, nil
}
