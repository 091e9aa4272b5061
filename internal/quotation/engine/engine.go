// Package engine prices a bill of materials into an auditable quotation.
//
// The engine is a pure, synchronous computation: inputs arrive as immutable
// snapshots, nothing is mutated, nothing is read from ambient state, and the
// same snapshot always produces the same result. Callers own fetching the
// reference data beforehand and persisting the result afterwards.
package engine

import (
	"fmt"
	"sort"
	"time"

	"github.com/bwmarrin/snowflake"
)

// ComponentSnapshot is an immutable view of a library component plus its full
// price history at compute time.
type ComponentSnapshot struct {
	ID      snowflake.ID
	Name    string
	Active  bool
	History []PriceRecord
}

// Params is the quotation-scoped configuration of one compute pass. Exchange
// rates are supplied as plain numbers; the engine never looks rates up.
type Params struct {
	BaseCurrency   string
	Rates          map[string]float64
	DefaultMarkup  float64
	RiskPercent    float64
	IncludeVAT     bool
	VATRatePercent float64
	AsOf           time.Time
}

// Snapshot is the full input of one compute pass.
type Snapshot struct {
	Systems    []SystemSnapshot
	Items      []ItemSnapshot
	Components map[snowflake.ID]ComponentSnapshot
	Assemblies map[snowflake.ID]AssemblySnapshot
}

// Result is the computed output: display-ready items in stable display order,
// the rebuilt calculations snapshot, and any recoverable warnings.
type Result struct {
	Items        []ComputedItem `json:"items"`
	Calculations Calculations   `json:"calculations"`
	Warnings     []Warning      `json:"warnings"`
}

// Compute prices every item of the snapshot and folds them into a fresh
// Calculations. It fails hard on cycles, unresolvable prices, missing rates
// and malformed items; a quotation total is either fully traceable or not
// produced at all.
func Compute(snap Snapshot, p Params) (*Result, error) {
	rates := NewRateTable(p.BaseCurrency, p.Rates)
	if rates.Base == "" {
		return nil, fmt.Errorf("%w: empty base currency", ErrInvalidInput)
	}
	if p.AsOf.IsZero() {
		return nil, fmt.Errorf("%w: zero asOf timestamp", ErrInvalidInput)
	}

	systems := make(map[snowflake.ID]SystemSnapshot, len(snap.Systems))
	for _, sys := range snap.Systems {
		systems[sys.ID] = sys
	}

	var warnings []Warning

	// Component cost resolution: active price record at asOf, converted to
	// the base currency. Memoized per pass so assembly reuse stays O(N).
	componentCosts := make(map[snowflake.ID]float64, len(snap.Components))
	componentCost := func(id snowflake.ID) (float64, error) {
		if cost, ok := componentCosts[id]; ok {
			return cost, nil
		}
		comp, ok := snap.Components[id]
		if !ok {
			return 0, fmt.Errorf("%w: %s", ErrUnknownComponent, id)
		}
		resolved, err := ResolveActivePrice(comp.History, p.AsOf)
		if err != nil {
			return 0, fmt.Errorf("component %s (%s): %w", comp.Name, id, err)
		}
		if resolved.Overlapping {
			warnings = append(warnings, Warning{
				Code:   WarnOverlappingWindows,
				Detail: fmt.Sprintf("component %s has overlapping price windows at %s", comp.Name, p.AsOf.UTC().Format(time.RFC3339)),
			})
		}
		cost, err := rates.ToBase(resolved.Record.Cost, resolved.Record.Currency)
		if err != nil {
			return 0, fmt.Errorf("component %s (%s): %w", comp.Name, id, err)
		}
		componentCosts[id] = cost
		return cost, nil
	}

	roll := newRollup(snap.Assemblies, componentCost)

	computed := make([]ComputedItem, 0, len(snap.Items))
	for _, item := range snap.Items {
		system, ok := systems[item.SystemID]
		if !ok {
			return nil, fmt.Errorf("%w: item %s references unknown system %s", ErrMissingReference, item.ID, item.SystemID)
		}

		var (
			unitCost float64
			err      error
		)
		switch item.Ref.Kind {
		case RefComponent:
			unitCost, err = componentCost(item.Ref.ComponentID)
		case RefAssembly:
			unitCost, err = roll.cost(item.Ref.AssemblyID, make(map[snowflake.ID]struct{}))
		case RefCustom:
			// Custom items price from their stored cost inside materializeItem.
			unitCost, err = rates.ToBase(item.UnitCost, fallbackCurrency(item.Currency, rates.Base))
			if err == nil {
				item.UnitCost = unitCost
			}
		default:
			err = fmt.Errorf("%w: item %s has no reference kind", ErrMissingReference, item.ID)
		}
		if err != nil {
			return nil, fmt.Errorf("item %s: %w", item.ID, err)
		}

		line, itemWarnings, err := materializeItem(item, system, unitCost, p.DefaultMarkup)
		if err != nil {
			return nil, err
		}
		computed = append(computed, line)
		warnings = append(warnings, itemWarnings...)
	}

	sortComputed(computed, systems)

	calc, err := aggregate(computed, p.RiskPercent, p.IncludeVAT, p.VATRatePercent)
	if err != nil {
		return nil, err
	}

	return &Result{
		Items:        computed,
		Calculations: calc,
		Warnings:     warnings,
	}, nil
}

func fallbackCurrency(currency, base string) string {
	if currency == "" {
		return base
	}
	return currency
}

func sortComputed(items []ComputedItem, systems map[snowflake.ID]SystemSnapshot) {
	sort.SliceStable(items, func(i, j int) bool {
		si, sj := systems[items[i].SystemID], systems[items[j].SystemID]
		if si.DisplayOrder != sj.DisplayOrder {
			return si.DisplayOrder < sj.DisplayOrder
		}
		return items[i].ItemOrder < items[j].ItemOrder
	})
}
