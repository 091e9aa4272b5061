package engine

import (
	"fmt"

	"github.com/bwmarrin/snowflake"
)

// MemberRef is one row of an assembly's bill of materials. Exactly one of
// ComponentID / AssemblyID is set.
type MemberRef struct {
	ComponentID *snowflake.ID
	AssemblyID  *snowflake.ID
	Quantity    float64
}

// AssemblySnapshot is an immutable view of an assembly's membership, supplied
// by the caller at compute time.
type AssemblySnapshot struct {
	ID      snowflake.ID
	Name    string
	Members []MemberRef
}

// ComponentCostFunc resolves a component's base-currency unit cost.
type ComponentCostFunc func(id snowflake.ID) (float64, error)

type rollup struct {
	assemblies    map[snowflake.ID]AssemblySnapshot
	componentCost ComponentCostFunc
	memo          map[snowflake.ID]float64
}

func newRollup(assemblies map[snowflake.ID]AssemblySnapshot, componentCost ComponentCostFunc) *rollup {
	return &rollup{
		assemblies:    assemblies,
		componentCost: componentCost,
		memo:          make(map[snowflake.ID]float64),
	}
}

// cost returns the rolled-up unit cost of one assembly. The visited set holds
// the current traversal path; threading it explicitly keeps the cycle check
// intact if the recursion is ever rewritten as a worklist. Memoized results
// are scoped to a single pass, so a price change can never leak into the next
// computation.
func (r *rollup) cost(id snowflake.ID, visited map[snowflake.ID]struct{}) (float64, error) {
	if cached, ok := r.memo[id]; ok {
		return cached, nil
	}
	if _, ok := visited[id]; ok {
		return 0, fmt.Errorf("%w: assembly %s contains itself", ErrCircularAssembly, id)
	}
	asm, ok := r.assemblies[id]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownAssembly, id)
	}

	visited[id] = struct{}{}
	defer delete(visited, id)

	var total float64
	for _, member := range asm.Members {
		if member.Quantity < 0 {
			return 0, fmt.Errorf("%w: negative quantity in assembly %s", ErrInvalidInput, id)
		}
		var (
			unit float64
			err  error
		)
		switch {
		case member.ComponentID != nil:
			unit, err = r.componentCost(*member.ComponentID)
		case member.AssemblyID != nil:
			unit, err = r.cost(*member.AssemblyID, visited)
		default:
			err = fmt.Errorf("%w: empty member in assembly %s", ErrMissingReference, id)
		}
		if err != nil {
			return 0, err
		}
		total += member.Quantity * unit
	}

	r.memo[id] = total
	return total, nil
}

// RollupCost recursively aggregates an assembly's unit cost from its members,
// depth first, failing hard on cycles. Truncating a cycle would produce a
// silently wrong price, which is worse than no price at all.
func RollupCost(id snowflake.ID, assemblies map[snowflake.ID]AssemblySnapshot, componentCost ComponentCostFunc) (float64, error) {
	return newRollup(assemblies, componentCost).cost(id, make(map[snowflake.ID]struct{}))
}

// CheckAcyclic walks the membership graph reachable from id and reports a
// cycle without resolving any price. Used by the assembly service to validate
// member edits before they are committed.
func CheckAcyclic(id snowflake.ID, assemblies map[snowflake.ID]AssemblySnapshot) error {
	zero := func(snowflake.ID) (float64, error) { return 0, nil }
	_, err := RollupCost(id, assemblies, zero)
	return err
}
