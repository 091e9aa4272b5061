package engine

import (
	"errors"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func idPtr(id snowflake.ID) *snowflake.ID { return &id }

func testNode(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return node
}

func TestRollupCost_WeightedSum(t *testing.T) {
	node := testNode(t)
	sensor := node.Generate()
	controller := node.Generate()
	panel := node.Generate()

	costs := map[snowflake.ID]float64{sensor: 100, controller: 300}
	assemblies := map[snowflake.ID]AssemblySnapshot{
		panel: {ID: panel, Name: "Panel-A", Members: []MemberRef{
			{ComponentID: idPtr(sensor), Quantity: 2},
			{ComponentID: idPtr(controller), Quantity: 1},
		}},
	}

	got, err := RollupCost(panel, assemblies, func(id snowflake.ID) (float64, error) {
		return costs[id], nil
	})
	assert.NoError(t, err)
	assert.InDelta(t, 500, got, 1e-9)
}

func TestRollupCost_NestedAssemblies(t *testing.T) {
	node := testNode(t)
	bolt := node.Generate()
	bracket := node.Generate() // 4 bolts
	frame := node.Generate()   // 2 brackets + 8 bolts

	assemblies := map[snowflake.ID]AssemblySnapshot{
		bracket: {ID: bracket, Members: []MemberRef{
			{ComponentID: idPtr(bolt), Quantity: 4},
		}},
		frame: {ID: frame, Members: []MemberRef{
			{AssemblyID: idPtr(bracket), Quantity: 2},
			{ComponentID: idPtr(bolt), Quantity: 8},
		}},
	}

	got, err := RollupCost(frame, assemblies, func(snowflake.ID) (float64, error) {
		return 0.5, nil
	})
	assert.NoError(t, err)
	assert.InDelta(t, 8, got, 1e-9) // 2*(4*0.5) + 8*0.5
}

func TestRollupCost_DiamondReuseIsNotACycle(t *testing.T) {
	node := testNode(t)
	leaf := node.Generate()
	shared := node.Generate()
	left := node.Generate()
	right := node.Generate()
	top := node.Generate()

	assemblies := map[snowflake.ID]AssemblySnapshot{
		shared: {ID: shared, Members: []MemberRef{{ComponentID: idPtr(leaf), Quantity: 1}}},
		left:   {ID: left, Members: []MemberRef{{AssemblyID: idPtr(shared), Quantity: 1}}},
		right:  {ID: right, Members: []MemberRef{{AssemblyID: idPtr(shared), Quantity: 1}}},
		top: {ID: top, Members: []MemberRef{
			{AssemblyID: idPtr(left), Quantity: 1},
			{AssemblyID: idPtr(right), Quantity: 1},
		}},
	}

	resolutions := 0
	got, err := RollupCost(top, assemblies, func(snowflake.ID) (float64, error) {
		resolutions++
		return 10, nil
	})
	assert.NoError(t, err)
	assert.InDelta(t, 20, got, 1e-9)
	assert.Equal(t, 1, resolutions, "shared subtree resolved once per pass")
}

func TestRollupCost_DirectCycle(t *testing.T) {
	node := testNode(t)
	a := node.Generate()

	assemblies := map[snowflake.ID]AssemblySnapshot{
		a: {ID: a, Members: []MemberRef{{AssemblyID: idPtr(a), Quantity: 1}}},
	}

	_, err := RollupCost(a, assemblies, func(snowflake.ID) (float64, error) { return 1, nil })
	assert.True(t, errors.Is(err, ErrCircularAssembly))
}

func TestRollupCost_TransitiveCycle(t *testing.T) {
	node := testNode(t)
	a := node.Generate()
	b := node.Generate()
	c := node.Generate()

	assemblies := map[snowflake.ID]AssemblySnapshot{
		a: {ID: a, Members: []MemberRef{{AssemblyID: idPtr(b), Quantity: 1}}},
		b: {ID: b, Members: []MemberRef{{AssemblyID: idPtr(c), Quantity: 1}}},
		c: {ID: c, Members: []MemberRef{{AssemblyID: idPtr(a), Quantity: 1}}},
	}

	_, err := RollupCost(a, assemblies, func(snowflake.ID) (float64, error) { return 1, nil })
	assert.True(t, errors.Is(err, ErrCircularAssembly))

	assert.Error(t, CheckAcyclic(a, assemblies))
}

func TestRollupCost_UnknownAssembly(t *testing.T) {
	node := testNode(t)
	_, err := RollupCost(node.Generate(), nil, func(snowflake.ID) (float64, error) { return 1, nil })
	assert.True(t, errors.Is(err, ErrUnknownAssembly))
}

func TestRollupCost_EmptyMember(t *testing.T) {
	node := testNode(t)
	a := node.Generate()

	assemblies := map[snowflake.ID]AssemblySnapshot{
		a: {ID: a, Members: []MemberRef{{Quantity: 1}}},
	}
	_, err := RollupCost(a, assemblies, func(snowflake.ID) (float64, error) { return 1, nil })
	assert.True(t, errors.Is(err, ErrMissingReference))
}

func TestCheckAcyclic_ValidGraph(t *testing.T) {
	node := testNode(t)
	leaf := node.Generate()
	sub := node.Generate()
	top := node.Generate()

	assemblies := map[snowflake.ID]AssemblySnapshot{
		sub: {ID: sub, Members: []MemberRef{{ComponentID: idPtr(leaf), Quantity: 3}}},
		top: {ID: top, Members: []MemberRef{{AssemblyID: idPtr(sub), Quantity: 2}}},
	}
	assert.NoError(t, CheckAcyclic(top, assemblies))
}
