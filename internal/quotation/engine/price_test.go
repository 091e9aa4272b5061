package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func timePtr(t time.Time) *time.Time { return &t }

func TestResolveActivePrice(t *testing.T) {
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	first := PriceRecord{
		ID:        node.Generate(),
		Cost:      50,
		Currency:  "USD",
		ValidFrom: day(2024, time.January, 1),
		ValidTo:   timePtr(day(2024, time.June, 1)),
	}
	second := PriceRecord{
		ID:        node.Generate(),
		Cost:      60,
		Currency:  "USD",
		ValidFrom: day(2024, time.June, 1),
	}
	history := []PriceRecord{first, second}

	resolved, err := ResolveActivePrice(history, day(2024, time.July, 1))
	assert.NoError(t, err)
	assert.Equal(t, second.ID, resolved.Record.ID)
	assert.Equal(t, 60.0, resolved.Record.Cost)
	assert.False(t, resolved.Overlapping)

	resolved, err = ResolveActivePrice(history, day(2024, time.March, 1))
	assert.NoError(t, err)
	assert.Equal(t, first.ID, resolved.Record.ID)
	assert.Equal(t, 50.0, resolved.Record.Cost)
}

func TestResolveActivePrice_HalfOpenWindow(t *testing.T) {
	rec := PriceRecord{
		Cost:      50,
		ValidFrom: day(2024, time.January, 1),
		ValidTo:   timePtr(day(2024, time.June, 1)),
	}

	// ValidFrom is inclusive, ValidTo exclusive.
	_, err := ResolveActivePrice([]PriceRecord{rec}, day(2024, time.January, 1))
	assert.NoError(t, err)
	_, err = ResolveActivePrice([]PriceRecord{rec}, day(2024, time.June, 1))
	assert.True(t, errors.Is(err, ErrNoActivePrice))
}

func TestResolveActivePrice_NoRecord(t *testing.T) {
	_, err := ResolveActivePrice(nil, day(2024, time.July, 1))
	assert.True(t, errors.Is(err, ErrNoActivePrice))

	history := []PriceRecord{{
		Cost:      50,
		ValidFrom: day(2024, time.June, 1),
	}}
	_, err = ResolveActivePrice(history, day(2024, time.January, 1))
	assert.True(t, errors.Is(err, ErrNoActivePrice))
}

func TestResolveActivePrice_OverlapLatestValidFromWins(t *testing.T) {
	older := PriceRecord{Cost: 40, ValidFrom: day(2024, time.January, 1)}
	newer := PriceRecord{Cost: 55, ValidFrom: day(2024, time.April, 1)}

	resolved, err := ResolveActivePrice([]PriceRecord{newer, older}, day(2024, time.May, 1))
	assert.NoError(t, err)
	assert.Equal(t, 55.0, resolved.Record.Cost)
	assert.True(t, resolved.Overlapping, "overlap is reported, not fatal")
}
