package dosing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOutOfRangeZeroMarginDisablesCheck(t *testing.T) {
	cases := []struct{ setPoint, actual float64 }{
		{10, 10},
		{10, 1000},
		{10, -1000},
		{0, 5},
		{-3, 99},
	}
	for _, c := range cases {
		assert.False(t, OutOfRange(c.setPoint, 0, c.actual), "setPoint=%v actual=%v", c.setPoint, c.actual)
	}
}

func TestOutOfRangeBand(t *testing.T) {
	cases := []struct {
		name                     string
		setPoint, margin, actual float64
		want                     bool
	}{
		{"inside band", 100, 5, 102, false},
		{"upper edge", 100, 5, 105, false},
		{"lower edge", 100, 5, 95, false},
		{"above band", 100, 5, 105.01, true},
		{"below band", 100, 5, 94.99, true},
		{"exact set point", 100, 5, 100, false},
		{"negative set point above", -10, 2, -7.5, true},
		{"negative set point inside", -10, 2, -9, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := OutOfRange(c.setPoint, c.margin, c.actual)
			assert.Equal(t, c.want, got)
			// Matches the documented rule exactly.
			ref := c.actual > c.setPoint+c.margin || c.actual < c.setPoint-c.margin
			assert.Equal(t, ref, got)
		})
	}
}

func TestOutOfRangeNonFinite(t *testing.T) {
	assert.False(t, OutOfRange(100, math.NaN(), 200))
	assert.False(t, OutOfRange(100, math.Inf(1), 200))
	assert.False(t, OutOfRange(math.NaN(), 5, 200))
	assert.False(t, OutOfRange(100, 5, math.NaN()))
}

func TestOutOfRangeStrings(t *testing.T) {
	assert.True(t, OutOfRangeStrings("100", "5", "110"))
	assert.False(t, OutOfRangeStrings("100", "5", "103"))

	// Unparseable input is insufficient data, not a violation.
	assert.False(t, OutOfRangeStrings("", "5", "110"))
	assert.False(t, OutOfRangeStrings("100", "abc", "110"))
	assert.False(t, OutOfRangeStrings("100", "5", ""))
	assert.True(t, OutOfRangeStrings(" 100 ", " 5 ", " 110 "))
}
