// Package dosing holds the formula composition and inventory consistency
// core: tolerance evaluation, bounded stock adjustments, operator-controlled
// formula ordering and the staged-edit association reconciler.
package dosing

import (
	"math"
	"strconv"
	"strings"
)

// OutOfRange reports whether a measured value falls outside the symmetric
// tolerance band [setPoint-margin, setPoint+margin]. A zero or non-finite
// margin means no tolerance is configured, which disables the check.
func OutOfRange(setPoint, margin, actual float64) bool {
	if margin == 0 || math.IsNaN(margin) || math.IsInf(margin, 0) {
		return false
	}
	if math.IsNaN(setPoint) || math.IsNaN(actual) {
		return false
	}
	return actual > setPoint+margin || actual < setPoint-margin
}

// OutOfRangeStrings evaluates raw feed input. Unparseable values count as
// insufficient data, never as a violation.
func OutOfRangeStrings(setPoint, margin, actual string) bool {
	sp, err := strconv.ParseFloat(strings.TrimSpace(setPoint), 64)
	if err != nil {
		return false
	}
	m, err := strconv.ParseFloat(strings.TrimSpace(margin), 64)
	if err != nil {
		return false
	}
	a, err := strconv.ParseFloat(strings.TrimSpace(actual), 64)
	if err != nil {
		return false
	}
	return OutOfRange(sp, m, a)
}
