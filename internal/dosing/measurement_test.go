package dosing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Spok95/dosing-console/internal/domain/associations"
)

type fakeNotifier struct{ messages []string }

func (f *fakeNotifier) Notify(text string) { f.messages = append(f.messages, text) }

func assoc(setPoint, margin, actual *float64) associations.Association {
	return associations.Association{
		FormulaID: 1, MaterialID: 11,
		SetPoint: setPoint, Margin: margin, Actual: actual,
	}
}

func f64(v float64) *float64 { return &v }

func TestCheckMeasurementAlertsOutOfRange(t *testing.T) {
	n := &fakeNotifier{}
	got := CheckMeasurement(assoc(f64(100), f64(5), f64(110)), n)
	assert.True(t, got)
	require.Len(t, n.messages, 1)
	assert.Contains(t, n.messages[0], "Out-of-tolerance")
	assert.Contains(t, n.messages[0], "110.00")
}

func TestCheckMeasurementInRangeStaysQuiet(t *testing.T) {
	n := &fakeNotifier{}
	assert.False(t, CheckMeasurement(assoc(f64(100), f64(5), f64(103)), n))
	assert.Empty(t, n.messages)
}

func TestCheckMeasurementInsufficientData(t *testing.T) {
	n := &fakeNotifier{}
	assert.False(t, CheckMeasurement(assoc(nil, f64(5), f64(110)), n))
	assert.False(t, CheckMeasurement(assoc(f64(100), nil, f64(110)), n))
	assert.False(t, CheckMeasurement(assoc(f64(100), f64(5), nil), n))
	assert.Empty(t, n.messages)
}

func TestCheckMeasurementZeroMarginDisabled(t *testing.T) {
	n := &fakeNotifier{}
	assert.False(t, CheckMeasurement(assoc(f64(100), f64(0), f64(1000)), n))
	assert.Empty(t, n.messages)
}

func TestCheckMeasurementNilNotifier(t *testing.T) {
	assert.True(t, CheckMeasurement(assoc(f64(100), f64(5), f64(110)), nil))
}
