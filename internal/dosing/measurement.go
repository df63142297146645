package dosing

import (
	"fmt"

	"github.com/Spok95/dosing-console/internal/domain/associations"
	"github.com/Spok95/dosing-console/internal/infra/notify"
)

// CheckMeasurement evaluates a stored association against its tolerance
// band and pushes an alert when the measured value is out of range. A
// missing set-point, margin or actual means insufficient data: no flag,
// no alert.
func CheckMeasurement(a associations.Association, n notify.Notifier) bool {
	if a.SetPoint == nil || a.Margin == nil || a.Actual == nil {
		return false
	}
	if !OutOfRange(*a.SetPoint, *a.Margin, *a.Actual) {
		return false
	}
	if n != nil {
		n.Notify(fmt.Sprintf(
			"Out-of-tolerance dose for formula %d, material %d: actual %.2f outside %.2f±%.2f",
			a.FormulaID, a.MaterialID, *a.Actual, *a.SetPoint, *a.Margin,
		))
	}
	return true
}
