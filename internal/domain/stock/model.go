package stock

import "time"

// Transaction is an immutable audit row for one accepted quantity change.
type Transaction struct {
	ID                int64
	MaterialID        int64
	Delta             float64 // signed: positive addition, negative removal
	ResultingQuantity float64
	Description       string
	CreatedAt         time.Time
}
