package production

import "time"

type OrderStatus string

const (
	OrderPlanned    OrderStatus = "planned"
	OrderInProgress OrderStatus = "in_progress"
	OrderCompleted  OrderStatus = "completed"
	OrderRejected   OrderStatus = "rejected"
)

type Order struct {
	ID            int64
	OrderNumber   string
	FormulaID     int64
	BatchSize     float64
	ScheduledDate time.Time
	Status        OrderStatus
	CreatedBy     int64
	Notes         string
	BarcodeID     string
	CreatedAt     time.Time
}

type Batch struct {
	ID          int64
	BatchNumber string
	OrderID     int64
	Status      string
	OperatorID  int64
	Notes       string
	CreatedAt   time.Time
}

// Dispensing records one material dose measured into a batch.
type Dispensing struct {
	ID              int64
	BatchID         int64
	MaterialID      int64
	PlannedQuantity float64
	ActualQuantity  *float64
	DispensedBy     int64
	Status          string
	CreatedAt       time.Time
}
