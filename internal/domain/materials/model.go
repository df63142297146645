package materials

import "time"

type Material struct {
	ID              int64
	Title           string
	Location        string // storage location (rack/bin)
	CurrentQuantity float64
	MinimumQuantity float64
	MaximumQuantity float64
	CreatedAt       time.Time
}
