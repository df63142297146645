package formulas

import "time"

type Status string

const (
	StatusDraft      Status = "Draft"
	StatusUnreleased Status = "Unreleased"
	StatusReleased   Status = "Released"
)

func ValidStatus(s Status) bool {
	switch s {
	case StatusDraft, StatusUnreleased, StatusReleased:
		return true
	}
	return false
}

type Formula struct {
	ID            int64
	Name          string
	Code          string
	Description   string
	Version       string
	Status        Status
	CreatedBy     int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
	BarcodeID     string // empty when no barcode assigned
	MaterialCount *int   // declared number of constituent materials
}
