package associations

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in progress"
	StatusCreated    Status = "created"
	StatusReleased   Status = "Released"
	StatusUnreleased Status = "Unreleased"
)

// Association links one formula to one material with its dosing target.
// At most one association may exist per (formula, material) pair; the
// idempotency key is the UUIDv5 of that pair and carries a unique index.
type Association struct {
	ID         int64
	FormulaID  int64
	MaterialID int64
	SetPoint   *float64
	Actual     *float64
	Margin     *float64 // symmetric tolerance band, absolute units
	Status     Status
	Key        string // idempotency key
}
