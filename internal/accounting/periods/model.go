package periods

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status enumerates valid period states.
type Status string

const (
	StatusOpen   Status = "OPEN"
	StatusClosed Status = "CLOSED"
)

// Period represents an accounting window. At most one record exists per end date.
type Period struct {
	ID             uuid.UUID
	StartDate      time.Time
	EndDate        time.Time
	Status         Status
	NetIncome      decimal.Decimal
	ClosingVoucher *uuid.UUID
	ClosedBy       string
	ClosedAt       *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Closed reports whether the period blocks postings.
func (p Period) Closed() bool {
	return p.Status == StatusClosed
}
