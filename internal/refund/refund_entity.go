package refund

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	StatusPending = "PENDING"
	StatusPaid    = "PAID"
)

// Refund is money owed back to an employee. It is paid through the first
// payroll run that settles it.
type Refund struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CompanyID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	EmployeeID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	Description  string          `gorm:"type:varchar(255);not null"`
	Amount       decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	Status       string          `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	PayrollRunID *uuid.UUID      `gorm:"type:uuid;index"`
	PaidAt       *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Total sums the amounts of refunds still pending. Paid refunds are ignored.
func Total(refunds []Refund) decimal.Decimal {
	total := decimal.Zero
	for _, r := range refunds {
		if r.Status != StatusPending {
			continue
		}
		total = total.Add(r.Amount)
	}
	return total
}
