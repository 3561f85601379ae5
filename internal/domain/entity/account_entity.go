package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is a financial account owned by exactly one user.
// Balance is fixed-point and only ever changes through a posted
// transaction; the currency is fixed at creation.
type Account struct {
	ID        string
	OwnerID   string
	Name      string
	Currency  string
	Balance   decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}
