package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is either income or expense.
type TransactionType string

// Transaction types.
const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

// Transaction is a single money movement of a user.
type Transaction struct {
	ID       string          `json:"id"`
	UserID   string          `json:"userId"`
	Type     TransactionType `json:"type"`
	Amount   decimal.Decimal `json:"amount"`
	Category string          `json:"category"`
	Note     string          `json:"note,omitempty"`
	Date     time.Time       `json:"date"`
}

// Budget limits expenses of a category in a month.
type Budget struct {
	ID       string          `json:"id"`
	UserID   string          `json:"userId"`
	Category string          `json:"category"`
	Month    string          `json:"month"` // YYYY-MM
	Limit    decimal.Decimal `json:"limit"`
}

// Goal is a savings target.
type Goal struct {
	ID                  string          `json:"id"`
	UserID              string          `json:"userId"`
	Name                string          `json:"name"`
	Target              decimal.Decimal `json:"target"`
	Saved               decimal.Decimal `json:"saved"`
	MonthlyContribution decimal.Decimal `json:"monthlyContribution"`
	CreatedAt           time.Time       `json:"createdAt"`
}

// MonthLayout formats budget months.
const MonthLayout = "2006-01"
