package ledger

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Period is a reporting window ending now.
type Period string

// Reporting periods.
const (
	Week  Period = "week"
	Month Period = "month"
	Year  Period = "year"
)

// ErrInvalidPeriod is returned for unknown period names.
var ErrInvalidPeriod = errors.New("period must be one of week, month, year")

var hundred = decimal.NewFromInt(100)

// ParsePeriod validates period name, empty name means month.
func ParsePeriod(s string) (Period, error) {
	switch p := Period(s); p {
	case "":
		return Month, nil
	case Week, Month, Year:
		return p, nil
	default:
		return "", fmt.Errorf("%w: got %q", ErrInvalidPeriod, s)
	}
}

// Start returns beginning of calendar period that contains now.
//
// Weeks start on Monday.
func (p Period) Start(now time.Time) time.Time {
	y, m, d := now.Date()
	loc := now.Location()

	switch p {
	case Week:
		offset := (int(now.Weekday()) + 6) % 7

		return time.Date(y, m, d-offset, 0, 0, 0, 0, loc)
	case Year:
		return time.Date(y, time.January, 1, 0, 0, 0, 0, loc)
	default:
		return time.Date(y, m, 1, 0, 0, 0, 0, loc)
	}
}

// CategoryTotal is an expense total of a category.
type CategoryTotal struct {
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
	// Share is a percentage of all expenses.
	Share decimal.Decimal `json:"share"`
}

// Summary aggregates transactions of a period.
type Summary struct {
	Period     Period          `json:"period"`
	From       time.Time       `json:"from"`
	To         time.Time       `json:"to"`
	Income     decimal.Decimal `json:"income"`
	Expense    decimal.Decimal `json:"expense"`
	Net        decimal.Decimal `json:"net"`
	Count      int             `json:"count"`
	ByCategory []CategoryTotal `json:"byCategory"`
}

// Summarize totals transactions dated within period that contains now.
//
// Categories are ordered by amount, largest first.
func Summarize(txs []Transaction, p Period, now time.Time) Summary {
	s := Summary{
		Period:     p,
		From:       p.Start(now),
		To:         now,
		Income:     decimal.Zero,
		Expense:    decimal.Zero,
		ByCategory: []CategoryTotal{},
	}

	byCategory := map[string]decimal.Decimal{}

	for _, tx := range txs {
		if tx.Date.Before(s.From) || tx.Date.After(now) {
			continue
		}

		s.Count++

		switch tx.Type {
		case Income:
			s.Income = s.Income.Add(tx.Amount)
		case Expense:
			s.Expense = s.Expense.Add(tx.Amount)
			byCategory[tx.Category] = byCategory[tx.Category].Add(tx.Amount)
		}
	}

	s.Net = s.Income.Sub(s.Expense)

	for c, amount := range byCategory {
		ct := CategoryTotal{Category: c, Amount: amount, Share: decimal.Zero}
		if s.Expense.IsPositive() {
			ct.Share = amount.Mul(hundred).Div(s.Expense).Round(2)
		}

		s.ByCategory = append(s.ByCategory, ct)
	}

	sort.Slice(s.ByCategory, func(i, j int) bool {
		if s.ByCategory[i].Amount.Equal(s.ByCategory[j].Amount) {
			return s.ByCategory[i].Category < s.ByCategory[j].Category
		}

		return s.ByCategory[i].Amount.GreaterThan(s.ByCategory[j].Amount)
	})

	return s
}

// BudgetStatus is a budget with its usage.
type BudgetStatus struct {
	Budget
	Spent     decimal.Decimal `json:"spent"`
	Remaining decimal.Decimal `json:"remaining"`
	Percent   decimal.Decimal `json:"percent"`
	Exceeded  bool            `json:"exceeded"`
}

// BudgetUsage computes spent percentage of budget limit rounded to 2 decimals.
//
// Percent is zero for zero limit.
func BudgetUsage(b Budget, spent decimal.Decimal) BudgetStatus {
	st := BudgetStatus{
		Budget:    b,
		Spent:     spent,
		Remaining: b.Limit.Sub(spent),
		Percent:   decimal.Zero,
	}

	if b.Limit.IsPositive() {
		st.Percent = spent.Mul(hundred).Div(b.Limit).Round(2)
	}

	st.Exceeded = spent.GreaterThan(b.Limit)

	return st
}

// MonthlyBudgetUsage matches budgets of the month that contains now with expenses of that month.
//
// Transaction dates are taken in location of now.
func MonthlyBudgetUsage(budgets []Budget, txs []Transaction, now time.Time) []BudgetStatus {
	month := now.Format(MonthLayout)
	spent := map[string]decimal.Decimal{}

	for _, tx := range txs {
		if tx.Type == Expense && tx.Date.In(now.Location()).Format(MonthLayout) == month {
			spent[tx.Category] = spent[tx.Category].Add(tx.Amount)
		}
	}

	res := make([]BudgetStatus, 0, len(budgets))

	for _, b := range budgets {
		if b.Month != month {
			continue
		}

		res = append(res, BudgetUsage(b, spent[b.Category]))
	}

	return res
}

// GoalProjection estimates when a savings goal is reached.
type GoalProjection struct {
	Goal
	Remaining  decimal.Decimal `json:"remaining"`
	Percent    decimal.Decimal `json:"percent"`
	Reached    bool            `json:"reached"`
	MonthsLeft int             `json:"monthsLeft,omitempty"`
	ETA        *time.Time      `json:"eta,omitempty"`
}

// ProjectGoal computes months left as ceil(remaining / monthly contribution).
//
// ETA is absent when goal is not reached and contribution is not positive.
func ProjectGoal(g Goal, now time.Time) GoalProjection {
	p := GoalProjection{
		Goal:      g,
		Remaining: decimal.Max(g.Target.Sub(g.Saved), decimal.Zero),
		Percent:   decimal.Zero,
	}

	if g.Target.IsPositive() {
		p.Percent = decimal.Min(g.Saved.Mul(hundred).Div(g.Target), hundred).Round(2)
	}

	if !g.Saved.LessThan(g.Target) {
		p.Reached = true
		eta := now

		p.ETA = &eta

		return p
	}

	if !g.MonthlyContribution.IsPositive() {
		return p
	}

	p.MonthsLeft = int(p.Remaining.Div(g.MonthlyContribution).Ceil().IntPart())
	eta := now.AddDate(0, p.MonthsLeft, 0)
	p.ETA = &eta

	return p
}
