package ledger_test

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vearutop/spendcache/internal/ledger"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// Wednesday.
var now = time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)

func TestParsePeriod(t *testing.T) {
	p, err := ledger.ParsePeriod("")
	require.NoError(t, err)
	assert.Equal(t, ledger.Month, p)

	p, err = ledger.ParsePeriod("week")
	require.NoError(t, err)
	assert.Equal(t, ledger.Week, p)

	_, err = ledger.ParsePeriod("decade")
	assert.True(t, errors.Is(err, ledger.ErrInvalidPeriod))
}

func TestPeriod_Start(t *testing.T) {
	assert.Equal(t, time.Date(2024, 5, 13, 0, 0, 0, 0, time.UTC), ledger.Week.Start(now))
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), ledger.Month.Start(now))
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), ledger.Year.Start(now))

	sunday := time.Date(2024, 5, 19, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 5, 13, 0, 0, 0, 0, time.UTC), ledger.Week.Start(sunday))
}

func TestSummarize(t *testing.T) {
	txs := []ledger.Transaction{
		{Type: ledger.Income, Amount: dec("3000"), Category: "salary", Date: now.AddDate(0, 0, -10)},
		{Type: ledger.Expense, Amount: dec("120.50"), Category: "food", Date: now.AddDate(0, 0, -1)},
		{Type: ledger.Expense, Amount: dec("79.50"), Category: "food", Date: now.AddDate(0, 0, -2)},
		{Type: ledger.Expense, Amount: dec("600"), Category: "rent", Date: now.AddDate(0, 0, -12)},
		{Type: ledger.Expense, Amount: dec("999"), Category: "rent", Date: now.AddDate(0, -1, 0)},
	}

	s := ledger.Summarize(txs, ledger.Month, now)

	assert.Equal(t, 4, s.Count)
	assert.Equal(t, "3000", s.Income.String())
	assert.Equal(t, "800", s.Expense.String())
	assert.Equal(t, "2200", s.Net.String())
	require.Len(t, s.ByCategory, 2)
	assert.Equal(t, "rent", s.ByCategory[0].Category)
	assert.Equal(t, "75", s.ByCategory[0].Share.String())
	assert.Equal(t, "food", s.ByCategory[1].Category)
	assert.Equal(t, "200", s.ByCategory[1].Amount.String())
	assert.Equal(t, "25", s.ByCategory[1].Share.String())

	s = ledger.Summarize(txs, ledger.Week, now)
	assert.Equal(t, 2, s.Count)
	assert.Equal(t, "0", s.Income.String())
	assert.Equal(t, "-200", s.Net.String())

	s = ledger.Summarize(nil, ledger.Year, now)
	assert.Equal(t, 0, s.Count)
	assert.Empty(t, s.ByCategory)
}

func TestBudgetUsage(t *testing.T) {
	st := ledger.BudgetUsage(ledger.Budget{Limit: dec("300")}, dec("100"))
	assert.Equal(t, "33.33", st.Percent.String())
	assert.Equal(t, "200", st.Remaining.String())
	assert.False(t, st.Exceeded)

	st = ledger.BudgetUsage(ledger.Budget{Limit: dec("100")}, dec("150"))
	assert.Equal(t, "150", st.Percent.String())
	assert.True(t, st.Exceeded)

	st = ledger.BudgetUsage(ledger.Budget{Limit: decimal.Zero}, dec("10"))
	assert.True(t, st.Percent.IsZero())
}

func TestMonthlyBudgetUsage(t *testing.T) {
	budgets := []ledger.Budget{
		{Category: "food", Month: "2024-05", Limit: dec("400")},
		{Category: "fun", Month: "2024-05", Limit: dec("100")},
		{Category: "food", Month: "2024-04", Limit: dec("400")},
	}
	txs := []ledger.Transaction{
		{Type: ledger.Expense, Amount: dec("100"), Category: "food", Date: now},
		{Type: ledger.Expense, Amount: dec("100"), Category: "food", Date: now.AddDate(0, -1, 0)},
		{Type: ledger.Income, Amount: dec("100"), Category: "food", Date: now},
	}

	res := ledger.MonthlyBudgetUsage(budgets, txs, now)
	require.Len(t, res, 2)
	assert.Equal(t, "25", res[0].Percent.String())
	assert.True(t, res[1].Spent.IsZero())
}

func TestMonthlyBudgetUsage_timeZones(t *testing.T) {
	budgets := []ledger.Budget{{Category: "food", Month: "2024-05", Limit: dec("100")}}
	txs := []ledger.Transaction{
		// 2024-04-30 22:30 UTC.
		{Type: ledger.Expense, Amount: dec("10"), Category: "food", Date: time.Date(2024, 5, 1, 1, 30, 0, 0, time.FixedZone("EEST", 3*3600))},
		// 2024-05-01 01:30 UTC.
		{Type: ledger.Expense, Amount: dec("20"), Category: "food", Date: time.Date(2024, 4, 30, 23, 30, 0, 0, time.FixedZone("BRT", -2*3600))},
	}

	res := ledger.MonthlyBudgetUsage(budgets, txs, now)
	require.Len(t, res, 1)
	assert.Equal(t, "20", res[0].Spent.String())

	// Month boundaries agree with period window.
	for _, tx := range txs {
		inMonth := !tx.Date.Before(ledger.Month.Start(now))
		assert.Equal(t, inMonth, tx.Amount.Equal(res[0].Spent))
	}
}

func TestProjectGoal(t *testing.T) {
	p := ledger.ProjectGoal(ledger.Goal{
		Target:              dec("1000"),
		Saved:               dec("250"),
		MonthlyContribution: dec("100"),
	}, now)

	assert.False(t, p.Reached)
	assert.Equal(t, 8, p.MonthsLeft)
	assert.Equal(t, "25", p.Percent.String())
	require.NotNil(t, p.ETA)
	assert.Equal(t, now.AddDate(0, 8, 0), *p.ETA)

	p = ledger.ProjectGoal(ledger.Goal{Target: dec("1000"), Saved: dec("100")}, now)
	assert.Nil(t, p.ETA)
	assert.Equal(t, 0, p.MonthsLeft)

	p = ledger.ProjectGoal(ledger.Goal{Target: dec("1000"), Saved: dec("1200")}, now)
	assert.True(t, p.Reached)
	assert.True(t, p.Remaining.IsZero())
	assert.Equal(t, "100", p.Percent.String())
}
