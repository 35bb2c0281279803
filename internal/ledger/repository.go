package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Common repository errors.
var (
	ErrNotFound    = errors.New("not found")
	ErrInvalidUser = errors.New("user id cannot be empty")
)

// Repository stores user scoped finance records.
type Repository interface {
	CreateTransaction(ctx context.Context, tx Transaction) (Transaction, error)
	UpdateTransaction(ctx context.Context, tx Transaction) (Transaction, error)
	DeleteTransaction(ctx context.Context, userID, id string) error
	GetTransaction(ctx context.Context, userID, id string) (Transaction, error)

	// ListTransactions returns transactions dated in [from, to), zero bounds are open.
	ListTransactions(ctx context.Context, userID string, from, to time.Time) ([]Transaction, error)

	SetBudget(ctx context.Context, b Budget) (Budget, error)
	ListBudgets(ctx context.Context, userID, month string) ([]Budget, error)

	CreateGoal(ctx context.Context, g Goal) (Goal, error)
	ListGoals(ctx context.Context, userID string) ([]Goal, error)
}

var _ Repository = &MemoryRepository{}

// MemoryRepository keeps records in process memory.
type MemoryRepository struct {
	mu           sync.RWMutex
	transactions map[string]map[string]Transaction // user id -> id -> transaction
	budgets      map[string]map[string]Budget      // user id -> month/category -> budget
	goals        map[string][]Goal
}

// NewMemoryRepository creates an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		transactions: make(map[string]map[string]Transaction),
		budgets:      make(map[string]map[string]Budget),
		goals:        make(map[string][]Goal),
	}
}

// CreateTransaction stores a new transaction with generated id.
func (r *MemoryRepository) CreateTransaction(ctx context.Context, tx Transaction) (Transaction, error) {
	if tx.UserID == "" {
		return Transaction{}, ErrInvalidUser
	}

	tx.ID = uuid.New().String()

	r.mu.Lock()
	defer r.mu.Unlock()

	userTxs, ok := r.transactions[tx.UserID]
	if !ok {
		userTxs = make(map[string]Transaction)
		r.transactions[tx.UserID] = userTxs
	}

	userTxs[tx.ID] = tx

	return tx, nil
}

// UpdateTransaction replaces existing transaction.
func (r *MemoryRepository) UpdateTransaction(ctx context.Context, tx Transaction) (Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.transactions[tx.UserID][tx.ID]; !ok {
		return Transaction{}, fmt.Errorf("transaction %s: %w", tx.ID, ErrNotFound)
	}

	r.transactions[tx.UserID][tx.ID] = tx

	return tx, nil
}

// DeleteTransaction removes transaction.
func (r *MemoryRepository) DeleteTransaction(ctx context.Context, userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.transactions[userID][id]; !ok {
		return fmt.Errorf("transaction %s: %w", id, ErrNotFound)
	}

	delete(r.transactions[userID], id)

	return nil
}

// GetTransaction finds transaction by id.
func (r *MemoryRepository) GetTransaction(ctx context.Context, userID, id string) (Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tx, ok := r.transactions[userID][id]
	if !ok {
		return Transaction{}, fmt.Errorf("transaction %s: %w", id, ErrNotFound)
	}

	return tx, nil
}

// ListTransactions returns user transactions ordered by date, newest first.
func (r *MemoryRepository) ListTransactions(ctx context.Context, userID string, from, to time.Time) ([]Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	res := make([]Transaction, 0, len(r.transactions[userID]))

	for _, tx := range r.transactions[userID] {
		if !from.IsZero() && tx.Date.Before(from) {
			continue
		}

		if !to.IsZero() && !tx.Date.Before(to) {
			continue
		}

		res = append(res, tx)
	}
	r.mu.RUnlock()

	sort.Slice(res, func(i, j int) bool {
		if res[i].Date.Equal(res[j].Date) {
			return res[i].ID < res[j].ID
		}

		return res[i].Date.After(res[j].Date)
	})

	return res, nil
}

// SetBudget creates or replaces budget of a category in a month.
func (r *MemoryRepository) SetBudget(ctx context.Context, b Budget) (Budget, error) {
	if b.UserID == "" {
		return Budget{}, ErrInvalidUser
	}

	k := b.Month + "/" + b.Category

	r.mu.Lock()
	defer r.mu.Unlock()

	userBudgets, ok := r.budgets[b.UserID]
	if !ok {
		userBudgets = make(map[string]Budget)
		r.budgets[b.UserID] = userBudgets
	}

	if prev, ok := userBudgets[k]; ok {
		b.ID = prev.ID
	} else {
		b.ID = uuid.New().String()
	}

	userBudgets[k] = b

	return b, nil
}

// ListBudgets returns budgets of a month ordered by category, empty month lists all.
func (r *MemoryRepository) ListBudgets(ctx context.Context, userID, month string) ([]Budget, error) {
	r.mu.RLock()
	res := make([]Budget, 0, len(r.budgets[userID]))

	for _, b := range r.budgets[userID] {
		if month == "" || b.Month == month {
			res = append(res, b)
		}
	}
	r.mu.RUnlock()

	sort.Slice(res, func(i, j int) bool {
		if res[i].Month == res[j].Month {
			return res[i].Category < res[j].Category
		}

		return res[i].Month < res[j].Month
	})

	return res, nil
}

// CreateGoal stores a new savings goal.
func (r *MemoryRepository) CreateGoal(ctx context.Context, g Goal) (Goal, error) {
	if g.UserID == "" {
		return Goal{}, ErrInvalidUser
	}

	g.ID = uuid.New().String()

	r.mu.Lock()
	r.goals[g.UserID] = append(r.goals[g.UserID], g)
	r.mu.Unlock()

	return g, nil
}

// ListGoals returns user goals in creation order.
func (r *MemoryRepository) ListGoals(ctx context.Context, userID string) ([]Goal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]Goal(nil), r.goals[userID]...), nil
}
