package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/vearutop/spendcache/internal/ledger"
)

const dateLayout = "2006-01-02"

type transactionRequest struct {
	Type     ledger.TransactionType `json:"type" validate:"required,oneof=income expense"`
	Amount   decimal.Decimal        `json:"amount" validate:"gt=0"`
	Category string                 `json:"category" validate:"required,max=64"`
	Note     string                 `json:"note" validate:"max=256"`
	Date     *time.Time             `json:"date"`
}

func (req transactionRequest) transaction(userID string, now time.Time) ledger.Transaction {
	tx := ledger.Transaction{
		UserID:   userID,
		Type:     req.Type,
		Amount:   req.Amount,
		Category: req.Category,
		Note:     req.Note,
		Date:     now,
	}

	if req.Date != nil {
		tx.Date = *req.Date
	}

	return tx
}

func (h *handler) createTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)

		return
	}

	tx, err := h.repo.CreateTransaction(r.Context(), req.transaction(userID(r), h.now()))
	if err != nil {
		h.fail(w, r, err)

		return
	}

	h.invalidate(r.Context(), tx.UserID)
	h.respondJSON(w, r, http.StatusCreated, tx)
}

func (h *handler) updateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)

		return
	}

	ctx := r.Context()

	prev, err := h.repo.GetTransaction(ctx, userID(r), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)

		return
	}

	tx := req.transaction(prev.UserID, prev.Date)
	tx.ID = prev.ID

	if tx, err = h.repo.UpdateTransaction(ctx, tx); err != nil {
		h.fail(w, r, err)

		return
	}

	h.invalidate(ctx, tx.UserID)
	h.respondJSON(w, r, http.StatusOK, tx)
}

func (h *handler) deleteTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.repo.DeleteTransaction(ctx, userID(r), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)

		return
	}

	h.invalidate(ctx, userID(r))
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) getTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := h.repo.GetTransaction(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)

		return
	}

	h.respondJSON(w, r, http.StatusOK, tx)
}

// listTransactions accepts optional from and to dates, to is inclusive.
func (h *handler) listTransactions(w http.ResponseWriter, r *http.Request) {
	var from, to time.Time

	q := r.URL.Query()

	if v := q.Get("from"); v != "" {
		d, err := time.Parse(dateLayout, v)
		if err != nil {
			h.fail(w, r, fmt.Errorf("%w: from must be a %s date", errBadRequest, dateLayout))

			return
		}

		from = d
	}

	if v := q.Get("to"); v != "" {
		d, err := time.Parse(dateLayout, v)
		if err != nil {
			h.fail(w, r, fmt.Errorf("%w: to must be a %s date", errBadRequest, dateLayout))

			return
		}

		to = d.AddDate(0, 0, 1)
	}

	txs, err := h.repo.ListTransactions(r.Context(), userID(r), from, to)
	if err != nil {
		h.fail(w, r, err)

		return
	}

	h.respondJSON(w, r, http.StatusOK, txs)
}

type budgetRequest struct {
	Category string          `json:"category" validate:"required,max=64"`
	Month    string          `json:"month" validate:"required,datetime=2006-01"`
	Limit    decimal.Decimal `json:"limit" validate:"gte=0"`
}

func (h *handler) setBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)

		return
	}

	b, err := h.repo.SetBudget(r.Context(), ledger.Budget{
		UserID:   userID(r),
		Category: req.Category,
		Month:    req.Month,
		Limit:    req.Limit,
	})
	if err != nil {
		h.fail(w, r, err)

		return
	}

	h.invalidate(r.Context(), b.UserID)
	h.respondJSON(w, r, http.StatusOK, b)
}

func (h *handler) listBudgets(w http.ResponseWriter, r *http.Request) {
	month := r.URL.Query().Get("month")
	if month != "" {
		if _, err := time.Parse(ledger.MonthLayout, month); err != nil {
			h.fail(w, r, fmt.Errorf("%w: month must be in %s format", errBadRequest, ledger.MonthLayout))

			return
		}
	}

	budgets, err := h.repo.ListBudgets(r.Context(), userID(r), month)
	if err != nil {
		h.fail(w, r, err)

		return
	}

	h.respondJSON(w, r, http.StatusOK, budgets)
}

type goalRequest struct {
	Name                string          `json:"name" validate:"required,max=128"`
	Target              decimal.Decimal `json:"target" validate:"gt=0"`
	Saved               decimal.Decimal `json:"saved" validate:"gte=0"`
	MonthlyContribution decimal.Decimal `json:"monthlyContribution" validate:"gte=0"`
}

func (h *handler) createGoal(w http.ResponseWriter, r *http.Request) {
	var req goalRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)

		return
	}

	now := h.now()

	g, err := h.repo.CreateGoal(r.Context(), ledger.Goal{
		UserID:              userID(r),
		Name:                req.Name,
		Target:              req.Target,
		Saved:               req.Saved,
		MonthlyContribution: req.MonthlyContribution,
		CreatedAt:           now,
	})
	if err != nil {
		h.fail(w, r, err)

		return
	}

	h.invalidate(r.Context(), g.UserID)
	h.respondJSON(w, r, http.StatusCreated, ledger.ProjectGoal(g, now))
}

func (h *handler) listGoals(w http.ResponseWriter, r *http.Request) {
	goals, err := h.repo.ListGoals(r.Context(), userID(r))
	if err != nil {
		h.fail(w, r, err)

		return
	}

	now := h.now()
	res := make([]ledger.GoalProjection, 0, len(goals))

	for _, g := range goals {
		res = append(res, ledger.ProjectGoal(g, now))
	}

	h.respondJSON(w, r, http.StatusOK, res)
}
