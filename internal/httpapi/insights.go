package httpapi

import (
	"net/http"

	"github.com/vearutop/spendcache/internal/ledger"
)

func (h *handler) tips(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, r, http.StatusOK, h.insights.Tips(r.Context(), userID(r)))
}

func (h *handler) spendingInsights(w http.ResponseWriter, r *http.Request) {
	p, err := ledger.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		h.fail(w, r, err)

		return
	}

	h.respondJSON(w, r, http.StatusOK, h.insights.SpendingInsights(r.Context(), userID(r), p))
}

func (h *handler) budgetSuggestions(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, r, http.StatusOK, h.insights.BudgetSuggestions(r.Context(), userID(r)))
}
