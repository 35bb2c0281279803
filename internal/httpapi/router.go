// Package httpapi exposes ledger and insights over REST.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/bool64/ctxd"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/vearutop/spendcache"
	"github.com/vearutop/spendcache/internal/insights"
	"github.com/vearutop/spendcache/internal/ledger"
)

// Insights serves cached read path.
type Insights interface {
	Tips(ctx context.Context, userID string) insights.Tips
	SpendingInsights(ctx context.Context, userID string, p ledger.Period) insights.Insights
	BudgetSuggestions(ctx context.Context, userID string) insights.BudgetSuggestions
}

// Invalidator clears cached values of a user.
type Invalidator interface {
	InvalidateUser(ctx context.Context, userID string) (int, error)
}

var _ Invalidator = &cache.Invalidator{}

// Deps holds router dependencies.
type Deps struct {
	Repository  ledger.Repository
	Insights    Insights
	Invalidator Invalidator

	// Logger is an instance of contextualized logger, can be nil.
	Logger ctxd.Logger

	// Metrics serves /metrics if not nil.
	Metrics http.Handler

	// Middlewares are applied after request id and logging.
	Middlewares []func(http.Handler) http.Handler

	// CORSOrigins lists allowed origins, default all.
	CORSOrigins []string

	// Clock returns current time, default time.Now.
	Clock func() time.Time
}

type handler struct {
	repo        ledger.Repository
	insights    Insights
	invalidator Invalidator
	log         ctxd.Logger
	now         func() time.Time
}

// NewRouter creates HTTP handler with all routes.
func NewRouter(deps Deps) http.Handler {
	h := &handler{
		repo:        deps.Repository,
		insights:    deps.Insights,
		invalidator: deps.Invalidator,
		log:         deps.Logger,
		now:         deps.Clock,
	}

	if h.log == nil {
		h.log = ctxd.NoOpLogger{}
	}

	if h.now == nil {
		h.now = time.Now
	}

	origins := deps.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger(h.log))
	r.Use(chimiddleware.Recoverer)
	r.Use(deps.Middlewares...)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", h.health)

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	r.Route("/api/users/{userID}", func(r chi.Router) {
		r.Use(h.userScope)

		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", h.listTransactions)
			r.Post("/", h.createTransaction)
			r.Get("/{id}", h.getTransaction)
			r.Put("/{id}", h.updateTransaction)
			r.Delete("/{id}", h.deleteTransaction)
		})

		r.Get("/budgets", h.listBudgets)
		r.Put("/budgets", h.setBudget)

		r.Get("/goals", h.listGoals)
		r.Post("/goals", h.createGoal)

		r.Get("/tips", h.tips)
		r.Get("/insights", h.spendingInsights)
		r.Get("/budget-suggestions", h.budgetSuggestions)

		r.Delete("/cache", h.clearCache)
	})

	return r
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, r, http.StatusOK, map[string]string{"status": "healthy"})
}

type userIDKey struct{}

// userScope validates user id from path and adds it to logging context.
func (h *handler) userScope(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userID")

		// Key separator in user id would break prefix invalidation.
		if err := validate.Var(userID, "required,max=128,excludesall=:"); err != nil {
			h.respondError(w, r, http.StatusBadRequest, CodeBadRequest, "invalid user id")

			return
		}

		ctx := ctxd.AddFields(r.Context(), "user", userID)
		ctx = context.WithValue(ctx, userIDKey{}, userID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userID(r *http.Request) string {
	id, _ := r.Context().Value(userIDKey{}).(string) //nolint:errcheck // Set by userScope.

	return id
}

// invalidate drops cached insights of a user after a successful write.
func (h *handler) invalidate(ctx context.Context, userID string) {
	if h.invalidator == nil {
		return
	}

	n, err := h.invalidator.InvalidateUser(ctx, userID)
	if err != nil {
		h.log.Warn(ctx, "failed to invalidate user cache", "error", err)

		return
	}

	h.log.Debug(ctx, "user cache invalidated", "removed", n)
}

func (h *handler) clearCache(w http.ResponseWriter, r *http.Request) {
	if h.invalidator == nil {
		h.respondJSON(w, r, http.StatusOK, map[string]int{"removed": 0})

		return
	}

	n, err := h.invalidator.InvalidateUser(r.Context(), userID(r))
	if err != nil {
		h.fail(w, r, err)

		return
	}

	h.respondJSON(w, r, http.StatusOK, map[string]int{"removed": n})
}
