// Package insights serves per-user finance insights, memoized in a TTL cache.
package insights

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bool64/ctxd"
	"github.com/bool64/stats"
	"github.com/vearutop/spendcache"
	"github.com/vearutop/spendcache/internal/advisor"
	"github.com/vearutop/spendcache/internal/ledger"
)

var errAdvisorDisabled = errors.New("advisor is disabled")

// Cached feature names.
//
// Keys carry the period a value is computed for: "<userId>:tips:<YYYY-MM>",
// "<userId>:insights:<period>:<YYYY-MM-DD>", "<userId>:budget-suggestions:<YYYY-MM>".
const (
	FeatureTips              = "tips"
	FeatureInsights          = "insights"
	FeatureBudgetSuggestions = "budget-suggestions"
)

const dateLayout = "2006-01-02"

// MetricFallback counts responses served with fallback payload.
const MetricFallback = "insights_fallback"

// DefaultTip is served when personalized tips are not available.
const DefaultTip = "Track your expenses regularly and set a monthly budget for your largest spending categories."

// Advisor completes prompts with a language model.
type Advisor interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// Config controls Service.
type Config struct {
	// Cache memoizes computed insights, in-memory cache with 10m TTL by default.
	Cache *cache.Aside

	// Logger is an instance of contextualized logger, can be nil.
	Logger ctxd.Logger

	// Stats is metrics collector, can be nil.
	Stats stats.Tracker

	// FallbackTip replaces DefaultTip.
	FallbackTip string

	// Clock returns current time, default time.Now.
	Clock func() time.Time
}

// Service computes insights from ledger data and advisor suggestions.
type Service struct {
	repo    ledger.Repository
	advisor Advisor
	cache   *cache.Aside
	log     ctxd.Logger
	stat    stats.Tracker
	config  Config
	now     func() time.Time
}

// NewService creates insights service.
func NewService(repo ledger.Repository, adv Advisor, cfg Config) *Service {
	if cfg.FallbackTip == "" {
		cfg.FallbackTip = DefaultTip
	}

	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	s := &Service{
		repo:    repo,
		advisor: adv,
		cache:   cfg.Cache,
		log:     cfg.Logger,
		stat:    cfg.Stats,
		config:  cfg,
		now:     cfg.Clock,
	}

	if s.log == nil {
		s.log = ctxd.NoOpLogger{}
	}

	if s.stat == nil {
		s.stat = stats.NoOp{}
	}

	if s.cache == nil {
		s.cache = cache.NewAside(cache.AsideConfig{
			Name:   "insights",
			Logger: cfg.Logger,
			Stats:  cfg.Stats,
		})
	}

	return s
}

// Cache returns cache of insights, it should be invalidated on user data changes.
func (s *Service) Cache() *cache.Aside {
	return s.cache
}

// Tips are natural-language suggestions.
type Tips struct {
	Tips        []string  `json:"tips"`
	GeneratedAt time.Time `json:"generatedAt"`
	Fallback    bool      `json:"fallback,omitempty"`
}

// Insights is a spending summary of a period with commentary.
type Insights struct {
	Summary     ledger.Summary `json:"summary"`
	Comments    []string       `json:"comments"`
	GeneratedAt time.Time      `json:"generatedAt"`
	Fallback    bool           `json:"fallback,omitempty"`
}

// BudgetSuggestions is a current month budget usage with suggestions.
type BudgetSuggestions struct {
	Month       string                `json:"month"`
	Budgets     []ledger.BudgetStatus `json:"budgets"`
	Suggestions []string              `json:"suggestions"`
	GeneratedAt time.Time             `json:"generatedAt"`
	Fallback    bool                  `json:"fallback,omitempty"`
}

const systemPrompt = "You are a personal finance assistant. " +
	"Reply with a JSON array of at most 3 short, actionable suggestions and nothing else."

// Tips returns suggestions based on current month spending.
//
// Failures are logged and masked with fallback tips that are not cached.
func (s *Service) Tips(ctx context.Context, userID string) Tips {
	now := s.now()
	key := cache.NewKey(userID, FeatureTips, now.Format(ledger.MonthLayout))

	v, err := s.cache.Get(ctx, key, func(ctx context.Context) (interface{}, error) {
		sum, err := s.summary(ctx, userID, ledger.Month, now)
		if err != nil {
			return nil, err
		}

		tips, err := s.suggest(ctx, "Suggest how to improve my finances.\n"+describeSummary(sum))
		if err != nil {
			return nil, err
		}

		return Tips{Tips: tips, GeneratedAt: now}, nil
	})
	if err != nil {
		s.fallback(ctx, key, err)

		return Tips{Tips: []string{s.config.FallbackTip}, GeneratedAt: now, Fallback: true}
	}

	return v.(Tips)
}

// SpendingInsights returns summary of a period with commentary.
//
// Summary is still served if advisor fails.
func (s *Service) SpendingInsights(ctx context.Context, userID string, p ledger.Period) Insights {
	now := s.now()
	key := cache.NewKey(userID, FeatureInsights, string(p), p.Start(now).Format(dateLayout))

	var sum ledger.Summary

	v, err := s.cache.Get(ctx, key, func(ctx context.Context) (interface{}, error) {
		var err error

		sum, err = s.summary(ctx, userID, p, now)
		if err != nil {
			return nil, err
		}

		comments, err := s.suggest(ctx, "Comment on my spending for the last "+string(p)+".\n"+describeSummary(sum))
		if err != nil {
			return nil, err
		}

		return Insights{Summary: sum, Comments: comments, GeneratedAt: now}, nil
	})
	if err != nil {
		s.fallback(ctx, key, err)

		if sum.Period == "" {
			sum = ledger.Summary{Period: p, ByCategory: []ledger.CategoryTotal{}}
		}

		return Insights{Summary: sum, Comments: []string{s.config.FallbackTip}, GeneratedAt: now, Fallback: true}
	}

	return v.(Insights)
}

// BudgetSuggestions returns usage of current month budgets with suggestions.
func (s *Service) BudgetSuggestions(ctx context.Context, userID string) BudgetSuggestions {
	now := s.now()
	month := now.Format(ledger.MonthLayout)
	key := cache.NewKey(userID, FeatureBudgetSuggestions, month)

	var usage []ledger.BudgetStatus

	v, err := s.cache.Get(ctx, key, func(ctx context.Context) (interface{}, error) {
		var err error

		usage, err = s.budgetUsage(ctx, userID, now)
		if err != nil {
			return nil, err
		}

		sum, err := s.summary(ctx, userID, ledger.Month, now)
		if err != nil {
			return nil, err
		}

		suggestions, err := s.suggest(ctx, "Suggest monthly budget limits per category.\n"+
			describeSummary(sum)+describeBudgets(usage))
		if err != nil {
			return nil, err
		}

		return BudgetSuggestions{Month: month, Budgets: usage, Suggestions: suggestions, GeneratedAt: now}, nil
	})
	if err != nil {
		s.fallback(ctx, key, err)

		if usage == nil {
			usage = []ledger.BudgetStatus{}
		}

		return BudgetSuggestions{
			Month:       month,
			Budgets:     usage,
			Suggestions: []string{s.config.FallbackTip},
			GeneratedAt: now,
			Fallback:    true,
		}
	}

	return v.(BudgetSuggestions)
}

func (s *Service) fallback(ctx context.Context, key cache.Key, err error) {
	s.log.Warn(ctx, "serving fallback insights", "error", err, "key", key.String())
	s.stat.Add(ctx, MetricFallback, 1, "feature", key.Feature)
}

func (s *Service) summary(ctx context.Context, userID string, p ledger.Period, now time.Time) (ledger.Summary, error) {
	txs, err := s.repo.ListTransactions(ctx, userID, p.Start(now), time.Time{})
	if err != nil {
		return ledger.Summary{}, fmt.Errorf("failed to list transactions: %w", err)
	}

	return ledger.Summarize(txs, p, now), nil
}

func (s *Service) budgetUsage(ctx context.Context, userID string, now time.Time) ([]ledger.BudgetStatus, error) {
	budgets, err := s.repo.ListBudgets(ctx, userID, now.Format(ledger.MonthLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to list budgets: %w", err)
	}

	txs, err := s.repo.ListTransactions(ctx, userID, ledger.Month.Start(now), time.Time{})
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	return ledger.MonthlyBudgetUsage(budgets, txs, now), nil
}

func (s *Service) suggest(ctx context.Context, prompt string) ([]string, error) {
	if s.advisor == nil {
		return nil, errAdvisorDisabled
	}

	out, err := s.advisor.Complete(ctx, systemPrompt, prompt)
	if err != nil {
		return nil, err
	}

	return advisor.ParseTips(out)
}

func describeSummary(sum ledger.Summary) string {
	b := strings.Builder{}

	fmt.Fprintf(&b, "Period: %s since %s. Income: %s. Expenses: %s. Net: %s.\n",
		sum.Period, sum.From.Format(dateLayout), sum.Income.StringFixed(2),
		sum.Expense.StringFixed(2), sum.Net.StringFixed(2))

	for _, c := range sum.ByCategory {
		fmt.Fprintf(&b, "- %s: %s (%s%%)\n", c.Category, c.Amount.StringFixed(2), c.Share.String())
	}

	return b.String()
}

func describeBudgets(usage []ledger.BudgetStatus) string {
	b := strings.Builder{}

	for _, u := range usage {
		fmt.Fprintf(&b, "Budget %s: limit %s, spent %s (%s%%).\n",
			u.Category, u.Limit.StringFixed(2), u.Spent.StringFixed(2), u.Percent.String())
	}

	return b.String()
}
