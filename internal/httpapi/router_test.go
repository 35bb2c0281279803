package httpapi_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bool64/ctxd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vearutop/spendcache"
	"github.com/vearutop/spendcache/internal/httpapi"
	"github.com/vearutop/spendcache/internal/insights"
	"github.com/vearutop/spendcache/internal/ledger"
)

type advisorMock struct {
	calls int64
}

func (a *advisorMock) Complete(ctx context.Context, system, prompt string) (string, error) {
	atomic.AddInt64(&a.calls, 1)

	return `["Spend less on food"]`, nil
}

type env struct {
	srv     *httptest.Server
	advisor *advisorMock
	aside   *cache.Aside
}

func newEnv(t *testing.T) *env {
	t.Helper()

	now := time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	repo := ledger.NewMemoryRepository()
	adv := &advisorMock{}
	aside := cache.NewAside(cache.AsideConfig{
		Name:        "insights",
		StoreConfig: cache.MemoryConfig{Clock: clock},
	})

	inv := &cache.Invalidator{Logger: ctxd.NoOpLogger{}}
	inv.Add(aside)

	h := httpapi.NewRouter(httpapi.Deps{
		Repository:  repo,
		Insights:    insights.NewService(repo, adv, insights.Config{Cache: aside, Clock: clock}),
		Invalidator: inv,
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("# metrics"))
		}),
		Clock: clock,
	})

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	return &env{srv: srv, advisor: adv, aside: aside}
}

func (e *env) do(t *testing.T, method, path, body string) (int, httpapi.Response) {
	t.Helper()

	req, err := http.NewRequest(method, e.srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)

	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	defer func() {
		require.NoError(t, resp.Body.Close())
	}()

	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var res httpapi.Response
	if len(b) > 0 && resp.Header.Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(b, &res), string(b))
	}

	return resp.StatusCode, res
}

func TestRouter_invalidateOnWrite(t *testing.T) {
	e := newEnv(t)

	status, resp := e.do(t, http.MethodGet, "/api/users/u1/tips", "")
	require.Equal(t, http.StatusOK, status)
	assert.True(t, resp.Success)
	assert.Equal(t, []interface{}{"Spend less on food"}, resp.Data.(map[string]interface{})["tips"])

	e.do(t, http.MethodGet, "/api/users/u1/tips", "")
	e.do(t, http.MethodGet, "/api/users/u1/insights?period=week", "")
	assert.Equal(t, int64(2), atomic.LoadInt64(&e.advisor.calls))

	// Other user is not affected by writes of u1.
	e.do(t, http.MethodGet, "/api/users/u2/tips", "")
	assert.Equal(t, int64(3), atomic.LoadInt64(&e.advisor.calls))

	status, resp = e.do(t, http.MethodPost, "/api/users/u1/transactions",
		`{"type":"expense","amount":"12.50","category":"food"}`)
	require.Equal(t, http.StatusCreated, status, resp)

	id := resp.Data.(map[string]interface{})["id"].(string)
	assert.NotEmpty(t, id)

	_, found := e.aside.Store().Get(context.Background(), "u1:tips:2024-05")
	assert.False(t, found)

	_, found = e.aside.Store().Get(context.Background(), "u2:tips:2024-05")
	assert.True(t, found)

	e.do(t, http.MethodGet, "/api/users/u1/tips", "")
	assert.Equal(t, int64(4), atomic.LoadInt64(&e.advisor.calls))

	status, _ = e.do(t, http.MethodPut, "/api/users/u1/transactions/"+id,
		`{"type":"expense","amount":"15","category":"food"}`)
	require.Equal(t, http.StatusOK, status)

	e.do(t, http.MethodGet, "/api/users/u1/tips", "")
	assert.Equal(t, int64(5), atomic.LoadInt64(&e.advisor.calls))

	status, _ = e.do(t, http.MethodDelete, "/api/users/u1/transactions/"+id, "")
	require.Equal(t, http.StatusNoContent, status)

	e.do(t, http.MethodGet, "/api/users/u1/tips", "")
	assert.Equal(t, int64(6), atomic.LoadInt64(&e.advisor.calls))

	status, resp = e.do(t, http.MethodDelete, "/api/users/u1/cache", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, map[string]interface{}{"removed": float64(1)}, resp.Data)
}

func TestRouter_transactions(t *testing.T) {
	e := newEnv(t)

	for _, body := range []string{
		`{"type":"income","amount":"1000","category":"salary","date":"2024-05-01T09:00:00Z"}`,
		`{"type":"expense","amount":"20","category":"food","date":"2024-05-10T09:00:00Z"}`,
		`{"type":"expense","amount":"30","category":"fun","date":"2024-04-10T09:00:00Z"}`,
	} {
		status, resp := e.do(t, http.MethodPost, "/api/users/u1/transactions", body)
		require.Equal(t, http.StatusCreated, status, resp)
	}

	status, resp := e.do(t, http.MethodGet, "/api/users/u1/transactions?from=2024-05-01&to=2024-05-10", "")
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, resp.Data, 2)

	status, resp = e.do(t, http.MethodGet, "/api/users/u1/transactions?from=May", "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, httpapi.CodeBadRequest, resp.Error.Code)

	status, resp = e.do(t, http.MethodGet, "/api/users/u1/transactions/missing", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, httpapi.CodeNotFound, resp.Error.Code)

	status, _ = e.do(t, http.MethodDelete, "/api/users/u1/transactions/missing", "")
	assert.Equal(t, http.StatusNotFound, status)

	status, resp = e.do(t, http.MethodGet, "/api/users/u1/insights", "")
	require.Equal(t, http.StatusOK, status)

	sum := resp.Data.(map[string]interface{})["summary"].(map[string]interface{})
	assert.Equal(t, "month", sum["period"])
	assert.Equal(t, "20", sum["expense"])
	assert.Equal(t, "1000", sum["income"])
}

func TestRouter_validation(t *testing.T) {
	e := newEnv(t)

	status, resp := e.do(t, http.MethodPost, "/api/users/u1/transactions",
		`{"type":"gift","amount":"-1"}`)
	require.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, httpapi.CodeValidationError, resp.Error.Code)
	assert.Equal(t, map[string]string{
		"type":     "must be one of: income expense",
		"amount":   "must be greater than 0",
		"category": "is required",
	}, resp.Error.Details)

	status, resp = e.do(t, http.MethodPost, "/api/users/u1/transactions", `{"unknown":1}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, httpapi.CodeBadRequest, resp.Error.Code)

	status, resp = e.do(t, http.MethodPut, "/api/users/u1/budgets",
		`{"category":"food","month":"May","limit":"100"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "must match format 2006-01", resp.Error.Details["month"])

	// Key separator in user id would let invalidation of "u1" reach entries of "u1:x".
	for _, path := range []string{
		"/api/users/u1:x/tips",
		"/api/users/u1:x/transactions",
		"/api/users/u1:/cache",
	} {
		method := http.MethodGet
		if strings.HasSuffix(path, "/cache") {
			method = http.MethodDelete
		}

		status, resp = e.do(t, method, path, "")
		assert.Equal(t, http.StatusBadRequest, status, path)
		require.NotNil(t, resp.Error, path)
		assert.Equal(t, httpapi.CodeBadRequest, resp.Error.Code)
		assert.Equal(t, "invalid user id", resp.Error.Message)
	}

	assert.Equal(t, int64(0), atomic.LoadInt64(&e.advisor.calls))

	status, resp = e.do(t, http.MethodGet, "/api/users/u1/insights?period=decade", "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, resp.Error.Message, "period must be one of")
}

func TestRouter_budgetsAndGoals(t *testing.T) {
	e := newEnv(t)

	status, resp := e.do(t, http.MethodPut, "/api/users/u1/budgets",
		`{"category":"food","month":"2024-05","limit":"300"}`)
	require.Equal(t, http.StatusOK, status, resp)

	status, resp = e.do(t, http.MethodGet, "/api/users/u1/budgets?month=2024-05", "")
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, resp.Data, 1)

	status, resp = e.do(t, http.MethodGet, "/api/users/u1/budget-suggestions", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "2024-05", resp.Data.(map[string]interface{})["month"])

	status, resp = e.do(t, http.MethodPost, "/api/users/u1/goals",
		`{"name":"bike","target":"500","saved":"100","monthlyContribution":"150"}`)
	require.Equal(t, http.StatusCreated, status, resp)

	g := resp.Data.(map[string]interface{})
	assert.Equal(t, float64(3), g["monthsLeft"])
	assert.Equal(t, "2024-08-15T12:00:00Z", g["eta"])

	status, resp = e.do(t, http.MethodGet, "/api/users/u1/goals", "")
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, resp.Data, 1)
}

func TestRouter_service(t *testing.T) {
	e := newEnv(t)

	status, resp := e.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, map[string]interface{}{"status": "healthy"}, resp.Data)

	status, _ = e.do(t, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, status)
}
