package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/qaindex/internal/domain"
	"github.com/kailas-cloud/qaindex/internal/domain/report"
	"github.com/kailas-cloud/qaindex/internal/domain/search/result"
	healthuc "github.com/kailas-cloud/qaindex/internal/usecase/health"
)

type mockSearcher struct {
	lastRaw []byte
	out     any
	err     error
}

func (m *mockSearcher) Handle(_ context.Context, raw []byte) (any, error) {
	m.lastRaw = raw
	return m.out, m.err
}

type mockLoader struct {
	path    string
	summary report.Load
	err     error
}

func (m *mockLoader) Load(_ context.Context, path string) (report.Load, error) {
	m.path = path
	return m.summary, m.err
}

type mockHealth struct {
	rep healthuc.Report
}

func (m *mockHealth) Check(_ context.Context) healthuc.Report { return m.rep }

func newTestRouter(s Searcher, l Loader, h HealthChecker, keys ...string) http.Handler {
	return NewServer(s, l, h, "data/qa.json", zap.NewNop()).Router(keys)
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) domain.ErrorResponse {
	t.Helper()
	var resp domain.ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	return resp
}

func TestPostSearch_PassesBody(t *testing.T) {
	s := &mockSearcher{out: []result.Result{{Document: "Q: a\nA: b", RelevanceScore: 0.9}}}
	h := newTestRouter(s, &mockLoader{}, &mockHealth{})

	rr := do(t, h, http.MethodPost, "/search", `{"query":"emission factor"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	if string(s.lastRaw) != `{"query":"emission factor"}` {
		t.Errorf("raw body: got %s", s.lastRaw)
	}
	var got []result.Result
	if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 1 || got[0].RelevanceScore != 0.9 {
		t.Errorf("results: got %+v", got)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}
}

func TestGetSearch_BuildsRequest(t *testing.T) {
	s := &mockSearcher{out: []result.Result{}}
	h := newTestRouter(s, &mockLoader{}, &mockHealth{})

	rr := do(t, h, http.MethodGet,
		"/search?query=loans&n_results=3&category_filter=attribution&banking_context_filter=Auto+Loans", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}

	var p map[string]any
	if err := json.Unmarshal(s.lastRaw, &p); err != nil {
		t.Fatalf("unmarshal forwarded request: %v", err)
	}
	if p["query"] != "loans" {
		t.Errorf("query: got %v", p["query"])
	}
	if p["n_results"] != float64(3) {
		t.Errorf("n_results: got %v", p["n_results"])
	}
	if p["category_filter"] != "attribution" {
		t.Errorf("category_filter: got %v", p["category_filter"])
	}
	if _, ok := p["confidence_filter"]; ok {
		t.Error("confidence_filter should be omitted")
	}
	bc, _ := p["banking_context_filter"].([]any)
	if len(bc) != 1 || bc[0] != "Auto Loans" {
		t.Errorf("banking_context_filter: got %v", p["banking_context_filter"])
	}
	if strings.TrimSpace(rr.Body.String()) != "[]" {
		t.Errorf("body: got %s, want []", rr.Body.String())
	}
}

func TestGetSearch_BadNResults(t *testing.T) {
	s := &mockSearcher{}
	h := newTestRouter(s, &mockLoader{}, &mockHealth{})

	rr := do(t, h, http.MethodGet, "/search?query=x&n_results=abc", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400", rr.Code)
	}
	if resp := decodeError(t, rr); resp.Type != "ValidationError" {
		t.Errorf("type: got %s", resp.Type)
	}
	if s.lastRaw != nil {
		t.Error("searcher should not be called")
	}
}

func TestGetStats_SendsStatsAction(t *testing.T) {
	s := &mockSearcher{out: report.Stats{TotalDocuments: 7, Categories: []string{}, ConfidenceLevels: []string{}}}
	h := newTestRouter(s, &mockLoader{}, &mockHealth{})

	rr := do(t, h, http.MethodGet, "/stats", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	if string(s.lastRaw) != `{"action":"stats"}` {
		t.Errorf("raw: got %s", s.lastRaw)
	}
	var st report.Stats
	if err := json.NewDecoder(rr.Body).Decode(&st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.TotalDocuments != 7 {
		t.Errorf("total: got %d", st.TotalDocuments)
	}
}

func TestErrorKindsMapToStatus(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		status   int
		wantType string
	}{
		{"validation", domain.WithKind(domain.KindValidation, domain.ErrInvalidRequest), 400, "ValidationError"},
		{"input", domain.WithKind(domain.KindInput, domain.ErrDatasetInvalid), 400, "InputError"},
		{"unavailable", domain.WithKind(domain.KindUnavailable, errors.New("down")), 503, "CollaboratorUnavailableError"},
		{"mutation", domain.WithKind(domain.KindMutation, domain.ErrCountMismatch), 500, "MutationError"},
		{"query", domain.WithKind(domain.KindQuery, errors.New("timeout")), 502, "QueryError"},
		{"unknown", errors.New("boom"), 500, "InternalError"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newTestRouter(&mockSearcher{err: tc.err}, &mockLoader{}, &mockHealth{})
			rr := do(t, h, http.MethodPost, "/search", `{"query":"x"}`)
			if rr.Code != tc.status {
				t.Errorf("status: got %d, want %d", rr.Code, tc.status)
			}
			if resp := decodeError(t, rr); resp.Type != tc.wantType {
				t.Errorf("type: got %s, want %s", resp.Type, tc.wantType)
			}
		})
	}
}

func TestUnknownErrorHidesCause(t *testing.T) {
	h := newTestRouter(&mockSearcher{err: errors.New("redis: secret detail")}, &mockLoader{}, &mockHealth{})
	rr := do(t, h, http.MethodPost, "/search", `{}`)
	if resp := decodeError(t, rr); resp.Error != "internal error" {
		t.Errorf("message: got %q", resp.Error)
	}
}

func TestPostIngest_UsesConfiguredPath(t *testing.T) {
	l := &mockLoader{summary: report.Load{Status: report.StatusSuccess, TotalDocuments: 12, CollectionCount: 12}}
	h := newTestRouter(&mockSearcher{}, l, &mockHealth{})

	rr := do(t, h, http.MethodPost, "/ingest", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	if l.path != "data/qa.json" {
		t.Errorf("path: got %q", l.path)
	}
	var got report.Load
	if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.CollectionCount != 12 {
		t.Errorf("collection_count: got %d", got.CollectionCount)
	}
}

func TestPostIngest_Error(t *testing.T) {
	l := &mockLoader{err: domain.WithKind(domain.KindInput, domain.ErrDatasetInvalid)}
	h := newTestRouter(&mockSearcher{}, l, &mockHealth{})

	rr := do(t, h, http.MethodPost, "/ingest", "")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", rr.Code)
	}
}

func TestHealthCheck_Status(t *testing.T) {
	tests := []struct {
		status healthuc.Status
		code   int
	}{
		{healthuc.Healthy, http.StatusOK},
		{healthuc.Degraded, http.StatusServiceUnavailable},
		{healthuc.Unhealthy, http.StatusServiceUnavailable},
	}
	for _, tc := range tests {
		t.Run(string(tc.status), func(t *testing.T) {
			hc := &mockHealth{rep: healthuc.Report{
				Status: tc.status,
				Checks: map[string]healthuc.CheckResult{"database": healthuc.CheckOK},
			}}
			h := newTestRouter(&mockSearcher{}, &mockLoader{}, hc, "secret")
			rr := do(t, h, http.MethodGet, "/health", "")
			if rr.Code != tc.code {
				t.Errorf("status: got %d, want %d", rr.Code, tc.code)
			}
		})
	}
}

func TestRouter_RequiresAuth(t *testing.T) {
	h := newTestRouter(&mockSearcher{out: []result.Result{}}, &mockLoader{}, &mockHealth{}, "secret")

	rr := do(t, h, http.MethodGet, "/stats", "")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d, want 401", rr.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/stats", http.NoBody)
	req.Header.Set("Authorization", "Bearer secret")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("authorized status: got %d, want 200", rr.Code)
	}
}

func TestRouter_NotFound(t *testing.T) {
	h := newTestRouter(&mockSearcher{}, &mockLoader{}, &mockHealth{})
	rr := do(t, h, http.MethodGet, "/collections", "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", rr.Code)
	}
}

type panicSearcher struct{}

func (panicSearcher) Handle(context.Context, []byte) (any, error) { panic("kaboom") }

func TestRouter_RecoversPanic(t *testing.T) {
	h := newTestRouter(panicSearcher{}, &mockLoader{}, &mockHealth{})
	rr := do(t, h, http.MethodPost, "/search", `{}`)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status: got %d, want 500", rr.Code)
	}
	if resp := decodeError(t, rr); resp.Error != "internal error" {
		t.Errorf("message: got %q", resp.Error)
	}
}
