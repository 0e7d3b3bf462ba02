package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/atlas-kb/docquery/internal/domain"
	healthuc "github.com/atlas-kb/docquery/internal/usecase/health"
	queryuc "github.com/atlas-kb/docquery/internal/usecase/query"
)

// --- Fakes wired through the real services ---

type fakeIndex struct {
	hits      []domain.DocumentHit
	searchErr error
	healthErr error
	pingErr   error
}

func (f *fakeIndex) HybridSearch(
	_ context.Context, _ string, _ []float32, _ domain.SearchFilter, _ int,
) ([]domain.DocumentHit, error) {
	return f.hits, f.searchErr
}

func (f *fakeIndex) LexicalSearch(
	_ context.Context, _ string, _ domain.SearchFilter, _ int,
) ([]domain.DocumentHit, error) {
	return f.hits, f.searchErr
}

func (f *fakeIndex) HealthCheck(context.Context) error { return f.healthErr }
func (f *fakeIndex) Ping(context.Context) error        { return f.pingErr }

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(context.Context, string) (domain.EmbeddingResult, error) {
	v := make([]float32, domain.VectorDimensions)
	v[0] = 1
	return domain.EmbeddingResult{Embedding: v}, nil
}

type fakeGenerator struct {
	answer  string
	err     error
	prompts []string
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.answer, f.err
}

func newTestRouter(idx *fakeIndex, gen *fakeGenerator) http.Handler {
	querySvc := queryuc.New(idx, fakeEmbedder{}, gen, queryuc.Options{})
	healthSvc := healthuc.New(idx, nil, nil)
	server := NewServer(querySvc, healthSvc, zap.NewNop())

	r := chi.NewRouter()
	server.Register(r)
	return r
}

func postQuery(t *testing.T, handler http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", "/api/v1/query", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) (envelope, map[string]any) {
	t.Helper()
	var env envelope
	raw := struct {
		Success   bool           `json:"success"`
		Data      map[string]any `json:"data"`
		Error     *apiError      `json:"error"`
		Timestamp string         `json:"timestamp"`
	}{}
	if err := json.Unmarshal(rr.Body.Bytes(), &raw); err != nil {
		t.Fatalf("decode envelope: %v\n%s", err, rr.Body.String())
	}
	env = envelope{Success: raw.Success, Error: raw.Error, Timestamp: raw.Timestamp}
	return env, raw.Data
}

// --- Tests ---

func TestHandleQuery_Success(t *testing.T) {
	idx := &fakeIndex{hits: []domain.DocumentHit{
		{ID: "d1", Title: "Annual Report", Type: "pdf", Content: "revenue grew", Score: 0.9},
	}}
	handler := newTestRouter(idx, &fakeGenerator{answer: "Revenue grew."})

	rr := postQuery(t, handler, `{"query":"what was revenue in 2021?"}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("got %d, want 200: %s", rr.Code, rr.Body.String())
	}
	env, data := decodeEnvelope(t, rr)
	if !env.Success {
		t.Error("expected success=true")
	}
	if env.Timestamp == "" {
		t.Error("expected timestamp")
	}
	if data["answer"] != "Revenue grew." {
		t.Errorf("unexpected answer: %v", data["answer"])
	}
	if data["totalHits"] != float64(1) {
		t.Errorf("unexpected totalHits: %v", data["totalHits"])
	}
	sources, ok := data["sources"].([]any)
	if !ok || len(sources) != 1 {
		t.Fatalf("unexpected sources: %v", data["sources"])
	}
	src := sources[0].(map[string]any)
	if src["id"] != "d1" || src["relevanceScore"] == nil {
		t.Errorf("unexpected source shape: %v", src)
	}
	if data["queryId"] == "" {
		t.Error("expected queryId")
	}
}

func TestHandleQuery_InvalidJSON(t *testing.T) {
	handler := newTestRouter(&fakeIndex{}, &fakeGenerator{answer: "ok"})

	rr := postQuery(t, handler, `{"query":`)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("got %d, want 400", rr.Code)
	}
	env, _ := decodeEnvelope(t, rr)
	if env.Success || env.Error == nil || env.Error.Code != "bad_request" {
		t.Errorf("unexpected error envelope: %+v", env.Error)
	}
}

func TestHandleQuery_EmptyQuery(t *testing.T) {
	handler := newTestRouter(&fakeIndex{}, &fakeGenerator{answer: "ok"})

	rr := postQuery(t, handler, `{"query":"   "}`)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("got %d, want 400: %s", rr.Code, rr.Body.String())
	}
	env, _ := decodeEnvelope(t, rr)
	if env.Error == nil || env.Error.Code != "invalid_query" {
		t.Errorf("unexpected error code: %+v", env.Error)
	}
}

func TestHandleQuery_QueryTooLong(t *testing.T) {
	handler := newTestRouter(&fakeIndex{}, &fakeGenerator{answer: "ok"})

	rr := postQuery(t, handler, `{"query":"`+strings.Repeat("x", 1001)+`"}`)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("got %d, want 400", rr.Code)
	}
}

func TestHandleQuery_IndexUnavailable(t *testing.T) {
	idx := &fakeIndex{healthErr: domain.ErrIndexUnavailable}
	handler := newTestRouter(idx, &fakeGenerator{answer: "ok"})

	rr := postQuery(t, handler, `{"query":"revenue"}`)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("got %d, want 503: %s", rr.Code, rr.Body.String())
	}
	env, _ := decodeEnvelope(t, rr)
	if env.Error == nil || env.Error.Code != "index_unavailable" {
		t.Errorf("unexpected error code: %+v", env.Error)
	}
}

func TestHandleQuery_GenerationFailureStillSucceeds(t *testing.T) {
	idx := &fakeIndex{hits: []domain.DocumentHit{
		{ID: "d1", Title: "Doc", Type: "pdf", Content: "text", Score: 1},
	}}
	handler := newTestRouter(idx, &fakeGenerator{err: errors.New("llm down")})

	rr := postQuery(t, handler, `{"query":"revenue"}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("got %d, want 200: %s", rr.Code, rr.Body.String())
	}
	env, data := decodeEnvelope(t, rr)
	if !env.Success {
		t.Error("expected success=true despite generation failure")
	}
	answer, _ := data["answer"].(string)
	if !strings.Contains(answer, "apologize") {
		t.Errorf("expected apology answer, got %q", answer)
	}
}

func TestHandleQuery_SearchFailuresYieldEmptySources(t *testing.T) {
	idx := &fakeIndex{searchErr: errors.New("index timeout")}
	handler := newTestRouter(idx, &fakeGenerator{answer: "no context"})

	rr := postQuery(t, handler, `{"query":"revenue"}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("got %d, want 200: %s", rr.Code, rr.Body.String())
	}
	_, data := decodeEnvelope(t, rr)
	sources, ok := data["sources"].([]any)
	if !ok {
		t.Fatalf("expected sources array (not null): %v", data["sources"])
	}
	if len(sources) != 0 {
		t.Errorf("expected empty sources, got %d", len(sources))
	}
}

func TestHandleQuery_FiltersAndHistoryAccepted(t *testing.T) {
	idx := &fakeIndex{hits: []domain.DocumentHit{{ID: "d1", Title: "Doc", Type: "pdf", Score: 1}}}
	handler := newTestRouter(idx, &fakeGenerator{answer: "ok"})

	body := `{
		"query": "revenue by department",
		"filters": {
			"documentTypes": ["pdf"],
			"departments": ["sales"],
			"dateRange": {"start": 1600000000000, "end": 1700000000000}
		},
		"chatHistory": [
			{"role": "user", "content": "hi"},
			{"role": "assistant", "content": "hello"}
		],
		"useVectorSearch": false,
		"maxResults": 5
	}`
	rr := postQuery(t, handler, body)

	if rr.Code != http.StatusOK {
		t.Fatalf("got %d, want 200: %s", rr.Code, rr.Body.String())
	}
}

func TestHandleQuery_WireFieldNames(t *testing.T) {
	idx := &fakeIndex{hits: []domain.DocumentHit{{ID: "d1", Title: "Doc", Type: "pdf", Score: 1}}}
	gen := &fakeGenerator{answer: "ok"}
	handler := newTestRouter(idx, gen)

	body := `{
		"query": "revenue",
		"chatHistory": [{"role": "user", "content": "earlier question about margins"}]
	}`
	rr := postQuery(t, handler, body)

	if rr.Code != http.StatusOK {
		t.Fatalf("got %d, want 200: %s", rr.Code, rr.Body.String())
	}
	_, data := decodeEnvelope(t, rr)
	if _, ok := data["queryTime"]; !ok {
		t.Error(`expected "queryTime" in response data`)
	}
	if _, ok := data["queryTimeMs"]; ok {
		t.Error(`unexpected "queryTimeMs" in response data`)
	}
	if len(gen.prompts) != 1 || !strings.Contains(gen.prompts[0], "earlier question about margins") {
		t.Error("expected chatHistory turns to reach the prompt")
	}
}

func TestHandleHealth_Healthy(t *testing.T) {
	handler := newTestRouter(&fakeIndex{}, &fakeGenerator{answer: "ok"})

	req := httptest.NewRequest("GET", "/health", http.NoBody)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("got %d, want 200", rr.Code)
	}
	_, data := decodeEnvelope(t, rr)
	if data["status"] != "ok" {
		t.Errorf("unexpected status: %v", data["status"])
	}
}

func TestHandleHealth_IndexDown(t *testing.T) {
	handler := newTestRouter(&fakeIndex{pingErr: errors.New("refused")}, &fakeGenerator{answer: "ok"})

	req := httptest.NewRequest("GET", "/health", http.NoBody)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("got %d, want 503", rr.Code)
	}
	_, data := decodeEnvelope(t, rr)
	if data["status"] != "error" {
		t.Errorf("unexpected status: %v", data["status"])
	}
	checks, _ := data["checks"].(map[string]any)
	if checks["index"] != "error" {
		t.Errorf("expected index check error, got %v", checks)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	handler := newTestRouter(&fakeIndex{}, &fakeGenerator{answer: "ok"})

	req := httptest.NewRequest("GET", "/metrics", http.NoBody)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("got %d, want 200", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "go_") {
		t.Error("expected prometheus exposition output")
	}
}
