package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"draftqa/internal/agent/core"
	"draftqa/internal/session"
)

type noopProvider struct{ t *testing.T }

func (p noopProvider) Generate(ctx context.Context, prompt string) (string, error) {
	p.t.Fatal("model called for a deterministic question")
	return "", nil
}

func (p noopProvider) Model() string { return "noop" }

type emptyRetriever struct{}

func (emptyRetriever) Search(ctx context.Context, query string, topK int, filter *core.RetrievalFilter) ([]core.RetrievedChunk, error) {
	return nil, nil
}

var testSecret = []byte("test-secret")

func newTestServer(t *testing.T) (*echo.Echo, session.Store) {
	t.Helper()
	sessions := session.NewInMemoryStore()
	synth := core.NewSynthesizer(noopProvider{t: t}, nil)
	orch := core.NewOrchestrator(core.NewPlanner(2), emptyRetriever{}, sessions, synth, nil, time.Minute, nil)

	e := echo.New()
	api := e.Group("/api")
	(&AnswerHandler{Orch: orch, Sessions: sessions}).Register(api, testSecret)
	(&SessionHandler{Sessions: sessions}).Register(api.Group("/session"), testSecret)
	return e, sessions
}

func doJSON(e *echo.Echo, method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestSessionObjectsLifecycle(t *testing.T) {
	e, _ := newTestServer(t)

	body := `{"objects":[
		{"type":"LINE","layer":"Highway","start":{"x":0,"y":0},"end":{"x":10,"y":0}},
		{"type":"POLYLINE","layer":"Windows","points":[{"x":1,"y":1},{"x":2,"y":2}]},
		{"type":"LINE","layer":"Windows"}
	]}`
	rec := doJSON(e, http.MethodPut, "/api/session/objects", body, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("put status = %d body=%s", rec.Code, rec.Body.String())
	}
	var put map[string]int
	_ = json.Unmarshal(rec.Body.Bytes(), &put)
	if put["count"] != 3 {
		t.Fatalf("count = %d, want 3", put["count"])
	}

	rec = doJSON(e, http.MethodGet, "/api/session/objects", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	var set core.SessionObjectSet
	_ = json.Unmarshal(rec.Body.Bytes(), &set)
	if len(set) != 3 {
		t.Fatalf("set size = %d, want 3", len(set))
	}

	rec = doJSON(e, http.MethodDelete, "/api/session/objects", "", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	rec = doJSON(e, http.MethodGet, "/api/session/objects", "", "")
	set = core.SessionObjectSet{}
	_ = json.Unmarshal(rec.Body.Bytes(), &set)
	if len(set) != 0 {
		t.Fatalf("set after delete = %v", set)
	}
}

func TestSessionObjectsValidation(t *testing.T) {
	e, _ := newTestServer(t)

	rec := doJSON(e, http.MethodPut, "/api/session/objects", `{"objects":[{"type":"LINE"}]}`, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for missing layer", rec.Code)
	}
}

func TestAnswerObjectCountAndReplacement(t *testing.T) {
	e, _ := newTestServer(t)

	body := `{"question":"How many objects are there? Reply with only the number.","objects":[
		{"type":"LINE","layer":"A"},{"type":"LINE","layer":"B"},{"type":"POLYLINE","layer":"A"}
	]}`
	rec := doJSON(e, http.MethodPost, "/api/answer", body, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	var answer core.Answer
	_ = json.Unmarshal(rec.Body.Bytes(), &answer)
	if answer.Text != "3" {
		t.Fatalf("answer = %q, want 3", answer.Text)
	}
	if answer.Plan.Strategy != core.StrategyObjectsOnly {
		t.Fatalf("strategy = %s", answer.Plan.Strategy)
	}

	// Inline objects replace the previous set wholesale.
	body = `{"question":"How many objects are there? Reply with only the number.","objects":[
		{"type":"LINE","layer":"A"}
	]}`
	rec = doJSON(e, http.MethodPost, "/api/answer", body, "")
	_ = json.Unmarshal(rec.Body.Bytes(), &answer)
	if answer.Text != "1" {
		t.Fatalf("answer after replacement = %q, want 1", answer.Text)
	}
}

func TestAnswerRequiresQuestion(t *testing.T) {
	e, _ := newTestServer(t)
	rec := doJSON(e, http.MethodPost, "/api/answer", `{}`, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func signToken(t *testing.T, sub string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": sub,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestIdentityIsolatesSessions(t *testing.T) {
	e, _ := newTestServer(t)

	rec := doJSON(e, http.MethodPut, "/api/session/objects",
		`{"objects":[{"type":"LINE","layer":"A"}]}`, signToken(t, "alice"))
	if rec.Code != http.StatusOK {
		t.Fatalf("alice put status = %d", rec.Code)
	}

	// Anonymous caller sees the default bucket, not alice's.
	rec = doJSON(e, http.MethodGet, "/api/session/objects", "", "")
	var set core.SessionObjectSet
	_ = json.Unmarshal(rec.Body.Bytes(), &set)
	if len(set) != 0 {
		t.Fatalf("anonymous set = %v, want empty", set)
	}

	rec = doJSON(e, http.MethodGet, "/api/session/objects", "", signToken(t, "alice"))
	_ = json.Unmarshal(rec.Body.Bytes(), &set)
	if len(set) != 1 {
		t.Fatalf("alice set = %v, want 1 object", set)
	}
}

func TestInvalidTokenRejected(t *testing.T) {
	e, _ := newTestServer(t)
	rec := doJSON(e, http.MethodGet, "/api/session/objects", "", "not-a-token")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}
