package analytics

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/decoynet/decoy-chat-platform/internal/store"
	"github.com/decoynet/decoy-chat-platform/pkg/logging"
)

func newTestRouter(t *testing.T) (*chi.Mux, *store.MemoryStore) {
	t.Helper()
	storage := store.NewMemoryStore()
	handler := NewHandler(NewService(storage, nil, logging.New("error")), logging.New("error"))

	r := chi.NewRouter()
	r.Post("/conversations/{id}/classify", handler.Classify)
	r.Get("/conversations/{id}/classifications", handler.History)
	r.Get("/conversations/{id}/summary", handler.Summary)
	r.Get("/conversations/{id}/transcript", handler.Transcript)
	r.Get("/profiles/{id}/high-risk", handler.HighRisk)
	r.Get("/profiles/{id}/effectiveness", handler.Effectiveness)
	r.Post("/reports/analytics", handler.Report)
	return r, storage
}

func TestHandlerClassify(t *testing.T) {
	router, storage := newTestRouter(t)
	conv := seedConversation(t, storage, "p1", "verify your account now", "why?")

	req := httptest.NewRequest(http.MethodPost, "/conversations/"+conv.ID+"/classify", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var got store.AttackClassification
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if got.AttackType != "phishing" {
		t.Errorf("expected phishing, got %s", got.AttackType)
	}
}

func TestHandlerClassifyNotFound(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/conversations/missing/classify", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rr.Code)
	}
}

func TestHandlerSummary(t *testing.T) {
	router, storage := newTestRouter(t)
	conv := seedConversation(t, storage, "p1", "hello", "hi")

	req := httptest.NewRequest(http.MethodGet, "/conversations/"+conv.ID+"/summary", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var summary ConversationSummary
	if err := json.Unmarshal(rr.Body.Bytes(), &summary); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if summary.ConversationID != conv.ID || summary.MessageCount != 2 {
		t.Errorf("unexpected summary: %+v", summary)
	}
}

func TestHandlerTranscriptEmptyWithoutStore(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/conversations/any/transcript", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if body := strings.TrimSpace(rr.Body.String()); body != "[]" {
		t.Errorf("expected empty array, got %s", body)
	}
}

func TestHandlerHighRisk(t *testing.T) {
	router, storage := newTestRouter(t)
	seedConversation(t, storage, "p1", "verify and confirm your password account, click now")

	req := httptest.NewRequest(http.MethodGet, "/profiles/p1/high-risk", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var highRisk []HighRiskConversation
	if err := json.Unmarshal(rr.Body.Bytes(), &highRisk); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if len(highRisk) != 1 {
		t.Errorf("expected 1 high-risk conversation, got %d", len(highRisk))
	}
}

func TestHandlerEffectiveness(t *testing.T) {
	router, storage := newTestRouter(t)
	seedConversation(t, storage, "p1", "investment profit wire", "ok")

	req := httptest.NewRequest(http.MethodGet, "/profiles/p1/effectiveness", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var e BaitEffectiveness
	if err := json.Unmarshal(rr.Body.Bytes(), &e); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if e.ProfileID != "p1" {
		t.Errorf("unexpected effectiveness payload: %+v", e)
	}
}

func TestHandlerReport(t *testing.T) {
	router, storage := newTestRouter(t)
	seedConversation(t, storage, "p1", "you won the lottery prize", "no")

	req := httptest.NewRequest(http.MethodPost, "/reports/analytics", strings.NewReader(`{"profile_ids":["p1"]}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var report Report
	if err := json.Unmarshal(rr.Body.Bytes(), &report); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if report.TotalProfiles != 1 || report.TotalConversations != 1 {
		t.Errorf("unexpected report: %+v", report)
	}
}

func TestHandlerReportValidation(t *testing.T) {
	router, _ := newTestRouter(t)

	for _, body := range []string{`{`, `{"profile_ids":[]}`} {
		req := httptest.NewRequest(http.MethodPost, "/reports/analytics", strings.NewReader(body))
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("body %q: expected 400, got %d", body, rr.Code)
		}
	}
}
