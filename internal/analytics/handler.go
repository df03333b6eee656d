package analytics

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/decoynet/decoy-chat-platform/internal/store"
	"github.com/decoynet/decoy-chat-platform/pkg/logging"
)

// Handler wires HTTP requests to the analytics service.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates an analytics handler.
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// Classify handles POST /conversations/{id}/classify.
func (h *Handler) Classify(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "id")

	classification, err := h.service.Classify(r.Context(), conversationID)
	if err != nil {
		h.writeError(w, "classify conversation", err)
		return
	}
	h.writeJSON(w, http.StatusOK, classification)
}

// History handles GET /conversations/{id}/classifications.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "id")

	history, err := h.service.ClassificationHistory(r.Context(), conversationID)
	if err != nil {
		h.writeError(w, "load classification history", err)
		return
	}
	h.writeJSON(w, http.StatusOK, history)
}

// Summary handles GET /conversations/{id}/summary.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "id")

	summary, err := h.service.Summary(r.Context(), conversationID)
	if err != nil {
		h.writeError(w, "summarize conversation", err)
		return
	}
	h.writeJSON(w, http.StatusOK, summary)
}

// Transcript handles GET /conversations/{id}/transcript.
func (h *Handler) Transcript(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "id")

	messages, err := h.service.Transcript(r.Context(), conversationID, 0)
	if err != nil {
		h.writeError(w, "load transcript", err)
		return
	}
	if messages == nil {
		messages = []store.TranscriptMessage{}
	}
	h.writeJSON(w, http.StatusOK, messages)
}

// HighRisk handles GET /profiles/{id}/high-risk.
func (h *Handler) HighRisk(w http.ResponseWriter, r *http.Request) {
	profileID := chi.URLParam(r, "id")

	conversations, err := h.service.HighRisk(r.Context(), profileID)
	if err != nil {
		h.writeError(w, "identify high-risk conversations", err)
		return
	}
	h.writeJSON(w, http.StatusOK, conversations)
}

// Effectiveness handles GET /profiles/{id}/effectiveness.
func (h *Handler) Effectiveness(w http.ResponseWriter, r *http.Request) {
	profileID := chi.URLParam(r, "id")

	effectiveness, err := h.service.ProfileEffectiveness(r.Context(), profileID)
	if err != nil {
		h.writeError(w, "compute bait effectiveness", err)
		return
	}
	h.writeJSON(w, http.StatusOK, effectiveness)
}

type reportRequest struct {
	ProfileIDs []string `json:"profile_ids"`
}

// Report handles POST /reports/analytics.
func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.ProfileIDs) == 0 {
		http.Error(w, "profile_ids is required", http.StatusBadRequest)
		return
	}

	report, err := h.service.BuildReport(r.Context(), req.ProfileIDs)
	if err != nil {
		h.writeError(w, "build analytics report", err)
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}

func (h *Handler) writeError(w http.ResponseWriter, action string, err error) {
	if errors.Is(err, store.ErrConversationNotFound) {
		http.Error(w, "Conversation not found", http.StatusNotFound)
		return
	}
	h.logger.Error("failed to "+action, "error", err)
	http.Error(w, "Failed to "+action, http.StatusInternalServerError)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}
