package ingest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/decoynet/decoy-chat-platform/internal/store"
	"github.com/decoynet/decoy-chat-platform/pkg/logging"
)

// Handler wires HTTP requests to the ingestion manager.
type Handler struct {
	manager *Manager
	logger  *logging.Logger
}

// NewHandler creates an ingest handler.
func NewHandler(manager *Manager, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{manager: manager, logger: logger}
}

type submitRequest struct {
	ConversationID string `json:"conversation_id"`
	Sender         string `json:"sender"`
	Text           string `json:"text"`
	Priority       string `json:"priority,omitempty"`
}

type submitResponse struct {
	Accepted bool `json:"accepted"`
}

// Submit handles POST /messages. Accepted messages are processed
// asynchronously; 429 and 503 signal the caller to retry later.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.ConversationID == "" || req.Text == "" {
		http.Error(w, "conversation_id and text are required", http.StatusBadRequest)
		return
	}
	sender := store.Sender(req.Sender)
	if sender != store.SenderAttacker && sender != store.SenderPersona {
		http.Error(w, "sender must be attacker or persona", http.StatusBadRequest)
		return
	}

	err := h.manager.AddMessage(req.ConversationID, sender, req.Text, ParsePriority(req.Priority))
	switch {
	case errors.Is(err, ErrRateLimited):
		http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
	case errors.Is(err, ErrQueueFull):
		http.Error(w, "Queue at capacity", http.StatusServiceUnavailable)
	case err != nil:
		h.logger.Error("failed to submit message", "error", err)
		http.Error(w, "Failed to submit message", http.StatusInternalServerError)
	default:
		h.writeJSON(w, http.StatusAccepted, submitResponse{Accepted: true})
	}
}

// Status handles GET /status.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.manager.Status())
}

// HealthCheck handles GET /health.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}
