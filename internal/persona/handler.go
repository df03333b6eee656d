package persona

import (
	"encoding/json"
	"net/http"

	"github.com/decoynet/decoy-chat-platform/pkg/logging"
)

// Handler exposes persona reply generation over HTTP.
type Handler struct {
	responder Responder
	logger    *logging.Logger
}

// NewHandler creates a persona handler.
func NewHandler(responder Responder, logger *logging.Logger) *Handler {
	if responder == nil {
		panic("persona: responder cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{responder: responder, logger: logger}
}

type replyRequest struct {
	Message string       `json:"message"`
	Traits  *TraitScores `json:"traits,omitempty"`
	History []string     `json:"history,omitempty"`
}

type replyResponse struct {
	Reply  string      `json:"reply"`
	Traits TraitScores `json:"traits"`
}

// Reply handles POST /personas/reply. When the caller omits trait scores
// they are estimated from the incoming message text.
func (h *Handler) Reply(w http.ResponseWriter, r *http.Request) {
	var req replyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Message == "" {
		http.Error(w, "message is required", http.StatusBadRequest)
		return
	}

	traits := TraitsFromText(req.Message)
	if req.Traits != nil {
		traits = *req.Traits
	}

	reply, err := h.responder.Reply(r.Context(), traits, req.Message, req.History)
	if err != nil {
		h.logger.Error("failed to generate reply", "error", err)
		http.Error(w, "Failed to generate reply", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(replyResponse{Reply: reply, Traits: traits}); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}
