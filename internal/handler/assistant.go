package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/pocketcal/internal/assistant"
	"github.com/dukerupert/pocketcal/internal/auth"
	"github.com/dukerupert/pocketcal/internal/model"
)

type AssistantHandler struct {
	service *assistant.Service
	logger  *slog.Logger
}

func NewAssistantHandler(svc *assistant.Service, logger *slog.Logger) *AssistantHandler {
	return &AssistantHandler{service: svc, logger: logger}
}

type chatRequest struct {
	Message string `json:"message"`
}

// Chat runs one message through the assistant. Failures inside the pipeline
// still produce a 200 with an apology in output_llm.
func (h *AssistantHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	msg := strings.TrimSpace(req.Message)
	if msg == "" {
		writeError(w, http.StatusBadRequest, "No message provided")
		return
	}

	reply := h.service.ProcessMessage(r.Context(), auth.UserID(r.Context()), msg)
	writeJSON(w, http.StatusOK, reply)
}

func (h *AssistantHandler) MarkProcessed(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	found, err := h.service.MarkProcessed(r.Context(), auth.UserID(r.Context()), id)
	if err != nil {
		h.logger.Error("mark interaction processed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update interaction")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "interaction not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *AssistantHandler) History(w http.ResponseWriter, r *http.Request) {
	turns, err := h.service.History(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("load chat history", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	if turns == nil {
		turns = []assistant.Turn{}
	}
	writeJSON(w, http.StatusOK, turns)
}

func (h *AssistantHandler) Pending(w http.ResponseWriter, r *http.Request) {
	pending, err := h.service.Pending(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("list pending interactions", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list interactions")
		return
	}
	if pending == nil {
		pending = []model.Interaction{}
	}
	writeJSON(w, http.StatusOK, pending)
}

func (h *AssistantHandler) DailyFact(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"fact": h.service.DailyFact(r.Context())})
}
