package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ecanov/bienestar-api/internal/auth"
	"github.com/ecanov/bienestar-api/internal/calendar"
	"github.com/ecanov/bienestar-api/internal/metrics"
	"github.com/ecanov/bienestar-api/internal/service"
)

// ChatHandler serves the wellbeing assistant and the calendar lookup.
type ChatHandler struct {
	chat      *service.ChatService
	calendar  *calendar.Client
	collector *metrics.Collector
	logger    *slog.Logger
}

func NewChatHandler(
	chat *service.ChatService,
	cal *calendar.Client,
	collector *metrics.Collector,
	logger *slog.Logger,
) *ChatHandler {
	return &ChatHandler{chat: chat, calendar: cal, collector: collector, logger: logger}
}

type chatRequest struct {
	Message string `json:"message"`
	// Context is optional prior-conversation text the frontend resends;
	// the assistant itself is stateless between requests.
	Context string `json:"context"`
}

type chatResponse struct {
	Response string `json:"response"`
}

// HandleChat answers one assistant message for the authenticated user.
//
// HTTP: POST /api/chat
func (h *ChatHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "valid authentication required",
		})
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "bad_request",
			Message: "invalid JSON body",
		})
		return
	}

	message := req.Message
	if ctx := strings.TrimSpace(req.Context); ctx != "" {
		message = "Contexto de la conversación anterior:\n" + ctx + "\n\n" + req.Message
	}

	reply, err := h.chat.Reply(r.Context(), user, message)
	if err != nil {
		writeError(w, err)
		return
	}

	h.collector.RecordChatRequest()
	writeJSON(w, http.StatusOK, chatResponse{Response: reply})
}

// HandleCalendar returns the authenticated user's next events. Users who
// never linked Google get an empty list.
//
// HTTP: GET /api/calendar
func (h *ChatHandler) HandleCalendar(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "valid authentication required",
		})
		return
	}

	events, err := h.calendar.UpcomingEvents(r.Context(), user, 5)
	if err != nil {
		h.logger.Error("calendar lookup failed",
			slog.String("userID", user.ID),
			slog.String("error", err.Error()),
		)
		writeJSON(w, http.StatusBadGateway, ErrorResponse{
			Error:   "bad_gateway",
			Message: "could not reach google calendar",
		})
		return
	}

	writeJSON(w, http.StatusOK, events)
}
