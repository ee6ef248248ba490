package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ecanov/bienestar-api/internal/auth"
	"github.com/ecanov/bienestar-api/internal/service"
)

// MoodHandler serves the personal mood journal. Both endpoints sit
// behind RequireAuth; the user always comes from the context, never from
// the request body.
type MoodHandler struct {
	moods  *service.MoodService
	logger *slog.Logger
}

func NewMoodHandler(moods *service.MoodService, logger *slog.Logger) *MoodHandler {
	return &MoodHandler{moods: moods, logger: logger}
}

type moodRequest struct {
	Mood string `json:"mood"`
	Note string `json:"note"`
}

// HandleCreate records a mood entry for the authenticated user.
//
// HTTP: POST /api/mood
func (h *MoodHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "valid authentication required",
		})
		return
	}

	var req moodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "bad_request",
			Message: "invalid JSON body",
		})
		return
	}

	entry, err := h.moods.Log(r.Context(), user.ID, req.Mood, req.Note)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, entry)
}

// HandleList returns the authenticated user's entries, newest first.
// limit and offset come from the query string; out-of-range values are
// clamped by the service.
//
// HTTP: GET /api/mood?limit=50&offset=0
func (h *MoodHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "valid authentication required",
		})
		return
	}

	limit, offset := listParams(r)
	entries, err := h.moods.List(r.Context(), user.ID, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, entries)
}

// listParams parses limit and offset from the query string. Unparseable
// values fall back to zero and let the service apply its defaults.
func listParams(r *http.Request) (limit, offset int) {
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	return limit, offset
}
