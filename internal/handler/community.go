package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/ecanov/bienestar-api/internal/auth"
	"github.com/ecanov/bienestar-api/internal/service"
)

// CommunityHandler serves the shared post feed.
type CommunityHandler struct {
	community *service.CommunityService
	logger    *slog.Logger
}

func NewCommunityHandler(community *service.CommunityService, logger *slog.Logger) *CommunityHandler {
	return &CommunityHandler{community: community, logger: logger}
}

type postRequest struct {
	Content string `json:"content"`
	Author  string `json:"author"`
}

// HandleCreate publishes a post as the authenticated user.
//
// HTTP: POST /api/community
func (h *CommunityHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "valid authentication required",
		})
		return
	}

	var req postRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "bad_request",
			Message: "invalid JSON body",
		})
		return
	}

	post, err := h.community.Post(r.Context(), user, req.Content, req.Author)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, post)
}

// HandleList returns the feed, newest first.
//
// HTTP: GET /api/community?limit=50&offset=0
func (h *CommunityHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit, offset := listParams(r)
	posts, err := h.community.List(r.Context(), limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, posts)
}
