package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/xid"

	"github.com/ecanov/bienestar-api/internal/apperror"
	"github.com/ecanov/bienestar-api/internal/auth"
	"github.com/ecanov/bienestar-api/internal/config"
	"github.com/ecanov/bienestar-api/internal/metrics"
	"github.com/ecanov/bienestar-api/internal/service"
)

// stateCookie carries the anti-forgery state between the Google redirect
// and the callback. Short-lived; the whole round trip takes seconds.
const stateCookie = "oauth_state"

const stateTTL = 10 * time.Minute

// AuthHandler serves registration, login, and the Google OAuth flow.
type AuthHandler struct {
	auths     *service.AuthService
	tokens    *auth.TokenService
	google    *auth.GoogleProvider
	collector *metrics.Collector
	cfg       config.Config
	logger    *slog.Logger
}

func NewAuthHandler(
	auths *service.AuthService,
	tokens *auth.TokenService,
	google *auth.GoogleProvider,
	collector *metrics.Collector,
	cfg config.Config,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		auths:     auths,
		tokens:    tokens,
		google:    google,
		collector: collector,
		cfg:       cfg,
		logger:    logger,
	}
}

// registerRequest is the JSON body of POST /api/register.
type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// tokenResponse is the body of every successful login, shaped for
// bearer-token clients.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// HandleRegister creates a local account.
//
// HTTP: POST /api/register
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "bad_request",
			Message: "invalid JSON body",
		})
		return
	}

	user, err := h.auths.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	h.collector.RecordRegistration()
	writeJSON(w, http.StatusOK, user)
}

// HandleToken exchanges a username-or-email and password for a bearer
// token. The body is form-encoded, matching what password-grant clients
// send.
//
// HTTP: POST /api/token
func (h *AuthHandler) HandleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "bad_request",
			Message: "invalid form body",
		})
		return
	}

	login := r.PostFormValue("username")
	password := r.PostFormValue("password")

	user, err := h.auths.Login(r.Context(), login, password)
	if err != nil {
		writeError(w, err)
		return
	}

	token, err := h.tokens.GenerateWithTTL(user.Subject(), h.cfg.TokenTTL)
	if err != nil {
		h.logger.Error("failed to sign token",
			slog.String("userID", user.ID),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return
	}

	h.collector.RecordLogin("password")
	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
	})
}

// HandleMe returns the authenticated user.
//
// HTTP: GET /api/users/me (behind RequireAuth)
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		// RequireAuth puts the user there; reaching this means the route
		// was wired without the middleware.
		h.logger.Error("no user in context on authenticated route",
			slog.String("path", r.URL.Path),
		)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "an internal error occurred",
		})
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleGoogleLogin starts the OAuth flow: mint a one-shot state, stash
// it in a cookie, and send the browser to Google's consent page.
//
// HTTP: GET /auth/google
func (h *AuthHandler) HandleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   int(stateTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.google.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGoogleCallback finishes the OAuth flow: check the state against
// the cookie, exchange the code, resolve the user, and bounce the
// browser back to the frontend with a token in the query string.
//
// HTTP: GET /auth/google/callback
func (h *AuthHandler) HandleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	if errMsg := r.URL.Query().Get("error"); errMsg != "" {
		// The user declined consent, or Google rejected the request.
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "bad_request",
			Message: fmt.Sprintf("google login failed: %s", errMsg),
		})
		return
	}

	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || cookie.Value != r.URL.Query().Get("state") {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "bad_request",
			Message: "invalid oauth state",
		})
		return
	}

	// The state is single-use.
	http.SetCookie(w, &http.Cookie{
		Name: stateCookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true,
	})

	code := r.URL.Query().Get("code")
	if code == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "bad_request",
			Message: "missing authorization code",
		})
		return
	}

	gu, err := h.google.Exchange(r.Context(), code)
	if err != nil {
		// A rejected or replayed code is a bad request from the caller's
		// side of the flow, not a server fault.
		h.logger.Error("google code exchange failed", slog.String("error", err.Error()))
		writeError(w, apperror.BadRequest(fmt.Sprintf("google login failed: %v", err)))
		return
	}

	user, outcome, err := h.auths.LoginWithGoogle(r.Context(), gu)
	if err != nil {
		writeError(w, err)
		return
	}

	token, err := h.tokens.GenerateWithTTL(user.Subject(), h.cfg.TokenTTL)
	if err != nil {
		h.logger.Error("failed to sign token",
			slog.String("userID", user.ID),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return
	}

	h.collector.RecordLogin("google")
	h.logger.Info("google login completed",
		slog.String("userID", user.ID),
		slog.String("outcome", outcome.String()),
	)

	redirect := fmt.Sprintf("%s/login/callback?token=%s",
		h.cfg.FrontendURL, url.QueryEscape(token))
	http.Redirect(w, r, redirect, http.StatusTemporaryRedirect)
}
