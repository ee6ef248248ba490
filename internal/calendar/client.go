// Package calendar calls the Google Calendar API on behalf of users who
// granted the calendar.events scope during Google login.
//
// The stored access/refresh token pair becomes an oauth2.TokenSource, so
// expired access tokens refresh transparently as long as a refresh token
// is on file. There is no application-level calendar state: every call
// reads or writes the user's primary Google calendar directly.
package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/ecanov/bienestar-api/internal/model"
)

const defaultBaseURL = "https://www.googleapis.com/calendar/v3"

// Event is the slice of a Google Calendar event the API exposes.
// Start and End are RFC 3339 instants, or bare dates for all-day events.
type Event struct {
	ID      string `json:"id"`
	Summary string `json:"summary"`
	Start   string `json:"start"`
	End     string `json:"end"`
	Link    string `json:"link,omitempty"`
}

// Client issues Calendar API calls with per-user credentials.
type Client struct {
	oauth   *oauth2.Config
	baseURL string
	logger  *slog.Logger
}

// New creates a Client. The OAuth client credentials are the same ones
// the login flow uses; they let the token source refresh access tokens.
func New(clientID, clientSecret string, logger *slog.Logger) *Client {
	return &Client{
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     google.Endpoint,
		},
		baseURL: defaultBaseURL,
		logger:  logger,
	}
}

// NewWithBaseURL creates a Client pointed at a custom endpoint, for tests.
func NewWithBaseURL(clientID, clientSecret, baseURL string, logger *slog.Logger) *Client {
	c := New(clientID, clientSecret, logger)
	c.baseURL = baseURL
	return c
}

// httpClient builds an authorized *http.Client from the user's stored
// provider tokens. The zero Expiry marks the access token as possibly
// stale, so the token source refreshes it on first use when a refresh
// token is available.
func (c *Client) httpClient(ctx context.Context, user *model.User) *http.Client {
	token := &oauth2.Token{
		AccessToken:  user.GoogleAccessToken,
		RefreshToken: user.GoogleRefreshToken,
		Expiry:       time.Now().Add(-time.Minute),
	}
	if user.GoogleRefreshToken == "" {
		// No refresh token: use the access token as-is until it dies.
		token.Expiry = time.Time{}
	}
	return c.oauth.Client(ctx, token)
}

// UpcomingEvents returns the next max events on the user's primary
// calendar, soonest first. Users without stored tokens get an empty
// list, not an error: the frontend treats "no calendar" and "empty
// calendar" identically.
func (c *Client) UpcomingEvents(ctx context.Context, user *model.User, max int) ([]Event, error) {
	if !user.HasGoogleTokens() {
		return []Event{}, nil
	}

	q := url.Values{}
	q.Set("timeMin", time.Now().UTC().Format(time.RFC3339))
	q.Set("maxResults", strconv.Itoa(max))
	q.Set("singleEvents", "true")
	q.Set("orderBy", "startTime")

	reqURL := fmt.Sprintf("%s/calendars/primary/events?%s", c.baseURL, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("calendar: building list request: %w", err)
	}

	resp, err := c.httpClient(ctx, user).Do(req)
	if err != nil {
		return nil, fmt.Errorf("calendar: listing events: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("calendar: list events returned status %d", resp.StatusCode)
	}

	var decoded struct {
		Items []struct {
			ID       string `json:"id"`
			Summary  string `json:"summary"`
			HTMLLink string `json:"htmlLink"`
			Start    struct {
				DateTime string `json:"dateTime"`
				Date     string `json:"date"`
			} `json:"start"`
			End struct {
				DateTime string `json:"dateTime"`
				Date     string `json:"date"`
			} `json:"end"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("calendar: decoding event list: %w", err)
	}

	events := make([]Event, 0, len(decoded.Items))
	for _, it := range decoded.Items {
		start := it.Start.DateTime
		if start == "" {
			start = it.Start.Date // all-day event
		}
		end := it.End.DateTime
		if end == "" {
			end = it.End.Date
		}
		events = append(events, Event{
			ID:      it.ID,
			Summary: it.Summary,
			Start:   start,
			End:     end,
			Link:    it.HTMLLink,
		})
	}

	return events, nil
}

// CreateEvent inserts an event on the user's primary calendar and
// returns its htmlLink. start and end are RFC 3339 instants interpreted
// as UTC.
func (c *Client) CreateEvent(ctx context.Context, user *model.User, summary, start, end, description string) (string, error) {
	if !user.HasGoogleTokens() {
		return "", fmt.Errorf("calendar: user %s has no google credentials", user.ID)
	}

	body := map[string]any{
		"summary":     summary,
		"description": description,
		"start":       map[string]string{"dateTime": start, "timeZone": "UTC"},
		"end":         map[string]string{"dateTime": end, "timeZone": "UTC"},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("calendar: encoding event: %w", err)
	}

	reqURL := c.baseURL + "/calendars/primary/events"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("calendar: building insert request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient(ctx, user).Do(req)
	if err != nil {
		return "", fmt.Errorf("calendar: inserting event: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("calendar: insert event returned status %d", resp.StatusCode)
	}

	var created struct {
		HTMLLink string `json:"htmlLink"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("calendar: decoding created event: %w", err)
	}

	c.logger.Info("calendar event created",
		slog.String("userID", user.ID),
		slog.String("summary", summary),
	)

	return created.HTMLLink, nil
}
