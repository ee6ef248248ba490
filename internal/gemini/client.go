// Package gemini is a minimal REST client for Google's generative
// language API, covering exactly what the chat assistant needs: text
// generation with a system instruction and one round of function calling.
//
// The official SDK pulls in a large dependency tree for what is, here,
// a single JSON POST. The wire format below mirrors the v1beta
// models/<model>:generateContent endpoint.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel   = "gemini-2.5-flash"
)

// ErrQuotaExhausted signals the free-tier rate limit. The chat handler
// turns this into a friendly "try again shortly" reply instead of a 500.
var ErrQuotaExhausted = errors.New("gemini: quota exhausted")

// Part is one piece of a content turn: either text, a function call the
// model wants executed, or the caller's response to such a call.
type Part struct {
	Text             string            `json:"text,omitempty"`
	FunctionCall     *FunctionCall     `json:"functionCall,omitempty"`
	FunctionResponse *FunctionResponse `json:"functionResponse,omitempty"`
}

// Content is one turn of the conversation. Role is "user" or "model".
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// FunctionCall is the model asking for a declared tool to be run.
type FunctionCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// FunctionResponse carries a tool result back to the model.
type FunctionResponse struct {
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

// FunctionDeclaration describes a callable tool to the model. Parameters
// is an OpenAPI-style schema object.
type FunctionDeclaration struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Client calls the generateContent endpoint for one fixed model.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a Client with the given API key.
func New(apiKey string, logger *slog.Logger) *Client {
	return &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		model:      defaultModel,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     logger,
	}
}

// NewWithBaseURL creates a Client pointed at a custom endpoint. Tests use
// this with an httptest server.
func NewWithBaseURL(apiKey, baseURL string, logger *slog.Logger) *Client {
	c := New(apiKey, logger)
	c.baseURL = baseURL
	return c
}

// request/response wire types, private to the package.

type generateRequest struct {
	SystemInstruction *Content  `json:"system_instruction,omitempty"`
	Contents          []Content `json:"contents"`
	Tools             []tool    `json:"tools,omitempty"`
}

type tool struct {
	FunctionDeclarations []FunctionDeclaration `json:"function_declarations"`
}

type generateResponse struct {
	Candidates []struct {
		Content Content `json:"content"`
	} `json:"candidates"`
	Error *apiError `json:"error"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// Generate sends one generateContent call and returns the first
// candidate's content turn.
//
// The caller owns the conversation: to answer a function call, append
// the returned model turn plus a user turn holding the FunctionResponse
// to contents and call Generate again.
func (c *Client) Generate(ctx context.Context, systemInstruction string, contents []Content, tools []FunctionDeclaration) (*Content, error) {
	reqBody := generateRequest{
		Contents: contents,
	}
	if systemInstruction != "" {
		reqBody.SystemInstruction = &Content{Parts: []Part{{Text: systemInstruction}}}
	}
	if len(tools) > 0 {
		reqBody.Tools = []tool{{FunctionDeclarations: tools}}
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("gemini: encoding request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("gemini: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gemini: calling generateContent: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("gemini: reading response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, ErrQuotaExhausted
	}

	var decoded generateResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("gemini: decoding response (status %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode != http.StatusOK {
		if decoded.Error != nil {
			if decoded.Error.Status == "RESOURCE_EXHAUSTED" {
				return nil, ErrQuotaExhausted
			}
			return nil, fmt.Errorf("gemini: generateContent failed: %s (status %d)", decoded.Error.Message, resp.StatusCode)
		}
		return nil, fmt.Errorf("gemini: generateContent returned status %d", resp.StatusCode)
	}

	if len(decoded.Candidates) == 0 {
		return nil, fmt.Errorf("gemini: response contained no candidates")
	}

	return &decoded.Candidates[0].Content, nil
}

// Text concatenates the text parts of a content turn.
func (c *Content) Text() string {
	var out string
	for _, p := range c.Parts {
		out += p.Text
	}
	return out
}

// FirstFunctionCall returns the first function call in the turn, if any.
func (c *Content) FirstFunctionCall() *FunctionCall {
	for _, p := range c.Parts {
		if p.FunctionCall != nil {
			return p.FunctionCall
		}
	}
	return nil
}
