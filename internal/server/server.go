// Package server exposes the chatbot over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Yates-Labs/coursebot/internal/chatbot"
)

// maxBodySize caps the size of a /chat request body.
const maxBodySize = 1 << 20

// Chatbot is the question-answering backend served by the API.
type Chatbot interface {
	Ready() bool
	Ask(ctx context.Context, question string) (*chatbot.Result, error)
	Stats() chatbot.Stats
}

// APIError is a client-facing error rendered as {"error": message}.
type APIError struct {
	Status  int    `json:"-"`
	Message string `json:"error"`
}

func (e *APIError) Error() string { return e.Message }

var (
	errNotInitialized = &APIError{Status: http.StatusBadRequest, Message: "Chatbot system is not initialized"}
	errInvalidJSON    = &APIError{Status: http.StatusBadRequest, Message: "Invalid JSON body"}
	errNoQuestion     = &APIError{Status: http.StatusBadRequest, Message: "Question is required"}
	errEmptyQuestion  = &APIError{Status: http.StatusBadRequest, Message: "Question cannot be empty"}
	errRateLimited    = &APIError{Status: http.StatusTooManyRequests, Message: "Rate limit exceeded"}
	errInternal       = &APIError{Status: http.StatusInternalServerError, Message: "An unexpected error occurred while processing your request"}
)

// Options configures the HTTP surface.
type Options struct {
	// RateLimit is the global request rate in requests per second (0 = unlimited)
	RateLimit float64

	// AllowOrigin is the CORS Access-Control-Allow-Origin value (empty = "*")
	AllowOrigin string
}

// API serves the chat and health endpoints.
type API struct {
	bot    Chatbot
	logger *slog.Logger
	opts   Options
}

// NewAPI creates an API backed by bot.
func NewAPI(bot Chatbot, logger *slog.Logger, opts Options) *API {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.AllowOrigin == "" {
		opts.AllowOrigin = "*"
	}
	return &API{bot: bot, logger: logger.With("component", "server"), opts: opts}
}

// Handler returns the routed handler wrapped in the middleware chain.
func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /chat", a.handleChat)
	mux.HandleFunc("GET /healthz", a.handleHealth)

	var h http.Handler = mux
	h = rateLimitMiddleware(a.opts.RateLimit, h)
	h = corsMiddleware(a.opts.AllowOrigin, h)
	h = logMiddleware(a.logger, h)
	return h
}

type chatRequest struct {
	Question *string `json:"question"`
}

type chatResponse struct {
	Answer    string `json:"answer"`
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

func (a *API) handleChat(w http.ResponseWriter, r *http.Request) {
	if !a.bot.Ready() {
		writeError(w, errNotInitialized)
		return
	}

	var req chatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&req); err != nil {
		writeError(w, errInvalidJSON)
		return
	}
	if req.Question == nil {
		writeError(w, errNoQuestion)
		return
	}
	question := strings.TrimSpace(*req.Question)
	if question == "" {
		writeError(w, errEmptyQuestion)
		return
	}

	res, err := a.bot.Ask(r.Context(), question)
	if err != nil {
		apiErr := toAPIError(err)
		if apiErr == errInternal {
			a.logger.Error("chat request failed",
				"req_id", RequestIDFromContext(r.Context()),
				"error", err)
		}
		writeError(w, apiErr)
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{
		Answer:    res.Answer.Text,
		Status:    "success",
		Timestamp: time.Now().Format(time.RFC3339Nano),
	})
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats := a.bot.Stats()
	code := http.StatusOK
	if !a.bot.Ready() {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, stats)
}

// toAPIError maps chatbot errors to their client-facing form.
func toAPIError(err error) *APIError {
	var apiErr *APIError
	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.Is(err, chatbot.ErrNotInitialized):
		return errNotInitialized
	case errors.Is(err, chatbot.ErrEmptyQuestion):
		return errEmptyQuestion
	default:
		return errInternal
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, e *APIError) {
	writeJSON(w, e.Status, e)
}
