package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Yates-Labs/coursebot/internal/answer"
	"github.com/Yates-Labs/coursebot/internal/chatbot"
	"github.com/Yates-Labs/coursebot/internal/ingest/web"
	"github.com/Yates-Labs/coursebot/internal/rag"
)

// fakeBot is a scriptable Chatbot.
type fakeBot struct {
	ready    bool
	answer   string
	err      error
	question string
	calls    int
}

func (b *fakeBot) Ready() bool { return b.ready }

func (b *fakeBot) Ask(ctx context.Context, question string) (*chatbot.Result, error) {
	b.calls++
	b.question = question
	if b.err != nil {
		return nil, b.err
	}
	return &chatbot.Result{Answer: &answer.Answer{Text: b.answer}}, nil
}

func (b *fakeBot) Stats() chatbot.Stats {
	if !b.ready {
		return chatbot.Stats{Status: "loading"}
	}
	return chatbot.Stats{Status: "ready", Chunks: 12, Documents: 2, Model: "lexical-fnv", Dimension: 1024}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func doRequest(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), "body: %s", rec.Body.String())
	return body
}

func TestChatEndpoint(t *testing.T) {
	tests := []struct {
		name       string
		bot        *fakeBot
		body       string
		wantStatus int
		wantError  string
		wantCalls  int
	}{
		{
			name:       "not initialized is checked before the body",
			bot:        &fakeBot{ready: false},
			body:       `not json at all`,
			wantStatus: http.StatusBadRequest,
			wantError:  "Chatbot system is not initialized",
		},
		{
			name:       "invalid json",
			bot:        &fakeBot{ready: true},
			body:       `{"question":`,
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid JSON body",
		},
		{
			name:       "json array is not an object",
			bot:        &fakeBot{ready: true},
			body:       `["question"]`,
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid JSON body",
		},
		{
			name:       "missing question",
			bot:        &fakeBot{ready: true},
			body:       `{}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "Question is required",
		},
		{
			name:       "null question",
			bot:        &fakeBot{ready: true},
			body:       `{"question": null}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "Question is required",
		},
		{
			name:       "blank question",
			bot:        &fakeBot{ready: true},
			body:       `{"question": "   "}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "Question cannot be empty",
		},
		{
			name:       "generation failure is internal",
			bot:        &fakeBot{ready: true, err: fmt.Errorf("%w: %w", chatbot.ErrQuestionProcessing, answer.ErrGenerationFailed)},
			body:       `{"question": "What courses are there?"}`,
			wantStatus: http.StatusInternalServerError,
			wantError:  "An unexpected error occurred while processing your request",
			wantCalls:  1,
		},
		{
			name:       "not initialized reported by the bot",
			bot:        &fakeBot{ready: true, err: chatbot.ErrNotInitialized},
			body:       `{"question": "What courses are there?"}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "Chatbot system is not initialized",
			wantCalls:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewAPI(tt.bot, discardLogger(), Options{}).Handler()

			rec := doRequest(t, h, http.MethodPost, "/chat", tt.body)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.Equal(t, map[string]any{"error": tt.wantError}, decodeBody(t, rec))
			assert.Equal(t, tt.wantCalls, tt.bot.calls)
		})
	}
}

func TestChatEndpoint_Success(t *testing.T) {
	bot := &fakeBot{ready: true, answer: "There are three Python courses."}
	h := NewAPI(bot, discardLogger(), Options{}).Handler()

	rec := doRequest(t, h, http.MethodPost, "/chat", `{"question": "  Which Python courses exist?  "}`)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "There are three Python courses.", body["answer"])
	assert.Equal(t, "success", body["status"])
	ts, ok := body["timestamp"].(string)
	require.True(t, ok)
	_, err := time.Parse(time.RFC3339Nano, ts)
	assert.NoError(t, err)
	assert.Equal(t, "Which Python courses exist?", bot.question)
}

func TestChatEndpoint_MethodNotAllowed(t *testing.T) {
	h := NewAPI(&fakeBot{ready: true}, discardLogger(), Options{}).Handler()

	rec := doRequest(t, h, http.MethodGet, "/chat", "")

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHealthEndpoint(t *testing.T) {
	t.Run("Ready", func(t *testing.T) {
		h := NewAPI(&fakeBot{ready: true}, discardLogger(), Options{}).Handler()

		rec := doRequest(t, h, http.MethodGet, "/healthz", "")

		assert.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, "ready", body["status"])
		assert.Equal(t, float64(12), body["chunks"])
		assert.Equal(t, float64(1024), body["dimension"])
	})

	t.Run("Not ready", func(t *testing.T) {
		h := NewAPI(&fakeBot{ready: false}, discardLogger(), Options{}).Handler()

		rec := doRequest(t, h, http.MethodGet, "/healthz", "")

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, "loading", decodeBody(t, rec)["status"])
	})
}

func TestMiddleware(t *testing.T) {
	t.Run("Request id is generated", func(t *testing.T) {
		h := NewAPI(&fakeBot{ready: true}, discardLogger(), Options{}).Handler()

		rec := doRequest(t, h, http.MethodGet, "/healthz", "")

		assert.Len(t, rec.Header().Get("X-Request-ID"), 36)
	})

	t.Run("Request id is propagated", func(t *testing.T) {
		h := NewAPI(&fakeBot{ready: true}, discardLogger(), Options{}).Handler()
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.Header.Set("X-Request-ID", "abc-123")
		rec := httptest.NewRecorder()

		h.ServeHTTP(rec, req)

		assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
	})

	t.Run("CORS preflight", func(t *testing.T) {
		bot := &fakeBot{ready: true}
		h := NewAPI(bot, discardLogger(), Options{}).Handler()

		rec := doRequest(t, h, http.MethodOptions, "/chat", "")

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
		assert.Zero(t, bot.calls)
	})

	t.Run("Access log carries the request", func(t *testing.T) {
		var buf strings.Builder
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		h := NewAPI(&fakeBot{ready: true}, logger, Options{}).Handler()

		doRequest(t, h, http.MethodGet, "/healthz", "")

		assert.Contains(t, buf.String(), "path=/healthz")
		assert.Contains(t, buf.String(), "status=200")
	})

	t.Run("Rate limit", func(t *testing.T) {
		h := NewAPI(&fakeBot{ready: true}, discardLogger(), Options{RateLimit: 1}).Handler()

		first := doRequest(t, h, http.MethodGet, "/healthz", "")
		second := doRequest(t, h, http.MethodGet, "/healthz", "")

		assert.Equal(t, http.StatusOK, first.Code)
		assert.Equal(t, http.StatusTooManyRequests, second.Code)
		assert.Equal(t, "1", second.Header().Get("Retry-After"))
		assert.Equal(t, "Rate limit exceeded", decodeBody(t, second)["error"])
	})
}

func TestServe(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	h := NewAPI(&fakeBot{ready: true, answer: "ok"}, discardLogger(), Options{}).Handler()

	done := make(chan error, 1)
	go func() { done <- Serve(ctx, ln, h, discardLogger()) }()

	resp, err := http.Post("http://"+ln.Addr().String()+"/chat", "application/json", strings.NewReader(`{"question":"hi"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * shutdownTimeout):
		t.Fatal("server did not shut down")
	}
}

// End-to-end: a real System behind the API, with the corpus served by httptest.
func TestChatEndpoint_WithSystem(t *testing.T) {
	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		switch r.URL.Path {
		case "/dogs":
			fmt.Fprint(w, "<html><body><p>dogs bark loudly</p></body></html>")
		case "/sky":
			fmt.Fprint(w, "<html><body><p>the sky is blue</p></body></html>")
		default:
			http.NotFound(w, r)
		}
	}))
	defer site.Close()

	llm := answer.NewMockLLM("Dogs bark.")
	sys, err := chatbot.New(chatbot.Deps{
		Fetcher:  web.NewHTTPFetcher(5 * time.Second),
		Embedder: rag.NewLexicalEmbedder(0),
		LLM:      llm,
		Logger:   discardLogger(),
	}, chatbot.Options{
		SourceURLs:   []string{site.URL + "/dogs", site.URL + "/sky"},
		ChunkSize:    100,
		ChunkOverlap: 10,
		BatchSize:    8,
		TopK:         1,
	})
	require.NoError(t, err)
	h := NewAPI(sys, discardLogger(), Options{}).Handler()

	before := doRequest(t, h, http.MethodPost, "/chat", `{"question":"what do dogs do?"}`)
	assert.Equal(t, http.StatusBadRequest, before.Code)

	require.NoError(t, sys.Initialize(context.Background()))

	rec := doRequest(t, h, http.MethodPost, "/chat", `{"question":"what do dogs do?"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Dogs bark.", decodeBody(t, rec)["answer"])
	assert.Contains(t, llm.LastPrompt, "Context:\ndogs bark loudly\n\n")

	failing, err := chatbot.New(chatbot.Deps{
		Fetcher:  web.NewHTTPFetcher(5 * time.Second),
		Embedder: rag.NewLexicalEmbedder(0),
		LLM:      llm,
		Logger:   discardLogger(),
	}, chatbot.Options{SourceURLs: []string{site.URL + "/missing"}, ChunkSize: 100, TopK: 1})
	require.NoError(t, err)
	require.True(t, errors.Is(failing.Initialize(context.Background()), chatbot.ErrInitialization))

	rec = doRequest(t, NewAPI(failing, discardLogger(), Options{}).Handler(), http.MethodPost, "/chat", `{"question":"q"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Chatbot system is not initialized", decodeBody(t, rec)["error"])
}
