// Package chatbot owns the application state of the course assistant: it
// builds the retrieval index from the configured sources once, then answers
// questions against it.
package chatbot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Yates-Labs/coursebot/internal/answer"
	"github.com/Yates-Labs/coursebot/internal/ingest/web"
	"github.com/Yates-Labs/coursebot/internal/rag"
)

var (
	ErrInitialization     = errors.New("chatbot initialization failed")
	ErrDocumentProcessing = fmt.Errorf("%w: document processing failed", ErrInitialization)
	ErrAlreadyInitialized = errors.New("chatbot already initialized")
	ErrNotInitialized     = errors.New("chatbot system is not initialized")
	ErrEmptyQuestion      = errors.New("question cannot be empty")
	ErrQuestionProcessing = errors.New("question processing failed")
)

// Options holds configuration for corpus indexing and question answering.
type Options struct {
	// SourceURLs are the pages and documents that make up the corpus
	SourceURLs []string

	// ChunkSize is the maximum chunk length in characters
	ChunkSize int

	// ChunkOverlap is the number of characters shared by adjacent chunks
	ChunkOverlap int

	// BatchSize determines how many chunks to embed at once
	BatchSize int

	// TopK is the number of chunks retrieved as context for each question
	TopK int

	// FetchConcurrency bounds parallel source fetches (0 = one per source)
	FetchConcurrency int
}

// DefaultOptions returns sensible defaults for the chatbot.
func DefaultOptions() Options {
	idx := rag.DefaultIndexOptions()
	return Options{
		SourceURLs:       []string{"https://brainlox.com/courses/category/technical"},
		ChunkSize:        idx.ChunkSize,
		ChunkOverlap:     idx.ChunkOverlap,
		BatchSize:        idx.BatchSize,
		TopK:             3,
		FetchConcurrency: 4,
	}
}

// Deps are the collaborators a System is built from.
type Deps struct {
	Fetcher  web.Fetcher
	Embedder rag.Embedder
	LLM      answer.LLM
	LLMModel string
	Logger   *slog.Logger
}

// Result is the outcome of answering one question.
type Result struct {
	Answer  *answer.Answer
	Context []rag.ContextChunk
}

// Stats summarises the system for health reporting.
type Stats struct {
	Status    string `json:"status"`
	Chunks    int    `json:"chunks"`
	Documents int    `json:"documents"`
	Model     string `json:"model,omitempty"`
	Dimension int    `json:"dimension"`
}

// System is the chatbot application state. The index and retriever are
// written once by Initialize before the Ready state is published and are
// read-only afterwards, so Ask is safe for concurrent use.
type System struct {
	opts     Options
	fetcher  web.Fetcher
	embedder rag.Embedder
	composer *answer.Composer
	logger   *slog.Logger

	state     atomic.Int32
	index     *rag.Index
	retriever *rag.Retriever
	initErr   error
}

// New validates opts and creates an uninitialized System.
func New(deps Deps, opts Options) (*System, error) {
	if deps.Fetcher == nil {
		return nil, fmt.Errorf("fetcher cannot be nil")
	}
	if deps.Embedder == nil {
		return nil, fmt.Errorf("embedder cannot be nil")
	}
	if deps.LLM == nil {
		return nil, fmt.Errorf("LLM cannot be nil")
	}
	if len(opts.SourceURLs) == 0 {
		return nil, fmt.Errorf("at least one source URL is required")
	}
	if err := rag.ValidateChunkConfig(opts.ChunkSize, opts.ChunkOverlap); err != nil {
		return nil, err
	}
	if opts.TopK <= 0 {
		return nil, fmt.Errorf("topK must be positive, got %d", opts.TopK)
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &System{
		opts:     opts,
		fetcher:  deps.Fetcher,
		embedder: deps.Embedder,
		composer: answer.NewComposer(deps.LLM, answer.LLMConfig{Model: deps.LLMModel}),
		logger:   logger.With("component", "chatbot"),
	}, nil
}

// Initialize fetches every source, chunks and embeds the text, and publishes
// the index. It may run only once; a failure leaves the system in the
// terminal Failed state.
func (s *System) Initialize(ctx context.Context) error {
	if !s.state.CompareAndSwap(int32(StateUninitialized), int32(StateLoading)) {
		return fmt.Errorf("%w: state is %s", ErrAlreadyInitialized, s.State())
	}

	start := time.Now()
	s.logger.Info("initializing", "sources", len(s.opts.SourceURLs))

	// Stage 1: fetch source documents
	docs, err := web.FetchAll(ctx, s.fetcher, s.opts.SourceURLs, s.opts.FetchConcurrency)
	if err != nil {
		return s.fail("fetch", err)
	}
	chars := 0
	for _, d := range docs {
		chars += len(d.Text)
	}
	s.logger.Info("fetched documents", "stage", "fetch", "documents", len(docs), "bytes", chars)

	// Stage 2: chunk and embed
	idx, err := rag.BuildIndex(ctx, docs, s.embedder, rag.IndexOptions{
		ChunkSize:    s.opts.ChunkSize,
		ChunkOverlap: s.opts.ChunkOverlap,
		BatchSize:    s.opts.BatchSize,
	})
	if err != nil {
		return s.fail("index", err)
	}
	s.logger.Info("built index", "stage", "index", "chunks", idx.Len(),
		"model", idx.Model(), "dimension", idx.Dimension())

	retriever, err := rag.NewRetriever(s.embedder, idx)
	if err != nil {
		return s.fail("index", err)
	}

	s.index = idx
	s.retriever = retriever
	s.state.Store(int32(StateReady))

	s.logger.Info("chatbot ready", "duration", time.Since(start))
	return nil
}

func (s *System) fail(stage string, cause error) error {
	err := fmt.Errorf("%w: %s: %w", ErrDocumentProcessing, stage, cause)
	s.initErr = err
	s.state.Store(int32(StateFailed))
	s.logger.Error("initialization failed", "stage", stage, "error", cause)
	return err
}

// Ask answers question from the indexed corpus.
// The pipeline: validation -> retrieval -> prompt assembly -> LLM generation
func (s *System) Ask(ctx context.Context, question string) (*Result, error) {
	if !s.Ready() {
		return nil, ErrNotInitialized
	}

	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	start := time.Now()

	chunks, err := s.retriever.RetrieveContextForQuery(ctx, question, s.opts.TopK)
	if err != nil {
		s.logger.Error("retrieval failed", "stage", "retrieve", "error", err)
		return nil, fmt.Errorf("%w: retrieval: %w", ErrQuestionProcessing, err)
	}
	s.logger.Debug("retrieved context", "stage", "retrieve", "chunks", len(chunks), "top_k", s.opts.TopK)

	ans, err := s.composer.Compose(ctx, question, rag.Texts(chunks))
	if err != nil {
		s.logger.Error("answer generation failed", "stage", "generate", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrQuestionProcessing, err)
	}
	ans.Sources = sources(chunks)
	s.logger.Debug("generated answer", "stage", "generate", "chars", len(ans.Text), "duration", time.Since(start))

	return &Result{Answer: ans, Context: chunks}, nil
}

// sources returns the distinct chunk sources in retrieval order.
func sources(chunks []rag.ContextChunk) []string {
	seen := make(map[string]bool, len(chunks))
	var out []string
	for _, ch := range chunks {
		if ch.Source == "" || seen[ch.Source] {
			continue
		}
		seen[ch.Source] = true
		out = append(out, ch.Source)
	}
	return out
}

// State returns the current lifecycle state.
func (s *System) State() State {
	return State(s.state.Load())
}

// Ready reports whether questions can be answered.
func (s *System) Ready() bool {
	return s.State() == StateReady
}

// Status returns the name of the current state.
func (s *System) Status() string {
	return s.State().String()
}

// Err returns the initialization error once the system has failed.
func (s *System) Err() error {
	if s.State() != StateFailed {
		return nil
	}
	return s.initErr
}

// Stats reports the state and, when ready, the index dimensions.
func (s *System) Stats() Stats {
	st := Stats{Status: s.Status()}
	if s.Ready() {
		st.Chunks = s.index.Len()
		st.Documents = s.index.Documents()
		st.Model = s.index.Model()
		st.Dimension = s.index.Dimension()
	}
	return st
}
