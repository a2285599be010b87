// Package web loads course pages and documents over HTTP and turns them into
// plain-text rag.Documents.
package web

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html/charset"
	"golang.org/x/sync/errgroup"

	"github.com/Yates-Labs/coursebot/internal/rag"
)

var (
	ErrFetchFailed        = errors.New("fetch failed")
	ErrUnsupportedContent = errors.New("unsupported content type")
)

// DefaultUserAgent is sent with every request; some course sites reject
// clients that do not look like a browser.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

// DefaultMaxBodySize is the largest response body accepted when
// HTTPFetcher.MaxBodySize is unset.
const DefaultMaxBodySize = 32 << 20

// Fetcher retrieves a single source and returns its text content.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (rag.Document, error)
}

// HTTPFetcher fetches sources over HTTP(S).
type HTTPFetcher struct {
	Client    *http.Client
	UserAgent string

	// MaxBodySize rejects larger responses (0 = DefaultMaxBodySize)
	MaxBodySize int64
}

// NewHTTPFetcher creates a fetcher whose requests time out after timeout.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{
		Client:    &http.Client{Timeout: timeout},
		UserAgent: DefaultUserAgent,
	}
}

// Fetch downloads url and extracts its text according to the response
// content type.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (rag.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return rag.Document{}, fmt.Errorf("%w: %s: %w", ErrFetchFailed, url, err)
	}
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return rag.Document{}, fmt.Errorf("%w: %s: %w", ErrFetchFailed, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return rag.Document{}, fmt.Errorf("%w: %s: status %d", ErrFetchFailed, url, resp.StatusCode)
	}

	limit := f.MaxBodySize
	if limit <= 0 {
		limit = DefaultMaxBodySize
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return rag.Document{}, fmt.Errorf("%w: %s: reading body: %w", ErrFetchFailed, url, err)
	}
	if int64(len(body)) > limit {
		return rag.Document{}, fmt.Errorf("%w: %s: body exceeds %d bytes", ErrFetchFailed, url, limit)
	}

	header := resp.Header.Get("Content-Type")
	text, err := extractText(contentType(header, body), header, body)
	if err != nil {
		return rag.Document{}, fmt.Errorf("%s: %w", url, err)
	}
	if strings.TrimSpace(text) == "" {
		return rag.Document{}, fmt.Errorf("%w: %s: no text content", ErrFetchFailed, url)
	}

	return rag.Document{Source: url, Text: text}, nil
}

// contentType returns the media type from header, sniffing body when the
// header is missing or unparsable.
func contentType(header string, body []byte) string {
	if header != "" {
		if mediaType, _, err := mime.ParseMediaType(header); err == nil {
			return mediaType
		}
	}
	mediaType, _, _ := mime.ParseMediaType(http.DetectContentType(body))
	return mediaType
}

// extractText dispatches on mediaType. Textual bodies are decoded to UTF-8
// using the charset from header, a BOM or an HTML meta tag.
func extractText(mediaType, header string, body []byte) (string, error) {
	switch {
	case mediaType == "text/html" || mediaType == "application/xhtml+xml":
		r, err := charset.NewReader(bytes.NewReader(body), header)
		if err != nil {
			return "", fmt.Errorf("%w: decoding html: %w", ErrFetchFailed, err)
		}
		return extractHTMLText(r)
	case mediaType == "application/pdf":
		return extractPDFText(body)
	case strings.HasPrefix(mediaType, "text/"):
		r, err := charset.NewReader(bytes.NewReader(body), header)
		if err != nil {
			return "", fmt.Errorf("%w: decoding text: %w", ErrFetchFailed, err)
		}
		decoded, err := io.ReadAll(r)
		if err != nil {
			return "", fmt.Errorf("%w: decoding text: %w", ErrFetchFailed, err)
		}
		return string(decoded), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedContent, mediaType)
	}
}

// FetchAll fetches urls concurrently with at most limit requests in flight
// (limit <= 0 means unbounded). Documents are returned in input order. The
// first failure cancels the remaining fetches.
func FetchAll(ctx context.Context, f Fetcher, urls []string, limit int) ([]rag.Document, error) {
	docs := make([]rag.Document, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i, u := range urls {
		g.Go(func() error {
			doc, err := f.Fetch(gctx, u)
			if err != nil {
				return err
			}
			docs[i] = doc
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return docs, nil
}
