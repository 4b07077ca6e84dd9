package segment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// RemoteConfig configures the segmentation service client.
type RemoteConfig struct {
	// URL is the full endpoint, e.g. "http://localhost:3003/api/nlp".
	URL string

	// Headers are added to every request (auth, tracing).
	Headers map[string]string

	// Timeout bounds a single request. Defaults to 30s.
	Timeout time.Duration
}

// Remote calls the sentence segmentation service:
// POST {"text": "..."} -> {"sentences": ["...", ...]}.
type Remote struct {
	url        string
	headers    map[string]string
	httpClient *http.Client
	logger     *log.Logger
}

type segmentRequest struct {
	Text string `json:"text"`
}

type segmentResponse struct {
	Sentences []string `json:"sentences"`
}

// NewRemote creates a segmentation service client.
func NewRemote(cfg RemoteConfig) *Remote {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Remote{
		url:        cfg.URL,
		headers:    cfg.Headers,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     log.WithPrefix("segment"),
	}
}

// Segment implements Segmenter. Blank text short-circuits to an empty list
// without a network call.
func (r *Remote) Segment(ctx context.Context, text string) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return []string{}, nil
	}

	body, err := json.Marshal(segmentRequest{Text: text})
	if err != nil {
		return nil, &Error{Err: fmt.Errorf("failed to marshal request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Err: fmt.Errorf("failed to send request: %w", err)}
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &Error{Err: fmt.Errorf("segmentation service error: %s - %s", resp.Status, strings.TrimSpace(string(msg)))}
	}

	var out segmentResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &Error{Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	sentences := make([]string, 0, len(out.Sentences))
	for _, s := range out.Sentences {
		if s = strings.TrimSpace(s); s != "" {
			sentences = append(sentences, s)
		}
	}

	r.logger.Debug("segmented text", "chars", len(text), "sentences", len(sentences), "took", time.Since(start))
	return sentences, nil
}
