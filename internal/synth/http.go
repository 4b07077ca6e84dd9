package synth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/time/rate"
)

// maxAudioSize guards against runaway responses.
const maxAudioSize = 64 * 1024 * 1024

// HTTPConfig configures the speech service client.
type HTTPConfig struct {
	// BaseURL is the API root, e.g. "https://api.openai.com/v1".
	BaseURL string

	// APIKey is sent as a bearer token when set.
	APIKey string

	// Headers are added to every request after the API key.
	Headers map[string]string

	// RequestsPerMinute throttles outgoing calls. Zero disables throttling.
	RequestsPerMinute int

	// Timeout bounds a single HTTP exchange. Defaults to 60s.
	Timeout time.Duration
}

// HTTPClient calls POST {BaseURL}/audio/speech.
type HTTPClient struct {
	baseURL     string
	apiKey      string
	headers     map[string]string
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	maxAudio    int64
	logger      *log.Logger
}

type speechRequest struct {
	Model          string  `json:"model"`
	Input          string  `json:"input"`
	Voice          string  `json:"voice"`
	Speed          float64 `json:"speed,omitempty"`
	Instructions   string  `json:"instructions,omitempty"`
	ResponseFormat string  `json:"response_format,omitempty"`
}

// NewHTTPClient creates a speech service client.
func NewHTTPClient(cfg HTTPConfig) *HTTPClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}

	return &HTTPClient{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		headers:     cfg.Headers,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		rateLimiter: limiter,
		maxAudio:    maxAudioSize,
		logger:      log.WithPrefix("synth"),
	}
}

// Synthesize implements Client. It does not retry; wrap it with Retrying.
func (c *HTTPClient) Synthesize(ctx context.Context, req Request) ([]byte, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, ErrEmptyAudio
	}

	if c.rateLimiter != nil {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return nil, aborted(ctx)
			}
			return nil, &NetworkError{Err: fmt.Errorf("rate limit wait: %w", err)}
		}
	}

	body, err := json.Marshal(speechRequest{
		Model:          req.Model,
		Input:          req.Text,
		Voice:          req.Voice,
		Speed:          req.Speed,
		Instructions:   req.Instructions,
		ResponseFormat: string(req.Format),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/audio/speech", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(httpReq)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept-Encoding", "zstd, gzip")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, aborted(ctx)
		}
		return nil, &NetworkError{Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &ServerError{Status: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}

	audio, err := readBody(resp, c.maxAudio)
	if err != nil {
		if ctx.Err() != nil {
			return nil, aborted(ctx)
		}
		if errors.Is(err, ErrAudioTooLarge) {
			return nil, err
		}
		return nil, &NetworkError{Err: err}
	}
	if len(audio) == 0 {
		return nil, ErrEmptyAudio
	}

	c.logger.Debug("synthesis complete",
		"chars", len(req.Text),
		"voice", req.Voice,
		"bytes", len(audio),
		"took", time.Since(start))

	return audio, nil
}

func (c *HTTPClient) setHeaders(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
}

// readBody reads the response, undoing any content encoding the server
// applied.
func readBody(resp *http.Response, limit int64) ([]byte, error) {
	var r io.Reader = resp.Body

	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "zstd":
		dec, err := zstd.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
		}
		defer dec.Close()
		r = dec
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer gz.Close() //nolint:errcheck
		r = gz
	}

	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read audio: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrAudioTooLarge, limit)
	}
	return data, nil
}
