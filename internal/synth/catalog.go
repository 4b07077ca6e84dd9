package synth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// DefaultVoices is returned when the voice catalog service is unavailable.
var DefaultVoices = []string{"alloy", "ash", "coral", "echo", "fable", "onyx", "nova", "sage", "shimmer"}

// Catalog lists the voices a user can pick from.
type Catalog interface {
	Voices(ctx context.Context) []string
}

// HTTPCatalog reads GET {BaseURL}/audio/voices and falls back to
// DefaultVoices on any failure.
type HTTPCatalog struct {
	baseURL    string
	apiKey     string
	headers    map[string]string
	httpClient *http.Client
	logger     *log.Logger
}

type voicesResponse struct {
	Voices []json.RawMessage `json:"voices"`
}

// NewHTTPCatalog creates a catalog client sharing the speech client's
// endpoint settings.
func NewHTTPCatalog(cfg HTTPConfig) *HTTPCatalog {
	timeout := cfg.Timeout
	if timeout <= 0 || timeout > 10*time.Second {
		timeout = 10 * time.Second
	}
	return &HTTPCatalog{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		headers:    cfg.Headers,
		httpClient: &http.Client{Timeout: timeout},
		logger:     log.WithPrefix("voices"),
	}
}

// Voices implements Catalog.
func (c *HTTPCatalog) Voices(ctx context.Context) []string {
	voices, err := c.fetch(ctx)
	if err != nil || len(voices) == 0 {
		c.logger.Debug("using default voices", "error", err)
		return append([]string(nil), DefaultVoices...)
	}
	return voices
}

func (c *HTTPCatalog) fetch(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/audio/voices", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("voice catalog returned %s", resp.Status)
	}

	var out voicesResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode voices: %w", err)
	}

	// Entries are either plain strings or {"id": "..."} objects.
	voices := make([]string, 0, len(out.Voices))
	for _, raw := range out.Voices {
		var id string
		if err := json.Unmarshal(raw, &id); err == nil {
			voices = append(voices, id)
			continue
		}
		var obj struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		}
		if err := json.Unmarshal(raw, &obj); err == nil {
			switch {
			case obj.ID != "":
				voices = append(voices, obj.ID)
			case obj.Name != "":
				voices = append(voices, obj.Name)
			}
		}
	}
	return voices, nil
}
