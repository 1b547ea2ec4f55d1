package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/felixgeelhaar/plantkeep/domain/plant"
	"github.com/felixgeelhaar/plantkeep/infrastructure/logging"
)

// maxBody caps the bytes read from a catalogue response.
const maxBody = 8 << 20

// ErrStatus is returned for non-2xx responses.
var ErrStatus = errors.New("unexpected response status")

// HTTPConfig configures the HTTP source.
type HTTPConfig struct {
	// URL is the catalogue endpoint.
	URL string
	// APIKey is sent as the "key" query parameter when set.
	APIKey string
	// Timeout is the HTTP request timeout.
	Timeout time.Duration
	// UserAgent is the User-Agent header value.
	UserAgent string
	// Headers are added to every request.
	Headers map[string]string
}

// DefaultHTTPConfig returns sensible default configuration.
func DefaultHTTPConfig() HTTPConfig {
	return HTTPConfig{
		Timeout:   15 * time.Second,
		UserAgent: "plantkeep/0.1",
	}
}

// HTTP fetches the plant catalogue from a JSON endpoint.
type HTTP struct {
	config HTTPConfig
	client *http.Client
}

// NewHTTP creates an HTTP source.
func NewHTTP(config HTTPConfig) *HTTP {
	if config.Timeout <= 0 {
		config.Timeout = 15 * time.Second
	}
	if config.UserAgent == "" {
		config.UserAgent = "plantkeep/0.1"
	}
	return &HTTP{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
	}
}

func (h *HTTP) requestURL() (string, error) {
	u, err := url.Parse(h.config.URL)
	if err != nil {
		return "", err
	}
	if h.config.APIKey != "" {
		q := u.Query()
		q.Set("key", h.config.APIKey)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// Plants performs one GET and decodes the body.
func (h *HTTP) Plants(ctx context.Context) ([]plant.Plant, error) {
	target, err := h.requestURL()
	if err != nil {
		return nil, fmt.Errorf("invalid source url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", h.config.UserAgent)
	for key, value := range h.config.Headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch plants: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	logging.Debug().
		Add(logging.Component("source")).
		Add(logging.Str("url", h.config.URL)).
		Add(logging.Bytes(len(body))).
		Add(logging.Duration(time.Since(start))).
		Msg("catalogue fetched")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %d", ErrStatus, resp.StatusCode)
	}
	return decodePlants(body)
}

var _ plant.Source = (*HTTP)(nil)
