package identity

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// HTTPConfig configures the HTTP identity provider
type HTTPConfig struct {
	// BaseURL is the identity service root, e.g. https://identity.internal
	BaseURL string
	// Token is sent as a bearer token when set
	Token string

	RequestTimeout time.Duration

	// Retry settings for transient failures (network errors, 429, 5xx)
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultHTTPConfig returns sensible defaults for the HTTP identity provider
func DefaultHTTPConfig() HTTPConfig {
	return HTTPConfig{
		RequestTimeout:  3 * time.Second,
		MaxRetries:      2,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     1 * time.Second,
	}
}

// HTTPProvider looks accounts up over the identity service's JSON API.
// 200 means the account exists and 404 means it is gone.
type HTTPProvider struct {
	baseURL    string
	token      string
	httpClient *http.Client
	cfg        HTTPConfig
	logger     *slog.Logger
}

// NewHTTPProvider creates a new HTTP identity provider
func NewHTTPProvider(cfg HTTPConfig, logger *slog.Logger) (*HTTPProvider, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("identity provider base URL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid identity provider base URL: %w", err)
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = DefaultHTTPConfig().RequestTimeout
	}

	return &HTTPProvider{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		token:   cfg.Token,
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		cfg:    cfg,
		logger: logger,
	}, nil
}

// Ensure HTTPProvider implements Provider
var _ Provider = (*HTTPProvider)(nil)

// ExistsByID checks an account ID
func (p *HTTPProvider) ExistsByID(ctx context.Context, id string) (bool, error) {
	return p.exists(ctx, "id", id, "/users/by-id/"+url.PathEscape(id))
}

// ExistsByName checks a username
func (p *HTTPProvider) ExistsByName(ctx context.Context, name string) (bool, error) {
	return p.exists(ctx, "name", name, "/users/by-name/"+url.PathEscape(name))
}

func (p *HTTPProvider) exists(ctx context.Context, lookup, identifier, path string) (bool, error) {
	attempt := func() (bool, error) {
		status, err := p.get(ctx, path)
		if err != nil {
			if ctx.Err() != nil {
				return false, backoff.Permanent(err)
			}
			p.logger.Debug("retrying identity lookup after request error",
				slog.String("lookup", lookup),
				slog.String("identifier", identifier),
				slog.String("error", err.Error()),
			)
			return false, &ProviderError{Lookup: lookup, Identifier: identifier, Err: err}
		}

		switch {
		case status == http.StatusOK:
			return true, nil
		case status == http.StatusNotFound:
			return false, nil
		case status == http.StatusTooManyRequests || status >= 500:
			p.logger.Debug("retrying identity lookup after transient status",
				slog.String("lookup", lookup),
				slog.String("identifier", identifier),
				slog.Int("status", status),
			)
			return false, &ProviderError{Lookup: lookup, Identifier: identifier, StatusCode: status}
		default:
			return false, backoff.Permanent(&ProviderError{Lookup: lookup, Identifier: identifier, StatusCode: status})
		}
	}

	exists, err := backoff.RetryWithData(attempt, p.newBackoff(ctx))
	if err != nil {
		var pe *ProviderError
		if errors.As(err, &pe) {
			return false, pe
		}
		return false, &ProviderError{Lookup: lookup, Identifier: identifier, Err: err}
	}
	return exists, nil
}

func (p *HTTPProvider) newBackoff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(p.cfg.InitialInterval),
		backoff.WithMaxInterval(p.cfg.MaxInterval),
		backoff.WithMaxElapsedTime(0),
	)
	return backoff.WithContext(backoff.WithMaxRetries(b, p.cfg.MaxRetries), ctx)
}

func (p *HTTPProvider) get(ctx context.Context, path string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+path, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	// Drain so the connection can be reused
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode, nil
}
