package importer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/tartampluch/go-birthday-tracker/internal/config"
)

// Credentials authenticate against a remote address book (HTTP Basic).
type Credentials struct {
	User     string
	Password string
}

// Fetcher retrieves a remote vCard stream.
type Fetcher interface {
	Fetch(ctx context.Context, targetURL string, creds Credentials) (io.ReadCloser, error)
}

// HTTPFetcher implements Fetcher using net/http.
type HTTPFetcher struct {
	Client  *http.Client
	MaxSize int64
}

// NewHTTPFetcher creates a fetcher with the default timeout and size limit.
func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{
		Client:  &http.Client{Timeout: config.HTTPTimeout},
		MaxSize: config.MaxHTTPResponseSize,
	}
}

// Fetch downloads the address book at targetURL. Only http and https are allowed,
// query strings are stripped from logs and the body is capped at MaxSize bytes.
func (f *HTTPFetcher) Fetch(ctx context.Context, targetURL string, creds Credentials) (io.ReadCloser, error) {
	u, err := url.Parse(targetURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrInvalidURL, err)
	}
	if u.Scheme != config.SchemeHTTP && u.Scheme != config.SchemeHTTPS {
		return nil, fmt.Errorf("%s: %s", config.ErrProtocol, u.Scheme)
	}

	log := slog.With(
		slog.String(config.LogKeyComponent, config.CompFetcher),
		slog.String(config.LogKeyURL, u.Scheme+"://"+u.Host+u.Path),
	)
	log.Debug("Initiating vCard download")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set(config.HeaderUserAgent, config.UserAgent)
	if creds.User != "" || creds.Password != "" {
		req.SetBasicAuth(creds.User, creds.Password)
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("network error during fetch: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		log.Warn("Server returned error status", slog.Int(config.LogKeyStatus, resp.StatusCode))
		return nil, fmt.Errorf("server returned unexpected status: %d %s", resp.StatusCode, resp.Status)
	}

	log.Info("vCards downloading", slog.Int64("content_length", resp.ContentLength))

	limit := f.MaxSize
	if limit <= 0 {
		limit = config.MaxHTTPResponseSize
	}
	return &limitedReadCloser{
		Reader: io.LimitReader(resp.Body, limit),
		Closer: resp.Body,
	}, nil
}

// limitedReadCloser caps reads while still closing the underlying connection.
type limitedReadCloser struct {
	io.Reader
	io.Closer
}
