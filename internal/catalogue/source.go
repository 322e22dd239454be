package catalogue

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// DefaultCacheTTL bounds how long a remote catalogue is reused.
const DefaultCacheTTL = 10 * time.Minute

// Source yields a validated catalogue. Where it comes from is up to the
// implementation.
type Source interface {
	Fetch(ctx context.Context) (Catalogue, error)
	Describe() string
}

// FileSource reads a CSV file on every fetch.
type FileSource struct {
	Path string
}

// Fetch parses the file.
func (s FileSource) Fetch(ctx context.Context) (Catalogue, error) {
	if err := ctx.Err(); err != nil {
		return Catalogue{}, err
	}
	return LoadFile(s.Path)
}

// Describe names the file.
func (s FileSource) Describe() string {
	return s.Path
}

// RemoteSource downloads a CSV export (for example a published spreadsheet)
// and keeps the last good copy until the TTL expires.
type RemoteSource struct {
	url    string
	ttl    time.Duration
	client *http.Client
	now    func() time.Time

	mu        sync.Mutex
	cached    Catalogue
	expiresAt time.Time
	hasCache  bool
}

// RemoteOption customizes a RemoteSource.
type RemoteOption func(*RemoteSource)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) RemoteOption {
	return func(s *RemoteSource) {
		if c != nil {
			s.client = c
		}
	}
}

// WithClock overrides the clock used for cache expiry.
func WithClock(clock func() time.Time) RemoteOption {
	return func(s *RemoteSource) {
		if clock != nil {
			s.now = clock
		}
	}
}

// NewRemoteSource builds a source for url. A non-positive ttl uses
// DefaultCacheTTL.
func NewRemoteSource(url string, ttl time.Duration, opts ...RemoteOption) *RemoteSource {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	s := &RemoteSource{
		url:    url,
		ttl:    ttl,
		client: &http.Client{Timeout: 30 * time.Second},
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Describe names the URL.
func (s *RemoteSource) Describe() string {
	return s.url
}

// Fetch returns the cached catalogue while it is fresh, otherwise downloads
// and parses it again.
func (s *RemoteSource) Fetch(ctx context.Context) (Catalogue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hasCache && s.now().Before(s.expiresAt) {
		return s.cached, nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return Catalogue{}, fmt.Errorf("catalogue: build request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return Catalogue{}, fmt.Errorf("catalogue: fetch %s: %w", s.url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return Catalogue{}, fmt.Errorf("catalogue: fetch %s: unexpected status %s", s.url, resp.Status)
	}
	cat, err := Parse(resp.Body)
	if err != nil {
		return Catalogue{}, err
	}
	s.cached = cat
	s.hasCache = true
	s.expiresAt = s.now().Add(s.ttl)
	return cat, nil
}

// Invalidate drops the cached copy so the next Fetch downloads again.
func (s *RemoteSource) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hasCache = false
	s.cached = Catalogue{}
}
