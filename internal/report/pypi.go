package report

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultPyPIBaseURL is the index queried for package availability.
const DefaultPyPIBaseURL = "https://pypi.org"

// PyPIChecker probes the PyPI JSON API to find out which package
// titles are also distributed there. Results are cached for the life
// of the checker.
type PyPIChecker struct {
	client      *http.Client
	baseURL     string
	concurrency int
	log         *zap.Logger

	mu    sync.Mutex
	cache map[string]bool
}

// NewPyPIChecker returns a checker with the given per-request timeout
// and probe concurrency. baseURL other than DefaultPyPIBaseURL is for
// tests.
func NewPyPIChecker(baseURL string, timeout time.Duration, concurrency int, logger *zap.Logger) *PyPIChecker {
	if baseURL == "" {
		baseURL = DefaultPyPIBaseURL
	}
	if concurrency < 1 {
		concurrency = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PyPIChecker{
		client:      &http.Client{Timeout: timeout},
		baseURL:     baseURL,
		concurrency: concurrency,
		log:         logger,
		cache:       make(map[string]bool),
	}
}

// Check reports which of the given names exist on PyPI. Probe failures
// count as not available rather than failing the report.
func (c *PyPIChecker) Check(ctx context.Context, names []string) map[string]bool {
	todo := make([]string, 0, len(names))
	c.mu.Lock()
	for _, name := range names {
		if _, ok := c.cache[name]; !ok {
			todo = append(todo, name)
		}
	}
	c.mu.Unlock()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for _, name := range todo {
		name := name
		g.Go(func() error {
			avail := c.probe(ctx, name)
			c.mu.Lock()
			c.cache[name] = avail
			c.mu.Unlock()
			return nil
		})
	}
	g.Wait()

	out := make(map[string]bool, len(names))
	c.mu.Lock()
	for _, name := range names {
		out[name] = c.cache[name]
	}
	c.mu.Unlock()
	return out
}

func (c *PyPIChecker) probe(ctx context.Context, name string) bool {
	url := fmt.Sprintf("%s/pypi/%s/json", c.baseURL, name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Debug("pypi probe failed", zap.String("name", name), zap.Error(err))
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Annotate flags the titles in s that are available on PyPI.
func Annotate(s *Summary, available map[string]bool) {
	for i := range s.Titles {
		s.Titles[i].OnPyPI = available[s.Titles[i].Name]
	}
}
