package report

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func pypiTestServer(t *testing.T, hits *atomic.Int64) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		// Known packages: /pypi/<name>/json for numpy and astropy.
		name := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/pypi/"), "/json")
		switch name {
		case "numpy", "astropy":
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestPyPIChecker(t *testing.T) {
	srv := pypiTestServer(t, nil)
	c := NewPyPIChecker(srv.URL, 5*time.Second, 4, nil)

	got := c.Check(context.Background(), []string{"numpy", "astropy", "stsci.tools"})

	if !got["numpy"] || !got["astropy"] {
		t.Errorf("expected numpy and astropy available, got %v", got)
	}
	if got["stsci.tools"] {
		t.Errorf("expected stsci.tools unavailable, got %v", got)
	}
}

func TestPyPIChecker_Caches(t *testing.T) {
	var hits atomic.Int64
	srv := pypiTestServer(t, &hits)
	c := NewPyPIChecker(srv.URL, 5*time.Second, 4, nil)

	c.Check(context.Background(), []string{"numpy", "other"})
	c.Check(context.Background(), []string{"numpy", "other"})

	if n := hits.Load(); n != 2 {
		t.Errorf("expected 2 probes for 2 names across repeated checks, got %d", n)
	}
}

func TestPyPIChecker_ServerDown(t *testing.T) {
	srv := pypiTestServer(t, nil)
	url := srv.URL
	srv.Close()

	c := NewPyPIChecker(url, time.Second, 2, nil)
	got := c.Check(context.Background(), []string{"numpy"})

	// Probe failures degrade to "not available" rather than erroring.
	if got["numpy"] {
		t.Error("expected unavailable when the index is unreachable")
	}
}

func TestAnnotate(t *testing.T) {
	s := Summary{Titles: []TitleStat{{Name: "numpy"}, {Name: "stsci"}}}
	Annotate(&s, map[string]bool{"numpy": true})

	if !s.Titles[0].OnPyPI {
		t.Error("numpy should be flagged")
	}
	if s.Titles[1].OnPyPI {
		t.Error("stsci should not be flagged")
	}
}
