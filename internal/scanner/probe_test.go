package scanner

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Bahjat/site-audit/internal/fetcher"
)

func testPathProber(concurrency int) *PathProber {
	return NewPathProber(&http.Transport{
		MaxConnsPerHost:     concurrency,
		MaxIdleConnsPerHost: concurrency,
		IdleConnTimeout:     90 * time.Second,
	}, nil, 5*time.Second, concurrency)
}

func TestProbeAll(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/.env", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/admin", func(w http.ResponseWriter, _ *http.Request) {
		// Redirects to a login page are not exposures.
		w.Header().Set("Location", "/login")
		w.WriteHeader(http.StatusFound)
	})
	mux.HandleFunc("/login", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/wp-admin", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	ts := httptest.NewServer(mux)
	defer ts.Close()

	tests := []struct {
		name        string
		pageURL     string
		paths       []string
		wantStatus  []int
		wantExposed int
	}{
		{
			name:        "mixed responses keep path order",
			pageURL:     ts.URL + "/some/page?q=1",
			paths:       []string{"/.git/config", "/.env", "/admin", "/wp-admin"},
			wantStatus:  []int{404, 200, 302, 403},
			wantExposed: 1,
		},
		{
			name:        "nothing exposed",
			pageURL:     ts.URL,
			paths:       []string{"/phpmyadmin", "/admin"},
			wantStatus:  []int{404, 302},
			wantExposed: 0,
		},
		{
			name:    "empty list",
			pageURL: ts.URL,
			paths:   []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results := testPathProber(5).ProbeAll(context.Background(), tt.pageURL, tt.paths)
			if len(results) != len(tt.wantStatus) {
				t.Fatalf("results = %d, want %d", len(results), len(tt.wantStatus))
			}
			exposed := 0
			for i, r := range results {
				if r.Path != tt.paths[i] {
					t.Errorf("results[%d].Path = %q, want %q", i, r.Path, tt.paths[i])
				}
				if r.StatusCode != tt.wantStatus[i] {
					t.Errorf("%s status = %d, want %d", r.Path, r.StatusCode, tt.wantStatus[i])
				}
				if r.Exposed() {
					exposed++
				}
			}
			if exposed != tt.wantExposed {
				t.Errorf("exposed = %d, want %d", exposed, tt.wantExposed)
			}
		})
	}
}

func TestProbeAll_Concurrency(t *testing.T) {
	var inFlight, peak int64
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		n := atomic.AddInt64(&inFlight, 1)
		for {
			p := atomic.LoadInt64(&peak)
			if n <= p || atomic.CompareAndSwapInt64(&peak, p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		atomic.AddInt64(&inFlight, -1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	results := testPathProber(2).ProbeAll(context.Background(), ts.URL, sensitivePaths)
	if len(results) != len(sensitivePaths) {
		t.Fatalf("results = %d, want %d", len(results), len(sensitivePaths))
	}
	if p := atomic.LoadInt64(&peak); p > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", p)
	}
}

func TestProbeAll_CancelledContext(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, r := range testPathProber(3).ProbeAll(ctx, ts.URL, sensitivePaths) {
		if r.Exposed() {
			t.Errorf("%s reported exposed after cancellation", r.Path)
		}
		if r.Error == "" {
			t.Errorf("%s: expected an error", r.Path)
		}
	}
}

func TestProbeAll_SendsBrowserIdentity(t *testing.T) {
	var (
		mu     sync.Mutex
		agents []string
	)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		agents = append(agents, r.UserAgent())
		mu.Unlock()
		if r.Header.Get("Accept-Language") == "" {
			t.Errorf("%s: Accept-Language not set", r.URL.Path)
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	pacer := fetcher.NewPacer(fetcher.PacerConfig{})
	p := NewPathProber(http.DefaultTransport, pacer, 5*time.Second, 2)
	p.ProbeAll(context.Background(), ts.URL, sensitivePaths)

	if len(agents) != len(sensitivePaths) {
		t.Fatalf("requests = %d, want %d", len(agents), len(sensitivePaths))
	}
	for _, ua := range agents {
		if !strings.HasPrefix(ua, "Mozilla/5.0") {
			t.Errorf("User-Agent = %q, want a browser identity", ua)
		}
	}

	// The probes draw from the shared rotation, so the next page fetch
	// continues the sequence.
	ticket, err := pacer.Wait(context.Background())
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if ticket.Seq != len(sensitivePaths)+1 {
		t.Errorf("next ticket Seq = %d, want %d", ticket.Seq, len(sensitivePaths)+1)
	}
}
