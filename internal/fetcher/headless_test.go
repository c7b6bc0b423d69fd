package fetcher

import (
	"testing"
	"time"
)

func TestPageLoadTime(t *testing.T) {
	tests := []struct {
		name  string
		navMS float64
		wall  time.Duration
		want  time.Duration
	}{
		{"navigation timing wins over wall clock", 180.5, 2 * time.Second, 180500 * time.Microsecond},
		{"no navigation entry", 0, 750 * time.Millisecond, 750 * time.Millisecond},
		{"negative entry ignored", -3, 40 * time.Millisecond, 40 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := pageLoadTime(tt.navMS, tt.wall); got != tt.want {
				t.Errorf("pageLoadTime(%v, %v) = %v, want %v", tt.navMS, tt.wall, got, tt.want)
			}
		})
	}
}

func TestChromeRenderer_UnavailableWithoutBrowser(t *testing.T) {
	r := NewChromeRenderer(ChromeOptions{Enabled: false, ExecPath: "/nonexistent/chrome"})
	if r.Available() {
		t.Error("Available() = true for a disabled renderer")
	}
}
