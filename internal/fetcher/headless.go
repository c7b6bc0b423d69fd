package fetcher

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/http"
	"os/exec"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// StealthScript hides the most common automation fingerprints. It is an
// anti-detection measure, not part of scoring, and can be replaced or
// disabled through ChromeOptions.InitScripts.
const StealthScript = `
Object.defineProperty(navigator, 'webdriver', {get: () => undefined});
Object.defineProperty(navigator, 'plugins', {get: () => [1, 2, 3, 4, 5]});
Object.defineProperty(navigator, 'languages', {get: () => ['en-US', 'en']});
window.chrome = window.chrome || {runtime: {}};
`

// navigationTimingJS returns loadEventEnd - fetchStart of the main document
// in milliseconds, or 0 before the load event has finished.
const navigationTimingJS = `(() => {
  const e = performance.getEntriesByType('navigation')[0];
  return e && e.loadEventEnd > 0 ? e.loadEventEnd - e.fetchStart : 0;
})()`

var viewports = [][2]int64{
	{1920, 1080},
	{1366, 768},
	{1536, 864},
	{1440, 900},
	{1280, 720},
}

var chromeCandidates = []string{
	"google-chrome",
	"google-chrome-stable",
	"chromium",
	"chromium-browser",
	"headless-shell",
}

// ChromeOptions configures ChromeRenderer.
type ChromeOptions struct {
	Enabled     bool
	ExecPath    string
	InitScripts []string
}

// ChromeRenderer renders pages in a headless Chrome via the DevTools protocol.
type ChromeRenderer struct {
	enabled  bool
	execPath string
	scripts  []string
}

// NewChromeRenderer resolves the browser binary once. Without one the
// renderer reports itself unavailable and the fetcher goes straight to HTTP.
func NewChromeRenderer(opts ChromeOptions) *ChromeRenderer {
	path := opts.ExecPath
	if path == "" {
		for _, name := range chromeCandidates {
			if p, err := exec.LookPath(name); err == nil {
				path = p
				break
			}
		}
	}
	scripts := opts.InitScripts
	if scripts == nil {
		scripts = []string{StealthScript}
	}
	return &ChromeRenderer{
		enabled:  opts.Enabled && path != "",
		execPath: path,
		scripts:  scripts,
	}
}

// Available reports whether a browser binary was found and rendering is enabled.
func (r *ChromeRenderer) Available() bool { return r.enabled }

// Render navigates to url in a fresh browser and returns the serialized DOM
// together with the main document's status and headers.
func (r *ChromeRenderer) Render(ctx context.Context, url, userAgent string) (*Rendered, error) {
	vp := viewports[rand.IntN(len(viewports))]

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.ExecPath(r.execPath),
		chromedp.UserAgent(userAgent),
		chromedp.WindowSize(int(vp[0]), int(vp[1])),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)
	defer cancelTab()

	var (
		mu      sync.Mutex
		status  int64
		headers = http.Header{}
	)
	chromedp.ListenTarget(tabCtx, func(ev any) {
		e, ok := ev.(*network.EventResponseReceived)
		if !ok || e.Type != network.ResourceTypeDocument || e.Response == nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		// Redirect hops arrive first; the last document response wins.
		status = e.Response.Status
		headers = http.Header{}
		for k, v := range e.Response.Headers {
			headers.Set(k, fmt.Sprint(v))
		}
	})

	// The first Run launches the browser, so set-up stays outside the timed
	// navigation.
	setup := []chromedp.Action{network.Enable(), chromedp.EmulateViewport(vp[0], vp[1])}
	for _, script := range r.scripts {
		setup = append(setup, chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(script).Do(ctx)
			return err
		}))
	}
	if err := chromedp.Run(tabCtx, setup...); err != nil {
		return nil, fmt.Errorf("headless start: %w", err)
	}

	var (
		html  string
		navMS float64
	)
	start := time.Now()
	if err := chromedp.Run(tabCtx, chromedp.Navigate(url)); err != nil {
		return nil, fmt.Errorf("headless render: %w", err)
	}
	wall := time.Since(start)
	if err := chromedp.Run(tabCtx,
		chromedp.Evaluate(navigationTimingJS, &navMS),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	); err != nil {
		return nil, fmt.Errorf("headless render: %w", err)
	}
	loadTime := pageLoadTime(navMS, wall)

	mu.Lock()
	defer mu.Unlock()
	return &Rendered{
		HTML:       html,
		StatusCode: int(status),
		Headers:    headers,
		LoadTime:   loadTime,
	}, nil
}

// pageLoadTime prefers the browser's navigation timing and falls back to the
// wall-clock duration of Navigate when the entry is missing.
func pageLoadTime(navMS float64, wall time.Duration) time.Duration {
	if navMS > 0 {
		return time.Duration(navMS * float64(time.Millisecond))
	}
	return wall
}
