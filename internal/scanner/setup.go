package scanner

import (
	"log/slog"
	"time"

	"github.com/Bahjat/site-audit/internal/fetcher"
	"github.com/Bahjat/site-audit/internal/platform/config"
)

const tlsProbeTimeout = 10 * time.Second

// FromConfig builds the shared fetcher, probers and the five scanners the
// way both binaries run them. Page fetches and path probes share one Pacer.
func FromConfig(cfg config.Config, logger *slog.Logger) []Scanner {
	httpOpts := fetcher.HTTPOptions{
		Timeout:      cfg.FetchTimeout,
		AllowPrivate: cfg.AllowPrivateTargets,
	}
	renderer := fetcher.NewChromeRenderer(fetcher.ChromeOptions{
		Enabled:  cfg.HeadlessEnabled,
		ExecPath: cfg.ChromePath,
	})
	if cfg.HeadlessEnabled && !renderer.Available() {
		logger.Warn("headless rendering enabled but no browser binary found, using plain HTTP")
	}

	pacer := fetcher.NewPacer(fetcher.DefaultPacerConfig(cfg.FetchMinDelay, cfg.FetchMaxDelay))
	f := fetcher.New(
		fetcher.NewHTTPClient(httpOpts),
		pacer,
		logger,
		fetcher.WithTimeout(cfg.FetchTimeout),
		fetcher.WithRenderer(renderer),
	)

	dialer := fetcher.NewDialer(cfg.AllowPrivateTargets)
	return All(
		f,
		NewTLSProber(dialer, nil, tlsProbeTimeout),
		NewPathProber(fetcher.NewTransport(httpOpts), pacer, cfg.ProbeTimeout, cfg.ProbeConcurrency),
	)
}
