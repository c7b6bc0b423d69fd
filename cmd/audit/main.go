package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/Bahjat/site-audit/internal/audit"
	"github.com/Bahjat/site-audit/internal/model"
	"github.com/Bahjat/site-audit/internal/platform/config"
	"github.com/Bahjat/site-audit/internal/platform/logger"
	"github.com/Bahjat/site-audit/internal/report"
	"github.com/Bahjat/site-audit/internal/scanner"
	"github.com/Bahjat/site-audit/internal/score"
	"github.com/Bahjat/site-audit/internal/store"
)

func main() {
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load(".env")

	var (
		target  = flag.String("url", "", "URL to audit (required)")
		outDir  = flag.String("out", "audit_out", "Output directory")
		formats = flag.String("format", "json,md", "Comma separated report formats: json, md, xlsx")
	)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s -url https://example.com [-out dir] [-format json,md,xlsx]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if *target == "" {
		flag.Usage()
		os.Exit(2)
	}
	fs, err := report.ParseFormats(*formats)
	if err != nil {
		fmt.Fprintf(os.Stderr, "format: %v\n", err)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logger.NewWithWriter(os.Stderr, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	orch := audit.New(store.NewMemory(), scanner.FromConfig(cfg, log), log, audit.WithMaxDuration(cfg.MaxAuditDuration))
	a, runErr := orch.RunURL(ctx, *target)
	if a == nil {
		fmt.Fprintf(os.Stderr, "audit: %v\n", runErr)
		os.Exit(1)
	}

	paths, err := report.Generate(*outDir, a, fs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "report: %v\n", err)
		os.Exit(1)
	}

	if a.Status != model.StatusCompleted {
		fmt.Fprintf(os.Stderr, "audit %s: %s\n", a.Status, a.ErrorMessage)
		for _, p := range paths {
			fmt.Println(p)
		}
		os.Exit(1)
	}

	fmt.Printf("%s: overall %.1f (%s)\n", a.URL, a.Scores.Overall, score.Rating(a.Scores.Overall))
	for _, c := range model.Categories {
		fmt.Printf("  %-13s %5.1f\n", c, a.Scores.Get(c))
	}
	for _, p := range paths {
		fmt.Println(p)
	}
}
