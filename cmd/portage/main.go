package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/MikeSquared-Agency/portage/internal/assets"
	"github.com/MikeSquared-Agency/portage/internal/config"
	"github.com/MikeSquared-Agency/portage/internal/pipeline"
	"github.com/MikeSquared-Agency/portage/internal/source"
)

func main() {
	mappingPath := flag.String("mapping", "portage.yaml", "migration mapping file")
	overlayPath := flag.String("mapping-override", "", "partial mapping merged over the base mapping")
	sourceDir := flag.String("source", "", "directory of exported source collections")
	outDir := flag.String("out", "", "output directory (overrides PORTAGE_OUTPUT_DIR)")
	locale := flag.String("locale", "", "migrate a single locale only")
	dryRun := flag.Bool("dry-run", false, "transform without writing output artifacts")
	flag.Parse()

	rt := config.LoadRuntime()
	if *outDir != "" {
		rt.OutputDir = *outDir
	}
	setupLogging(rt.LogLevel)

	mapping, err := config.LoadMapping(*mappingPath)
	if err != nil {
		slog.Error("invalid mapping", "path", *mappingPath, "error", err)
		os.Exit(1)
	}
	if *overlayPath != "" {
		overlay, err := config.LoadOverlay(*overlayPath)
		if err != nil {
			slog.Error("invalid mapping overlay", "path", *overlayPath, "error", err)
			os.Exit(1)
		}
		merged := config.Merge(*mapping, *overlay)
		mapping = &merged
	}
	if *locale != "" {
		mapping.Locales = []string{*locale}
		mapping.DefaultLocale = *locale
	}

	if *sourceDir == "" {
		slog.Error("-source is required")
		os.Exit(1)
	}
	fetcher := source.NewFileFetcher(*sourceDir)

	manifest, err := assets.OpenManifest(rt.ManifestPath)
	if err != nil {
		slog.Error("failed to open asset manifest", "path", rt.ManifestPath, "error", err)
		os.Exit(1)
	}
	defer manifest.Close()

	reg := assets.NewRegistry(assets.Options{
		StagingDir:     rt.StagingDir,
		ManagedPrefix:  mapping.ManagedMedia,
		RetryAttempts:  rt.RetryAttempts,
		RetryBaseDelay: rt.RetryBaseDelay,
		HTTPTimeout:    rt.HTTPTimeout,
		Workers:        rt.DownloadWorkers,
	}, manifest, slog.Default())

	runner, err := pipeline.New(rt, mapping, fetcher, reg, nil, *dryRun, slog.Default())
	if err != nil {
		slog.Error("configuration rejected", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		slog.Info("interrupt, cancelling run")
		cancel()
	}()

	summary, err := runner.Run(ctx)
	if err != nil {
		slog.Error("run failed", "stage", summary.Stage, "error", err)
		os.Exit(1)
	}

	fmt.Printf("run %s: %d stories (%d skipped), %d links downgraded, %d assets failed\n",
		summary.RunID, summary.StoriesCreated, summary.ItemsSkipped,
		summary.LinksDowngraded, summary.AssetsFailed)
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}
