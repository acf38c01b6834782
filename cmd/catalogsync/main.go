// CatalogSync CLI - storefront catalog reconciliation
//
// Usage:
//   catalogsync run --config config.yaml [--update] [--limit N]
//   catalogsync validate --config config.yaml
//   catalogsync template > config.yaml
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"

	"github.com/valpere/CatalogSync/internal/browser"
	"github.com/valpere/CatalogSync/internal/catalog"
	"github.com/valpere/CatalogSync/internal/config"
	clierrors "github.com/valpere/CatalogSync/internal/errors"
	"github.com/valpere/CatalogSync/internal/monitoring"
	"github.com/valpere/CatalogSync/internal/output"
	"github.com/valpere/CatalogSync/internal/reconcile"
	"github.com/valpere/CatalogSync/internal/scraper"
	"github.com/valpere/CatalogSync/internal/utils"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	app := &cli.App{
		Name:    "catalogsync",
		Usage:   "Reconcile catalog prices and stock against the live storefront",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),

		Commands: []*cli.Command{
			runCommand(),
			validateCommand(),
			templateCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprint(os.Stderr, clierrors.FormatForCLI(err))
		os.Exit(clierrors.ExitCode(err))
	}
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Run a reconciliation pass over products with missing price or stock",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "config",
				Aliases:  []string{"c"},
				Usage:    "Path to YAML configuration file",
				Required: true,
				EnvVars:  []string{"CATALOGSYNC_CONFIG"},
			},
			&cli.BoolFlag{
				Name:    "update",
				Aliases: []string{"u"},
				Usage:   "Write verified updates back to the catalog database",
			},
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Process at most N products (0 = all)",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable debug logging",
			},
		},
		Action: runReconciliation,
	}
}

func runReconciliation(c *cli.Context) error {
	cfg, err := config.LoadFromFile(c.String("config"))
	if err != nil {
		return err
	}

	logLevel := cfg.LogLevel
	if c.Bool("verbose") {
		logLevel = "debug"
	}
	logger := utils.NewLoggerWithLevel(utils.ParseLogLevel(logLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := catalog.OpenSQLStore(cfg.Database.Driver, cfg.Database.DSN, cfg.Database.Table)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	if err := store.Ping(ctx); err != nil {
		return fmt.Errorf("database is unreachable: %w", err)
	}

	fetcher := scraper.NewFetcher(scraper.FetcherConfig{
		Timeout:    cfg.Site.RequestTimeout,
		RateLimit:  cfg.Site.RateLimit,
		RateBurst:  cfg.Site.RateBurst,
		UserAgents: cfg.Site.UserAgents,
		Headers:    cfg.Site.Headers,
	})

	if cfg.Site.UseBrowser {
		renderer, err := browser.NewRenderer(browser.DefaultRendererConfig())
		if err != nil {
			return fmt.Errorf("failed to start browser renderer: %w", err)
		}
		defer renderer.Close()
		fetcher.SetRenderer(renderer)
	}

	matcher := scraper.NewMatcher(fetcher)
	discoverer := scraper.NewDiscoverer(scraper.DiscoveryConfig{
		BaseURL:          cfg.Site.BaseURL,
		ProductPath:      cfg.Site.ProductPath,
		SearchPath:       cfg.Site.SearchPath,
		SearchParam:      cfg.Site.SearchParam,
		MaxSearchResults: cfg.Site.MaxSearchResults,
	}, fetcher, matcher)

	engineOpts := []reconcile.EngineOption{
		reconcile.WithDelay(cfg.Reconcile.ProductDelay),
	}

	var monServer *monitoring.Server
	if cfg.Monitoring.Enabled {
		registry := prometheus.NewRegistry()
		metrics := monitoring.NewPipelineMetrics(registry)
		fetcher.SetObserver(metrics)
		engineOpts = append(engineOpts, reconcile.WithMetrics(metrics))

		monServer = monitoring.NewServer(cfg.Monitoring.Address, registry, store)
		monServer.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			monServer.Shutdown(shutdownCtx)
		}()
	}

	engine := reconcile.NewEngine(store, fetcher, discoverer, engineOpts...)

	products, err := store.ProductsMissingPriceOrStock(ctx)
	if err != nil {
		return fmt.Errorf("failed to load products from database: %w", err)
	}

	limit := c.Int("limit")
	if limit == 0 {
		limit = cfg.Reconcile.Limit
	}
	if limit > 0 && limit < len(products) {
		products = products[:limit]
	}

	if len(products) == 0 {
		logger.Info("no products need reconciliation")
		return nil
	}
	logger.WithField("products", len(products)).Info("starting reconciliation run")

	persist := c.Bool("update") || cfg.Reconcile.Persist
	report, runErr := engine.Run(ctx, products, reconcile.Options{Persist: persist})

	// A canceled run still produces a partial report worth keeping.
	if report != nil {
		if monServer != nil {
			monServer.SetReport(report)
		}
		if pubErr := publishReport(ctx, cfg, report); pubErr != nil {
			if runErr == nil {
				return pubErr
			}
			logger.Errorf("failed to publish report: %v", pubErr)
		}
		printSummary(report, persist)
	}

	return runErr
}

func publishReport(ctx context.Context, cfg *config.Config, report *reconcile.Report) error {
	manager, err := output.NewManager(ctx, output.Config{
		Format: cfg.Report.Format,
		File:   cfg.Report.File,
		Mongo: output.MongoOptions{
			URI:        cfg.Report.MongoURI,
			Database:   cfg.Report.MongoDatabase,
			Collection: cfg.Report.MongoCollection,
		},
	})
	if err != nil {
		return err
	}
	defer manager.Close()

	return manager.Publish(ctx, report)
}

func printSummary(report *reconcile.Report, persisted bool) {
	fmt.Printf("\nRun %s\n", report.RunID)
	fmt.Printf("  Checked:         %d\n", report.Summary.Checked)
	fmt.Printf("  Needing updates: %d\n", report.Summary.Updated)
	fmt.Printf("  No changes:      %d\n", report.Summary.NoChanges)
	fmt.Printf("  Not found:       %d\n", report.Summary.NotFound)
	fmt.Printf("  Errors:          %d\n", report.Summary.Errors)
	if !persisted && report.Summary.Updated > 0 {
		fmt.Println("\nDry run: no database writes were made. Re-run with --update to apply.")
	}
}

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:  "validate",
		Usage: "Validate a configuration file",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "config",
				Aliases:  []string{"c"},
				Usage:    "Path to YAML configuration file",
				Required: true,
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.LoadFromFile(c.String("config"))
			if err != nil {
				return err
			}
			if errs := cfg.ValidateDetailed(); len(errs) > 0 {
				for _, e := range errs {
					fmt.Fprintf(os.Stderr, "  %s\n", e.Error())
				}
				return fmt.Errorf("configuration validation failed with %d problem(s)", len(errs))
			}
			fmt.Println("Configuration is valid.")
			return nil
		},
	}
}

func templateCommand() *cli.Command {
	return &cli.Command{
		Name:  "template",
		Usage: "Print an example configuration to stdout",
		Action: func(c *cli.Context) error {
			cfg := config.GenerateTemplate()
			return config.SaveToWriter(&cfg, os.Stdout)
		},
	}
}
