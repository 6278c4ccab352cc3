package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"salesdash/internal/api"
	"salesdash/internal/config"
	"salesdash/internal/engine"
	"salesdash/internal/models"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	// Environment first, flags override; validation waits until flags are parsed.
	cfg, envErr := config.LoadFromEnv()
	if envErr != nil {
		cfg = config.Default()
	}

	root := &cobra.Command{
		Use:          "server",
		Short:        "Sales dashboard API",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if envErr != nil {
				return envErr
			}
			return cfg.Validate()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), cfg)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&cfg.DataPath, "data", cfg.DataPath, "sales CSV to load")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	flags.IntVar(&cfg.TopProducts, "top-products", cfg.TopProducts, "products in the top-N ranking")
	flags.IntVar(&cfg.TopCustomers, "top-customers", cfg.TopCustomers, "customers in the top-N ranking")
	flags.IntVar(&cfg.LoadWorkers, "workers", cfg.LoadWorkers, "parallel CSV parsers")
	root.Flags().StringVar(&cfg.ListenAddr, "listen", cfg.ListenAddr, "HTTP listen address")

	root.AddCommand(newReportCmd(cfg))
	return root
}

func newLogger(cfg *config.Config) *slog.Logger {
	level, _ := cfg.SlogLevel()
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func aggregateOptions(cfg *config.Config) engine.AggregateOptions {
	return engine.AggregateOptions{TopProducts: cfg.TopProducts, TopCustomers: cfg.TopCustomers}
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The API is live immediately and answers 503 until the load finishes.
	h := api.NewHandler(nil, aggregateOptions(cfg))
	e := api.NewServer(h, logger)

	loadErr := make(chan error, 1)
	go func() {
		logger.Info("loading dataset", "path", cfg.DataPath)
		t0 := time.Now()
		table, err := engine.LoadFile(ctx, cfg.DataPath, engine.LoadOptions{Workers: cfg.LoadWorkers, Logger: logger})
		if err != nil {
			loadErr <- fmt.Errorf("load %s: %w", cfg.DataPath, err)
			return
		}
		h.SetTable(table)
		logger.Info("dataset ready", "rows", table.Len(), "elapsed", time.Since(t0))
	}()

	srvErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", cfg.ListenAddr)
		if err := e.Start(cfg.ListenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvErr <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case runErr = <-loadErr:
		logger.Error("dataset load failed", "error", runErr)
	case runErr = <-srvErr:
		logger.Error("server failed", "error", runErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown", "error", err)
	}
	return runErr
}

type reportFlags struct {
	start, end   string
	countries    []string
	descriptions []string
}

func newReportCmd(cfg *config.Config) *cobra.Command {
	var f reportFlags
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print a one-off report for the dataset as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := f.spec(cmd)
			if err != nil {
				return err
			}
			logger := newLogger(cfg)
			table, err := engine.LoadFile(cmd.Context(), cfg.DataPath, engine.LoadOptions{Workers: cfg.LoadWorkers, Logger: logger})
			if err != nil {
				return err
			}
			report, err := engine.Build(table, spec, aggregateOptions(cfg))
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return err
		},
	}
	cmd.Flags().StringVar(&f.start, "start", "", "first day, YYYY-MM-DD")
	cmd.Flags().StringVar(&f.end, "end", "", "last day, YYYY-MM-DD")
	cmd.Flags().StringArrayVar(&f.countries, "country", nil, "restrict to countries (repeatable)")
	cmd.Flags().StringArrayVar(&f.descriptions, "description", nil, "restrict to products (repeatable)")
	return cmd
}

// spec turns the flags into a selection. Flags that were not given leave
// their dimension unrestricted.
func (f reportFlags) spec(cmd *cobra.Command) (models.FilterSpec, error) {
	var spec models.FilterSpec
	if f.start != "" || f.end != "" {
		spec.DateRange = &models.DateRange{}
		for _, p := range []struct {
			raw string
			dst *time.Time
		}{{f.start, &spec.DateRange.Start}, {f.end, &spec.DateRange.End}} {
			if p.raw == "" {
				continue
			}
			ts, err := time.Parse("2006-01-02", p.raw)
			if err != nil {
				return spec, fmt.Errorf("invalid date %q: %w", p.raw, err)
			}
			*p.dst = ts
		}
	}
	if cmd.Flags().Changed("country") {
		spec.Countries = models.NewSet(f.countries...)
	}
	if cmd.Flags().Changed("description") {
		spec.Descriptions = models.NewSet(f.descriptions...)
	}
	return spec, nil
}
