package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/ssh-vom/bookbinder/internal/books/googlebooks"
	"github.com/ssh-vom/bookbinder/internal/config"
	"github.com/ssh-vom/bookbinder/internal/logging"
	"github.com/ssh-vom/bookbinder/internal/metrics"
	"github.com/ssh-vom/bookbinder/internal/ui"
)

type rootOptions struct {
	configPath  string
	verbose     bool
	metricsAddr string
}

func newRootCmd() *cobra.Command {
	options := &rootOptions{}

	cmd := &cobra.Command{
		Use:          "bookbinder",
		Short:        "Search Google Books from the terminal",
		Long:         "bookbinder sends a free-text query to the Google Books volumes API and lists titles, authors and covers.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(options)
		},
	}

	cmd.PersistentFlags().StringVar(&options.configPath, "config", "", "config file (default is the user config dir)")
	cmd.PersistentFlags().BoolVar(&options.verbose, "verbose", false, "show verbose logs")
	cmd.PersistentFlags().StringVar(&options.metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address, e.g. :9464")

	cmd.AddCommand(newSearchCmd(options))
	return cmd
}

func loadConfig(options *rootOptions) (config.Config, string, error) {
	cfg, path, err := config.Load(options.configPath)
	if err != nil {
		return cfg, path, err
	}
	if options.verbose {
		cfg.Verbose = true
	}
	if options.metricsAddr != "" {
		cfg.MetricsAddr = options.metricsAddr
	}
	return cfg, path, nil
}

func newLogger(cfg config.Config, out io.Writer) *logrus.Logger {
	logger := logging.New(cfg.LogLevel, out)
	if cfg.Verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	return logger
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 30 * time.Second}
}

func newClient(cfg config.Config, httpClient *http.Client, logger *logrus.Logger) (*googlebooks.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return googlebooks.New(
		httpClient,
		cfg.GoogleBooks.BaseURL,
		cfg.GoogleBooks.APIKey,
		googlebooks.WithRateLimit(cfg.GoogleBooks.RateLimit),
		googlebooks.WithLogger(logger),
	), nil
}

func runTUI(options *rootOptions) error {
	cfg, path, err := loadConfig(options)
	if err != nil {
		return err
	}

	logger := newLogger(cfg, io.Discard)
	recorder := metrics.New()
	stopMetrics := serveMetrics(cfg.MetricsAddr, recorder, logger)
	defer stopMetrics()

	httpClient := newHTTPClient()
	buildDeps := func(cfg config.Config) (ui.Dependencies, error) {
		client, err := newClient(cfg, httpClient, logger)
		if err != nil {
			return ui.Dependencies{}, err
		}
		return ui.Dependencies{Provider: client, Thumbnails: client}, nil
	}
	deps, startupErr := buildDeps(cfg)

	program := tea.NewProgram(ui.NewModel(ui.Options{
		Config:     cfg,
		ConfigPath: path,
		Deps:       deps,
		BuildDeps:  buildDeps,
		Logger:     logger,
		Recorder:   recorder,
		StartupErr: startupErr,
	}), tea.WithAltScreen())

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

func serveMetrics(addr string, recorder *metrics.Recorder, logger *logrus.Logger) func() {
	if addr == "" {
		return func() {}
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", recorder.Handler())
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.WithField("addr", addr).Info("serving metrics")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("metrics server stopped")
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	}
}
