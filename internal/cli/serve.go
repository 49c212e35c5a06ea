package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"file-monitor-dashboard/internal/demo"
	httpapi "file-monitor-dashboard/internal/http"
)

const shutdownTimeout = 5 * time.Second

type serveOptions struct {
	demo       bool
	demoDir    string
	listenAddr string
}

func (o *serveOptions) bind(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&o.demo, "demo", false, "run against an in-process demo backend")
	cmd.Flags().StringVar(&o.demoDir, "demo-dir", "", "directory the demo backend watches on startup")
	cmd.Flags().StringVar(&o.listenAddr, "listen", "", "HTTP listen address (overrides config)")
}

func newServeCommand(opts *rootOptions) *cobra.Command {
	serve := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Poll the backend and serve the dashboard API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts, serve)
		},
	}
	serve.bind(cmd)
	return cmd
}

func runServe(ctx context.Context, opts *rootOptions, serve *serveOptions) error {
	cfg := opts.cfg
	logger := opts.logger
	if serve.demo {
		cfg.DemoMode = true
	}
	if serve.demoDir != "" {
		cfg.DemoDirectory = serve.demoDir
	}
	if serve.listenAddr != "" {
		cfg.HTTPListenAddr = serve.listenAddr
	}

	if cfg.DemoMode {
		backendURL, stopDemo, err := startDemoBackend(cfg.DemoDirectory, cfg.DemoExtensions, opts)
		if err != nil {
			return err
		}
		defer stopDemo()
		cfg.BackendURL = backendURL
		logger.Info("running in demonstration mode", "backend", backendURL)
	}

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	cutoff := time.Now().Add(-cfg.AuditRetention)
	if pruned, err := a.audit.DeleteOlderThan(ctx, cutoff); err != nil {
		logger.Warn("failed to prune command history", "error", err)
	} else if pruned > 0 {
		logger.Info("pruned command history", "records", pruned)
	}

	a.collector.Start(ctx)

	if cfg.DemoMode && cfg.DemoDirectory != "" {
		if _, err := a.commands.StartWatch(ctx, cfg.DemoDirectory); err != nil {
			logger.Warn("demo watcher did not start", "directory", cfg.DemoDirectory, "error", err)
		}
	}

	server := &http.Server{
		Addr: cfg.HTTPListenAddr,
		Handler: httpapi.New(a.collector, a.commands, httpapi.Options{
			PageTitle:    cfg.PageTitle,
			PollInterval: cfg.EventsInterval,
			Audit:        a.audit,
			Metrics:      a.metrics.Handler(),
			StaticDir:    cfg.StaticDir,
		}),
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
	}

	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		defer close(shutdownDone)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", "error", err)
		}
	}()

	logger.Info("file monitor dashboard listening", "addr", cfg.HTTPListenAddr, "backend", a.client.BaseURL())
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	<-shutdownDone
	return nil
}

// startDemoBackend serves the demo backend on a loopback port and returns its URL.
func startDemoBackend(directory string, extensions []string, opts *rootOptions) (string, func(), error) {
	backend := demo.New(demo.Options{
		PickDirectory:        directory,
		SuspiciousExtensions: extensions,
		Logger:               opts.logger,
	})

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", nil, fmt.Errorf("listen for demo backend: %w", err)
	}

	server := &http.Server{Handler: backend, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			opts.logger.Error("demo backend stopped", "error", err)
		}
	}()

	stop := func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = server.Shutdown(ctx)
		_ = backend.Close()
	}
	return "http://" + listener.Addr().String(), stop, nil
}
