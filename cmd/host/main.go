package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/iudanet/sitekeeper/internal/config"
	"github.com/iudanet/sitekeeper/internal/host"
	hostapi "github.com/iudanet/sitekeeper/internal/host/api"
	"github.com/iudanet/sitekeeper/internal/protocol"
	"github.com/iudanet/sitekeeper/internal/server/middleware"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

const shutdownTimeout = 10 * time.Second

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	configPath := flag.String("config", "", "Path to config file (default: "+config.DefaultPath+")")
	addr := flag.String("addr", "", "Listen address (overrides listen_addr)")
	backendURL := flag.String("backend", "", "Backend URL (overrides backend_url)")
	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.ListenAddr = *addr
	}
	if *backendURL != "" {
		cfg.BackendURL = *backendURL
	}

	logger := cfg.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Host stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	allow, err := protocol.NewAllowList(cfg.ClientOrigins...)
	if err != nil {
		return fmt.Errorf("client origins: %w", err)
	}
	validator, err := protocol.NewValidator(protocol.ClientToHost...)
	if err != nil {
		return fmt.Errorf("failed to build validator: %w", err)
	}

	backend := hostapi.NewClient(cfg.BackendURL)
	// Недоступный backend не мешает старту: сохранения вернут ошибки по полям
	if health, err := backend.Health(ctx); err != nil {
		logger.Warn("Backend is not reachable", "url", cfg.BackendURL, "error", err)
	} else {
		logger.Info("Backend reachable", "url", cfg.BackendURL, "version", health.Version)
	}

	h := host.New(backend, protocol.NewGate(allow, validator), logger)

	mux := http.NewServeMux()
	mux.Handle("/sync", h.Handler(cfg.ClientOrigins))
	mux.Handle("/admin/", middleware.Chain(h.AdminHandler(),
		middleware.Logging(logger),
		middleware.Recovery(logger),
	))

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Host listening", "addr", cfg.ListenAddr, "client_origins", cfg.ClientOrigins, "version", Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		logger.Info("Shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func printVersion() {
	fmt.Printf("Sitekeeper Host\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
