package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/iudanet/sitekeeper/internal/client/bridge"
	"github.com/iudanet/sitekeeper/internal/client/cli"
	"github.com/iudanet/sitekeeper/internal/client/content"
	"github.com/iudanet/sitekeeper/internal/client/grace"
	"github.com/iudanet/sitekeeper/internal/client/iocli"
	"github.com/iudanet/sitekeeper/internal/client/pending"
	"github.com/iudanet/sitekeeper/internal/client/storage"
	"github.com/iudanet/sitekeeper/internal/client/storage/factory"
	"github.com/iudanet/sitekeeper/internal/config"
	"github.com/iudanet/sitekeeper/internal/models"
	"github.com/iudanet/sitekeeper/internal/protocol"
	"github.com/iudanet/sitekeeper/internal/transport/ws"
	"github.com/iudanet/sitekeeper/pkg/api"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// errOffline is returned by the sender when the host could not be reached at startup
var errOffline = errors.New("host not connected")

type offlineSender struct{}

func (offlineSender) Send(ctx context.Context, env api.Envelope) error {
	return errOffline
}

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	configPath := flag.String("config", "", "Path to config file (default: "+config.DefaultPath+")")
	hostURL := flag.String("host", "", "Host websocket URL (overrides host_url)")
	offline := flag.Bool("offline", false, "Do not connect to the host")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [OPTIONS] [COMMAND...]\n\n", os.Args[0])
		fmt.Fprintln(flag.CommandLine.Output(), "Without a command an interactive console is started.")
		flag.PrintDefaults()
	}
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
	if *hostURL != "" {
		cfg.HostURL = *hostURL
	}

	logger := cfg.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, *offline, flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, offline bool, args []string) error {
	tiers, journal := openTiers(ctx, cfg, logger)
	if len(tiers) == 0 {
		return errors.New("no storage tier could be opened")
	}
	defer func() {
		if err := factory.Close(tiers...); err != nil {
			logger.Error("Failed to close tiers", "error", err)
		}
	}()

	store, err := content.New(tiers, grace.New(cfg.GraceWindow.Std()), logger)
	if err != nil {
		return err
	}

	console := iocli.NewStdio()
	var opts []bridge.Option
	if journal != nil {
		opts = append(opts, bridge.WithJournal(journal))
	}

	allow, err := protocol.NewAllowList(cfg.AllowedOrigins...)
	if err != nil {
		return fmt.Errorf("allowed origins: %w", err)
	}
	validator, err := protocol.NewValidator(protocol.HostToClient...)
	if err != nil {
		return fmt.Errorf("failed to build validator: %w", err)
	}

	var sender bridge.Sender = offlineSender{}
	var peer *ws.Peer
	if !offline {
		peer, err = ws.Dial(ctx, cfg.HostURL, cfg.SiteOrigin, logger)
		if err != nil {
			// Редактирование продолжает работать локально, сохранения остаются в очереди
			logger.Warn("Host unreachable, working offline", "url", cfg.HostURL, "error", err)
		} else {
			sender = peer
			defer func() {
				_ = peer.Close()
			}()
		}
	}

	b := bridge.New(store, pending.New(cfg.EditorID), protocol.NewGate(allow, validator), sender,
		bridge.Config{Scope: cfg.Scope(), SaveTimeout: cfg.SaveTimeout.Std()}, logger, opts...)

	_, report, err := store.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load content: %w", err)
	}

	c := cli.New(console, store, b, journal)
	c.PrintLoadReport(report)

	if peer != nil {
		go func() {
			if err := peer.Run(ctx, b.HandleMessage); err != nil {
				logger.Warn("Host connection lost", "error", err)
			}
		}()
	}

	if len(args) > 0 {
		_, err := c.Exec(ctx, strings.Join(args, " "))
		return err
	}
	return c.Run(ctx)
}

// openTiers opens every configured tier in trust order. A tier that fails to open is skipped
// so that the editor still starts on the remaining ones.
func openTiers(ctx context.Context, cfg *config.Config, logger *slog.Logger) ([]storage.Tier, storage.SaveJournal) {
	dsns := cfg.TierDSNs()

	var (
		tiers   []storage.Tier
		journal storage.SaveJournal
	)
	for _, name := range models.TrustOrder {
		dsn, ok := dsns[name]
		if !ok {
			continue
		}
		tier, err := factory.Open(ctx, name, dsn)
		if err != nil {
			logger.Warn("Failed to open tier", "tier", name, "error", err)
			continue
		}
		tiers = append(tiers, tier)
		if j, ok := tier.(storage.SaveJournal); ok && journal == nil {
			journal = j
		}
	}
	return tiers, journal
}

func printVersion() {
	fmt.Printf("Sitekeeper Client\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
