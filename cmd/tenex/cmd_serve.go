package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/tenex-chat/web-client-sub005/internal/config"
	"github.com/tenex-chat/web-client-sub005/internal/delivery"
	"github.com/tenex-chat/web-client-sub005/internal/feed"
	"github.com/tenex-chat/web-client-sub005/internal/gateway"
	"github.com/tenex-chat/web-client-sub005/internal/ingest"
	"github.com/tenex-chat/web-client-sub005/internal/scheduler"
	"github.com/tenex-chat/web-client-sub005/internal/state"
	"github.com/tenex-chat/web-client-sub005/internal/telegram"
	"github.com/tenex-chat/web-client-sub005/internal/transcript"
	"github.com/tenex-chat/web-client-sub005/internal/types"
	"github.com/tenex-chat/web-client-sub005/internal/webhook"
)

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Follow the configured relays and serve projections",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	})
}

const pidFile = "tenex.pid"

// daemon holds the long-lived pieces wired by serve.
type daemon struct {
	cfg           *config.Config
	conversations *state.ConversationStore
	events        *state.EventStore
	watches       *state.WatchStore
	bus           *feed.Bus
	gw            *gateway.Gateway
	digester      *feed.Digester
	deliveries    *delivery.Registry
}

func newDaemon(cfg *config.Config) (*daemon, error) {
	d := &daemon{cfg: cfg, watches: watchStore(cfg), bus: feed.NewBus(), deliveries: delivery.NewRegistry()}
	d.conversations, d.events = openStores(cfg)

	processor := feed.NewProcessor(d.events, d.bus)
	d.gw = gateway.New(d.conversations, d.events, int64(cfg.MaxConcurrent))
	d.gw.Queue.SetProcessor(processor.Process)

	engine, err := transcript.New(cfg.Transcript.Model, cfg.Transcript.MaxTokens)
	if err != nil {
		return nil, fmt.Errorf("create transcript engine: %w", err)
	}
	d.deliveries.Register("log:", func(target, message string) error {
		slog.Info("digest", "target", target, "text", message)
		return nil
	})
	d.digester = feed.NewDigester(d.conversations, processor, engine, d.deliveries, d.gw.Retry())
	return d, nil
}

func (d *daemon) startTelegram(ctx context.Context) error {
	if d.cfg.Telegram.Token == "" {
		slog.Warn("telegram adapter disabled (no token)")
		return nil
	}
	adapter, err := telegram.New(d.cfg.Telegram.Token, d.conversations, d.digester)
	if err != nil {
		return fmt.Errorf("create telegram adapter: %w", err)
	}
	d.deliveries.Register(telegram.Prefix, adapter.SendTo)
	go adapter.Start(ctx)
	return nil
}

// fireWatch sends one scheduled digest. Watches without a target log it.
func (d *daemon) fireWatch(ctx context.Context, w state.Watch) {
	target := w.Target
	if target == "" {
		target = "log:" + w.Name
	}
	if err := d.digester.Send(ctx, types.ConversationID(w.Conversation), target); err != nil {
		slog.Error("watch digest failed", "watch", w.Name, "conversation", w.Conversation, "error", err)
	}
}

func (d *daemon) startIngest(ctx context.Context) {
	n := d.cfg.Nostr
	if len(n.Relays) == 0 {
		slog.Warn("relay ingest disabled (no relays)")
		return
	}
	in := ingest.New(ingest.Options{
		Relays:   n.Relays,
		Project:  n.Project,
		Lookback: time.Duration(n.LookbackHours) * time.Hour,
	}, d.gw, d.gw.Retry())
	go func() {
		if err := in.Run(ctx); err != nil {
			slog.Error("ingest stopped", "error", err)
		}
	}()
}

func (d *daemon) startHTTP(ctx context.Context) {
	if !d.cfg.HTTP.Enabled {
		return
	}
	srv := &http.Server{
		Addr: d.cfg.HTTP.Listen,
		Handler: webhook.NewServer(webhook.Deps{
			Handler:       d.gw,
			Conversations: d.conversations,
			Events:        d.events,
			Digests:       d.digester,
			Watches:       d.watches,
			Bus:           d.bus,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("http server listening", "listen", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	setupLogging(cfg)

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	pidPath := filepath.Join(cfg.DataDir, pidFile)
	if err := writePID(pidPath); err != nil {
		return err
	}
	defer os.Remove(pidPath)

	d, err := newDaemon(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d.gw.Start(ctx)
	defer d.gw.Stop()

	if err := d.startTelegram(ctx); err != nil {
		return err
	}

	sched := scheduler.New(d.watches, func(w state.Watch) { d.fireWatch(ctx, w) })
	if err := sched.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer sched.Stop()

	d.startIngest(ctx)
	d.startHTTP(ctx)

	slog.Info("tenex started",
		"data_dir", cfg.DataDir,
		"relays", cfg.Nostr.Relays,
		"project", cfg.Nostr.Project,
		"watches", sched.Entries(),
		"http", cfg.HTTP.Enabled,
		"pid_file", pidPath,
	)
	return waitForSignal(pidPath)
}

func writePID(path string) error {
	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0644); err != nil {
		return fmt.Errorf("write PID file: %w", err)
	}
	return nil
}

// waitForSignal blocks until SIGINT or SIGTERM. SIGHUP re-executes the
// binary in place; if that fails the daemon keeps running.
func waitForSignal(pidPath string) error {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigs)

	for sig := range sigs {
		if sig != syscall.SIGHUP {
			slog.Info("shutting down", "signal", sig)
			return nil
		}
		exe, err := os.Executable()
		if err != nil {
			slog.Error("restart: locate executable", "error", err)
			continue
		}
		slog.Info("restarting", "exe", exe)
		os.Remove(pidPath)
		err = syscall.Exec(exe, os.Args, os.Environ())
		// Exec only returns on failure.
		slog.Error("restart: exec failed", "error", err)
		if err := writePID(pidPath); err != nil {
			slog.Error("restart: restore PID file", "error", err)
		}
	}
	return nil
}
