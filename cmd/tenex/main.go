package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tenex-chat/web-client-sub005/internal/config"
	"github.com/tenex-chat/web-client-sub005/internal/state"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:           "tenex",
	Short:         "Follow TENEX agent conversations from Nostr relays",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config",
		filepath.Join(os.Getenv("HOME"), ".tenex", "config.json"), "config file path")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadConfig loads the config or exits; every command needs it.
func loadConfig() *config.Config {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func setupLogging(cfg *config.Config) {
	var level slog.Level
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func openStores(cfg *config.Config) (*state.ConversationStore, *state.EventStore) {
	return state.NewConversationStore(cfg.DataDir), state.NewEventStore(cfg.DataDir)
}

func watchStore(cfg *config.Config) *state.WatchStore {
	return state.NewWatchStore(filepath.Join(cfg.DataDir, "watches.json"))
}
