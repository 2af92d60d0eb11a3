package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tenex-chat/web-client-sub005/internal/config"
)

func init() {
	rootCmd.AddCommand(setupCmd)
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive setup wizard",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		scanner := bufio.NewScanner(os.Stdin)

		fmt.Println("TENEX Setup Wizard")
		fmt.Println("Press Enter to accept the default value shown in brackets.")
		fmt.Println()

		relays := prompt(scanner, "Relays (comma-separated)", strings.Join(cfg.Nostr.Relays, ","))
		cfg.Nostr.Relays = nil
		for _, r := range strings.Split(relays, ",") {
			if r = strings.TrimSpace(r); r != "" {
				cfg.Nostr.Relays = append(cfg.Nostr.Relays, r)
			}
		}

		cfg.Nostr.Project = prompt(scanner, "Project address (31933:<pubkey>:<d-tag>, optional)", cfg.Nostr.Project)

		lookback := prompt(scanner, "History lookback in hours", strconv.Itoa(cfg.Nostr.LookbackHours))
		if n, err := strconv.Atoi(lookback); err == nil {
			cfg.Nostr.LookbackHours = n
		}

		maxTokens := prompt(scanner, "Digest token budget", strconv.Itoa(cfg.Transcript.MaxTokens))
		if n, err := strconv.Atoi(maxTokens); err == nil {
			cfg.Transcript.MaxTokens = n
		}

		cfg.Telegram.Token = prompt(scanner, "Telegram bot token (optional)", cfg.Telegram.Token)

		httpOn := prompt(scanner, "Enable HTTP API (y/n)", yesNo(cfg.HTTP.Enabled))
		cfg.HTTP.Enabled = strings.HasPrefix(strings.ToLower(httpOn), "y")
		if cfg.HTTP.Enabled {
			cfg.HTTP.Listen = prompt(scanner, "HTTP listen address", cfg.HTTP.Listen)
		}

		if err := config.Save(cfgPath, cfg); err != nil {
			return fmt.Errorf("save config: %w", err)
		}

		fmt.Println()
		fmt.Println("Configuration saved to", cfgPath)
		return nil
	},
}

func yesNo(b bool) string {
	if b {
		return "y"
	}
	return "n"
}

// prompt displays a labeled prompt with a default value and reads user input.
// If the user enters nothing, the default is returned.
func prompt(scanner *bufio.Scanner, label, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", label, defaultVal)
	} else {
		fmt.Printf("%s: ", label)
	}
	if scanner.Scan() {
		input := strings.TrimSpace(scanner.Text())
		if input != "" {
			return input
		}
	}
	return defaultVal
}
