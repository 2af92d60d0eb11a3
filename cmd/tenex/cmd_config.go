package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tenex-chat/web-client-sub005/internal/config"
)

func init() {
	configCmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "Print every setting (secrets masked)",
			Args:  cobra.NoArgs,
			RunE:  runConfigList,
		},
		&cobra.Command{
			Use:   "get <key>",
			Short: "Print one setting by dotted key, e.g. nostr.project",
			Args:  cobra.ExactArgs(1),
			RunE:  runConfigGet,
		},
		&cobra.Command{
			Use:   "set <key> <value>",
			Short: "Change one setting",
			Long:  "Change one setting. Values that parse as JSON are stored typed, e.g. nostr.relays '[\"wss://relay\"]'.",
			Args:  cobra.ExactArgs(2),
			RunE:  runConfigSet,
		},
	)
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

func runConfigList(cmd *cobra.Command, args []string) error {
	values, err := config.ListValues(loadConfig(), true)
	if err != nil {
		return fmt.Errorf("list config: %w", err)
	}
	out := cmd.OutOrStdout()
	for _, k := range config.SortedKeys(values) {
		fmt.Fprintf(out, "%s = %v\n", k, values[k])
	}
	return nil
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	key := args[0]
	val, err := config.GetValue(cfgPath, key)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), config.MaskSecrets(map[string]any{key: val})[key])
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, raw := args[0], args[1]
	if err := config.SetValue(cfgPath, key, raw); err != nil {
		return err
	}
	if config.IsSecretKey(key) {
		raw = "***"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s set to %s\n", key, raw)
	return nil
}
