package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/tenex-chat/web-client-sub005/internal/scheduler"
	"github.com/tenex-chat/web-client-sub005/internal/state"
)

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.AddCommand(watchAddCmd, watchListCmd, watchRemoveCmd, watchEnableCmd, watchDisableCmd)

	watchAddCmd.Flags().String("name", "", "watch name (required)")
	watchAddCmd.Flags().String("conversation", "", "conversation root event id (required)")
	watchAddCmd.Flags().String("schedule", "", "cron schedule expression; empty for webhook-only watches")
	watchAddCmd.Flags().String("target", "", "delivery target, e.g. telegram:<chat id> or log:<label>")
	_ = watchAddCmd.MarkFlagRequired("name")
	_ = watchAddCmd.MarkFlagRequired("conversation")
}

func watches() *state.WatchStore {
	return watchStore(loadConfig())
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Manage scheduled conversation digests",
}

var watchAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a new watch",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		conversation, _ := cmd.Flags().GetString("conversation")
		schedule, _ := cmd.Flags().GetString("schedule")
		target, _ := cmd.Flags().GetString("target")

		if schedule != "" {
			if err := scheduler.ValidateSchedule(schedule); err != nil {
				return fmt.Errorf("invalid schedule %q: %w", schedule, err)
			}
		}

		w := &state.Watch{
			Name:         name,
			Conversation: conversation,
			Schedule:     schedule,
			Target:       target,
			Enabled:      true,
		}
		if err := watches().Add(w); err != nil {
			return fmt.Errorf("add watch: %w", err)
		}
		fmt.Fprintf(os.Stdout, "Watch %q added.\n", name)
		return nil
	},
}

var watchListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all watches",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		list, err := watches().List()
		if err != nil {
			return fmt.Errorf("list watches: %w", err)
		}
		if len(list) == 0 {
			fmt.Println("No watches configured.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tCONVERSATION\tSCHEDULE\tENABLED\tTARGET")
		for _, wt := range list {
			fmt.Fprintf(w, "%s\t%s\t%s\t%v\t%s\n",
				wt.Name,
				wt.Conversation,
				wt.Schedule,
				wt.Enabled,
				wt.Target,
			)
		}
		return w.Flush()
	},
}

var watchRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a watch",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := watches().Remove(args[0]); err != nil {
			return fmt.Errorf("remove watch: %w", err)
		}
		fmt.Fprintf(os.Stdout, "Watch %q removed.\n", args[0])
		return nil
	},
}

var watchEnableCmd = &cobra.Command{
	Use:   "enable <name>",
	Short: "Enable a watch",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setWatchEnabled(args[0], true)
	},
}

var watchDisableCmd = &cobra.Command{
	Use:   "disable <name>",
	Short: "Disable a watch",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setWatchEnabled(args[0], false)
	},
}

func setWatchEnabled(name string, enabled bool) error {
	verb := "enabled"
	if !enabled {
		verb = "disabled"
	}
	if err := watches().SetEnabled(name, enabled); err != nil {
		return fmt.Errorf("%s watch: %w", verb[:len(verb)-1], err)
	}
	fmt.Fprintf(os.Stdout, "Watch %q %s.\n", name, verb)
	return nil
}
