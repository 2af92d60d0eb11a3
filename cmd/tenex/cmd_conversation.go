package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/tenex-chat/web-client-sub005/internal/feed"
	"github.com/tenex-chat/web-client-sub005/internal/transcript"
	"github.com/tenex-chat/web-client-sub005/internal/types"
)

func init() {
	rootCmd.AddCommand(conversationCmd)
	conversationCmd.AddCommand(conversationListCmd, conversationShowCmd, conversationStatusCmd, conversationClearCmd)

	conversationShowCmd.Flags().Bool("json", false, "print display items as JSON")
	conversationShowCmd.Flags().Int("max-tokens", -1, "token budget for the transcript (default from config, 0 for unlimited)")
}

var conversationCmd = &cobra.Command{
	Use:     "conversation",
	Aliases: []string{"conv"},
	Short:   "Inspect stored conversations",
}

var conversationListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all conversations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		conversations, events := openStores(loadConfig())

		ctx := context.Background()
		list, err := conversations.List(ctx)
		if err != nil {
			return fmt.Errorf("list conversations: %w", err)
		}
		if len(list) == 0 {
			fmt.Println("No conversations found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTITLE\tEVENTS\tUPDATED")
		for _, c := range list {
			count, err := events.Count(ctx, c.ID)
			if err != nil {
				count = 0
			}
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\n",
				c.ID,
				c.Title,
				count,
				c.UpdatedAt.Format("2006-01-02 15:04:05"),
			)
		}
		return w.Flush()
	},
}

var conversationShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print the projected transcript of a conversation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		conversations, events := openStores(cfg)
		processor := feed.NewProcessor(events, nil)
		id := types.ConversationID(args[0])
		ctx := context.Background()

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			u, err := processor.Project(ctx, id)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(u)
		}

		maxTokens, _ := cmd.Flags().GetInt("max-tokens")
		if maxTokens < 0 {
			maxTokens = cfg.Transcript.MaxTokens
		}
		engine, err := transcript.New(cfg.Transcript.Model, maxTokens)
		if err != nil {
			return fmt.Errorf("create transcript engine: %w", err)
		}
		text, err := feed.NewDigester(conversations, processor, engine, nil, nil).Render(ctx, id)
		if err != nil {
			return err
		}
		fmt.Println(text)
		return nil
	},
}

var conversationStatusCmd = &cobra.Command{
	Use:   "status <id>",
	Short: "Show which agents are working in a conversation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, events := openStores(loadConfig())
		u, err := feed.NewProcessor(events, nil).Project(context.Background(), types.ConversationID(args[0]))
		if err != nil {
			return err
		}
		if len(u.Status) == 0 {
			fmt.Println("No status reported.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SUBJECT\tSCOPE\tWORKERS\tAT")
		for _, s := range u.Status {
			workers := "idle"
			if s.Active() {
				workers = ""
				for i, k := range s.Workers {
					if i > 0 {
						workers += ","
					}
					workers += transcript.ShortKey(k)
				}
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", s.SubjectEventID, s.ScopeID, workers, s.CreatedAt)
		}
		return w.Flush()
	},
}

var conversationClearCmd = &cobra.Command{
	Use:   "clear <id|all>",
	Short: "Remove a conversation or all conversations",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		conversations, events := openStores(loadConfig())
		ctx := context.Background()

		var ids []types.ConversationID
		if args[0] == "all" {
			list, err := conversations.List(ctx)
			if err != nil {
				return fmt.Errorf("list conversations: %w", err)
			}
			for _, c := range list {
				ids = append(ids, c.ID)
			}
		} else {
			if _, err := conversations.Get(ctx, types.ConversationID(args[0])); err != nil {
				return err
			}
			ids = append(ids, types.ConversationID(args[0]))
		}

		for _, id := range ids {
			if err := events.Clear(ctx, id); err != nil {
				return fmt.Errorf("clear events for %s: %w", id, err)
			}
			if err := conversations.Delete(ctx, id); err != nil {
				return fmt.Errorf("delete conversation %s: %w", id, err)
			}
		}
		fmt.Fprintf(os.Stdout, "%d conversation(s) cleared.\n", len(ids))
		return nil
	},
}
