package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/flemzord/confidant/pkg/app"
)

func assembleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assemble <message>...",
		Short: "Dry-run context assembly and history resolution for a message",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := app.TurnRequest{UserMessage: strings.Join(args, " ")}
			req.ConversationID, _ = cmd.Flags().GetString("conversation")
			req.SourceConversationID, _ = cmd.Flags().GetString("source")
			req.BaseContext, _ = cmd.Flags().GetString("base")
			req.ReplyToID, _ = cmd.Flags().GetString("reply-to")
			asJSON, _ := cmd.Flags().GetBool("json")

			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				turn, err := a.PrepareTurn(ctx, req)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if asJSON {
					enc := json.NewEncoder(out)
					enc.SetIndent("", "  ")
					return enc.Encode(turn)
				}

				fmt.Fprintf(out, "run %s: %d parts, ~%d tokens, %d facts, %d excerpts\n",
					turn.Assembly.RunID, len(turn.Assembly.Parts), turn.Assembly.Tokens,
					len(turn.Assembly.FactsUsed), len(turn.Assembly.ExcerptsUsed))
				for _, p := range turn.Assembly.Parts {
					fmt.Fprintf(out, "\n--- %s (~%d tokens)\n%s\n", p.Kind, p.Tokens, p.Text)
				}
				b := turn.Budget
				fmt.Fprintf(out, "\n--- budget: system %d, history %d, reply %d, window %d (available %d)\n",
					b.System, b.History, b.Reserved, b.WindowSize, b.Available())
				fmt.Fprintf(out, "\n--- history (%d turns)\n", len(turn.History))
				for _, t := range turn.History {
					fmt.Fprintf(out, "%s: %s\n", t.Role, t.Text)
				}
				return nil
			})
		},
	}
	cmd.Flags().String("conversation", "default", "Conversation the message belongs to")
	cmd.Flags().String("source", "", "Conversation to inherit history from")
	cmd.Flags().String("base", "", "Base context (persona system prompt)")
	cmd.Flags().String("reply-to", "", "ID of the turn the message replies to")
	cmd.Flags().Bool("json", false, "Print the full result as JSON")
	return cmd
}

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history <conversation>",
		Short: "Print the resolved history window of a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, _ := cmd.Flags().GetString("source")
			pairs, _ := cmd.Flags().GetInt("pairs")

			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				if pairs <= 0 {
					pairs = a.Config.Generation.HistoryLimitPairs
				}
				turns, err := a.History(ctx, args[0], source, pairs, "")
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, t := range turns {
					fmt.Fprintf(out, "%s  %-9s %s\n", t.CreatedAt.Format("2006-01-02 15:04"), t.Role, t.Text)
				}
				if len(turns) == 0 {
					fmt.Fprintln(out, "(no turns)")
				}
				return nil
			})
		},
	}
	cmd.Flags().String("source", "", "Conversation to inherit history from")
	cmd.Flags().Int("pairs", 0, "History limit in pairs (default from config)")
	return cmd
}
