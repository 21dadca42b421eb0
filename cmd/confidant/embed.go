package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/flemzord/confidant/internal/embedding"
	"github.com/flemzord/confidant/pkg/app"
)

func modelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "Manage local embedding models",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List catalog models and whether they are installed",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(_ context.Context, a *app.App) error {
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tDIMS\tINSTALLED")
				for _, m := range a.Engine.Status().Catalog {
					fmt.Fprintf(tw, "%s\t%d\t%t\n", m.ID, m.Dims, m.Downloaded)
				}
				return tw.Flush()
			})
		},
	}, &cobra.Command{
		Use:   "install <id>",
		Short: "Install a catalog model into the model directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(_ context.Context, a *app.App) error {
				path, err := a.InstallModel(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "installed %s at %s\n", args[0], path)
				return nil
			})
		},
	})
	return cmd
}

func embedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "embed <text>...",
		Short: "Embed text and print its dimensions and self-similarity",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			providerName, _ := cmd.Flags().GetString("provider")
			model, _ := cmd.Flags().GetString("model")
			text := strings.Join(args, " ")

			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				var embedder embedding.Embedder = a.Engine
				if providerName != "" {
					embedder = a.Engine.Remote(providerName, model)
				} else if model != "" {
					if err := a.Engine.LoadModel(ctx, model); err != nil {
						return err
					}
				}

				v, err := embedder.Embed(ctx, text)
				if err != nil {
					return err
				}
				again, err := embedder.Embed(ctx, text)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if id, ok := a.Engine.CurrentModel(); ok && providerName == "" {
					fmt.Fprintf(out, "model:           %s\n", id)
				}
				fmt.Fprintf(out, "dims:            %d\n", len(v))
				fmt.Fprintf(out, "self-similarity: %.4f\n", embedding.CosineSimilarity(v, again))
				return nil
			})
		},
	}
	cmd.Flags().String("provider", "", "Embed through a remote provider instead of the local model")
	cmd.Flags().String("model", "", "Local catalog model to load, or remote embedding model")
	return cmd
}

func backfillCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Embed stored facts and excerpts that have no vector",
		RunE: func(cmd *cobra.Command, _ []string) error {
			all, _ := cmd.Flags().GetBool("all")
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				report, err := a.Backfill.Run(ctx, all)
				fmt.Fprintf(cmd.OutOrStdout(), "facts: %d, excerpts: %d\n", report.Facts, report.Excerpts)
				return err
			})
		},
	}
	cmd.Flags().Bool("all", false, "Recompute every vector, not only missing ones")
	return cmd
}
