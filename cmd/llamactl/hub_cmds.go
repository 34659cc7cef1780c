package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"llamactl/internal/hub"
)

func printSummaries(models []hub.ModelSummary) error {
	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "MODEL\tDOWNLOADS\tLIKES\tUPDATED")
	for _, m := range models {
		fmt.Fprintf(w, "%s\t%d\t%d\t%s\n", m.ID, m.Downloads, m.Likes, m.LastModified.Format("2006-01-02"))
	}
	return w.Flush()
}

func newRecentCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "recent",
		Short: "List recently updated gguf models on the hub",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			models, err := hub.NewClient(a.cfg.HubBaseURL).Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return printSummaries(models)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Number of results")
	return cmd
}

func newTrendingCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "trending",
		Short: "List trending gguf models on the hub",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			models, err := hub.NewClient(a.cfg.HubBaseURL).Trending(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return printSummaries(models)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Number of results")
	return cmd
}
