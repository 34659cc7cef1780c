package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newPsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ps",
		Short: "Show running inference servers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := a.manager()
			if err != nil {
				return err
			}
			servers, err := mgr.Ps()
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SLUG\tPID\tPORT\tMODEL")
			for _, s := range servers {
				fmt.Fprintf(w, "%s\t%d\t%d\t%s\n", s.Slug, s.PID, s.Port, s.ModelPath)
			}
			return w.Flush()
		},
	}
}

func newKillCmd(a *app) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "kill [slug]",
		Short: "Stop a model's server, or all servers with --all",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := a.manager()
			if err != nil {
				return err
			}
			if all {
				n, err := mgr.KillAll()
				if err != nil {
					return err
				}
				a.log.Info().Int("signaled", n).Msg("kill all finished")
				return nil
			}
			if len(args) != 1 {
				return fmt.Errorf("kill needs a slug or --all")
			}
			return mgr.Kill(args[0])
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Signal every server process")
	return cmd
}
