package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/MrWong99/voxdrill/pkg/practice"
)

func newHistoryCmd(c *cli) *cobra.Command {
	var learner string
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List a learner's completed sessions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := c.newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Shutdown(context.WithoutCancel(ctx))
			return printHistory(cmd.OutOrStdout(), a.Practice().History(ctx, learner))
		},
	}
	cmd.Flags().StringVarP(&learner, "learner", "l", "local", "learner id to list")
	return cmd
}

func printHistory(out io.Writer, results []practice.SessionResult) error {
	if len(results) == 0 {
		_, err := fmt.Fprintln(out, "No completed sessions.")
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "COMPLETED\tTOPIC\tSCORE\tVERDICT\tANSWERED")
	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%d\n",
			r.CompletedAt.Local().Format("2006-01-02 15:04"), r.Topic, r.OverallScore, r.Verdict, len(r.Answers))
	}
	return tw.Flush()
}
