package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/MrWong99/voxdrill/internal/generator"
	"github.com/MrWong99/voxdrill/pkg/practice"
)

func newQuestionsCmd(c *cli) *cobra.Command {
	var (
		channel string
		search  string
		limit   int
	)
	cmd := &cobra.Command{
		Use:   "questions",
		Short: "List the loaded question banks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := c.newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Shutdown(context.WithoutCancel(ctx))

			var qs []practice.Question
			if search != "" {
				qs = a.Catalog().Search(ctx, search, limit)
				if channel != "" {
					qs = lo.Filter(qs, func(q practice.Question, _ int) bool { return q.Channel == channel })
				}
			} else {
				qs = a.Catalog().List(ctx, channel)
				if limit > 0 && len(qs) > limit {
					qs = qs[:limit]
				}
			}
			return printQuestions(cmd.OutOrStdout(), qs)
		},
	}
	cmd.Flags().StringVar(&channel, "channel", "", "only list questions from this channel")
	cmd.Flags().StringVarP(&search, "search", "s", "", "fuzzy search question text and keywords")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "maximum number of questions to list (0 for all)")
	return cmd
}

// printQuestions lists qs with a PRACTICE column telling whether each one
// has enough keywords to generate a voice session.
func printQuestions(out io.Writer, qs []practice.Question) error {
	if len(qs) == 0 {
		_, err := fmt.Fprintln(out, "No questions found.")
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCHANNEL\tDIFFICULTY\tKEYWORDS\tPRACTICE\tQUESTION")
	for _, q := range qs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			q.ID, q.Channel, q.Difficulty, len(q.VoiceKeywords),
			lo.Ternary(generator.IsPracticable(q), "yes", "no"), truncate(q.Question, 60))
	}
	return tw.Flush()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
