package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/MrWong99/voxdrill/internal/session"
	"github.com/MrWong99/voxdrill/pkg/practice"
)

// Terminal commands recognised during a practice session. Any other input
// line is submitted as an answer.
const (
	cmdNext   = ":next"
	cmdFinish = ":finish"
	cmdQuit   = ":quit"
)

func newPracticeCmd(c *cli) *cobra.Command {
	var (
		learner string
		resume  bool
	)
	cmd := &cobra.Command{
		Use:   "practice [questionId]",
		Short: "Practise a question in the terminal",
		Long: `Start a voice practice session on a question and answer its micro-questions
by typing (or piping a transcript). Enter one answer per line.

  :next    move on without answering
  :finish  end the session early and show the result
  :quit    leave; the session can be resumed with --resume`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && !resume {
				return errors.New("a question id is required unless --resume is set")
			}
			ctx := cmd.Context()
			a, err := c.newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Shutdown(context.WithoutCancel(ctx))

			var qid string
			if len(args) == 1 {
				qid = args[0]
			}
			return runPractice(ctx, a.Practice(), learner, qid, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&learner, "learner", "l", "local", "learner id the session is stored under")
	cmd.Flags().BoolVarP(&resume, "resume", "r", false, "continue the learner's in-flight session")
	return cmd
}

// runPractice drives one session from in to out. An empty questionID
// resumes the learner's in-flight session.
func runPractice(ctx context.Context, p *session.Practice, learner, questionID string, in io.Reader, out io.Writer) error {
	var (
		state practice.SessionState
		err   error
	)
	if questionID == "" {
		var ok bool
		state, ok = p.Resume(ctx, learner)
		if !ok {
			return fmt.Errorf("learner %q has no session to resume", learner)
		}
		fmt.Fprintf(out, "Resuming %s.\n", state.Session.ID)
	} else {
		state, err = p.Begin(ctx, learner, questionID)
		if err != nil {
			return err
		}
	}

	fmt.Fprintf(out, "\n%s\n", state.Session.ContextQuestion)
	fmt.Fprintf(out, "Topic: %s, %d micro-questions. Type %s, %s or %s at any time.\n",
		state.Session.Topic, state.Session.TotalQuestions, cmdNext, cmdFinish, cmdQuit)

	scanner := bufio.NewScanner(in)
	printPrompt(out, state, currentAnswered(state))

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var step session.Step
		switch line {
		case cmdQuit:
			fmt.Fprintln(out, "Session saved. Resume with --resume.")
			return nil
		case cmdFinish:
			result, err := p.Finish(ctx, learner)
			if err != nil {
				return err
			}
			printResult(out, result)
			return nil
		case cmdNext:
			step, err = p.Advance(ctx, learner)
		default:
			step, err = p.Answer(ctx, learner, line)
		}

		switch {
		case errors.Is(err, session.ErrAlreadyAnswered):
			fmt.Fprintf(out, "Already answered. Type %s to continue.\n", cmdNext)
			continue
		case err != nil:
			return err
		}

		if step.Answer != nil {
			fmt.Fprintf(out, "  score %d: %s\n", step.Answer.Score, step.Answer.Feedback)
		}
		if step.Result != nil {
			printResult(out, *step.Result)
			return nil
		}
		printPrompt(out, step.State, step.Answer != nil)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read answers: %w", err)
	}
	fmt.Fprintln(out, "Input closed. Session saved. Resume with --resume.")
	return nil
}

func currentAnswered(state practice.SessionState) bool {
	if state.CurrentQuestionIndex >= len(state.Session.MicroQuestions) {
		return false
	}
	id := state.Session.MicroQuestions[state.CurrentQuestionIndex].ID
	return lo.ContainsBy(state.Answers, func(a practice.MicroAnswer) bool { return a.QuestionID == id })
}

func printPrompt(out io.Writer, state practice.SessionState, answered bool) {
	if answered {
		fmt.Fprintf(out, "(%s for the next question)\n", cmdNext)
		return
	}
	mq := state.Session.MicroQuestions[state.CurrentQuestionIndex]
	fmt.Fprintf(out, "\n[%d/%d, %s] %s\n> ", mq.Order, state.Session.TotalQuestions, mq.Difficulty, mq.Question)
}

func printResult(out io.Writer, r practice.SessionResult) {
	fmt.Fprintf(out, "\n%s\nScore: %d (%s)\n", r.Summary, r.OverallScore, r.Verdict)
	if len(r.Strengths) > 0 {
		fmt.Fprintf(out, "Strengths: %s\n", strings.Join(r.Strengths, ", "))
	}
	if len(r.AreasToImprove) > 0 {
		fmt.Fprintf(out, "Review: %s\n", strings.Join(r.AreasToImprove, ", "))
	}
}
