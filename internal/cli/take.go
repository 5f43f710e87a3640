package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"
	"time"

	"coined-client/internal/attempt"
	"coined-client/internal/domain"
	"github.com/spf13/cobra"
)

var optionLabels = []string{"A", "B", "C", "D"}

func newTakeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "take <quiz-id>",
		Short: "Take a quiz interactively (student)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			if err := restoreAndLoad(cmd, a); err != nil {
				return err
			}

			sess, err := attempt.Begin(a.store, args[0], attempt.WithAutoAdvance(a.advanceDelay))
			switch {
			case errors.Is(err, domain.ErrCatalogLoading):
				cmd.Println("quizzes are still loading, try again in a moment")
				return nil
			case errors.Is(err, domain.ErrQuizNotFound):
				cmd.Println("quiz not found")
				return nil
			case errors.Is(err, domain.ErrQuizAttempted):
				if att, ok := a.store.AttemptFor(args[0]); ok {
					cmd.Printf("already completed: %d%%, +%d coins\n", att.Score, att.CoinsEarned)
				} else {
					cmd.Println("already completed")
				}
				return nil
			case err != nil:
				return err
			}
			defer sess.Close()

			quiz := sess.Quiz()
			cmd.Printf("%s", quiz.Title)
			if quiz.Subject != "" {
				cmd.Printf(" (%s)", quiz.Subject)
			}
			cmd.Printf("\n%d questions, %s, up to %d coins\n",
				len(quiz.Questions), formatSeconds(sess.Remaining()), quiz.MaxCoins)
			cmd.Println("One attempt only; once you start there is no going back.")
			cmd.Print("Press enter to start... ")

			in := bufio.NewScanner(cmd.InOrStdin())
			in.Scan()
			sess.Start(cmd.Context())

			for sess.Phase() == attempt.PhaseQuiz {
				q, idx := sess.Question()
				cmd.Printf("\n[%s] Question %d/%d: %s\n",
					formatSeconds(sess.Remaining()), idx+1, len(quiz.Questions), q.Text)
				for i, opt := range q.Options {
					cmd.Printf("  %s) %s\n", optionLabels[i], opt)
				}
				cmd.Print("answer> ")
				if !in.Scan() {
					break
				}

				choice, ok := parseChoice(in.Text(), len(q.Options))
				if !ok {
					cmd.Println("pick one of A-D")
					continue
				}
				sess.Select(choice)
				correct, confirmed := sess.Confirm()
				if !confirmed {
					// Time ran out while answering; the session resolved itself.
					continue
				}
				if correct {
					cmd.Println("correct!")
				} else {
					cmd.Printf("wrong, the answer was %s\n", optionLabels[q.Correct])
				}
				waitForAdvance(sess, idx)
			}

			if res, ok := sess.Result(); ok {
				cmd.Printf("\nScore: %d%% (%d/%d correct), +%d coins\n",
					res.Score, res.Correct, res.Total, res.CoinsEarned)
				if res.Degraded {
					cmd.Println("offline result: graded locally, not recorded by the portal")
				}
			}
			return nil
		},
	}
}

// waitForAdvance blocks until the auto-advance delay moves the session
// past the question at idx, showing the revealed answer in the meantime.
func waitForAdvance(sess *attempt.Session, idx int) {
	for sess.Phase() == attempt.PhaseQuiz {
		if _, i := sess.Question(); i != idx {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func parseChoice(raw string, options int) (int, bool) {
	raw = strings.TrimSpace(strings.ToUpper(raw))
	if raw == "" {
		return 0, false
	}
	for i, label := range optionLabels[:options] {
		if raw == label {
			return i, true
		}
	}
	if n := int(raw[0] - '0'); len(raw) == 1 && n >= 1 && n <= options {
		return n - 1, true
	}
	return 0, false
}

func formatSeconds(s int) string {
	return fmt.Sprintf("%02d:%02d", s/60, s%60)
}
