package cli

import (
	"fmt"
	"os"

	"coined-client/internal/notify"
	"coined-client/internal/session"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newQuizCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quiz",
		Short: "Quiz catalog and authoring",
	}
	cmd.AddCommand(newQuizListCmd())
	cmd.AddCommand(newQuizCreateCmd())
	cmd.AddCommand(newQuizRmCmd())
	cmd.AddCommand(newQuizToggleCmd())
	cmd.AddCommand(newQuizResultsCmd())
	return cmd
}

func newQuizListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List quizzes; completed ones show their score",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			if err := restoreAndLoad(cmd, a); err != nil {
				return err
			}
			if !a.store.QuizzesLoaded() {
				cmd.Println("quizzes not loaded")
				return nil
			}
			quizzes, _ := a.store.Quizzes()
			for _, q := range quizzes {
				status := "open"
				if !q.Active {
					status = "inactive"
				}
				if att, done := a.store.AttemptFor(q.ID); done {
					status = fmt.Sprintf("completed %d%%, +%d coins", att.Score, att.CoinsEarned)
				}
				cmd.Printf("%s\t%s\t%s\t%d questions\t%s\n", q.ID, q.Title, q.Subject, len(q.Questions), status)
			}
			return nil
		},
	}
}

// quizFile is the YAML authoring format for quiz create.
type quizFile struct {
	Title            string `yaml:"title"`
	Subject          string `yaml:"subject"`
	Class            string `yaml:"class"`
	MaxCoins         int    `yaml:"max_coins"`
	TimeLimitMinutes int    `yaml:"time_limit_minutes"`
	Active           bool   `yaml:"active"`
	Questions        []struct {
		Text    string   `yaml:"question"`
		Options []string `yaml:"options"`
		Correct int      `yaml:"correct"`
	} `yaml:"questions"`
}

func newQuizCreateCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a quiz from a YAML file (teacher)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			var qf quizFile
			if err := yaml.Unmarshal(data, &qf); err != nil {
				return err
			}

			in := session.NewQuizInput{
				Title:            qf.Title,
				Subject:          qf.Subject,
				Class:            qf.Class,
				MaxCoins:         qf.MaxCoins,
				TimeLimitMinutes: qf.TimeLimitMinutes,
				Active:           qf.Active,
			}
			for _, q := range qf.Questions {
				in.Questions = append(in.Questions, session.NewQuestionInput{
					Text:    q.Text,
					Options: q.Options,
					Correct: q.Correct,
				})
			}

			a, err := newApp()
			if err != nil {
				return err
			}
			if err := restoreAndLoad(cmd, a); err != nil {
				return err
			}
			quiz, err := a.store.CreateQuiz(cmd.Context(), in)
			if err != nil {
				a.toast(cmd, err.Error(), notify.Error)
				return err
			}
			a.toast(cmd, "Quiz created: "+quiz.Title, notify.Success)
			return nil
		},
	}
	cmd.Flags().StringVarP(&path, "file", "f", "quiz.yaml", "quiz definition file")
	return cmd
}

func newQuizRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <quiz-id>",
		Short: "Delete a quiz (teacher)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			if err := restoreAndLoad(cmd, a); err != nil {
				return err
			}
			if err := a.store.DeleteQuiz(cmd.Context(), args[0]); err != nil {
				a.toast(cmd, err.Error(), notify.Error)
				return err
			}
			a.toast(cmd, "Deleted", notify.Success)
			return nil
		},
	}
}

func newQuizToggleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <quiz-id>",
		Short: "Toggle whether a quiz is active (teacher)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			if err := restoreAndLoad(cmd, a); err != nil {
				return err
			}
			quiz, err := a.store.ToggleQuizActive(cmd.Context(), args[0])
			if err != nil {
				a.toast(cmd, err.Error(), notify.Error)
				return err
			}
			state := "inactive"
			if quiz.Active {
				state = "active"
			}
			a.toast(cmd, quiz.Title+" is now "+state, notify.Success)
			return nil
		},
	}
}

func newQuizResultsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "results <quiz-id>",
		Short: "Show aggregated results for a quiz (teacher)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			if err := restoreAndLoad(cmd, a); err != nil {
				return err
			}
			rows, err := a.store.QuizResults(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			for _, r := range rows {
				cmd.Printf("%s\t%d%%\t+%d coins\t%ds\n", r.Student, r.Score, r.CoinsEarned, r.TimeTaken)
			}
			return nil
		},
	}
}
