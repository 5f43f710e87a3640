package cli

import (
	"strconv"

	"coined-client/internal/notify"
	"coined-client/internal/session"
	"github.com/spf13/cobra"
)

func newStudentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "students",
		Short: "Roster and coin operations (teacher)",
	}
	cmd.AddCommand(newStudentsListCmd())
	cmd.AddCommand(newStudentsAddCmd())
	cmd.AddCommand(newStudentsRmCmd())
	cmd.AddCommand(newStudentsAwardCmd())
	cmd.AddCommand(newStudentsDeductCmd())
	cmd.AddCommand(newStudentsLedgerCmd())
	return cmd
}

// restoreAndLoad rebuilds the session and pulls the role-appropriate
// catalogs before a command that reads from the cache.
func restoreAndLoad(cmd *cobra.Command, a *app) error {
	if err := a.store.Restore(cmd.Context()); err != nil {
		return err
	}
	a.store.LoadCatalogs(cmd.Context())
	return nil
}

func newStudentsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the roster with balances",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			if err := restoreAndLoad(cmd, a); err != nil {
				return err
			}
			students, state := a.store.Students()
			if state != session.Loaded {
				cmd.Println("roster not loaded")
				return nil
			}
			for _, s := range students {
				cmd.Printf("%s\t%s\t%s\t%d coins\n", s.ID, s.Name, s.Class, a.store.Coins(s.ID))
			}
			return nil
		},
	}
}

func newStudentsAddCmd() *cobra.Command {
	var in session.NewStudentInput
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a student account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			if err := restoreAndLoad(cmd, a); err != nil {
				return err
			}
			student, err := a.store.CreateStudent(cmd.Context(), in)
			if err != nil {
				a.toast(cmd, err.Error(), notify.Error)
				return err
			}
			a.toast(cmd, student.Name+" added", notify.Success)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Name, "name", "", "student name")
	cmd.Flags().StringVar(&in.Class, "class", "", "class label")
	cmd.Flags().StringVar(&in.Email, "email", "", "login email")
	cmd.Flags().StringVar(&in.Password, "password", "", "initial password")
	cmd.Flags().StringVar(&in.ColorTag, "color", "", "roster color tag")
	return cmd
}

func newStudentsRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <student-id>",
		Short: "Delete a student",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			if err := restoreAndLoad(cmd, a); err != nil {
				return err
			}
			if err := a.store.DeleteStudent(cmd.Context(), args[0]); err != nil {
				a.toast(cmd, err.Error(), notify.Error)
				return err
			}
			a.toast(cmd, "Student removed", notify.Success)
			return nil
		},
	}
}

func coinCmd(use, short string, run func(a *app, cmd *cobra.Command, id string, amount int, label, category string) error) *cobra.Command {
	var label, category string
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := strconv.Atoi(args[1])
			if err != nil {
				return err
			}
			a, err := newApp()
			if err != nil {
				return err
			}
			if err := restoreAndLoad(cmd, a); err != nil {
				return err
			}
			return run(a, cmd, args[0], amount, label, category)
		},
	}
	cmd.Flags().StringVar(&label, "label", "", "ledger label")
	cmd.Flags().StringVar(&category, "category", "", "ledger category")
	return cmd
}

func newStudentsAwardCmd() *cobra.Command {
	return coinCmd("award <student-id> <amount>", "Award coins to a student",
		func(a *app, cmd *cobra.Command, id string, amount int, label, category string) error {
			if err := a.store.Award(cmd.Context(), id, amount, label, category); err != nil {
				a.toast(cmd, err.Error(), notify.Error)
				return err
			}
			a.toast(cmd, "Awarded; balance is now "+strconv.Itoa(a.store.Coins(id)), notify.Success)
			return nil
		})
}

func newStudentsDeductCmd() *cobra.Command {
	return coinCmd("deduct <student-id> <amount>", "Deduct coins from a student",
		func(a *app, cmd *cobra.Command, id string, amount int, label, category string) error {
			if err := a.store.Deduct(cmd.Context(), id, amount, label, category); err != nil {
				a.toast(cmd, err.Error(), notify.Error)
				return err
			}
			a.toast(cmd, "Deducted; balance is now "+strconv.Itoa(a.store.Coins(id)), notify.Success)
			return nil
		})
}

func newStudentsLedgerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ledger <student-id>",
		Short: "Show a student's transaction history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			if err := restoreAndLoad(cmd, a); err != nil {
				return err
			}
			student, err := a.store.StudentByID(args[0])
			if err != nil {
				return err
			}
			if err := a.store.LoadTransactions(cmd.Context(), args[0]); err != nil {
				return err
			}
			cmd.Printf("%s\t%d coins\n", student.Name, a.store.Coins(student.ID))
			for _, tx := range a.store.Transactions(args[0]) {
				cmd.Printf("%s\t%+d\t%s\t%s\t%s\n", tx.Date, tx.Amount, tx.Type, tx.Category, tx.Label)
			}
			return nil
		},
	}
}
