package cli

import (
	"coined-client/internal/notify"
	"github.com/spf13/cobra"
)

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login <email> <password>",
		Short: "Sign in and persist the session token",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			role, err := a.store.Login(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			a.toast(cmd, "Signed in as "+string(role), notify.Success)
			return nil
		},
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Discard the token and every cached collection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			if err := a.store.Logout(cmd.Context()); err != nil {
				return err
			}
			a.toast(cmd, "Signed out", notify.Success)
			return nil
		},
	}
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the restored identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			if err := a.store.Restore(cmd.Context()); err != nil {
				return err
			}
			identity, ok := a.store.Identity()
			if !ok {
				cmd.Println("not logged in")
				return nil
			}
			cmd.Printf("%s <%s> role=%s", identity.Name, identity.Email, identity.Role)
			if identity.Role == "student" {
				cmd.Printf(" coins=%d", identity.Coins)
			}
			cmd.Println()
			return nil
		},
	}
}
