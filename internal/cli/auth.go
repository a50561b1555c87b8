package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSignInCommand(cfgPath *string) *cobra.Command {
	var (
		email    string
		password string
	)

	cmd := &cobra.Command{
		Use:   "signin",
		Short: "Sign in and resolve the session role",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := NewApp(cmd.Context(), *cfgPath)
			if err != nil {
				return err
			}
			defer app.Close()

			login, err := app.Session.SignIn(cmd.Context(), email, password)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "signed in as %s <%s> role=%s manager_access=%t\n",
				login.Identity.Name, login.Identity.Email, login.Identity.Role, login.ManagerAccess)
			if login.Instance != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "onboarding instance %s progress=%d%% status=%s\n",
					login.Instance.ID, login.Instance.Progress, login.Instance.Status)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newSignOutCommand(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "signout",
		Short: "Sign out of the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := NewApp(cmd.Context(), *cfgPath)
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.Session.SignOut(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "signed out")
			return nil
		},
	}
}

func newWhoAmICommand(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current session identity",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := NewApp(cmd.Context(), *cfgPath)
			if err != nil {
				return err
			}
			defer app.Close()

			ident, err := app.Session.Current(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s <%s> role=%s manager_access=%t\n",
				ident.Name, ident.Email, ident.Role, ident.Role.HasManagerAccess())
			return nil
		},
	}
}
