package main

import (
	"github.com/jrsteele09/go-auth-client/forms"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// NewAccountCmd creates the account command group.
func NewAccountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Show and manage the signed-in account",
	}

	cmd.AddCommand(newAccountShowCmd())
	cmd.AddCommand(newAccountNameCmd())
	cmd.AddCommand(newAccountPlanCmd())
	cmd.AddCommand(newAccountPasswordCmd())
	cmd.AddCommand(newAccountDeleteCmd())

	return cmd
}

func newAccountShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the account details",
		RunE: withApp(func(cmd *cobra.Command, a *app, _ []string) error {
			me, out := forms.NewSettingsForm(a.service, a.paths).Load(cmd.Context())
			if err := report(cmd, out); err != nil {
				return err
			}
			printPrincipal(cmd, me)
			return nil
		}),
	}
}

func newAccountNameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "name FULL_NAME",
		Short: "Change the full name",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			_, out, err := forms.NewSettingsForm(a.service, a.paths).SaveName(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return report(cmd, out)
		}),
	}
}

func newAccountPlanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plan PLAN",
		Short: "Change the subscription plan (free, pro or business)",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			me, out, err := forms.NewSettingsForm(a.service, a.paths).ChangePlan(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := report(cmd, out); err != nil {
				return err
			}
			cmd.Printf("Plan: %s\n", me.Plan)
			return nil
		}),
	}
}

type passwordConfig struct {
	current string
	next    string
	confirm string
}

func newAccountPasswordCmd() *cobra.Command {
	cfg := &passwordConfig{}

	cmd := &cobra.Command{
		Use:   "password",
		Short: "Change the password",
		Long: `Change the password of an email and password account. Accounts
created with Google have no password to change. Every session is signed
out afterwards.`,
		RunE: withApp(func(cmd *cobra.Command, a *app, _ []string) error {
			form := forms.NewSettingsForm(a.service, a.paths)
			confirm := cfg.confirm
			if confirm == "" {
				confirm = cfg.next
			}
			out, err := form.ChangePassword(cmd.Context(), cfg.current, cfg.next, confirm)
			if err != nil {
				return err
			}
			if err := report(cmd, out); err != nil {
				return err
			}
			cmd.Println(forms.ReasonMessage(forms.ReasonPasswordChanged).Text)
			return nil
		}),
	}

	cmd.Flags().StringVar(&cfg.current, "current", "", "current password")
	cmd.Flags().StringVar(&cfg.next, "new", "", "new password (at least 8 characters)")
	cmd.Flags().StringVar(&cfg.confirm, "confirm", "", "new password confirmation (defaults to --new)")

	return cmd
}

func newAccountDeleteCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete the account permanently",
		RunE: withApp(func(cmd *cobra.Command, a *app, _ []string) error {
			if !yes {
				return errors.New("refusing to delete the account without --yes")
			}
			out, err := forms.NewSettingsForm(a.service, a.paths).DeleteAccount(cmd.Context())
			if err != nil {
				return err
			}
			if err := report(cmd, out); err != nil {
				return err
			}
			cmd.Println(forms.ReasonMessage(forms.ReasonDeleted).Text)
			return nil
		}),
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the deletion")

	return cmd
}
