package main

import (
	"github.com/jrsteele09/go-auth-client/federated/google"
	"github.com/jrsteele09/go-auth-client/forms"
	"github.com/jrsteele09/go-auth-client/guard"
	"github.com/spf13/cobra"
)

type loginConfig struct {
	email    string
	password string
	next     string
}

// NewLoginCmd creates the login subcommand.
func NewLoginCmd() *cobra.Command {
	cfg := &loginConfig{}

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		Long: `Sign in with email and password. The password is read from stdin
when --password is not given.`,
		RunE: withApp(func(cmd *cobra.Command, a *app, _ []string) error {
			password, err := readSecret(cmd, cfg.password, "Password")
			if err != nil {
				return err
			}

			form := forms.NewLoginForm(a.service, a.paths, cfg.next)
			out, err := form.Submit(cmd.Context(), cfg.email, password)
			if err != nil {
				return err
			}
			if err := report(cmd, out); err != nil {
				return err
			}
			return printSignedIn(cmd, a, out.Redirect)
		}),
	}

	cmd.Flags().StringVar(&cfg.email, "email", "", "account email")
	cmd.Flags().StringVar(&cfg.password, "password", "", "account password")
	cmd.Flags().StringVar(&cfg.next, "next", "", "page to continue to after sign-in")

	return cmd
}

func printSignedIn(cmd *cobra.Command, a *app, next string) error {
	me, ok := a.store.Principal()
	if !ok {
		cmd.Println("Signed in.")
		return nil
	}
	cmd.Printf("Signed in as %s <%s>. Continue at %s\n", me.DisplayName(), me.Email, next)
	return nil
}

type registerConfig struct {
	input forms.RegisterInput
	next  string
}

// NewRegisterCmd creates the register subcommand.
func NewRegisterCmd() *cobra.Command {
	cfg := &registerConfig{}

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Long: `Create an email and password account. A verification email is sent;
sign in after following its link.`,
		RunE: withApp(func(cmd *cobra.Command, a *app, _ []string) error {
			password, err := readSecret(cmd, cfg.input.Password, "Password")
			if err != nil {
				return err
			}
			in := cfg.input
			in.Password = password
			if in.Confirm == "" {
				in.Confirm = password
			}

			out, err := forms.NewRegisterForm(a.service, a.paths, cfg.next).Submit(cmd.Context(), in)
			if err != nil {
				return err
			}
			return report(cmd, out)
		}),
	}

	cmd.Flags().StringVar(&cfg.input.FullName, "name", "", "full name")
	cmd.Flags().StringVar(&cfg.input.Email, "email", "", "account email")
	cmd.Flags().StringVar(&cfg.input.Password, "password", "", "password (at least 8 characters)")
	cmd.Flags().StringVar(&cfg.input.Confirm, "confirm", "", "password confirmation (defaults to --password)")
	cmd.Flags().BoolVar(&cfg.input.AcceptedTerms, "accept-terms", false, "accept the terms of service")
	cmd.Flags().StringVar(&cfg.next, "next", "", "page to continue to after sign-in")

	return cmd
}

// NewGoogleCmd creates the google subcommand.
func NewGoogleCmd() *cobra.Command {
	var next string

	cmd := &cobra.Command{
		Use:   "google",
		Short: "Sign in with Google",
		Long: `Sign in with a Google account. A consent URL is printed; after you
approve it the browser returns to a loopback address on this machine.`,
		RunE: withApp(func(cmd *cobra.Command, a *app, _ []string) error {
			flow, err := google.New(cmd.Context(), a.cfg)
			if err != nil {
				return err
			}

			idToken, _, err := flow.Login(cmd.Context(), func(authURL string) error {
				cmd.Println("Open this URL in your browser to continue:")
				cmd.Println(authURL)
				return nil
			})
			if err != nil {
				return err
			}

			form := forms.NewLoginForm(a.service, a.paths, next)
			out, err := form.Google(cmd.Context(), idToken)
			if err != nil {
				return err
			}
			if err := report(cmd, out); err != nil {
				return err
			}
			return printSignedIn(cmd, a, out.Redirect)
		}),
	}

	cmd.Flags().StringVar(&next, "next", "", "page to continue to after sign-in")

	return cmd
}

// NewLogoutCmd creates the logout subcommand.
func NewLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the local session",
		RunE: withApp(func(cmd *cobra.Command, a *app, _ []string) error {
			out := a.guard.Logout(cmd.Context())
			if m := forms.ReasonMessage(string(out.Reason)); m != nil {
				cmd.Println(m.Text)
			}
			return nil
		}),
	}
}

// NewWhoamiCmd creates the whoami subcommand.
func NewWhoamiCmd() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Check the session and show the signed-in user",
		Long: `Check the stored session against the backend the way a protected
page does: the profile is loaded and cached, or the session is dropped
and the sign-in target is printed.`,
		RunE: withApp(func(cmd *cobra.Command, a *app, _ []string) error {
			out := a.guard.Enter(cmd.Context(), path)
			switch out.State {
			case guard.StateAuthenticated:
				printPrincipal(cmd, out.Principal)
				return nil
			case guard.StateCancelled:
				return out.Err
			}

			text := "Not signed in."
			if m := forms.ReasonMessage(string(out.Reason)); m != nil {
				text = m.Text
			}
			cmd.PrintErrf("Sign in again: %s\n", out.Target)
			return errNotSignedIn(text)
		}),
	}

	cmd.Flags().StringVar(&path, "path", "/app", "protected page being entered")

	return cmd
}

type errNotSignedIn string

func (e errNotSignedIn) Error() string {
	return string(e)
}

// NewVerifyEmailCmd creates the verify-email subcommand.
func NewVerifyEmailCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify-email TOKEN",
		Short: "Verify an email address with the token from the verification link",
		Args:  cobra.MaximumNArgs(1),
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			token := ""
			if len(args) > 0 {
				token = args[0]
			}
			out, err := forms.NewVerifyEmailForm(a.service, a.paths).Verify(cmd.Context(), token)
			if err != nil {
				return err
			}
			return report(cmd, out)
		}),
	}
}

// NewResendVerificationCmd creates the resend-verification subcommand.
func NewResendVerificationCmd() *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "resend-verification",
		Short: "Send the verification email again",
		RunE: withApp(func(cmd *cobra.Command, a *app, _ []string) error {
			out, err := forms.NewVerifyEmailForm(a.service, a.paths).Resend(cmd.Context(), email)
			if err != nil {
				return err
			}
			return report(cmd, out)
		}),
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")

	return cmd
}
