package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/jrsteele09/go-auth-client/credentials"
	"github.com/jrsteele09/go-auth-client/forms"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// report prints a form outcome. A failed outcome becomes the command error.
func report(cmd *cobra.Command, out forms.Outcome) error {
	if out.Failed() {
		if out.NeedsVerification {
			cmd.PrintErrln("Run `vidops resend-verification --email <address>` to get a new link.")
		}
		return errors.New(out.Message.Text)
	}
	if out.Message != nil {
		cmd.Println(out.Message.Text)
	}
	return nil
}

func printPrincipal(cmd *cobra.Command, p *credentials.Principal) {
	cmd.Printf("Name:      %s\n", p.DisplayName())
	cmd.Printf("Email:     %s\n", p.Email)
	cmd.Printf("Plan:      %s\n", p.Plan)
	cmd.Printf("Credits:   %d\n", p.Credits)
	cmd.Printf("Provider:  %s\n", p.Provider)
	if p.CreatedAt != "" {
		cmd.Printf("Member since: %s\n", p.CreatedAt)
	}
}

// readSecret returns value, or reads one line from stdin when it is empty.
func readSecret(cmd *cobra.Command, value, prompt string) (string, error) {
	if value != "" {
		return value, nil
	}
	cmd.PrintErr(prompt + ": ")
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("[readSecret] no %s given: %w", strings.ToLower(prompt), err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
