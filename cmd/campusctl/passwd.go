package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func newPasswdCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "passwd",
		Short: "Change the account password",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.requireSession(); err != nil {
				return err
			}

			reader := bufio.NewReader(cmd.InOrStdin())
			oldPassword, err := prompt(cmd, reader, "Current password: ")
			if err != nil {
				return err
			}
			newPassword, err := prompt(cmd, reader, "New password: ")
			if err != nil {
				return err
			}

			if !a.ctrl.ChangePassword(cmd.Context(), oldPassword, newPassword) {
				os.Exit(1)
			}
			return nil
		},
	}
}

func prompt(cmd *cobra.Command, reader *bufio.Reader, label string) (string, error) {
	fmt.Fprint(cmd.OutOrStdout(), label)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
