package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.requireSession()
			if err != nil {
				return err
			}
			u := s.User
			if u == nil {
				return fmt.Errorf("session has no decoded identity")
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "id:     ", u.ID)
			fmt.Fprintln(out, "name:   ", u.FullName())
			fmt.Fprintln(out, "email:  ", u.Email)
			fmt.Fprintln(out, "role:   ", u.Role)
			if u.SchoolName != "" {
				fmt.Fprintln(out, "school: ", u.SchoolName)
			}
			return nil
		},
	}
}
