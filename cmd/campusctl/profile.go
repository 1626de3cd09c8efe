package main

import (
	"fmt"
	"os"

	campushub "github.com/campushub/campushub-go"
	"github.com/spf13/cobra"
)

func newProfileCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage the signed-in user's profile",
	}
	cmd.AddCommand(newProfileUpdateCmd(a))
	return cmd
}

func newProfileUpdateCmd(a *app) *cobra.Command {
	var firstName, lastName, email string

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Apply a partial profile update",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.requireSession(); err != nil {
				return err
			}

			var patch campushub.ProfilePatch
			if cmd.Flags().Changed("first-name") {
				patch.FirstName = &firstName
			}
			if cmd.Flags().Changed("last-name") {
				patch.LastName = &lastName
			}
			if cmd.Flags().Changed("email") {
				patch.Email = &email
			}
			if patch.FirstName == nil && patch.LastName == nil && patch.Email == nil {
				return fmt.Errorf("nothing to update: pass --first-name, --last-name, or --email")
			}

			if !a.ctrl.UpdateProfile(cmd.Context(), patch) {
				os.Exit(1)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&firstName, "first-name", "", "new first name")
	cmd.Flags().StringVar(&lastName, "last-name", "", "new last name")
	cmd.Flags().StringVar(&email, "email", "", "new email address")
	return cmd
}
