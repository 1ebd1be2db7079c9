package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/relabs-tech/carlot/core/access"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage back office admins",
}

var adminCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a back office admin",
	RunE: func(cmd *cobra.Command, args []string) error {
		username, _ := cmd.Flags().GetString("username")
		password, _ := cmd.Flags().GetString("password")
		s, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer s.Close()
		admin, err := access.CreateAdmin(cmd.Context(), s, username, password)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created admin %s with id %s\n", admin.Username, admin.ID)
		return nil
	},
}

func init() {
	adminCreateCmd.Flags().String("username", "", "the username of the admin")
	adminCreateCmd.Flags().String("password", "", fmt.Sprintf("the password of the admin, at least %d characters", access.MinPasswordLength))
	adminCreateCmd.MarkFlagRequired("username")
	adminCreateCmd.MarkFlagRequired("password")
	adminCmd.AddCommand(adminCreateCmd)
}
