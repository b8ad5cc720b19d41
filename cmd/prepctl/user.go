package main

import (
	"fmt"
	"strings"

	"github.com/preppro/backend/internal/auth"
	"github.com/preppro/backend/internal/models"
	"github.com/preppro/backend/internal/validate"
	"github.com/spf13/cobra"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage accounts",
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a teacher or student account",
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		username, _ := cmd.Flags().GetString("username")
		password, _ := cmd.Flags().GetString("password")
		role, _ := cmd.Flags().GetString("role")

		req := models.RegisterRequest{
			Username: strings.TrimSpace(username),
			Email:    strings.TrimSpace(strings.ToLower(email)),
			Password: password,
			Role:     models.Role(role),
		}
		if err := validate.Struct(req); err != nil {
			return err
		}

		_, db, err := connect()
		if err != nil {
			return err
		}
		defer db.Close()

		hashed, err := auth.HashPassword(req.Password)
		if err != nil {
			return err
		}
		user, err := auth.NewStore(db).CreateUser(cmd.Context(), req.Email, req.Username, hashed, req.Role)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created %s %s (id %d)\n", user.Role, user.Username, user.ID)
		return nil
	},
}

var userResetPasswordCmd = &cobra.Command{
	Use:   "reset-password",
	Short: "Set a new password for an account",
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")
		if !validate.Var(password, "min=8") {
			return fmt.Errorf("password must be at least 8 characters")
		}

		_, db, err := connect()
		if err != nil {
			return err
		}
		defer db.Close()

		store := auth.NewStore(db)
		user, err := store.GetByEmail(cmd.Context(), strings.TrimSpace(strings.ToLower(email)))
		if err != nil {
			return err
		}
		hashed, err := auth.HashPassword(password)
		if err != nil {
			return err
		}
		if err := store.UpdatePassword(cmd.Context(), user.ID, hashed); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Password updated for %s\n", user.Email)
		return nil
	},
}

var tokensCmd = &cobra.Command{
	Use:   "tokens",
	Short: "Maintain the refresh-token blacklist",
}

var tokensPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete blacklist entries for tokens that have already expired",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, db, err := connect()
		if err != nil {
			return err
		}
		defer db.Close()
		n, err := auth.NewStore(db).PurgeExpired(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Purged %d entries\n", n)
		return nil
	},
}

func init() {
	userCreateCmd.Flags().String("email", "", "Email address")
	userCreateCmd.Flags().String("username", "", "Username (generated from the email when empty)")
	userCreateCmd.Flags().String("password", "", "Password (at least 8 characters)")
	userCreateCmd.Flags().String("role", string(models.RoleStudent), "teacher or student")
	_ = userCreateCmd.MarkFlagRequired("email")
	_ = userCreateCmd.MarkFlagRequired("password")

	userResetPasswordCmd.Flags().String("email", "", "Email address")
	userResetPasswordCmd.Flags().String("password", "", "New password")
	_ = userResetPasswordCmd.MarkFlagRequired("email")
	_ = userResetPasswordCmd.MarkFlagRequired("password")

	userCmd.AddCommand(userCreateCmd, userResetPasswordCmd)
	tokensCmd.AddCommand(tokensPurgeCmd)
}
