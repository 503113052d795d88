package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/wiremsg/internal/auth"
	"github.com/vovakirdan/wiremsg/internal/store"
	"github.com/vovakirdan/wiremsg/internal/store/sqlite"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	Long:  `Apply the embedded SQLite schema to the configured database. Safe to run repeatedly.`,
	RunE:  runMigrate,
}

var createUserCmd = &cobra.Command{
	Use:   "create-user",
	Short: "Create a user account",
	Long:  `Create a user directly in the database, optionally with the admin role.`,
	RunE:  runCreateUser,
}

func init() {
	createUserCmd.Flags().String("username", "", "username (3 to 32 characters)")
	createUserCmd.Flags().String("password", "", "password (6 to 72 bytes)")
	createUserCmd.Flags().String("email", "", "optional email address")
	createUserCmd.Flags().Bool("admin", false, "grant the admin role")
	_ = createUserCmd.MarkFlagRequired("username")
	_ = createUserCmd.MarkFlagRequired("password")
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	st, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	defer st.Close()

	logger.Info().Str("db_path", cfg.DatabasePath).Msg("schema applied")
	return nil
}

func runCreateUser(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	username, _ := cmd.Flags().GetString("username")
	password, _ := cmd.Flags().GetString("password")
	email, _ := cmd.Flags().GetString("email")
	admin, _ := cmd.Flags().GetBool("admin")

	role := store.RoleUser
	if admin {
		role = store.RoleAdmin
	}

	st, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	svc := auth.NewService(st, nil)
	user, err := svc.CreateAccount(context.Background(), username, email, password, role)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	logger.Info().Int64("user_id", user.ID).Str("username", user.Username).Str("role", string(user.Role)).Msg("user created")
	return nil
}
