package main

import (
	"fmt"

	"commandmail/internal/repository"
	"commandmail/internal/seed"
	"commandmail/internal/service/prompt"
	"commandmail/pkg/db"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		pool, err := db.NewConnection(ctx, cfg.DB, log)
		if err != nil {
			return fmt.Errorf("failed to connect database: %w", err)
		}
		defer pool.Close()

		if err := repository.Migrate(ctx, pool); err != nil {
			return err
		}
		log.Info("Migrations applied")
		return nil
	},
}

var seedPromptsCmd = &cobra.Command{
	Use:   "seed-prompts",
	Short: "Insert the default prompts that are missing",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		pool, err := db.NewConnection(ctx, cfg.DB, log)
		if err != nil {
			return fmt.Errorf("failed to connect database: %w", err)
		}
		defer pool.Close()

		if err := repository.Migrate(ctx, pool); err != nil {
			return err
		}
		svc := prompt.NewService(repository.NewPromptRepository(pool), nil, log)
		prompts, err := svc.Initialize(ctx)
		if err != nil {
			return err
		}
		for _, p := range prompts {
			log.Info("Prompt ready", zap.String("name", string(p.Name)), zap.Bool("active", p.IsActive))
		}
		return nil
	},
}

var loadInboxCmd = &cobra.Command{
	Use:   "load-inbox",
	Short: "Replace stored emails with the bundled mock inbox",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		pool, err := db.NewConnection(ctx, cfg.DB, log)
		if err != nil {
			return fmt.Errorf("failed to connect database: %w", err)
		}
		defer pool.Close()

		if err := repository.Migrate(ctx, pool); err != nil {
			return err
		}
		inbox, err := seed.Inbox()
		if err != nil {
			return err
		}
		emails, err := repository.NewEmailRepository(pool).ReplaceAll(ctx, inbox)
		if err != nil {
			return err
		}
		log.Info("Inbox loaded", zap.Int("count", len(emails)))
		return nil
	},
}
