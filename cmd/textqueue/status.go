package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kursadbilgin/textqueue/internal/infra/postgresql"
	"github.com/kursadbilgin/textqueue/internal/repository"
)

func runStatus(cmd *cobra.Command, args []string) error {
	statuses, err := parseStatusFilter(statusFilter)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.ValidateForSubmit(); err != nil {
		return err
	}

	db, err := postgresql.NewPostgres(cmd.Context(), cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("postgres initialization failed: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("postgres underlying db init failed: %w", err)
	}
	defer sqlDB.Close()

	counts, err := repository.NewGormMessageRepo(db).CountByStatus(cmd.Context(), statuses...)
	if err != nil {
		return fmt.Errorf("failed to count messages: %w", err)
	}

	return printStatusCounts(cmd.OutOrStdout(), counts)
}
