package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/facegrep/internal/config"
	"github.com/kozaktomas/facegrep/internal/database/postgres"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the database schema",
	Long:  `Create the database schema and run any pending migrations. Safe to run repeatedly.`,
	RunE:  runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	pool, err := postgres.Initialize(&cfg.Database)
	if err != nil {
		return fmt.Errorf("could not initialize database: %w", err)
	}
	defer pool.Close()

	fmt.Println("Database schema is up to date")
	return nil
}
