package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ignatzorin/jobconnect-backend/internal/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Применить новые миграции из MIGRATIONS_PATH",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		applied, err := db.RunMigrations(cmd.Context(), dbConn, cfg.MigrationsPath)
		for _, name := range applied {
			fmt.Fprintf(cmd.OutOrStdout(), "применена: %s\n", name)
		}
		if err != nil {
			return err
		}
		if len(applied) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "новых миграций нет")
		}
		return nil
	},
}
