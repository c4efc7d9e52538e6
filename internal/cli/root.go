// Package cli - служебная консоль jobctl: миграции, ручной запуск проверок и действий поддержки.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/ignatzorin/jobconnect-backend/internal/app"
	"github.com/ignatzorin/jobconnect-backend/internal/config"
	"github.com/ignatzorin/jobconnect-backend/internal/db"
	"github.com/ignatzorin/jobconnect-backend/internal/logger"
)

var (
	// Version задаётся при сборке.
	Version = "0.1.0"

	verbose bool

	cfg      *config.Config
	dbConn   *sqlx.DB
	services *app.Services
)

// cliPool - небольшой пул для разовых команд.
var cliPool = db.PoolOptions{MaxOpen: 4, MaxIdle: 2, MaxLifetime: db.DefaultPool.MaxLifetime}

var rootCmd = &cobra.Command{
	Use:     "jobctl",
	Short:   "Служебная консоль сервиса заказов",
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		level := cfg.LogLevel
		if verbose {
			level = "debug"
		}
		logger.Init(level, false)

		if !needsDatabase(cmd) {
			return nil
		}
		dbConn, err = db.NewPostgres(cmd.Context(), cfg.DatabaseURL, cliPool)
		if err != nil {
			return err
		}
		services = app.NewServices(cfg, dbConn)
		if err := services.Settings.Load(cmd.Context()); err != nil {
			logger.Log.WithError(err).Warn("jobctl: настройки платформы не загружены, используем значения по умолчанию")
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if dbConn != nil {
			if err := dbConn.Close(); err != nil {
				fmt.Fprintf(os.Stderr, "jobctl: ошибка закрытия базы: %v\n", err)
			}
		}
	},
	SilenceUsage: true,
}

const noDatabaseAnnotation = "no-database"

// needsDatabase - команды с аннотацией no-database работают без подключения к БД.
func needsDatabase(cmd *cobra.Command) bool {
	_, skip := cmd.Annotations[noDatabaseAnnotation]
	return !skip && cmd.Name() != "help" && cmd.Name() != "version"
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "подробный лог")
	rootCmd.AddCommand(migrateCmd, sweepCmd, expireOfferCmd, verifyInstallerCmd, tokenCmd, settingsCmd)
}

// Execute запускает консоль.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
