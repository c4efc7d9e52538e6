package cli

import (
	"fmt"
	"strings"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/ignatzorin/jobconnect-backend/internal/scheduler"
	"github.com/ignatzorin/jobconnect-backend/internal/service"
)

var sweepAsync bool

var sweepCmd = &cobra.Command{
	Use:   "sweep <name>",
	Short: "Выполнить периодическую проверку сейчас",
	Long: `Выполнить периодическую проверку вне расписания.

Проверки: ` + strings.Join(service.SweepNames, ", ") + `

По умолчанию проверка выполняется в этом процессе. С --async задача
ставится в очередь воркера.

Примеры:
  jobctl sweep unfunded
  jobctl sweep award_expiry --async`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: service.SweepNames,
	RunE:      runSweep,
}

func init() {
	sweepCmd.Flags().BoolVar(&sweepAsync, "async", false, "поставить задачу в очередь воркера")
}

func runSweep(cmd *cobra.Command, args []string) error {
	name := args[0]
	out := cmd.OutOrStdout()

	if sweepAsync {
		client := asynq.NewClient(scheduler.RedisOpt(cfg.Redis))
		defer client.Close()
		info, err := scheduler.Enqueue(client, name)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s поставлена в очередь, задача %s\n", name, info.ID)
		return nil
	}

	report, err := services.Reconciliation.Run(cmd.Context(), name)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s: просмотрено %d, изменено %d, ошибок %d\n",
		report.Sweep, report.Scanned, report.Changed, report.Failed)
	return nil
}
