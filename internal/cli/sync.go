package cli

import (
	"encoding/json"
	"os"

	"lecto-bridge/internal/repository"
	"lecto-bridge/internal/service"
	"lecto-bridge/pkg/database/postgres"

	"github.com/spf13/cobra"
)

var (
	syncStatusID       int64
	syncRegistryID     string
	syncCounterpartyID string
	syncLimit          int
	syncWorkers        int
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Push local debts and debtors to Lecto",
	RunE:  runSync,
}

func init() {
	syncCmd.Flags().Int64Var(&syncStatusID, "status-id", 0, "only debts in this status")
	syncCmd.Flags().StringVar(&syncRegistryID, "registry-id", "", "only debts of this registry")
	syncCmd.Flags().StringVar(&syncCounterpartyID, "counterparty-id", "", "only debts of this counterparty")
	syncCmd.Flags().IntVar(&syncLimit, "limit", 0, "max debts to push, 0 for all")
	syncCmd.Flags().IntVar(&syncWorkers, "concurrency", 4, "debtors synced in parallel")
}

func syncFilter(cmd *cobra.Command) repository.DebtsFilter {
	f := repository.DebtsFilter{Limit: syncLimit}
	if cmd.Flags().Changed("status-id") {
		f.StatusID = &syncStatusID
	}
	if syncRegistryID != "" {
		f.RegistryID = &syncRegistryID
	}
	if syncCounterpartyID != "" {
		f.CounterpartyID = &syncCounterpartyID
	}
	return f
}

func runSync(cmd *cobra.Command, args []string) error {
	db, err := openPostgres(cfg.Postgres)
	if err != nil {
		return err
	}
	defer postgres.Close(db)

	svc := service.NewSyncService(repository.NewDebtRepository(db), newLectoClient(cfg.Lecto), nil, syncWorkers)

	result, syncErr := svc.Sync(cmd.Context(), syncFilter(cmd))
	if result != nil {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return err
		}
	}
	return syncErr
}
