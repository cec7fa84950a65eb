package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"lecto-bridge/internal/lecto"
	"lecto-bridge/internal/service"

	"github.com/spf13/cobra"
)

var (
	reportGroup  uint64
	reportDate   string
	reportOut    string
	reportFields string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Write the xlsx remind report of a remind group",
	Example: `  lecto-bridge report --group 12 --date 2024-03-05
  lecto-bridge report --group 12 --date 2024-03-05 --fields debtor_id,name,total_amount --out out.xlsx`,
	RunE: runReport,
}

func init() {
	reportCmd.Flags().Uint64Var(&reportGroup, "group", 0, "remind group id")
	reportCmd.Flags().StringVar(&reportDate, "date", "", "remind date, YYYY-MM-DD")
	reportCmd.Flags().StringVar(&reportOut, "out", "", "output file (default reminds_<group>_<date>.xlsx)")
	reportCmd.Flags().StringVar(&reportFields, "fields", "", "comma separated column keys (default all)")
	_ = reportCmd.MarkFlagRequired("group")
	_ = reportCmd.MarkFlagRequired("date")
}

func splitFields(s string) []string {
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

func runReport(cmd *cobra.Command, args []string) error {
	date, err := lecto.ParseDate(reportDate)
	if err != nil {
		return err
	}

	svc := service.NewRemindExportService(newLectoClient(cfg.Lecto), nil, nil, nil, slog.Default()).
		WithColumns(splitFields(reportFields))

	rep, err := svc.BuildReport(cmd.Context(), reportGroup, date)
	if err != nil {
		if kind, ok := lecto.KindOf(err); ok {
			slog.Error("lecto rejected the request", "kind", kind.String(), "error", err)
		}
		return err
	}

	out := reportOut
	if out == "" {
		out = rep.FileName
	}
	if err := os.WriteFile(out, rep.Data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	slog.Info("report written", "file", out, "debtors", len(rep.Rows))
	return nil
}
