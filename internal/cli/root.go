package cli

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"lecto-bridge/internal/config"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
)

var (
	isDebug bool
	cfg     config.AppConfig
)

var rootCmd = &cobra.Command{
	Use:   "lecto-bridge",
	Short: "Bridge between the debt database and the Lecto collection service",
	Long: `lecto-bridge exports Lecto reminds as xlsx reports and pushes local
debts and debtors to Lecto.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		_ = godotenv.Load()
		cfg = config.Load()
		setupLogger(cfg.LogLevel, isDebug)
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&isDebug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(serveCmd, reportCmd, syncCmd)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func setupLogger(level string, debug bool) {
	slogLevel := parseLevel(level)
	if debug {
		slogLevel = slog.LevelDebug
	}

	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      slogLevel,
		TimeFormat: time.RFC3339,
	})))
}
