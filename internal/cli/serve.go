package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/finsight/fairsplit/internal/api"
	"github.com/finsight/fairsplit/internal/config"
	"github.com/finsight/fairsplit/internal/predict"
	"github.com/finsight/fairsplit/internal/room"
	"github.com/finsight/fairsplit/internal/store"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Long: `Run the HTTP JSON API. Configuration comes from the environment
(FAIRSPLIT_DB, FAIRSPLIT_BIND, FAIRSPLIT_CORS_ORIGINS, FAIRSPLIT_CURRENCY,
FAIRSPLIT_LOG_LEVEL), with a local .env file merged in if present.
The --db flag, when set explicitly, overrides FAIRSPLIT_DB.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if cmd.Flags().Changed("db") || cmd.InheritedFlags().Changed("db") {
				cfg.DatabasePath = rootOpts.Database
			}

			logger := newLogger(cfg.LogLevel)

			st, err := store.Open(cfg.DatabasePath)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to open database", err)
			}
			defer st.Close()

			rooms := room.NewManager(st, room.WithLogger(logger))
			predictor := predict.NewStatic(nil, 50000, 10000)

			server := api.New(cfg, rooms, predictor, logger)
			if err := server.Start(); err != nil {
				return WrapExitError(ExitCommandError, "server stopped", err)
			}
			return nil
		},
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
