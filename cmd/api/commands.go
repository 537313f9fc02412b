package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"habittracker/internal/config"
	pkgconfig "habittracker/pkg/config"
	"habittracker/pkg/db"
	"habittracker/pkg/logger"
)

var (
	configEnv string
	configDir string

	rootCmd = &cobra.Command{
		Use:   "habittracker",
		Short: "Habit tracking API server",
		Long: `habittracker serves the habit tracking REST API: accounts, habits,
daily logs, streak and trend analytics, and CSV/PDF report exports.`,
		SilenceUsage: true,
	}
	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	migrateCmd = &cobra.Command{
		Use:       "migrate [up|down]",
		Short:     "Apply or roll back the database schema",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down"},
		RunE:      runMigrate,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configEnv, "env", pkgconfig.GetConfigEnv(), "config environment (loads <dir>/<env>.yaml over base.yaml)")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", pkgconfig.GetEnv("CONFIG_DIR", "config"), "directory holding the yaml config files")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	// 不带子命令时直接启动服务
	rootCmd.RunE = runServe
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configEnv, configDir)
	if err != nil {
		return nil, fmt.Errorf("load config (env=%s): %w", configEnv, err)
	}
	return cfg, nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	direction := "up"
	if len(args) == 1 {
		direction = args[0]
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log := logger.NewLogger(cfg.LogLevel)
	defer log.Sync()

	return db.Migrate(cfg.DB, direction, log)
}
