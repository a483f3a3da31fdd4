package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"

	"badgeissuer/internal/platform/config"
	"badgeissuer/internal/platform/logger"
)

const programName = "badgeissuer"

var (
	globalFlags = struct {
		debug bool
	}{}
	configFile string
	cfg        *config.Config
)

// commonRun builds the process logger and sizes GOMAXPROCS to the container.
func commonRun() *slog.Logger {
	level := cfg.LogLevel
	if globalFlags.debug {
		level = "debug"
	}
	log := logger.New(level).With("component", programName)
	if _, err := maxprocs.Set(maxprocs.Logger(logger.Printf(log))); err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}
	return log
}

func main() {
	rootCmd := &cobra.Command{
		Use:          programName,
		Short:        "Attendance badge issuance service",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().
		BoolVarP(&globalFlags.debug, "debug", "D", false, "enable debug logging")
	rootCmd.PersistentFlags().
		StringVar(&configFile, "config", "", "path to config file")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
		return nil
	}

	rootCmd.AddCommand(serveCommand())
	rootCmd.AddCommand(migrateCommand())
	rootCmd.AddCommand(proofCommand())
	rootCmd.AddCommand(hashTokenCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
