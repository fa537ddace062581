package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "tideline",
		Short:         "Anchor-relative pagination over SQLite tables",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", "", "YAML config file")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	addCommands(root)
	return root
}

func newLogger(cmd *cobra.Command) zerolog.Logger {
	level, err := zerolog.ParseLevel(flagString(cmd, "log-level"))
	if err != nil {
		level = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{
		Out:        cmd.ErrOrStderr(),
		TimeFormat: time.RFC3339,
	}).Level(level).With().Timestamp().Logger()
}

func main() {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		logger := newLogger(root)
		logger.Error().Err(err).Msg("tideline failed")
		os.Exit(1)
	}
}
