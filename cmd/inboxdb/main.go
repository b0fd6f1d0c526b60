package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-go-golems/inboxdb/cmd/inboxdb/inbox"
	"github.com/go-go-golems/inboxdb/pkg/config"
	"github.com/go-go-golems/inboxdb/pkg/logging"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type rootFlags struct {
	configFile string
	envFile    string
	logLevel   string
	logFormat  string
}

func newRootCommand() *cobra.Command {
	flags := &rootFlags{}
	var cfg *config.Config

	root := &cobra.Command{
		Use:           "inboxdb",
		Short:         "inboxdb loads chat exports into per-conversation SQLite stores",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load(config.LoadOptions{
				ConfigFile: flags.configFile,
				EnvFile:    flags.envFile,
			})
			if err != nil {
				return err
			}
			settings := loaded.LoggingSettings()
			if cmd.Flags().Changed("log-level") {
				settings.Level = flags.logLevel
			}
			if cmd.Flags().Changed("log-format") {
				settings.Format = flags.logFormat
			}
			if err := logging.Init(settings); err != nil {
				return err
			}
			cfg = loaded
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configFile, "config", "", "YAML configuration file")
	pf.StringVar(&flags.envFile, "env-file", "", "dotenv file to load (defaults to ./.env when present)")
	pf.StringVar(&flags.logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")
	pf.StringVar(&flags.logFormat, "log-format", logging.FormatAuto, "log format (auto, json, text)")

	inbox.AddToRootCommand(root, func() (*config.Config, error) {
		if cfg == nil {
			return nil, errors.New("configuration not loaded")
		}
		return cfg, nil
	})
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("inboxdb failed")
		stop()
		os.Exit(1)
	}
}
