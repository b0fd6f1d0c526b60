package inbox

import (
	"github.com/go-go-golems/glazed/pkg/cli"
	"github.com/go-go-golems/inboxdb/pkg/config"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// ConfigFunc returns the configuration loaded by the root command.
type ConfigFunc func() (*config.Config, error)

func (f ConfigFunc) load() (*config.Config, error) {
	if f == nil {
		return nil, errors.New("inbox: no configuration loader")
	}
	return f()
}

func AddToRootCommand(root *cobra.Command, loadConfig ConfigFunc) {
	inboxCmd := &cobra.Command{
		Use:   "inbox",
		Short: "Import and inspect exported conversations",
		Long:  "Load per-conversation message exports into SQLite stores and list their titles.",
	}

	importCmd, err := NewImportCommand(loadConfig)
	cobra.CheckErr(err)
	cobraImportCmd, err := cli.BuildCobraCommand(importCmd)
	cobra.CheckErr(err)

	titlesCmd, err := NewTitlesCommand(loadConfig)
	cobra.CheckErr(err)
	cobraTitlesCmd, err := cli.BuildCobraCommand(titlesCmd)
	cobra.CheckErr(err)

	inboxCmd.AddCommand(cobraImportCmd, cobraTitlesCmd)
	root.AddCommand(inboxCmd)
}
