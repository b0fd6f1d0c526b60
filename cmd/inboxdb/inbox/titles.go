package inbox

import (
	"context"
	"os"
	"strings"

	"github.com/go-go-golems/glazed/pkg/cli"
	"github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/glazed/pkg/cmds/fields"
	"github.com/go-go-golems/glazed/pkg/cmds/values"
	"github.com/go-go-golems/glazed/pkg/middlewares"
	"github.com/go-go-golems/glazed/pkg/settings"
	"github.com/go-go-golems/glazed/pkg/types"
	"github.com/go-go-golems/inboxdb/pkg/export"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type TitlesCommand struct {
	*cmds.CommandDescription
	loadConfig ConfigFunc
}

type TitlesSettings struct {
	TitlesFile string `glazed:"titles-file"`
	NoFile     bool   `glazed:"no-file"`
}

func NewTitlesCommand(loadConfig ConfigFunc) (*TitlesCommand, error) {
	glazedLayer, err := settings.NewGlazedSection()
	if err != nil {
		return nil, err
	}
	commandSettingsLayer, err := cli.NewCommandSettingsSection()
	if err != nil {
		return nil, err
	}
	inboxLayer, err := NewInboxSection()
	if err != nil {
		return nil, err
	}

	desc := cmds.NewCommandDescription(
		"titles",
		cmds.WithShort("List readable conversation titles with their folders"),
		cmds.WithLong("Read the title of every conversation in the inbox, repair its encoding and write a title/folder listing sorted by title."),
		cmds.WithFlags(
			fields.New(
				"titles-file",
				fields.TypeString,
				fields.WithDefault(""),
				fields.WithHelp("Listing file to write (overrides config)"),
			),
			fields.New(
				"no-file",
				fields.TypeBool,
				fields.WithDefault(false),
				fields.WithHelp("Only emit rows, do not write the listing file"),
			),
		),
		cmds.WithSections(glazedLayer, commandSettingsLayer, inboxLayer),
	)

	return &TitlesCommand{CommandDescription: desc, loadConfig: loadConfig}, nil
}

func (c *TitlesCommand) RunIntoGlazeProcessor(
	ctx context.Context,
	parsedLayers *values.Values,
	gp middlewares.Processor,
) error {
	s := &TitlesSettings{}
	if err := parsedLayers.DecodeSectionInto(values.DefaultSlug, s); err != nil {
		return err
	}
	inboxSettings, err := decodeInboxSettings(parsedLayers)
	if err != nil {
		return err
	}
	cfg, err := c.loadConfig.load()
	if err != nil {
		return err
	}
	cfg = inboxSettings.apply(cfg)
	titlesFile := cfg.TitlesFile
	if v := strings.TrimSpace(s.TitlesFile); v != "" {
		titlesFile = v
	}

	entries, err := export.ReadableTitles(cfg.InboxDir, cfg.MessageFile)
	if err != nil {
		return err
	}
	if !s.NoFile {
		if err := writeTitlesFile(titlesFile, entries); err != nil {
			return err
		}
		log.Info().Str("path", titlesFile).Int("conversations", len(entries)).Msg("titles written")
	}

	for _, e := range entries {
		row := types.NewRow(
			types.MRP("title", e.Title),
			types.MRP("folder", e.Folder),
		)
		if err := gp.AddRow(ctx, row); err != nil {
			return err
		}
	}
	return nil
}

func writeTitlesFile(path string, entries []export.TitleEntry) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("inbox: titles file path is empty")
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "inbox: create titles file")
	}
	if err := export.WriteTitles(f, entries); err != nil {
		_ = f.Close()
		return err
	}
	return errors.Wrap(f.Close(), "inbox: close titles file")
}

var _ cmds.GlazeCommand = &TitlesCommand{}
