package inbox

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-go-golems/glazed/pkg/cli"
	"github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/glazed/pkg/cmds/fields"
	"github.com/go-go-golems/glazed/pkg/cmds/values"
	"github.com/go-go-golems/glazed/pkg/middlewares"
	"github.com/go-go-golems/glazed/pkg/settings"
	"github.com/go-go-golems/glazed/pkg/types"
	"github.com/go-go-golems/inboxdb/pkg/config"
	"github.com/go-go-golems/inboxdb/pkg/ingest"
	"github.com/rs/zerolog/log"
)

type ImportCommand struct {
	*cmds.CommandDescription
	loadConfig ConfigFunc
}

type ImportSettings struct {
	Conversation  string `glazed:"conversation"`
	DataDir       string `glazed:"data-dir"`
	NoTruncate    bool   `glazed:"no-truncate"`
	ProgressEvery int    `glazed:"progress-every"`
	BatchSize     int    `glazed:"batch-size"`
	MetricsFile   string `glazed:"metrics-file"`
}

func NewImportCommand(loadConfig ConfigFunc) (*ImportCommand, error) {
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
		"import",
		cmds.WithShort("Import exported conversations into SQLite stores"),
		cmds.WithLong("Parse message_1.json of one conversation folder, or of every folder in the inbox, and write users, messages, reactions, assets and events into <data-dir>/<folder>.db."),
		cmds.WithFlags(
			fields.New(
				"conversation",
				fields.TypeString,
				fields.WithDefault(""),
				fields.WithHelp("Conversation folder name (inside --inbox-dir) or path; all folders when empty"),
			),
			fields.New(
				"data-dir",
				fields.TypeString,
				fields.WithDefault(""),
				fields.WithHelp("Directory receiving the conversation stores (overrides config)"),
			),
			fields.New(
				"no-truncate",
				fields.TypeBool,
				fields.WithDefault(false),
				fields.WithHelp("Keep existing stores instead of recreating them"),
			),
			fields.New(
				"progress-every",
				fields.TypeInteger,
				fields.WithDefault(0),
				fields.WithHelp("Log progress every N records (0 = config value)"),
			),
			fields.New(
				"batch-size",
				fields.TypeInteger,
				fields.WithDefault(0),
				fields.WithHelp("Rows per multi-row INSERT (0 = config value)"),
			),
			fields.New(
				"metrics-file",
				fields.TypeString,
				fields.WithDefault(""),
				fields.WithHelp("Write Prometheus metrics to this textfile after the run"),
			),
		),
		cmds.WithSections(glazedLayer, commandSettingsLayer, inboxLayer),
	)

	return &ImportCommand{CommandDescription: desc, loadConfig: loadConfig}, nil
}

func (c *ImportCommand) RunIntoGlazeProcessor(
	ctx context.Context,
	parsedLayers *values.Values,
	gp middlewares.Processor,
) error {
	s := &ImportSettings{}
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
	cfg = applyImportSettings(inboxSettings.apply(cfg), s)
	if err := cfg.Validate(); err != nil {
		return err
	}

	var metrics *ingest.Metrics
	if cfg.MetricsFile != "" {
		metrics = ingest.NewMetrics()
		defer func() {
			if err := metrics.WriteTextfile(cfg.MetricsFile); err != nil {
				log.Warn().Err(err).Str("path", cfg.MetricsFile).Msg("could not write metrics")
			}
		}()
	}

	im := ingest.NewImporter(cfg.ImporterOptions(), log.Logger, metrics)
	if err := im.Init(); err != nil {
		return err
	}

	var results []*ingest.Result
	if conv := strings.TrimSpace(s.Conversation); conv != "" {
		res, ierr := im.ImportConversation(ctx, conversationDir(cfg.InboxDir, conv))
		if res != nil {
			results = append(results, res)
		}
		err = ierr
	} else {
		results, err = im.ImportInbox(ctx, cfg.InboxDir)
	}

	for _, res := range results {
		if rowErr := gp.AddRow(ctx, resultRow(res)); rowErr != nil {
			return rowErr
		}
	}
	return err
}

// applyImportSettings returns a copy of cfg with the flags that were set.
func applyImportSettings(cfg *config.Config, s *ImportSettings) *config.Config {
	out := *cfg
	if v := strings.TrimSpace(s.DataDir); v != "" {
		out.DataDir = v
	}
	if s.NoTruncate {
		out.Truncate = false
	}
	if s.ProgressEvery > 0 {
		out.ProgressEvery = s.ProgressEvery
	}
	if s.BatchSize > 0 {
		out.InsertBatchSize = s.BatchSize
	}
	if v := strings.TrimSpace(s.MetricsFile); v != "" {
		out.MetricsFile = v
	}
	return &out
}

// conversationDir accepts a folder name relative to the inbox or a path to an
// existing conversation directory.
func conversationDir(inboxDir string, conv string) string {
	if st, err := os.Stat(conv); err == nil && st.IsDir() && strings.ContainsRune(conv, filepath.Separator) {
		return conv
	}
	return filepath.Join(inboxDir, conv)
}

func resultRow(res *ingest.Result) types.Row {
	return types.NewRow(
		types.MRP("run_id", res.RunID),
		types.MRP("conversation", res.Conversation),
		types.MRP("store", res.StorePath),
		types.MRP("records", res.Records),
		types.MRP("skipped", res.Skipped),
		types.MRP("users", res.Rows.Users),
		types.MRP("messages", res.Rows.Messages),
		types.MRP("indexed_texts", res.Rows.IndexedTexts),
		types.MRP("reactions", res.Rows.Reactions),
		types.MRP("assets", res.Rows.Assets),
		types.MRP("events", res.Rows.Events),
		types.MRP("duration_ms", res.Duration.Milliseconds()),
	)
}

var _ cmds.GlazeCommand = &ImportCommand{}
