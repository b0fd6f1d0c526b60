package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-go-golems/inboxdb/pkg/export"
	"github.com/go-go-golems/inboxdb/pkg/persistence/chatdb"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const (
	DefaultDataDir       = "data"
	DefaultProgressEvery = 1000
)

type Options struct {
	// DataDir receives one <folder>.db file per conversation.
	DataDir     string
	MessageFile string
	// Truncate removes an existing store before importing into it.
	Truncate        bool
	ProgressEvery   int
	InsertBatchSize int
}

func (o Options) withDefaults() Options {
	if strings.TrimSpace(o.DataDir) == "" {
		o.DataDir = DefaultDataDir
	}
	if strings.TrimSpace(o.MessageFile) == "" {
		o.MessageFile = export.DefaultMessageFile
	}
	if o.ProgressEvery <= 0 {
		o.ProgressEvery = DefaultProgressEvery
	}
	if o.InsertBatchSize <= 0 {
		o.InsertBatchSize = chatdb.DefaultBatchSize
	}
	return o
}

// Result summarizes one committed conversation import.
type Result struct {
	RunID         string         `json:"run_id"`
	Conversation  string         `json:"conversation"`
	StorePath     string         `json:"store_path"`
	Records       int            `json:"records"`
	RecordsByKind map[string]int `json:"records_by_kind"`
	Skipped       int64          `json:"skipped"`
	Written       Stats          `json:"written"`
	Rows          chatdb.Counts  `json:"rows"`
	Duration      time.Duration  `json:"duration"`
}

// Importer loads conversation exports into per-conversation stores.
type Importer struct {
	opts    Options
	log     zerolog.Logger
	metrics *Metrics
	norm    *Normalizer
}

// NewImporter builds an importer. metrics may be nil.
func NewImporter(opts Options, log zerolog.Logger, metrics *Metrics) *Importer {
	log = log.With().Str("component", "ingest").Logger()
	return &Importer{
		opts:    opts.withDefaults(),
		log:     log,
		metrics: metrics,
		norm:    NewNormalizer(log),
	}
}

func (im *Importer) Options() Options { return im.opts }

// Init creates the data directory. It must run before the first import.
func (im *Importer) Init() error {
	if err := os.MkdirAll(im.opts.DataDir, 0o755); err != nil {
		return errors.Wrapf(err, "ingest: create data dir %s", im.opts.DataDir)
	}
	return nil
}

// StorePath is the store file for a conversation folder name.
func (im *Importer) StorePath(folder string) string {
	return filepath.Join(im.opts.DataDir, folder+".db")
}

// ImportConversation imports the conversation stored in dir. The store is named
// after the last path element of dir.
func (im *Importer) ImportConversation(ctx context.Context, dir string) (*Result, error) {
	folder := filepath.Base(filepath.Clean(dir))
	doc, err := export.LoadDocument(filepath.Join(dir, im.opts.MessageFile))
	if err != nil {
		im.metrics.observeFailure()
		return nil, errors.Wrapf(err, "ingest: conversation %s", folder)
	}
	return im.ImportDocument(ctx, folder, doc)
}

// ImportDocument writes an already parsed document into the store for folder.
// Users and records are written in one transaction: a failing record leaves the
// store without any rows from this run.
func (im *Importer) ImportDocument(ctx context.Context, folder string, doc *export.Document) (*Result, error) {
	res, err := im.importDocument(ctx, folder, doc)
	if err != nil {
		im.metrics.observeFailure()
		return nil, errors.Wrapf(err, "ingest: conversation %s", folder)
	}
	im.metrics.observeResult(res)
	return res, nil
}

func (im *Importer) importDocument(ctx context.Context, folder string, doc *export.Document) (*Result, error) {
	if doc == nil {
		return nil, errors.New("nil document")
	}
	if strings.TrimSpace(folder) == "" {
		return nil, errors.New("empty conversation folder")
	}
	start := time.Now()
	res := &Result{
		RunID:         uuid.NewString(),
		Conversation:  folder,
		StorePath:     im.StorePath(folder),
		RecordsByKind: map[string]int{},
	}
	log := im.log.With().Str("run_id", res.RunID).Str("conversation", folder).Logger()

	store, err := chatdb.New(res.StorePath, chatdb.WithBatchSize(im.opts.InsertBatchSize))
	if err != nil {
		return nil, err
	}
	if im.opts.Truncate {
		if err := store.Truncate(); err != nil {
			return nil, err
		}
	}
	if err := store.Open(ctx); err != nil {
		return nil, err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			log.Warn().Err(cerr).Msg("close store")
		}
	}()

	log.Info().
		Str("store", res.StorePath).
		Int("participants", len(doc.Participants)).
		Int("records", len(doc.Messages)).
		Bool("truncate", im.opts.Truncate).
		Msg("import started")

	err = store.InTx(ctx, func(tables *chatdb.Tables) error {
		users, err := participantRows(doc.Participants)
		if err != nil {
			return err
		}
		written, err := tables.User.InsertBatch(ctx, users)
		if err != nil {
			return errors.Wrap(err, "insert participants")
		}
		res.Written.Add(Stats{Users: written})

		for i := range doc.Messages {
			if err := ctx.Err(); err != nil {
				return err
			}
			rec, err := Classify(i, &doc.Messages[i])
			if err != nil {
				return err
			}
			im.metrics.observeRecord(rec.Kind())
			res.Records++
			res.RecordsByKind[rec.Kind().String()]++

			st, err := im.norm.Apply(ctx, tables, rec)
			if err != nil {
				return errors.Wrapf(err, "record %d (%s)", i, rec.Kind())
			}
			res.Written.Add(st)

			if res.Records%im.opts.ProgressEvery == 0 {
				log.Info().
					Int("processed", res.Records).
					Int("total", len(doc.Messages)).
					Int64("messages", res.Written.Messages).
					Int64("events", res.Written.Events).
					Msg("import progress")
			}
		}

		res.Rows, err = tables.Counts(ctx)
		return err
	})
	if err != nil {
		log.Error().Err(err).Int("processed", res.Records).Msg("import rolled back")
		return nil, err
	}

	res.Skipped = res.Written.Skipped
	res.Duration = time.Since(start)
	log.Info().
		Int("records", res.Records).
		Int64("skipped", res.Skipped).
		Int64("users", res.Rows.Users).
		Int64("messages", res.Rows.Messages).
		Int64("assets", res.Rows.Assets).
		Int64("reactions", res.Rows.Reactions).
		Int64("events", res.Rows.Events).
		Dur("duration", res.Duration).
		Msg("import finished")
	return res, nil
}

// ImportInbox imports every conversation folder under inboxDir in folder order.
// The first failing conversation stops the run; results of the conversations
// already committed are returned with the error.
func (im *Importer) ImportInbox(ctx context.Context, inboxDir string) ([]*Result, error) {
	convs, err := export.ListConversations(inboxDir, im.opts.MessageFile)
	if err != nil {
		return nil, err
	}
	im.log.Info().Str("inbox", inboxDir).Int("conversations", len(convs)).Msg("inbox import started")

	results := make([]*Result, 0, len(convs))
	for _, conv := range convs {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := im.ImportConversation(ctx, filepath.Dir(conv.Path))
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

// participantRows repairs participant names. Duplicate names collapse to one user.
func participantRows(participants []export.Participant) ([]chatdb.User, error) {
	seen := make(map[string]struct{}, len(participants))
	out := make([]chatdb.User, 0, len(participants))
	for i, p := range participants {
		name, err := export.Repair(p.Name)
		if err != nil {
			return nil, errors.Wrapf(err, "participant %d", i)
		}
		if strings.TrimSpace(name) == "" {
			return nil, errors.Errorf("participant %d: empty name", i)
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, chatdb.User{Name: name})
	}
	return out, nil
}
