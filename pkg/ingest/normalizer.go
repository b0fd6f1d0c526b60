package ingest

import (
	"context"

	"github.com/go-go-golems/inboxdb/pkg/persistence/chatdb"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Stats counts the rows written for one or more records.
type Stats struct {
	Users        int64 `json:"users"`
	Messages     int64 `json:"messages"`
	IndexedTexts int64 `json:"indexed_texts"`
	Assets       int64 `json:"assets"`
	Reactions    int64 `json:"reactions"`
	Events       int64 `json:"events"`
	Skipped      int64 `json:"skipped"`
}

func (s *Stats) Add(o Stats) {
	s.Users += o.Users
	s.Messages += o.Messages
	s.IndexedTexts += o.IndexedTexts
	s.Assets += o.Assets
	s.Reactions += o.Reactions
	s.Events += o.Events
	s.Skipped += o.Skipped
}

// Normalizer dispatches classified records to the message or event path.
type Normalizer struct {
	log      zerolog.Logger
	messages *MessageNormalizer
	events   *EventNormalizer
}

func NewNormalizer(log zerolog.Logger) *Normalizer {
	return &Normalizer{
		log:      log,
		messages: NewMessageNormalizer(log),
		events:   NewEventNormalizer(),
	}
}

// Apply normalizes rec and writes its rows. Unknown records are logged and skipped.
func (n *Normalizer) Apply(ctx context.Context, tables *chatdb.Tables, rec Record) (Stats, error) {
	switch r := rec.(type) {
	case GenericMessage, ShareMessage:
		rows, err := n.messages.Normalize(rec)
		if err != nil {
			return Stats{}, err
		}
		return n.messages.Write(ctx, tables, rows)
	case Call, Subscribe, Unsubscribe:
		events, err := n.events.Normalize(rec)
		if err != nil {
			return Stats{}, err
		}
		return n.events.Write(ctx, tables, events)
	case Unknown:
		n.log.Warn().Int("record", r.Index()).Str("type", r.Tag).Msg("skipping record of unknown type")
		return Stats{Skipped: 1}, nil
	}
	return Stats{}, errors.Errorf("ingest: unhandled record %T", rec)
}
