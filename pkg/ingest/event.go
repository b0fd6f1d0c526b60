package ingest

import (
	"context"

	"github.com/go-go-golems/inboxdb/pkg/persistence/chatdb"
	"github.com/pkg/errors"
)

// EventNormalizer converts call, subscribe and unsubscribe records into event rows.
type EventNormalizer struct{}

func NewEventNormalizer() *EventNormalizer {
	return &EventNormalizer{}
}

// Normalize returns one event for a call and one event per affected user for
// subscribe and unsubscribe records.
func (n *EventNormalizer) Normalize(rec Record) ([]chatdb.Event, error) {
	if !rec.Kind().IsEvent() {
		return nil, errors.Errorf("ingest: record %d: %s is not an event", rec.Index(), rec.Kind())
	}
	h, err := readHeader(rec)
	if err != nil {
		return nil, err
	}
	raw := rec.Raw()

	switch rec.(type) {
	case Call:
		ev := chatdb.Event{Actor: h.sender, Timestamp: h.timestamp, Type: chatdb.EventCall}
		if raw.Missed != nil && *raw.Missed {
			return []chatdb.Event{ev}, nil
		}
		if raw.CallDuration == nil {
			return nil, missing(rec.Index(), "call_duration")
		}
		d := *raw.CallDuration
		ev.Duration = &d
		return []chatdb.Event{ev}, nil

	case Subscribe, Unsubscribe:
		typ := chatdb.EventSubscribe
		if rec.Kind() == KindUnsubscribe {
			typ = chatdb.EventUnsubscribe
		}
		if raw.Users == nil {
			return nil, missing(rec.Index(), "users")
		}
		out := make([]chatdb.Event, 0, len(raw.Users))
		for _, u := range raw.Users {
			target, err := repairName(rec.Index(), "users[].name", u.Name)
			if err != nil {
				return nil, err
			}
			out = append(out, chatdb.Event{
				Actor:     h.sender,
				Timestamp: h.timestamp,
				Type:      typ,
				Target:    &target,
			})
		}
		return out, nil
	}
	return nil, errors.Errorf("ingest: unhandled event record %T", rec)
}

// Write inserts all events of one record in a single batch.
func (n *EventNormalizer) Write(ctx context.Context, tables *chatdb.Tables, events []chatdb.Event) (Stats, error) {
	if len(events) == 0 {
		return Stats{}, nil
	}
	written, err := tables.Event.InsertBatch(ctx, events)
	if err != nil {
		return Stats{}, err
	}
	return Stats{Events: written}, nil
}
