package chatdb

import (
	"context"
	"strings"

	"github.com/pkg/errors"
)

type EventTable struct {
	q         querier
	batchSize int
}

// InsertBatch writes events in one statement per batch. Negative durations are
// rejected by the table's CHECK constraint.
func (t *EventTable) InsertBatch(ctx context.Context, events []Event) (int64, error) {
	rows := make([][]any, 0, len(events))
	for i, e := range events {
		if strings.TrimSpace(e.Actor) == "" {
			return 0, errors.Errorf("chatdb: event %d has an empty actor", i)
		}
		if e.Timestamp.IsZero() {
			return 0, errors.Errorf("chatdb: event %d has a zero timestamp", i)
		}
		if !e.Type.Valid() {
			return 0, errors.Errorf("chatdb: event %d has unknown type %q", i, e.Type)
		}
		rows = append(rows, []any{e.Actor, e.Timestamp.UTC(), string(e.Type), e.Target, e.Duration})
	}
	return insertRows(ctx, t.q, TableEvent, []string{"actor_id", "timestamp", "type", "target_id", "duration"}, rows, t.batchSize)
}

func (t *EventTable) Count(ctx context.Context) (int64, error) {
	return countRows(ctx, t.q, TableEvent)
}
