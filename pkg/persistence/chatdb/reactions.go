package chatdb

import (
	"context"
	"strings"

	"github.com/pkg/errors"
)

type ReactionTable struct {
	q         querier
	batchSize int
}

// InsertBatch writes all reactions of one message. A second reaction by the same
// user on the same message is a primary key violation.
func (t *ReactionTable) InsertBatch(ctx context.Context, reactions []Reaction) (int64, error) {
	rows := make([][]any, 0, len(reactions))
	for i, r := range reactions {
		if strings.TrimSpace(r.User) == "" {
			return 0, errors.Errorf("chatdb: reaction %d has an empty user", i)
		}
		if r.MessageID <= 0 {
			return 0, errors.Errorf("chatdb: reaction %d has no message id", i)
		}
		rows = append(rows, []any{r.User, r.MessageID, r.Reaction})
	}
	return insertRows(ctx, t.q, TableReaction, []string{"user_id", "message_id", "reaction"}, rows, t.batchSize)
}

func (t *ReactionTable) Count(ctx context.Context) (int64, error) {
	return countRows(ctx, t.q, TableReaction)
}
