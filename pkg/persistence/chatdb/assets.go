package chatdb

import (
	"context"
	"strings"

	"github.com/pkg/errors"
)

type AssetTable struct {
	q         querier
	batchSize int
}

func (t *AssetTable) InsertBatch(ctx context.Context, assets []Asset) (int64, error) {
	rows := make([][]any, 0, len(assets))
	for i, a := range assets {
		if a.MessageID <= 0 {
			return 0, errors.Errorf("chatdb: asset %d has no message id", i)
		}
		if strings.TrimSpace(a.Path) == "" {
			return 0, errors.Errorf("chatdb: asset %d has an empty path", i)
		}
		if !a.Type.Valid() {
			return 0, errors.Errorf("chatdb: asset %d has unknown type %q", i, a.Type)
		}
		var ts any
		if a.Timestamp != nil {
			ts = a.Timestamp.UTC()
		}
		rows = append(rows, []any{a.MessageID, a.Path, string(a.Type), ts})
	}
	return insertRows(ctx, t.q, TableAsset, []string{"message_id", "path", "type", "timestamp"}, rows, t.batchSize)
}

func (t *AssetTable) Count(ctx context.Context) (int64, error) {
	return countRows(ctx, t.q, TableAsset)
}
