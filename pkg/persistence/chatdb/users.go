package chatdb

import (
	"context"
	"strings"

	"github.com/pkg/errors"
)

type UserTable struct {
	q         querier
	batchSize int
}

func (t *UserTable) Insert(ctx context.Context, u User) error {
	_, err := t.InsertBatch(ctx, []User{u})
	return err
}

// InsertBatch inserts all users with multi-row statements. A name that already
// exists yields a *ConstraintError.
func (t *UserTable) InsertBatch(ctx context.Context, users []User) (int64, error) {
	rows := make([][]any, 0, len(users))
	for i, u := range users {
		if strings.TrimSpace(u.Name) == "" {
			return 0, errors.Errorf("chatdb: user %d has an empty name", i)
		}
		rows = append(rows, []any{u.Name})
	}
	return insertRows(ctx, t.q, TableUser, []string{"name"}, rows, t.batchSize)
}

func (t *UserTable) Count(ctx context.Context) (int64, error) {
	return countRows(ctx, t.q, TableUser)
}
