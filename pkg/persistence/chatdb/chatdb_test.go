package chatdb

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func newTestChatDB(t *testing.T, opts ...Option) *ChatDB {
	t.Helper()
	c, err := New(filepath.Join(t.TempDir(), "chat.db"), opts...)
	require.NoError(t, err)
	require.NoError(t, c.Open(context.Background()))
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func mustTables(t *testing.T, c *ChatDB) *Tables {
	t.Helper()
	tables, err := c.Tables()
	require.NoError(t, err)
	return tables
}

func strPtr(s string) *string { return &s }

func int64Ptr(n int64) *int64 { return &n }

func TestChatDB_OpenCreatesSchema(t *testing.T) {
	c := newTestChatDB(t)
	for _, name := range TableNames {
		require.True(t, hasTable(t, c.DB(), name), name)
	}
	_, err := os.Stat(c.Path())
	require.NoError(t, err)
}

func TestChatDB_OpenIsIdempotent(t *testing.T) {
	c := newTestChatDB(t)
	ctx := context.Background()
	db := c.DB()

	require.NoError(t, c.Open(ctx))
	require.Same(t, db, c.DB())
	require.False(t, c.IsClosed())

	// Re-running the schema on an existing file must not fail either.
	require.NoError(t, c.Close())
	require.True(t, c.IsClosed())
	require.NoError(t, c.Open(ctx))
	require.False(t, c.IsClosed())
}

func TestChatDB_ClosedStore(t *testing.T) {
	c, err := New(filepath.Join(t.TempDir(), "chat.db"))
	require.NoError(t, err)
	require.True(t, c.IsClosed())
	require.NoError(t, c.Close())

	_, err = c.Tables()
	require.ErrorIs(t, err, ErrClosed)
	err = c.InTx(context.Background(), func(*Tables) error { return nil })
	require.ErrorIs(t, err, ErrClosed)

	_, err = New("  ")
	require.Error(t, err)
}

func TestChatDB_InsertRowsAndIndex(t *testing.T) {
	c := newTestChatDB(t)
	ctx := context.Background()
	tables := mustTables(t, c)

	_, err := tables.User.InsertBatch(ctx, []User{{Name: "alice"}, {Name: "bob"}})
	require.NoError(t, err)

	ts := time.UnixMilli(1600000000123)
	withText, err := tables.Message.Insert(ctx, Message{Sender: "alice", Timestamp: ts, Content: strPtr("hello world")})
	require.NoError(t, err)
	mediaOnly, err := tables.Message.Insert(ctx, Message{Sender: "bob", Timestamp: ts})
	require.NoError(t, err)
	require.NotEqual(t, withText, mediaOnly)

	created := time.Unix(1600000000, 0)
	n, err := tables.Asset.InsertBatch(ctx, []Asset{
		{MessageID: mediaOnly, Path: "photos/1.jpg", Type: AssetPhoto, Timestamp: &created},
		{MessageID: mediaOnly, Path: "stickers/1.png", Type: AssetSticker},
	})
	require.NoError(t, err)
	require.Equal(t, int64(2), n)

	n, err = tables.Reaction.InsertBatch(ctx, []Reaction{
		{User: "bob", MessageID: withText, Reaction: "👍"},
		{User: "alice", MessageID: withText, Reaction: "❤"},
	})
	require.NoError(t, err)
	require.Equal(t, int64(2), n)

	n, err = tables.Event.InsertBatch(ctx, []Event{
		{Actor: "alice", Timestamp: ts, Type: EventCall, Duration: int64Ptr(42)},
		{Actor: "alice", Timestamp: ts, Type: EventSubscribe, Target: strPtr("bob")},
	})
	require.NoError(t, err)
	require.Equal(t, int64(2), n)

	counts, err := tables.Counts(ctx)
	require.NoError(t, err)
	require.Equal(t, Counts{Users: 2, Messages: 2, IndexedTexts: 1, Reactions: 2, Assets: 2, Events: 2}, counts)

	ids, err := tables.MessageIndex.Match(ctx, "hello")
	require.NoError(t, err)
	require.Equal(t, []int64{withText}, ids)

	ids, err = tables.MessageIndex.Match(ctx, "missing")
	require.NoError(t, err)
	require.Empty(t, ids)

	require.Equal(t, int64(1), queryRowCount(t, c.DB(), `SELECT COUNT(1) FROM asset WHERE timestamp IS NULL`))
	require.Equal(t, int64(1), queryRowCount(t, c.DB(), `SELECT COUNT(1) FROM event WHERE duration IS NULL`))
}

func TestChatDB_TimestampsRoundTrip(t *testing.T) {
	c := newTestChatDB(t)
	ctx := context.Background()
	tables := mustTables(t, c)
	require.NoError(t, tables.User.Insert(ctx, User{Name: "alice"}))

	ts := time.UnixMilli(1600000000123)
	id, err := tables.Message.Insert(ctx, Message{Sender: "alice", Timestamp: ts})
	require.NoError(t, err)

	var got time.Time
	require.NoError(t, c.DB().QueryRow(`SELECT timestamp FROM message WHERE id = ?`, id).Scan(&got))
	require.True(t, ts.Equal(got), "got %s want %s", got, ts)
}

func TestChatDB_ConstraintViolations(t *testing.T) {
	c := newTestChatDB(t)
	ctx := context.Background()
	tables := mustTables(t, c)
	require.NoError(t, tables.User.Insert(ctx, User{Name: "alice"}))
	ts := time.Unix(1600000000, 0)
	msgID, err := tables.Message.Insert(ctx, Message{Sender: "alice", Timestamp: ts})
	require.NoError(t, err)

	tests := []struct {
		name  string
		write func() error
		table string
		kind  ConstraintKind
	}{
		{
			name:  "duplicate user",
			write: func() error { return tables.User.Insert(ctx, User{Name: "alice"}) },
			table: TableUser,
			kind:  ConstraintPrimaryKey,
		},
		{
			name: "duplicate sender and timestamp",
			write: func() error {
				_, err := tables.Message.Insert(ctx, Message{Sender: "alice", Timestamp: ts})
				return err
			},
			table: TableMessage,
			kind:  ConstraintUnique,
		},
		{
			name: "unknown sender",
			write: func() error {
				_, err := tables.Message.Insert(ctx, Message{Sender: "mallory", Timestamp: ts})
				return err
			},
			table: TableMessage,
			kind:  ConstraintForeignKey,
		},
		{
			name: "duplicate asset path",
			write: func() error {
				_, err := tables.Asset.InsertBatch(ctx, []Asset{
					{MessageID: msgID, Path: "a.jpg", Type: AssetPhoto},
					{MessageID: msgID, Path: "a.jpg", Type: AssetVideo},
				})
				return err
			},
			table: TableAsset,
			kind:  ConstraintUnique,
		},
		{
			name: "second reaction by same user",
			write: func() error {
				_, err := tables.Reaction.InsertBatch(ctx, []Reaction{
					{User: "alice", MessageID: msgID, Reaction: "a"},
					{User: "alice", MessageID: msgID, Reaction: "b"},
				})
				return err
			},
			table: TableReaction,
			kind:  ConstraintPrimaryKey,
		},
		{
			name: "reaction by unknown user",
			write: func() error {
				_, err := tables.Reaction.InsertBatch(ctx, []Reaction{{User: "mallory", MessageID: msgID, Reaction: "a"}})
				return err
			},
			table: TableReaction,
			kind:  ConstraintForeignKey,
		},
		{
			name: "negative call duration",
			write: func() error {
				_, err := tables.Event.InsertBatch(ctx, []Event{{Actor: "alice", Timestamp: ts, Type: EventCall, Duration: int64Ptr(-1)}})
				return err
			},
			table: TableEvent,
			kind:  ConstraintCheck,
		},
		{
			name: "duplicate membership event",
			write: func() error {
				_, err := tables.Event.InsertBatch(ctx, []Event{
					{Actor: "alice", Timestamp: ts, Type: EventSubscribe, Target: strPtr("alice")},
					{Actor: "alice", Timestamp: ts, Type: EventUnsubscribe, Target: strPtr("alice")},
				})
				return err
			},
			table: TableEvent,
			kind:  ConstraintUnique,
		},
		{
			name: "duplicate call event",
			write: func() error {
				_, err := tables.Event.InsertBatch(ctx, []Event{
					{Actor: "alice", Timestamp: ts, Type: EventCall, Duration: int64Ptr(42)},
					{Actor: "alice", Timestamp: ts, Type: EventCall, Duration: int64Ptr(42)},
				})
				return err
			},
			table: TableEvent,
			kind:  ConstraintUnique,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.write()
			require.Error(t, err)
			require.True(t, IsConstraintViolation(err))
			var ce *ConstraintError
			require.True(t, errors.As(err, &ce))
			require.Equal(t, tc.table, ce.Table)
			require.Equal(t, tc.kind, ce.Kind)
		})
	}
}

func TestChatDB_RejectsInvalidRows(t *testing.T) {
	c := newTestChatDB(t)
	ctx := context.Background()
	tables := mustTables(t, c)

	_, err := tables.User.InsertBatch(ctx, []User{{Name: ""}})
	require.Error(t, err)
	require.False(t, IsConstraintViolation(err))

	_, err = tables.Message.Insert(ctx, Message{Sender: "alice"})
	require.Error(t, err)

	_, err = tables.Asset.InsertBatch(ctx, []Asset{{MessageID: 1, Path: "x", Type: AssetType("blob")}})
	require.Error(t, err)

	_, err = tables.Event.InsertBatch(ctx, []Event{{Actor: "alice", Timestamp: time.Now(), Type: EventType("party")}})
	require.Error(t, err)

	_, err = tables.MessageIndex.Match(ctx, " ")
	require.Error(t, err)
}

func TestChatDB_InTxRollsBackOnError(t *testing.T) {
	c := newTestChatDB(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := c.InTx(ctx, func(tables *Tables) error {
		require.NoError(t, tables.User.Insert(ctx, User{Name: "alice"}))
		_, err := tables.Message.Insert(ctx, Message{Sender: "alice", Timestamp: time.Unix(1, 0), Content: strPtr("gone")})
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)

	counts, err := mustTables(t, c).Counts(ctx)
	require.NoError(t, err)
	require.Equal(t, Counts{}, counts)

	err = c.InTx(ctx, func(tables *Tables) error {
		return tables.User.Insert(ctx, User{Name: "alice"})
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), queryRowCount(t, c.DB(), `SELECT COUNT(1) FROM "user"`))
}

func TestChatDB_BatchesLargeInserts(t *testing.T) {
	c := newTestChatDB(t, WithBatchSize(2))
	ctx := context.Background()

	users := []User{{Name: "a"}, {Name: "b"}, {Name: "c"}, {Name: "d"}, {Name: "e"}}
	n, err := mustTables(t, c).User.InsertBatch(ctx, users)
	require.NoError(t, err)
	require.Equal(t, int64(5), n)

	n, err = mustTables(t, c).User.InsertBatch(ctx, nil)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestChatDB_TruncateRemovesFile(t *testing.T) {
	c := newTestChatDB(t)
	ctx := context.Background()
	require.NoError(t, mustTables(t, c).User.Insert(ctx, User{Name: "alice"}))

	require.NoError(t, c.Truncate())
	require.True(t, c.IsClosed())
	_, err := os.Stat(c.Path())
	require.True(t, os.IsNotExist(err))

	require.NoError(t, c.Open(ctx))
	counts, err := mustTables(t, c).Counts(ctx)
	require.NoError(t, err)
	require.Equal(t, Counts{}, counts)
}

func TestEffectiveBatchSize(t *testing.T) {
	require.Equal(t, DefaultBatchSize, effectiveBatchSize(0, 4))
	require.Equal(t, 50, effectiveBatchSize(50, 5))
	require.Equal(t, MaxBatchSize, effectiveBatchSize(100000, 5))
	require.Equal(t, MaxVariables, effectiveBatchSize(100000, 1))
	require.LessOrEqual(t, MaxBatchSize*5, MaxVariables)
}

func TestBuildInsert(t *testing.T) {
	query, args := buildInsert("asset", []string{"message_id", "path"}, [][]any{{1, "a"}, {2, "b"}})
	require.Equal(t, `INSERT INTO "asset" (message_id, path) VALUES (?, ?), (?, ?)`, query)
	require.Equal(t, []any{1, "a", 2, "b"}, args)
}

func hasTable(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	return queryRowCount(t, db, "SELECT COUNT(1) FROM sqlite_master WHERE type = 'table' AND name = ?", name) > 0
}

func queryRowCount(t *testing.T, db *sql.DB, query string, args ...any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.QueryRow(query, args...).Scan(&n))
	return n
}
