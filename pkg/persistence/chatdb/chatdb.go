// Package chatdb holds the relational store for a single imported conversation:
// users, messages (with a full-text shadow index), reactions, assets and events.
package chatdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Tables bundles one handle per table, all bound to the same connection or transaction.
type Tables struct {
	User         *UserTable
	Message      *MessageTable
	MessageIndex *MessageIndexTable
	Reaction     *ReactionTable
	Asset        *AssetTable
	Event        *EventTable
}

func newTables(q querier, batchSize int) *Tables {
	return &Tables{
		User:         &UserTable{q: q, batchSize: batchSize},
		Message:      &MessageTable{q: q},
		MessageIndex: &MessageIndexTable{q: q},
		Reaction:     &ReactionTable{q: q, batchSize: batchSize},
		Asset:        &AssetTable{q: q, batchSize: batchSize},
		Event:        &EventTable{q: q, batchSize: batchSize},
	}
}

// Counts returns the number of rows in every table.
func (t *Tables) Counts(ctx context.Context) (Counts, error) {
	var (
		c   Counts
		err error
	)
	if c.Users, err = t.User.Count(ctx); err != nil {
		return Counts{}, err
	}
	if c.Messages, err = t.Message.Count(ctx); err != nil {
		return Counts{}, err
	}
	if c.IndexedTexts, err = t.MessageIndex.Count(ctx); err != nil {
		return Counts{}, err
	}
	if c.Reactions, err = t.Reaction.Count(ctx); err != nil {
		return Counts{}, err
	}
	if c.Assets, err = t.Asset.Count(ctx); err != nil {
		return Counts{}, err
	}
	if c.Events, err = t.Event.Count(ctx); err != nil {
		return Counts{}, err
	}
	return c, nil
}

type Option func(*ChatDB)

// WithBatchSize sets the maximum number of rows per multi-row INSERT.
func WithBatchSize(n int) Option {
	return func(c *ChatDB) {
		if n > 0 {
			c.batchSize = n
		}
	}
}

// ChatDB is a connection manager for one conversation's SQLite file.
type ChatDB struct {
	path      string
	batchSize int

	mu     sync.Mutex
	db     *sql.DB
	tables *Tables
}

func New(path string, opts ...Option) (*ChatDB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("chatdb: empty path")
	}
	c := &ChatDB{path: path, batchSize: DefaultBatchSize}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func DSNForFile(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", errors.New("chatdb: empty path")
	}
	return fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on", path), nil
}

func (c *ChatDB) Path() string {
	return c.path
}

// Open connects to the store and creates any missing tables. Calling Open on an
// already open store reuses the existing connection.
func (c *ChatDB) Open(ctx context.Context) error {
	if c == nil {
		return errors.New("chatdb: nil store")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db != nil {
		return nil
	}

	dsn, err := DSNForFile(c.path)
	if err != nil {
		return err
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return errors.Wrap(err, "chatdb: open")
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return errors.Wrapf(err, "chatdb: connect %s", c.path)
	}
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return err
	}
	c.db = db
	c.tables = newTables(db, c.batchSize)
	return nil
}

func (c *ChatDB) Close() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	c.tables = nil
	return errors.Wrap(err, "chatdb: close")
}

func (c *ChatDB) IsClosed() bool {
	if c == nil {
		return true
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.db == nil
}

// Truncate closes the store and removes its file together with the WAL side files.
// The next Open starts from an empty schema.
func (c *ChatDB) Truncate() error {
	if err := c.Close(); err != nil {
		return err
	}
	for _, p := range []string{c.path, c.path + "-wal", c.path + "-shm"} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return errors.Wrapf(err, "chatdb: remove %s", p)
		}
	}
	return nil
}

// DB exposes the underlying connection, or nil when closed.
func (c *ChatDB) DB() *sql.DB {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.db
}

// Tables returns handles bound to the open connection.
func (c *ChatDB) Tables() (*Tables, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db == nil {
		return nil, ErrClosed
	}
	return c.tables, nil
}

// InTx runs fn with table handles bound to a single transaction. The transaction
// commits when fn returns nil and rolls back otherwise.
func (c *ChatDB) InTx(ctx context.Context, fn func(*Tables) error) error {
	c.mu.Lock()
	db := c.db
	c.mu.Unlock()
	if db == nil {
		return ErrClosed
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "chatdb: begin tx")
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(newTables(tx, c.batchSize)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "chatdb: commit tx")
	}
	committed = true
	return nil
}
