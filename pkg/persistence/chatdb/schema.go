package chatdb

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

const (
	TableUser         = "user"
	TableMessage      = "message"
	TableMessageIndex = "message_index"
	TableReaction     = "reaction"
	TableAsset        = "asset"
	TableEvent        = "event"
)

// TableNames lists every table created by migrate, in creation order.
var TableNames = []string{TableUser, TableMessage, TableMessageIndex, TableReaction, TableAsset, TableEvent}

func quotedList[T ~string](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = "'" + string(v) + "'"
	}
	return strings.Join(parts, ", ")
}

func schemaStatements() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS "user" (
			name TEXT NOT NULL PRIMARY KEY
		);`,
		`CREATE TABLE IF NOT EXISTS message (
			id INTEGER NOT NULL PRIMARY KEY,
			sender_id TEXT NOT NULL REFERENCES "user"(name),
			timestamp DATETIME NOT NULL,
			content TEXT
		);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS message_sender_id_timestamp ON message(sender_id, timestamp);`,
		`CREATE VIRTUAL TABLE IF NOT EXISTS message_index USING fts4(
			content,
			tokenize=unicode61
		);`,
		`CREATE TRIGGER IF NOT EXISTS message_index_ai AFTER INSERT ON message
		WHEN NEW.content IS NOT NULL BEGIN
			INSERT INTO message_index(docid, content) VALUES (NEW.id, NEW.content);
		END;`,
		`CREATE TRIGGER IF NOT EXISTS message_index_ad AFTER DELETE ON message BEGIN
			DELETE FROM message_index WHERE docid = OLD.id;
		END;`,
		`CREATE TABLE IF NOT EXISTS reaction (
			user_id TEXT NOT NULL REFERENCES "user"(name),
			message_id INTEGER NOT NULL REFERENCES message(id),
			reaction TEXT NOT NULL,
			PRIMARY KEY (user_id, message_id)
		);`,
		`CREATE INDEX IF NOT EXISTS reaction_message_id ON reaction(message_id);`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS asset (
			id INTEGER NOT NULL PRIMARY KEY,
			message_id INTEGER NOT NULL REFERENCES message(id),
			path TEXT NOT NULL,
			type TEXT NOT NULL CHECK (type IN (%s)),
			timestamp DATETIME
		);`, quotedList(assetTypes)),
		`CREATE UNIQUE INDEX IF NOT EXISTS asset_message_id_path ON asset(message_id, path);`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS event (
			id INTEGER NOT NULL PRIMARY KEY,
			actor_id TEXT NOT NULL REFERENCES "user"(name),
			timestamp DATETIME NOT NULL,
			type TEXT NOT NULL CHECK (type IN (%s)),
			target_id TEXT REFERENCES "user"(name),
			duration INTEGER CHECK (duration >= 0)
		);`, quotedList(eventTypes)),
		// Calls have no target; COALESCE makes two calls by the same actor at the same time collide.
		`CREATE UNIQUE INDEX IF NOT EXISTS event_actor_id_timestamp_target ON event(actor_id, timestamp, COALESCE(target_id, ''));`,
		`CREATE INDEX IF NOT EXISTS event_target_id ON event(target_id);`,
	}
}

func migrate(ctx context.Context, q querier) error {
	for _, st := range schemaStatements() {
		if _, err := q.ExecContext(ctx, st); err != nil {
			return errors.Wrap(err, "chatdb: migrate")
		}
	}
	return nil
}
