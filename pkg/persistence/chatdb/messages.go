package chatdb

import (
	"context"
	"strings"

	"github.com/pkg/errors"
)

type MessageTable struct {
	q querier
}

// Insert writes one message and returns its generated id. Messages with content
// are mirrored into the message_index table by trigger.
func (t *MessageTable) Insert(ctx context.Context, m Message) (int64, error) {
	if strings.TrimSpace(m.Sender) == "" {
		return 0, errors.New("chatdb: message sender is empty")
	}
	if m.Timestamp.IsZero() {
		return 0, errors.New("chatdb: message timestamp is zero")
	}
	res, err := t.q.ExecContext(ctx,
		`INSERT INTO message (sender_id, timestamp, content) VALUES (?, ?, ?)`,
		m.Sender, m.Timestamp.UTC(), m.Content)
	if err != nil {
		return 0, wrapWriteError(TableMessage, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, errors.Wrap(err, "chatdb: message last insert id")
	}
	return id, nil
}

func (t *MessageTable) Count(ctx context.Context) (int64, error) {
	return countRows(ctx, t.q, TableMessage)
}

// MessageIndexTable is the full-text shadow of message.content. Its docid equals
// the message id.
type MessageIndexTable struct {
	q querier
}

// Match returns the ids of messages whose content matches an FTS query, in id order.
func (t *MessageIndexTable) Match(ctx context.Context, query string) ([]int64, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("chatdb: empty match query")
	}
	rows, err := t.q.QueryContext(ctx,
		`SELECT docid FROM message_index WHERE message_index MATCH ? ORDER BY docid`, query)
	if err != nil {
		return nil, errors.Wrap(err, "chatdb: match message_index")
	}
	defer func() { _ = rows.Close() }()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "chatdb: scan message_index")
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "chatdb: iterate message_index")
	}
	return ids, nil
}

func (t *MessageIndexTable) Count(ctx context.Context) (int64, error) {
	return countRows(ctx, t.q, TableMessageIndex)
}
