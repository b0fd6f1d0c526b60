package chatdb

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// DefaultBatchSize caps the number of rows per multi-row INSERT statement.
const DefaultBatchSize = 200

// MaxVariables is SQLite's default limit on bound parameters per statement.
const MaxVariables = 32766

// MaxBatchSize is the largest batch that fits MaxVariables for the widest table (event, 5 columns).
const MaxBatchSize = MaxVariables / 5

// insertRows writes rows with one multi-row INSERT per chunk of batchSize rows.
// It returns the number of rows written.
func insertRows(ctx context.Context, q querier, table string, columns []string, rows [][]any, batchSize int) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	batchSize = effectiveBatchSize(batchSize, len(columns))
	for i, row := range rows {
		if len(row) != len(columns) {
			return 0, errors.Errorf("chatdb: %s row %d has %d values, want %d", table, i, len(row), len(columns))
		}
	}

	var written int64
	for start := 0; start < len(rows); start += batchSize {
		end := start + batchSize
		if end > len(rows) {
			end = len(rows)
		}
		chunk := rows[start:end]
		query, args := buildInsert(table, columns, chunk)
		res, err := q.ExecContext(ctx, query, args...)
		if err != nil {
			return written, wrapWriteError(table, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return written, errors.Wrapf(err, "chatdb: rows affected on %s", table)
		}
		written += n
	}
	return written, nil
}

// effectiveBatchSize keeps batchSize*columns within MaxVariables.
func effectiveBatchSize(batchSize int, columns int) int {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if columns > 0 && batchSize*columns > MaxVariables {
		batchSize = MaxVariables / columns
	}
	return batchSize
}

func buildInsert(table string, columns []string, rows [][]any) (string, []any) {
	placeholder := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ") + ")"
	values := make([]string, len(rows))
	args := make([]any, 0, len(rows)*len(columns))
	for i, row := range rows {
		values[i] = placeholder
		args = append(args, row...)
	}
	query := fmt.Sprintf(`INSERT INTO %q (%s) VALUES %s`,
		table, strings.Join(columns, ", "), strings.Join(values, ", "))
	return query, args
}

func countRows(ctx context.Context, q querier, table string) (int64, error) {
	var n int64
	if err := q.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(1) FROM %q`, table)).Scan(&n); err != nil {
		return 0, errors.Wrapf(err, "chatdb: count %s", table)
	}
	return n, nil
}
