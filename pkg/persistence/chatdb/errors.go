package chatdb

import (
	"fmt"

	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// ErrConstraintViolation is matched (errors.Is) by every *ConstraintError.
var ErrConstraintViolation = errors.New("chatdb: constraint violation")

// ErrClosed is returned when a table handle is requested from a closed store.
var ErrClosed = errors.New("chatdb: store is closed")

type ConstraintKind string

const (
	ConstraintUnique     ConstraintKind = "unique"
	ConstraintPrimaryKey ConstraintKind = "primary key"
	ConstraintForeignKey ConstraintKind = "foreign key"
	ConstraintCheck      ConstraintKind = "check"
	ConstraintNotNull    ConstraintKind = "not null"
	ConstraintOther      ConstraintKind = "constraint"
)

// ConstraintError reports a write rejected by one of the store's integrity rules:
// a duplicate natural key, a reference to an unknown user or message, or a failed CHECK.
// It usually means corrupt input or a re-import without truncation.
type ConstraintError struct {
	Table string
	Kind  ConstraintKind
	Err   error
}

func (e *ConstraintError) Error() string {
	if e == nil {
		return ""
	}
	msg := fmt.Sprintf("chatdb: %s constraint violated on %s", e.Kind, e.Table)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConstraintError) Unwrap() error { return e.Err }

func (e *ConstraintError) Is(target error) bool { return target == ErrConstraintViolation }

// IsConstraintViolation reports whether err (or anything it wraps) is a *ConstraintError.
func IsConstraintViolation(err error) bool {
	return errors.Is(err, ErrConstraintViolation)
}

// wrapWriteError turns SQLite constraint failures into *ConstraintError and wraps
// everything else with the table name.
func wrapWriteError(table string, err error) error {
	if err == nil {
		return nil
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		return &ConstraintError{
			Table: table,
			Kind:  constraintKind(sqliteErr.ExtendedCode),
			Err:   err,
		}
	}
	return errors.Wrapf(err, "chatdb: write %s", table)
}

func constraintKind(code sqlite3.ErrNoExtended) ConstraintKind {
	switch code {
	case sqlite3.ErrConstraintUnique:
		return ConstraintUnique
	case sqlite3.ErrConstraintPrimaryKey:
		return ConstraintPrimaryKey
	case sqlite3.ErrConstraintForeignKey:
		return ConstraintForeignKey
	case sqlite3.ErrConstraintCheck:
		return ConstraintCheck
	case sqlite3.ErrConstraintNotNull:
		return ConstraintNotNull
	default:
		return ConstraintOther
	}
}
