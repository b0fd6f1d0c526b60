package ingest

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrMalformedRecord is matched by every *MalformedRecordError.
var ErrMalformedRecord = errors.New("ingest: malformed record")

// MalformedRecordError reports a record with a missing or invalid key.
type MalformedRecordError struct {
	Index  int
	Field  string
	Reason string
}

func (e *MalformedRecordError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("ingest: record %d: %s %s", e.Index, e.Field, e.Reason)
}

func (e *MalformedRecordError) Is(target error) bool { return target == ErrMalformedRecord }

func missing(index int, field string) error {
	return &MalformedRecordError{Index: index, Field: field, Reason: "is missing"}
}

func invalid(index int, field string, reason string) error {
	return &MalformedRecordError{Index: index, Field: field, Reason: reason}
}
