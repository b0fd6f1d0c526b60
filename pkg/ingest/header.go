package ingest

import (
	"strings"
	"time"

	"github.com/go-go-golems/inboxdb/pkg/export"
	"github.com/pkg/errors"
)

// header holds the fields every message and event record carries.
type header struct {
	sender    string
	timestamp time.Time
}

func readHeader(rec Record) (header, error) {
	raw := rec.Raw()
	if raw.SenderName == nil {
		return header{}, missing(rec.Index(), "sender_name")
	}
	if raw.TimestampMs == nil {
		return header{}, missing(rec.Index(), "timestamp_ms")
	}
	if *raw.TimestampMs <= 0 {
		return header{}, invalid(rec.Index(), "timestamp_ms", "must be positive")
	}
	sender, err := repairName(rec.Index(), "sender_name", *raw.SenderName)
	if err != nil {
		return header{}, err
	}
	return header{
		sender:    sender,
		timestamp: millisToTime(*raw.TimestampMs),
	}, nil
}

// millisToTime keeps the export's millisecond precision.
func millisToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func repairName(index int, field string, name string) (string, error) {
	out, err := repairText(index, field, name)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(out) == "" {
		return "", invalid(index, field, "is empty")
	}
	return out, nil
}

func repairText(index int, field string, s string) (string, error) {
	out, err := export.Repair(s)
	if err != nil {
		return "", errors.Wrapf(err, "ingest: record %d: %s", index, field)
	}
	return out, nil
}
