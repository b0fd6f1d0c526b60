// Package ingest turns a parsed conversation export into rows of a chatdb store.
package ingest

import (
	"github.com/go-go-golems/inboxdb/pkg/export"
)

// Kind is the declared kind of an export record.
type Kind int

const (
	KindUnknown Kind = iota
	KindGeneric
	KindShare
	KindCall
	KindSubscribe
	KindUnsubscribe
)

var kindTags = map[string]Kind{
	"Generic":     KindGeneric,
	"Share":       KindShare,
	"Call":        KindCall,
	"Subscribe":   KindSubscribe,
	"Unsubscribe": KindUnsubscribe,
}

func (k Kind) String() string {
	switch k {
	case KindGeneric:
		return "generic"
	case KindShare:
		return "share"
	case KindCall:
		return "call"
	case KindSubscribe:
		return "subscribe"
	case KindUnsubscribe:
		return "unsubscribe"
	default:
		return "unknown"
	}
}

// IsMessage reports whether records of this kind become message rows.
func (k Kind) IsMessage() bool { return k == KindGeneric || k == KindShare }

// IsEvent reports whether records of this kind become event rows.
func (k Kind) IsEvent() bool { return k == KindCall || k == KindSubscribe || k == KindUnsubscribe }

// KindOf maps a record's "type" tag to its Kind.
func KindOf(tag string) Kind {
	if k, ok := kindTags[tag]; ok {
		return k
	}
	return KindUnknown
}

// Record is a classified export record. The set of implementations is closed:
// GenericMessage, ShareMessage, Call, Subscribe, Unsubscribe and Unknown.
type Record interface {
	Kind() Kind
	// Index is the position of the record in the document's message list.
	Index() int
	Raw() *export.Record
	isRecord()
}

type classified struct {
	index int
	raw   *export.Record
}

func (c classified) Index() int          { return c.index }
func (c classified) Raw() *export.Record { return c.raw }
func (classified) isRecord()             {}

type GenericMessage struct{ classified }

func (GenericMessage) Kind() Kind { return KindGeneric }

type ShareMessage struct{ classified }

func (ShareMessage) Kind() Kind { return KindShare }

type Call struct{ classified }

func (Call) Kind() Kind { return KindCall }

type Subscribe struct{ classified }

func (Subscribe) Kind() Kind { return KindSubscribe }

type Unsubscribe struct{ classified }

func (Unsubscribe) Kind() Kind { return KindUnsubscribe }

// Unknown carries a record whose tag matched none of the known kinds.
type Unknown struct {
	classified
	Tag string
}

func (Unknown) Kind() Kind { return KindUnknown }

// Classify routes a raw record by its "type" tag. A record without a tag is malformed.
func Classify(index int, raw *export.Record) (Record, error) {
	if raw == nil {
		return nil, invalid(index, "record", "is null")
	}
	if raw.Type == nil {
		return nil, missing(index, "type")
	}
	c := classified{index: index, raw: raw}
	switch KindOf(*raw.Type) {
	case KindGeneric:
		return GenericMessage{c}, nil
	case KindShare:
		return ShareMessage{c}, nil
	case KindCall:
		return Call{c}, nil
	case KindSubscribe:
		return Subscribe{c}, nil
	case KindUnsubscribe:
		return Unsubscribe{c}, nil
	default:
		return Unknown{classified: c, Tag: *raw.Type}, nil
	}
}
