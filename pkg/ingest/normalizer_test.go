package ingest

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-go-golems/inboxdb/pkg/export"
	"github.com/go-go-golems/inboxdb/pkg/persistence/chatdb"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func rawRecord(t *testing.T, body string) *export.Record {
	t.Helper()
	var r export.Record
	require.NoError(t, json.Unmarshal([]byte(body), &r))
	return &r
}

func classify(t *testing.T, index int, body string) Record {
	t.Helper()
	rec, err := Classify(index, rawRecord(t, body))
	require.NoError(t, err)
	return rec
}

func TestClassify(t *testing.T) {
	cases := []struct {
		tag  string
		kind Kind
		want Record
	}{
		{"Generic", KindGeneric, GenericMessage{}},
		{"Share", KindShare, ShareMessage{}},
		{"Call", KindCall, Call{}},
		{"Subscribe", KindSubscribe, Subscribe{}},
		{"Unsubscribe", KindUnsubscribe, Unsubscribe{}},
		{"Poll", KindUnknown, Unknown{}},
		{"generic", KindUnknown, Unknown{}},
	}
	for _, tc := range cases {
		t.Run(tc.tag, func(t *testing.T) {
			rec := classify(t, 7, `{"type": "`+tc.tag+`"}`)
			require.Equal(t, tc.kind, rec.Kind())
			require.IsType(t, tc.want, rec)
			require.Equal(t, 7, rec.Index())
			require.NotNil(t, rec.Raw())
		})
	}

	rec := classify(t, 0, `{"type": "Poll"}`)
	require.Equal(t, "Poll", rec.(Unknown).Tag)
}

func TestClassify_Malformed(t *testing.T) {
	_, err := Classify(3, rawRecord(t, `{"sender_name": "Alice", "timestamp_ms": 1}`))
	require.ErrorIs(t, err, ErrMalformedRecord)
	var mre *MalformedRecordError
	require.ErrorAs(t, err, &mre)
	require.Equal(t, 3, mre.Index)
	require.Equal(t, "type", mre.Field)

	_, err = Classify(0, nil)
	require.ErrorIs(t, err, ErrMalformedRecord)
}

func TestKind(t *testing.T) {
	require.True(t, KindGeneric.IsMessage())
	require.True(t, KindShare.IsMessage())
	require.False(t, KindCall.IsMessage())
	require.True(t, KindSubscribe.IsEvent())
	require.False(t, KindUnknown.IsEvent())
	require.False(t, KindUnknown.IsMessage())
	require.Equal(t, "unsubscribe", KindUnsubscribe.String())
	require.Equal(t, "unknown", Kind(42).String())
}

func TestMessageNormalizer_GenericWithoutPayload(t *testing.T) {
	n := NewMessageNormalizer(zerolog.Nop())
	rows, err := n.Normalize(classify(t, 0, `{"sender_name": "Alice", "timestamp_ms": 1600000000123, "type": "Generic"}`))
	require.NoError(t, err)
	require.Equal(t, "Alice", rows.message.Sender)
	require.Equal(t, time.UnixMilli(1600000000123).UTC(), rows.message.Timestamp)
	require.Nil(t, rows.message.Content)
	require.Empty(t, rows.assets)
	require.Empty(t, rows.reactions)
}

func TestMessageNormalizer_GenericPayload(t *testing.T) {
	n := NewMessageNormalizer(zerolog.Nop())
	rows, err := n.Normalize(classify(t, 0, `{
		"sender_name": "BjÃ¶rn",
		"timestamp_ms": 1600000000000,
		"type": "Generic",
		"content": "cafÃ©",
		"photos": [{"uri": "p/1.jpg", "creation_timestamp": 1599999999}],
		"videos": [{"uri": "v/1.mp4", "creation_timestamp": 1599999998}],
		"audio_files": [{"uri": "a/1.aac", "creation_timestamp": 1599999997}],
		"files": [{"uri": "f/1.pdf", "creation_timestamp": 1599999996}],
		"gifs": [{"uri": "g/1.gif"}],
		"sticker": {"uri": "s/1.png"},
		"reactions": [{"reaction": "â\u009d¤", "actor": "Alice"}]
	}`))
	require.NoError(t, err)
	require.Equal(t, "Björn", rows.message.Sender)
	require.NotNil(t, rows.message.Content)
	require.Equal(t, "café", *rows.message.Content)

	assets := rows.assetRows(9)
	require.Len(t, assets, 6)
	byType := map[chatdb.AssetType]chatdb.Asset{}
	for _, a := range assets {
		require.Equal(t, int64(9), a.MessageID)
		byType[a.Type] = a
	}
	require.Equal(t, time.Unix(1599999999, 0).UTC(), *byType[chatdb.AssetPhoto].Timestamp)
	require.Equal(t, "f/1.pdf", byType[chatdb.AssetOther].Path)
	require.NotNil(t, byType[chatdb.AssetAudio].Timestamp)
	require.NotNil(t, byType[chatdb.AssetVideo].Timestamp)
	require.Nil(t, byType[chatdb.AssetGif].Timestamp)
	require.Nil(t, byType[chatdb.AssetSticker].Timestamp)
	require.Equal(t, "s/1.png", byType[chatdb.AssetSticker].Path)

	reactions := rows.reactionRows(9)
	require.Equal(t, []chatdb.Reaction{{User: "Alice", MessageID: 9, Reaction: "❤"}}, reactions)
}

func TestMessageNormalizer_Share(t *testing.T) {
	n := NewMessageNormalizer(zerolog.Nop())
	rows, err := n.Normalize(classify(t, 0, `{
		"sender_name": "Alice",
		"timestamp_ms": 1600000000000,
		"type": "Share",
		"content": "look at this",
		"share": {"link": "https://example.com/a"},
		"photos": [{"uri": "p/1.jpg", "creation_timestamp": 1}]
	}`))
	require.NoError(t, err)
	require.Nil(t, rows.message.Content)
	require.Equal(t, []chatdb.Asset{{MessageID: 1, Path: "https://example.com/a", Type: chatdb.AssetLink}}, rows.assetRows(1))

	rows, err = n.Normalize(classify(t, 1, `{"sender_name": "Alice", "timestamp_ms": 1, "type": "Share", "share": {"share_text": "x"}}`))
	require.NoError(t, err)
	require.Empty(t, rows.assets)
}

func TestMessageNormalizer_Malformed(t *testing.T) {
	n := NewMessageNormalizer(zerolog.Nop())
	cases := map[string]string{
		"missing sender":         `{"timestamp_ms": 1, "type": "Generic"}`,
		"missing timestamp":      `{"sender_name": "Alice", "type": "Generic"}`,
		"non-positive timestamp": `{"sender_name": "Alice", "timestamp_ms": 0, "type": "Generic"}`,
		"empty sender":           `{"sender_name": " ", "timestamp_ms": 1, "type": "Generic"}`,
		"photo without time":     `{"sender_name": "Alice", "timestamp_ms": 1, "type": "Generic", "photos": [{"uri": "p.jpg"}]}`,
		"gif without uri":        `{"sender_name": "Alice", "timestamp_ms": 1, "type": "Generic", "gifs": [{}]}`,
		"sticker without uri":    `{"sender_name": "Alice", "timestamp_ms": 1, "type": "Generic", "sticker": {}}`,
		"reaction without actor": `{"sender_name": "Alice", "timestamp_ms": 1, "type": "Generic", "reactions": [{"reaction": "x"}]}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := n.Normalize(classify(t, 4, body))
			require.ErrorIs(t, err, ErrMalformedRecord)
		})
	}

	_, err := n.Normalize(classify(t, 0, `{"sender_name": "中", "timestamp_ms": 1, "type": "Generic"}`))
	require.ErrorIs(t, err, export.ErrUndecodableText)

	_, err = n.Normalize(classify(t, 2, `{"sender_name": "Alice", "timestamp_ms": 1, "type": "Generic", "content": "中"}`))
	require.ErrorIs(t, err, export.ErrUndecodableText)
	require.ErrorContains(t, err, "record 2: content")

	_, err = n.Normalize(classify(t, 0, `{"sender_name": "Alice", "timestamp_ms": 1, "type": "Call"}`))
	require.Error(t, err)
}

func TestEventNormalizer_Call(t *testing.T) {
	n := NewEventNormalizer()

	events, err := n.Normalize(classify(t, 0, `{"sender_name": "Alice", "timestamp_ms": 1000, "type": "Call", "call_duration": 0, "missed": true}`))
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, chatdb.EventCall, events[0].Type)
	require.Equal(t, "Alice", events[0].Actor)
	require.Nil(t, events[0].Duration)
	require.Nil(t, events[0].Target)

	events, err = n.Normalize(classify(t, 0, `{"sender_name": "Alice", "timestamp_ms": 1000, "type": "Call", "call_duration": 42}`))
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.NotNil(t, events[0].Duration)
	require.Equal(t, int64(42), *events[0].Duration)

	events, err = n.Normalize(classify(t, 0, `{"sender_name": "Alice", "timestamp_ms": 1000, "type": "Call", "call_duration": 42, "missed": false}`))
	require.NoError(t, err)
	require.Equal(t, int64(42), *events[0].Duration)

	_, err = n.Normalize(classify(t, 0, `{"sender_name": "Alice", "timestamp_ms": 1000, "type": "Call"}`))
	require.ErrorIs(t, err, ErrMalformedRecord)
}

func TestEventNormalizer_Membership(t *testing.T) {
	n := NewEventNormalizer()

	events, err := n.Normalize(classify(t, 0, `{
		"sender_name": "Alice",
		"timestamp_ms": 2000,
		"type": "Subscribe",
		"users": [{"name": "Bob"}, {"name": "BjÃ¶rn"}, {"name": "Carol"}]
	}`))
	require.NoError(t, err)
	require.Len(t, events, 3)
	targets := make([]string, 0, len(events))
	for _, ev := range events {
		require.Equal(t, chatdb.EventSubscribe, ev.Type)
		require.Equal(t, "Alice", ev.Actor)
		require.Nil(t, ev.Duration)
		targets = append(targets, *ev.Target)
	}
	require.Equal(t, []string{"Bob", "Björn", "Carol"}, targets)

	events, err = n.Normalize(classify(t, 0, `{"sender_name": "Bob", "timestamp_ms": 2000, "type": "Unsubscribe", "users": [{"name": "Alice"}]}`))
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, chatdb.EventUnsubscribe, events[0].Type)

	events, err = n.Normalize(classify(t, 0, `{"sender_name": "Bob", "timestamp_ms": 2000, "type": "Unsubscribe", "users": []}`))
	require.NoError(t, err)
	require.Empty(t, events)

	_, err = n.Normalize(classify(t, 0, `{"sender_name": "Bob", "timestamp_ms": 2000, "type": "Subscribe"}`))
	require.ErrorIs(t, err, ErrMalformedRecord)

	_, err = n.Normalize(classify(t, 0, `{"sender_name": "Bob", "timestamp_ms": 2000, "type": "Generic"}`))
	require.Error(t, err)
}

func TestNormalizer_SkipsUnknown(t *testing.T) {
	n := NewNormalizer(zerolog.Nop())
	st, err := n.Apply(context.Background(), nil, classify(t, 0, `{"type": "Poll", "sender_name": "Alice"}`))
	require.NoError(t, err)
	require.Equal(t, Stats{Skipped: 1}, st)
}

func TestStats_Add(t *testing.T) {
	var s Stats
	s.Add(Stats{Users: 2, Messages: 1, Assets: 2})
	s.Add(Stats{Messages: 1, IndexedTexts: 1, Reactions: 3, Events: 4, Skipped: 5})
	require.Equal(t, Stats{Users: 2, Messages: 2, IndexedTexts: 1, Assets: 2, Reactions: 3, Events: 4, Skipped: 5}, s)
}
