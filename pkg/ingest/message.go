package ingest

import (
	"context"
	"time"

	"github.com/go-go-golems/inboxdb/pkg/export"
	"github.com/go-go-golems/inboxdb/pkg/persistence/chatdb"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// mediaKeys maps the media payload keys of a generic message to asset types.
// Gifs carry no creation timestamp.
var mediaKeys = []struct {
	key         string
	assetType   chatdb.AssetType
	timestamped bool
	items       func(*export.Record) []export.MediaItem
}{
	{"photos", chatdb.AssetPhoto, true, func(r *export.Record) []export.MediaItem { return r.Photos }},
	{"videos", chatdb.AssetVideo, true, func(r *export.Record) []export.MediaItem { return r.Videos }},
	{"audio_files", chatdb.AssetAudio, true, func(r *export.Record) []export.MediaItem { return r.AudioFiles }},
	{"files", chatdb.AssetOther, true, func(r *export.Record) []export.MediaItem { return r.Files }},
	{"gifs", chatdb.AssetGif, false, func(r *export.Record) []export.MediaItem { return r.Gifs }},
}

type pendingAsset struct {
	path      string
	assetType chatdb.AssetType
	timestamp *time.Time
}

func (p pendingAsset) row(messageID int64) chatdb.Asset {
	return chatdb.Asset{MessageID: messageID, Path: p.path, Type: p.assetType, Timestamp: p.timestamp}
}

type pendingReaction struct {
	user     string
	reaction string
}

func (p pendingReaction) row(messageID int64) chatdb.Reaction {
	return chatdb.Reaction{User: p.user, MessageID: messageID, Reaction: p.reaction}
}

// MessageRows is a normalized message before it is written. Assets and reactions
// receive the message id only once the message row exists.
type MessageRows struct {
	message   chatdb.Message
	assets    []pendingAsset
	reactions []pendingReaction
}

func (m *MessageRows) assetRows(messageID int64) []chatdb.Asset {
	out := make([]chatdb.Asset, len(m.assets))
	for i, a := range m.assets {
		out[i] = a.row(messageID)
	}
	return out
}

func (m *MessageRows) reactionRows(messageID int64) []chatdb.Reaction {
	out := make([]chatdb.Reaction, len(m.reactions))
	for i, r := range m.reactions {
		out[i] = r.row(messageID)
	}
	return out
}

// MessageNormalizer converts generic and share records into a message row plus its
// assets and reactions.
type MessageNormalizer struct {
	log zerolog.Logger
}

func NewMessageNormalizer(log zerolog.Logger) *MessageNormalizer {
	return &MessageNormalizer{log: log}
}

// Normalize extracts rows from rec without touching the store.
func (n *MessageNormalizer) Normalize(rec Record) (*MessageRows, error) {
	if !rec.Kind().IsMessage() {
		return nil, errors.Errorf("ingest: record %d: %s is not a message", rec.Index(), rec.Kind())
	}
	h, err := readHeader(rec)
	if err != nil {
		return nil, err
	}
	raw := rec.Raw()
	out := &MessageRows{
		message: chatdb.Message{Sender: h.sender, Timestamp: h.timestamp},
	}

	switch rec.(type) {
	case GenericMessage:
		if out.message.Content, err = export.RepairPtr(raw.Content); err != nil {
			return nil, errors.Wrapf(err, "ingest: record %d: content", rec.Index())
		}
		if out.assets, err = mediaAssets(rec.Index(), raw); err != nil {
			return nil, err
		}
	case ShareMessage:
		if raw.Share != nil {
			if raw.Share.Link != "" {
				out.assets = []pendingAsset{{path: raw.Share.Link, assetType: chatdb.AssetLink}}
			} else {
				n.log.Debug().Int("record", rec.Index()).Msg("share without link, no link asset")
			}
		}
	}

	if out.reactions, err = reactions(rec.Index(), raw); err != nil {
		return nil, err
	}
	return out, nil
}

// Write inserts the message first, then its assets and reactions in one batch each.
func (n *MessageNormalizer) Write(ctx context.Context, tables *chatdb.Tables, rows *MessageRows) (Stats, error) {
	id, err := tables.Message.Insert(ctx, rows.message)
	if err != nil {
		return Stats{}, err
	}
	st := Stats{Messages: 1}
	if rows.message.Content != nil {
		st.IndexedTexts = 1
	}
	if len(rows.assets) > 0 {
		written, err := tables.Asset.InsertBatch(ctx, rows.assetRows(id))
		if err != nil {
			return Stats{}, err
		}
		st.Assets = written
	}
	if len(rows.reactions) > 0 {
		written, err := tables.Reaction.InsertBatch(ctx, rows.reactionRows(id))
		if err != nil {
			return Stats{}, err
		}
		st.Reactions = written
	}
	return st, nil
}

func mediaAssets(index int, raw *export.Record) ([]pendingAsset, error) {
	var out []pendingAsset
	for _, mk := range mediaKeys {
		for _, item := range mk.items(raw) {
			if item.URI == "" {
				return nil, missing(index, mk.key+"[].uri")
			}
			a := pendingAsset{path: item.URI, assetType: mk.assetType}
			if mk.timestamped {
				if item.CreationTimestamp == nil {
					return nil, missing(index, mk.key+"[].creation_timestamp")
				}
				ts := time.Unix(*item.CreationTimestamp, 0).UTC()
				a.timestamp = &ts
			}
			out = append(out, a)
		}
	}
	if raw.Sticker != nil {
		if raw.Sticker.URI == "" {
			return nil, missing(index, "sticker.uri")
		}
		out = append(out, pendingAsset{path: raw.Sticker.URI, assetType: chatdb.AssetSticker})
	}
	return out, nil
}

func reactions(index int, raw *export.Record) ([]pendingReaction, error) {
	if len(raw.Reactions) == 0 {
		return nil, nil
	}
	out := make([]pendingReaction, 0, len(raw.Reactions))
	for _, r := range raw.Reactions {
		if r.Actor == "" {
			return nil, missing(index, "reactions[].actor")
		}
		if r.Reaction == "" {
			return nil, missing(index, "reactions[].reaction")
		}
		user, err := repairName(index, "reactions[].actor", r.Actor)
		if err != nil {
			return nil, err
		}
		value, err := repairText(index, "reactions[].reaction", r.Reaction)
		if err != nil {
			return nil, err
		}
		out = append(out, pendingReaction{user: user, reaction: value})
	}
	return out, nil
}
