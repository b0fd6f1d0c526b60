package chatdb

import "time"

// AssetType classifies a media element attached to a message.
type AssetType string

const (
	AssetPhoto   AssetType = "photo"
	AssetVideo   AssetType = "video"
	AssetAudio   AssetType = "audio"
	AssetGif     AssetType = "gif"
	AssetSticker AssetType = "sticker"
	AssetLink    AssetType = "link"
	AssetOther   AssetType = "other"
)

var assetTypes = []AssetType{AssetPhoto, AssetVideo, AssetAudio, AssetGif, AssetSticker, AssetLink, AssetOther}

func (t AssetType) Valid() bool {
	for _, v := range assetTypes {
		if v == t {
			return true
		}
	}
	return false
}

// EventType classifies a non-message occurrence in a thread.
type EventType string

const (
	EventCall        EventType = "call"
	EventSubscribe   EventType = "subscribe"
	EventUnsubscribe EventType = "unsubscribe"
)

var eventTypes = []EventType{EventCall, EventSubscribe, EventUnsubscribe}

func (t EventType) Valid() bool {
	for _, v := range eventTypes {
		if v == t {
			return true
		}
	}
	return false
}

// User is a conversation participant, keyed by display name.
type User struct {
	Name string `json:"name"`
}

// Message is one chat message. Content is nil for media-only and share messages.
type Message struct {
	ID        int64     `json:"id"`
	Sender    string    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
	Content   *string   `json:"content,omitempty"`
}

// Reaction is keyed by (User, MessageID).
type Reaction struct {
	User      string `json:"user"`
	MessageID int64  `json:"message_id"`
	Reaction  string `json:"reaction"`
}

// Asset is a media element or link owned by a message. Timestamp is nil for gifs,
// stickers and links.
type Asset struct {
	ID        int64      `json:"id"`
	MessageID int64      `json:"message_id"`
	Path      string     `json:"path"`
	Type      AssetType  `json:"type"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// Event is a call or a membership change. Target is set for subscribe/unsubscribe,
// Duration only for answered calls.
type Event struct {
	ID        int64     `json:"id"`
	Actor     string    `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	Target    *string   `json:"target,omitempty"`
	Duration  *int64    `json:"duration,omitempty"`
}

// Counts holds the number of rows per table.
type Counts struct {
	Users        int64 `json:"users"`
	Messages     int64 `json:"messages"`
	IndexedTexts int64 `json:"indexed_texts"`
	Reactions    int64 `json:"reactions"`
	Assets       int64 `json:"assets"`
	Events       int64 `json:"events"`
}
