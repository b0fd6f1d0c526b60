// Package export reads per-conversation chat exports: the JSON document with its
// participants and records, the folder layout of an inbox, and the text repair the
// export format needs.
package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// DefaultMessageFile is the document name inside every conversation folder.
const DefaultMessageFile = "message_1.json"

// ErrMalformedDocument is returned when a document is not valid JSON or lacks a
// required top-level key.
var ErrMalformedDocument = errors.New("export: malformed document")

// Document is one conversation export.
type Document struct {
	Participants []Participant `json:"participants"`
	Title        string        `json:"title"`
	ThreadPath   string        `json:"thread_path,omitempty"`
	Messages     []Record      `json:"messages"`
}

type Participant struct {
	Name string `json:"name"`
}

// Record is one element of Document.Messages. Which fields are set depends on Type.
// Required scalar keys are pointers so that absence can be told apart from zero.
type Record struct {
	SenderName  *string `json:"sender_name"`
	TimestampMs *int64  `json:"timestamp_ms"`
	Type        *string `json:"type"`
	Content     *string `json:"content,omitempty"`

	Photos     []MediaItem `json:"photos,omitempty"`
	Videos     []MediaItem `json:"videos,omitempty"`
	AudioFiles []MediaItem `json:"audio_files,omitempty"`
	Files      []MediaItem `json:"files,omitempty"`
	Gifs       []MediaItem `json:"gifs,omitempty"`
	Sticker    *Sticker    `json:"sticker,omitempty"`
	Share      *Share      `json:"share,omitempty"`

	Reactions []ReactionItem `json:"reactions,omitempty"`

	CallDuration *int64        `json:"call_duration,omitempty"`
	Missed       *bool         `json:"missed,omitempty"`
	Users        []Participant `json:"users,omitempty"`
}

type MediaItem struct {
	URI               string `json:"uri"`
	CreationTimestamp *int64 `json:"creation_timestamp,omitempty"`
}

type Sticker struct {
	URI string `json:"uri"`
}

type Share struct {
	Link      string `json:"link,omitempty"`
	ShareText string `json:"share_text,omitempty"`
}

type ReactionItem struct {
	Reaction string `json:"reaction"`
	Actor    string `json:"actor"`
}

// ParseDocument decodes a conversation export and checks the document-level keys.
func ParseDocument(data []byte) (*Document, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrapf(ErrMalformedDocument, "%v", err)
	}
	for _, key := range []string{"participants", "messages"} {
		if _, ok := raw[key]; !ok {
			return nil, errors.Wrapf(ErrMalformedDocument, "missing %q", key)
		}
	}
	doc := &Document{}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, errors.Wrapf(ErrMalformedDocument, "%v", err)
	}
	return doc, nil
}

// LoadDocument reads and parses the document at path.
func LoadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "export: read document")
	}
	doc, err := ParseDocument(data)
	if err != nil {
		return nil, errors.Wrapf(err, "export: %s", path)
	}
	return doc, nil
}

// Conversation locates one conversation folder inside an inbox.
type Conversation struct {
	// Folder is the directory name, used as the store name.
	Folder string
	// Path is the document path inside the folder.
	Path string
}

// ListConversations returns the conversation folders of inboxDir that contain
// messageFile, sorted by folder name. Dot-entries are ignored.
func ListConversations(inboxDir string, messageFile string) ([]Conversation, error) {
	if strings.TrimSpace(inboxDir) == "" {
		return nil, errors.New("export: empty inbox dir")
	}
	if messageFile == "" {
		messageFile = DefaultMessageFile
	}
	entries, err := os.ReadDir(inboxDir)
	if err != nil {
		return nil, errors.Wrap(err, "export: list inbox")
	}

	out := make([]Conversation, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") || !e.IsDir() {
			continue
		}
		p := filepath.Join(inboxDir, name, messageFile)
		if _, err := os.Stat(p); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, errors.Wrapf(err, "export: stat %s", p)
		}
		out = append(out, Conversation{Folder: name, Path: p})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Folder < out[j].Folder })
	return out, nil
}
