package inbox

import (
	"strings"

	"github.com/go-go-golems/glazed/pkg/cmds/fields"
	"github.com/go-go-golems/glazed/pkg/cmds/schema"
	"github.com/go-go-golems/glazed/pkg/cmds/values"
	"github.com/go-go-golems/inboxdb/pkg/config"
)

// InboxSettings locates the export; both inbox commands share it.
type InboxSettings struct {
	InboxDir    string `glazed:"inbox-dir"`
	MessageFile string `glazed:"message-file"`
}

const InboxSlug = "inbox"

func NewInboxSection() (schema.Section, error) {
	return schema.NewSection(
		InboxSlug,
		"Inbox Options",
		schema.WithFields(
			fields.New(
				"inbox-dir",
				fields.TypeString,
				fields.WithHelp("Directory holding one folder per conversation (overrides config)"),
				fields.WithDefault(""),
			),
			fields.New(
				"message-file",
				fields.TypeString,
				fields.WithHelp("Document name inside each conversation folder (overrides config)"),
				fields.WithDefault(""),
			),
		),
	)
}

func decodeInboxSettings(parsedLayers *values.Values) (*InboxSettings, error) {
	s := &InboxSettings{}
	if err := parsedLayers.DecodeSectionInto(InboxSlug, s); err != nil {
		return nil, err
	}
	return s, nil
}

// apply returns a copy of cfg with the inbox flags that were set.
func (s *InboxSettings) apply(cfg *config.Config) *config.Config {
	out := *cfg
	if v := strings.TrimSpace(s.InboxDir); v != "" {
		out.InboxDir = v
	}
	if v := strings.TrimSpace(s.MessageFile); v != "" {
		out.MessageFile = v
	}
	return &out
}
