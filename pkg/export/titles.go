package export

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// DeactivatedUserTitle replaces titles that are empty after repair.
const DeactivatedUserTitle = "<Deactivated User>"

// TitleEntry maps a human-readable conversation title to its folder.
type TitleEntry struct {
	Title  string `json:"title"`
	Folder string `json:"folder"`
}

// ReadableTitles reads the title of every conversation in inboxDir and repairs its
// encoding. Entries are ordered by the repaired title as stored, then by folder;
// whitespace is trimmed and empty titles are substituted only after ordering.
func ReadableTitles(inboxDir string, messageFile string) ([]TitleEntry, error) {
	convs, err := ListConversations(inboxDir, messageFile)
	if err != nil {
		return nil, err
	}
	entries := make([]TitleEntry, 0, len(convs))
	for _, c := range convs {
		doc, err := LoadDocument(c.Path)
		if err != nil {
			return nil, err
		}
		title, err := Repair(doc.Title)
		if err != nil {
			return nil, errors.Wrapf(err, "export: title of %s", c.Folder)
		}
		entries = append(entries, TitleEntry{Title: title, Folder: c.Folder})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Title != entries[j].Title {
			return entries[i].Title < entries[j].Title
		}
		return entries[i].Folder < entries[j].Folder
	})
	for i := range entries {
		entries[i].Title = strings.TrimSpace(entries[i].Title)
		if entries[i].Title == "" {
			entries[i].Title = DeactivatedUserTitle
		}
	}
	return entries, nil
}

// WriteTitles writes each entry as a title line, a "Folder: <folder>" line and a blank line.
func WriteTitles(w io.Writer, entries []TitleEntry) error {
	bw := bufio.NewWriter(w)
	for _, e := range entries {
		if _, err := fmt.Fprintf(bw, "%s\nFolder: %s\n\n", e.Title, e.Folder); err != nil {
			return errors.Wrap(err, "export: write titles")
		}
	}
	return errors.Wrap(bw.Flush(), "export: flush titles")
}
