// Package books holds the records returned by a book search and the
// contracts shared by search providers and their callers.
package books

import (
	"strings"
)

// UnknownAuthor is rendered in place of an author list that is absent or empty.
const UnknownAuthor = "Unknown Author"

// BookRecord is a single search hit. Optional fields use their zero value when
// the remote response omits them. Authors is nil when the response has no
// authors field and empty when it carries an empty array.
type BookRecord struct {
	ID           string
	Title        string
	Authors      []string
	ThumbnailURL string
	Description  string
}

// SearchResult keeps the order of the remote response.
type SearchResult []BookRecord

func (record BookRecord) AuthorLine() string {
	return FormatAuthors(record.Authors)
}

func (record BookRecord) HasThumbnail() bool {
	return record.ThumbnailURL != ""
}

// FormatAuthors joins authors with ", " or returns UnknownAuthor.
func FormatAuthors(authors []string) string {
	if len(authors) == 0 {
		return UnknownAuthor
	}
	return strings.Join(authors, ", ")
}

// IsBlank reports whether a query would be rejected before any search starts.
func IsBlank(query string) bool {
	return strings.TrimSpace(query) == ""
}
