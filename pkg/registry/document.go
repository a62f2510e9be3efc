package registry

import (
	"strings"
	"unicode/utf8"

	"github.com/bastiangx/wordlist/internal/utils"
	"go.lsp.dev/protocol"
)

// Document is an immutable snapshot of an open document's text.
//
// Positions count characters as runes. Out-of-range lines and characters
// are clamped to the nearest valid position instead of failing.
type Document struct {
	uri        protocol.DocumentURI
	text       string
	lineStarts []int
	version    int
}

// NewDocument snapshots text for uri.
func NewDocument(uri protocol.DocumentURI, text string) *Document {
	return newDocument(uri, text, 1)
}

func newDocument(uri protocol.DocumentURI, text string, version int) *Document {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &Document{uri: uri, text: text, lineStarts: starts, version: version}
}

// URI returns the document identity.
func (d *Document) URI() protocol.DocumentURI { return d.uri }

// Text returns the full text.
func (d *Document) Text() string { return d.text }

// Version is bumped by every applied change set.
func (d *Document) Version() int { return d.version }

// LineCount returns the number of lines, counting a trailing empty line.
func (d *Document) LineCount() int { return len(d.lineStarts) }

func (d *Document) clampLine(line uint32) int {
	return utils.ClampInt(int(line), 0, len(d.lineStarts)-1)
}

// LineAt returns the text of a line without its line terminator.
func (d *Document) LineAt(line uint32) string {
	i := d.clampLine(line)
	start := d.lineStarts[i]
	end := len(d.text)
	if i+1 < len(d.lineStarts) {
		end = d.lineStarts[i+1] - 1
	}
	return strings.TrimSuffix(d.text[start:end], "\r")
}

// Offset converts a position into a byte offset into Text.
func (d *Document) Offset(pos protocol.Position) int {
	i := d.clampLine(pos.Line)
	line := d.LineAt(uint32(i))
	start := d.lineStarts[i]

	want := int(pos.Character)
	seen := 0
	for byteIdx := range line {
		if seen == want {
			return start + byteIdx
		}
		seen++
	}
	return start + len(line)
}

// PositionAt converts a byte offset back into a position.
func (d *Document) PositionAt(offset int) protocol.Position {
	offset = utils.ClampInt(offset, 0, len(d.text))
	line := 0
	for line+1 < len(d.lineStarts) && d.lineStarts[line+1] <= offset {
		line++
	}
	char := utf8.RuneCountInString(d.text[d.lineStarts[line]:offset])
	return protocol.Position{Line: uint32(line), Character: uint32(char)}
}

// TextRange returns the text between two positions. A reversed range is swapped.
func (d *Document) TextRange(r protocol.Range) string {
	start, end := d.Offset(r.Start), d.Offset(r.End)
	if end < start {
		start, end = end, start
	}
	return d.text[start:end]
}

// Change is one edit. A nil Range replaces the whole text.
type Change struct {
	Range *protocol.Range
	Text  string
}

// apply returns a new snapshot with changes applied in order, plus the byte
// offset just past the text inserted by the last ranged change (-1 if the last
// change replaced everything).
func (d *Document) apply(changes []Change) (*Document, int) {
	if len(changes) == 0 {
		return d, -1
	}
	next := d
	cursor := -1
	for _, c := range changes {
		if c.Range == nil {
			next = newDocument(d.uri, c.Text, next.version)
			cursor = -1
			continue
		}
		start, end := next.Offset(c.Range.Start), next.Offset(c.Range.End)
		if end < start {
			start, end = end, start
		}
		text := next.text[:start] + c.Text + next.text[end:]
		next = newDocument(d.uri, text, next.version)
		cursor = start + len(c.Text)
	}
	next.version = d.version + 1
	return next, cursor
}
