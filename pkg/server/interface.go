/*
Package server implements msgpack IPC for document word completion.

The server keeps a word index of the documents an editor has open and answers
completion requests against it. Messages are msgpack values streamed over
stdin, responses are msgpack values streamed over stdout. Every request
carries an op field naming the operation and an id echoed in the response.

# IPC

Document lifecycle:

	{"id": "1", "op": "open", "uri": "file:///notes.md", "text": "the quick brown fox"}
	{"id": "2", "op": "change", "uri": "file:///notes.md", "changes": [{"range": {"sl": 0, "sc": 4, "el": 0, "ec": 9}, "text": "slow"}]}
	{"id": "3", "op": "close", "uri": "file:///notes.md"}

A change without a range replaces the whole text. These answer with a status:

	{"id": "1", "status": "ok"}
	{"id": "2", "status": "skipped", "error": "tokenize file:///notes.md: text is not valid utf-8"}

Completion at a cursor position (line and character count runes, from zero):

	{"id": "4", "op": "complete", "uri": "file:///notes.md", "line": 0, "ch": 7, "l": 20}

The server responds with suggestions in index order:

	{"id": "4", "s": [{"w": "quick", "d": "file:///other.md", "r": 1}], "c": 1, "t": 38}

t is the time taken in microseconds. A cursor in a document the server was
never told about, an empty prefix and a timed out query all answer with an
empty suggestion list.

# Other ops

	{"id": "5", "op": "active", "word": "qui"}   set the word being typed
	{"id": "6", "op": "stats"}                   index and query counters
	{"id": "7", "op": "health"}

The server announces itself with {"status": "ready"} and returns when stdin
reaches EOF.
*/
package server

// Ops understood by the server.
const (
	OpOpen     = "open"
	OpChange   = "change"
	OpClose    = "close"
	OpComplete = "complete"
	OpActive   = "active"
	OpStats    = "stats"
	OpHealth   = "health"
)

// Response statuses.
const (
	StatusReady   = "ready"
	StatusOK      = "ok"
	StatusSkipped = "skipped"
	StatusError   = "error"
)

// Request - one incoming message. Fields beyond id and op depend on the op.
type Request struct {
	ID      string          `msgpack:"id"`
	Op      string          `msgpack:"op"`
	URI     string          `msgpack:"uri,omitempty"`
	Text    string          `msgpack:"text,omitempty"`
	Changes []ChangeMessage `msgpack:"changes,omitempty"`
	Line    uint32          `msgpack:"line,omitempty"`
	Char    uint32          `msgpack:"ch,omitempty"`
	Limit   int             `msgpack:"l,omitempty"`
	Word    string          `msgpack:"word,omitempty"`
}

// ChangeMessage - one edit. A nil Range replaces the whole document.
type ChangeMessage struct {
	Range *RangeMessage `msgpack:"range,omitempty"`
	Text  string        `msgpack:"text"`
}

// RangeMessage - start and end positions of an edit
type RangeMessage struct {
	StartLine uint32 `msgpack:"sl"`
	StartChar uint32 `msgpack:"sc"`
	EndLine   uint32 `msgpack:"el"`
	EndChar   uint32 `msgpack:"ec"`
}

// CompletionSuggestion - minimal suggestion response
type CompletionSuggestion struct {
	Word   string `msgpack:"w"`
	Detail string `msgpack:"d,omitempty"`
	Rank   uint16 `msgpack:"r"`
}

// CompletionResponse - completion response
type CompletionResponse struct {
	ID          string                 `msgpack:"id"`
	Suggestions []CompletionSuggestion `msgpack:"s"`
	Count       int                    `msgpack:"c"`
	TimeTaken   int64                  `msgpack:"t"`
}

// StatusResponse - answer to lifecycle, active and health ops
type StatusResponse struct {
	ID     string `msgpack:"id"`
	Status string `msgpack:"status"`
	Error  string `msgpack:"error,omitempty"`
}

// StatsResponse - flattened metrics snapshot
type StatsResponse struct {
	ID        string             `msgpack:"id"`
	Documents int                `msgpack:"documents"`
	Stats     map[string]float64 `msgpack:"stats"`
}
