/*
Package completion answers "what words could finish the token under the cursor".

The Engine reads the partial token to the left of the cursor, asks every
document trie in the registry for words starting with it, and merges the
answers into one list of LSP completion items.

Results keep a stable order: documents in the order they were opened, and
words in lexical order within each document. The first document to offer a
word wins; the same word from later documents is dropped. The typed prefix
itself and the registry's active word are never suggested.
*/
package completion

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/bastiangx/wordlist/internal/metrics"
	"github.com/bastiangx/wordlist/internal/utils"
	"github.com/bastiangx/wordlist/pkg/config"
	"github.com/bastiangx/wordlist/pkg/registry"
	"github.com/bastiangx/wordlist/pkg/suggest"
	"github.com/charmbracelet/log"
	"go.lsp.dev/protocol"
)

// Source is the part of an editor document the engine needs.
type Source interface {
	URI() protocol.DocumentURI
	LineAt(line uint32) string
	TextRange(r protocol.Range) string
}

var _ Source = (*registry.Document)(nil)

// Option configures an Engine.
type Option func(*Engine)

// WithMetrics records query counts and latency on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithMaxPrefix makes prefixes longer than n runes produce no suggestions.
func WithMaxPrefix(n int) Option {
	return func(e *Engine) {
		e.maxPrefix = n
	}
}

// Engine runs completion queries against a registry.
type Engine struct {
	registry    *registry.Registry
	tokenizer   *suggest.Tokenizer
	showCurrent bool
	maxPrefix   int
	metrics     *metrics.Metrics
}

// New creates an engine reading from reg.
func New(reg *registry.Registry, cfg config.IndexConfig, opts ...Option) *Engine {
	e := &Engine{
		registry:    reg,
		tokenizer:   reg.Tokenizer(),
		showCurrent: cfg.ShowCurrentDocument,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Prefix returns the partial token ending at pos.
func (e *Engine) Prefix(doc Source, pos protocol.Position) string {
	line := []rune(doc.LineAt(pos.Line))
	char := utils.ClampInt(int(pos.Character), 0, len(line))

	start := char - 1
	for ; start > 0; start-- {
		if e.tokenizer.IsSplitter(line[start]) {
			break
		}
	}
	if start < 0 {
		start = 0
	}

	word := doc.TextRange(protocol.Range{
		Start: protocol.Position{Line: pos.Line, Character: uint32(start)},
		End:   protocol.Position{Line: pos.Line, Character: uint32(char)},
	})
	return e.tokenizer.Strip(word)
}

// Complete returns the suggestions for the token ending at pos in doc.
// It never fails: no prefix, no matches and cancellation all give an empty list.
func (e *Engine) Complete(ctx context.Context, doc Source, pos protocol.Position) []protocol.CompletionItem {
	start := time.Now()
	items := []protocol.CompletionItem{}

	prefix := e.Prefix(doc, pos)
	if prefix == "" || (e.maxPrefix > 0 && utf8.RuneCountInString(prefix) > e.maxPrefix) {
		e.metrics.ObserveQuery(metrics.ResultEmpty, time.Since(start), 0)
		return items
	}

	seen := newLabelSet(prefix, e.registry.ActiveWord())
	current := doc.URI()

	for trie, uri := range e.registry.All() {
		if ctx.Err() != nil {
			log.Debugf("Completion for %q cancelled: %v", prefix, ctx.Err())
			e.metrics.ObserveQuery(metrics.ResultCancelled, time.Since(start), 0)
			return []protocol.CompletionItem{}
		}
		if !e.showCurrent && uri == current {
			continue
		}
		for _, c := range trie.Find(prefix) {
			if !seen.add(c.Label) {
				continue
			}
			items = append(items, newItem(c, uri, len(items)))
		}
	}

	result := metrics.ResultHit
	if len(items) == 0 {
		result = metrics.ResultEmpty
	}
	e.metrics.ObserveQuery(result, time.Since(start), len(items))
	log.Debugf("Completion for %q: %d suggestions in %v", prefix, len(items), time.Since(start))
	return items
}

func newItem(c suggest.Candidate, uri protocol.DocumentURI, rank int) protocol.CompletionItem {
	return protocol.CompletionItem{
		Label:      c.Label,
		Kind:       protocol.CompletionItemKindText,
		InsertText: c.Label,
		Detail:     string(uri),
		SortText:   fmt.Sprintf("%05d", rank),
	}
}
