/*
Package registry keeps one word trie per open document.

The Registry is created once per editing session and fed the editor's
document lifecycle: Open when a document appears, Change after every edit
and Close when it goes away. Completion queries read the tries through All,
which yields (trie, document) pairs in the order documents were opened.

Every edit re-tokenizes the whole document and publishes a fresh trie. A
published trie is never mutated again, so All only needs the lock long
enough to snapshot the current set of tries.

	reg, err := registry.New(cfg.Index)
	reg.Open(uri, text)
	for trie, uri := range reg.All() {
		matches := trie.Find("qui")
	}
	reg.Dispose()
*/
package registry

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"runtime"
	"slices"
	"sync"

	"github.com/bastiangx/wordlist/internal/metrics"
	"github.com/bastiangx/wordlist/pkg/config"
	"github.com/bastiangx/wordlist/pkg/suggest"
	"github.com/charmbracelet/log"
	"go.lsp.dev/protocol"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrUnknownDocument is returned for changes or closes of a document that was never opened.
	ErrUnknownDocument = errors.New("document is not tracked")

	// ErrDocumentTooLarge is returned when a document exceeds max_document_bytes.
	ErrDocumentTooLarge = errors.New("document exceeds size limit")

	// ErrDisposed is returned by every mutation after Dispose.
	ErrDisposed = errors.New("registry is disposed")
)

// tracked is one open document and the trie built from its text.
// trie is nil when the text could not be tokenized; err says why.
type tracked struct {
	doc  *Document
	trie *suggest.Trie
	err  error
}

// Option configures a Registry.
type Option func(*Registry)

// WithMetrics records index size and rebuilds on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Registry) {
		r.metrics = m
	}
}

// Registry maps open documents to their tries.
type Registry struct {
	mu        sync.RWMutex
	tokenizer *suggest.Tokenizer
	maxBytes  int
	docs      map[protocol.DocumentURI]*tracked
	order     []protocol.DocumentURI
	active    string
	disposed  bool
	metrics   *metrics.Metrics
}

// New creates an empty registry using the tokenization rules in cfg.
func New(cfg config.IndexConfig, opts ...Option) (*Registry, error) {
	tokenizer, err := suggest.NewTokenizer(cfg)
	if err != nil {
		return nil, err
	}
	r := &Registry{
		tokenizer: tokenizer,
		maxBytes:  cfg.MaxDocumentBytes,
		docs:      make(map[protocol.DocumentURI]*tracked),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Tokenizer returns the tokenizer shared by every document.
func (r *Registry) Tokenizer() *suggest.Tokenizer {
	return r.tokenizer
}

func (r *Registry) index(doc *Document) *tracked {
	t := &tracked{doc: doc}
	if r.maxBytes > 0 && len(doc.Text()) > r.maxBytes {
		t.err = fmt.Errorf("%s is %d bytes: %w", doc.URI(), len(doc.Text()), ErrDocumentTooLarge)
		return t
	}
	trie, err := r.tokenizer.Index(doc.Text())
	if err != nil {
		t.err = fmt.Errorf("tokenize %s: %w", doc.URI(), err)
		return t
	}
	t.trie = trie
	return t
}

// install publishes t. Caller holds the write lock.
func (r *Registry) install(t *tracked) {
	uri := t.doc.URI()
	if _, exists := r.docs[uri]; !exists {
		r.order = append(r.order, uri)
	}
	r.docs[uri] = t

	if t.err != nil {
		log.Warnf("Skipping document: %v", t.err)
		r.metrics.DocumentSkipped()
	} else {
		log.Debugf("Indexed %s: %d distinct words", uri, t.trie.Len())
		r.metrics.Reindexed()
	}
}

// updateGauges refreshes index size metrics. Caller holds the lock.
func (r *Registry) updateGauges() {
	if r.metrics == nil {
		return
	}
	tokens := 0
	for _, t := range r.docs {
		if t.trie != nil {
			tokens += t.trie.Len()
		}
	}
	r.metrics.SetIndexSize(len(r.docs), tokens)
}

// Open starts tracking uri with the given text. Opening a document that is
// already tracked replaces its text and keeps its position in the order.
//
// A document that cannot be tokenized is still tracked, but contributes no
// words; the tokenization error is returned for the caller to report.
func (r *Registry) Open(uri protocol.DocumentURI, text string) error {
	t := r.index(NewDocument(uri, text))

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.disposed {
		return ErrDisposed
	}
	r.install(t)
	r.updateGauges()
	return t.err
}

// Change applies edits to a tracked document and rebuilds its trie.
// The active word becomes the token at the end of the last ranged edit.
func (r *Registry) Change(uri protocol.DocumentURI, changes ...Change) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.disposed {
		return ErrDisposed
	}
	current, ok := r.docs[uri]
	if !ok {
		return fmt.Errorf("change %s: %w", uri, ErrUnknownDocument)
	}

	doc, cursor := current.doc.apply(changes)
	t := r.index(doc)
	r.install(t)
	if cursor >= 0 {
		pos := doc.PositionAt(cursor)
		r.active = r.tokenizer.TokenAt(doc.LineAt(pos.Line), int(pos.Character))
	}
	r.updateGauges()
	return t.err
}

// Close stops tracking uri and drops its trie.
func (r *Registry) Close(uri protocol.DocumentURI) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.disposed {
		return ErrDisposed
	}
	if _, ok := r.docs[uri]; !ok {
		return fmt.Errorf("close %s: %w", uri, ErrUnknownDocument)
	}
	delete(r.docs, uri)
	r.order = slices.DeleteFunc(r.order, func(u protocol.DocumentURI) bool { return u == uri })
	r.updateGauges()
	log.Debugf("Closed %s", uri)
	return nil
}

// Seed opens many documents at once, tokenizing them in parallel.
// Documents are installed in the order of uris. Tokenization failures skip
// the document as Open does; only cancellation aborts the whole seed.
func (r *Registry) Seed(ctx context.Context, uris []protocol.DocumentURI, texts []string) error {
	if len(uris) != len(texts) {
		return fmt.Errorf("seed: %d uris but %d texts", len(uris), len(texts))
	}

	built := make([]*tracked, len(uris))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range uris {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			built[i] = r.index(NewDocument(uris[i], texts[i]))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("seed: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.disposed {
		return ErrDisposed
	}
	for _, t := range built {
		r.install(t)
	}
	r.updateGauges()
	log.Debugf("Seeded %d documents", len(built))
	return nil
}

// All yields every document that has a usable trie, in open order.
// The set of documents is snapshotted when iteration starts.
func (r *Registry) All() iter.Seq2[suggest.Finder, protocol.DocumentURI] {
	return func(yield func(suggest.Finder, protocol.DocumentURI) bool) {
		r.mu.RLock()
		snapshot := make([]*tracked, 0, len(r.order))
		for _, uri := range r.order {
			if t := r.docs[uri]; t.trie != nil {
				snapshot = append(snapshot, t)
			}
		}
		r.mu.RUnlock()

		for _, t := range snapshot {
			if !yield(t.trie, t.doc.URI()) {
				return
			}
		}
	}
}

// Document returns the current snapshot of uri.
func (r *Registry) Document(uri protocol.DocumentURI) (*Document, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.docs[uri]
	if !ok {
		return nil, false
	}
	return t.doc, true
}

// Err returns the tokenization error that keeps uri out of completions, if any.
func (r *Registry) Err(uri protocol.DocumentURI) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.docs[uri]
	if !ok {
		return fmt.Errorf("%s: %w", uri, ErrUnknownDocument)
	}
	return t.err
}

// Len returns the number of tracked documents.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.docs)
}

// SetActiveWord records the token currently being typed.
func (r *Registry) SetActiveWord(word string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = word
}

// ActiveWord returns the token currently being typed.
func (r *Registry) ActiveWord() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active
}

// Dispose drops every document. The registry rejects mutations afterwards.
func (r *Registry) Dispose() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs = make(map[protocol.DocumentURI]*tracked)
	r.order = nil
	r.active = ""
	r.disposed = true
	r.updateGauges()
}
