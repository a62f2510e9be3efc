package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/bastiangx/wordlist/internal/metrics"
	"github.com/bastiangx/wordlist/pkg/config"
	"github.com/bastiangx/wordlist/pkg/suggest"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/protocol"
)

const (
	docA = protocol.DocumentURI("file:///a.txt")
	docB = protocol.DocumentURI("file:///b.txt")
)

func newRegistry(t *testing.T, opts ...Option) *Registry {
	t.Helper()
	reg, err := New(config.DefaultConfig().Index, opts...)
	require.NoError(t, err)
	return reg
}

func findAll(reg *Registry, prefix string) map[protocol.DocumentURI][]string {
	out := make(map[protocol.DocumentURI][]string)
	for trie, uri := range reg.All() {
		for _, c := range trie.Find(prefix) {
			out[uri] = append(out[uri], c.Label)
		}
	}
	return out
}

func TestOpenIndexesText(t *testing.T) {
	reg := newRegistry(t)
	require.NoError(t, reg.Open(docA, "quick quicksand question"))

	assert.Equal(t, 1, reg.Len())
	assert.Equal(t, []string{"quick", "quicksand"}, findAll(reg, "qui")[docA])
}

func TestAllKeepsOpenOrder(t *testing.T) {
	reg := newRegistry(t)
	require.NoError(t, reg.Open(docB, "beta"))
	require.NoError(t, reg.Open(docA, "alpha"))
	require.NoError(t, reg.Open(docB, "beta gamma"))

	var order []protocol.DocumentURI
	for _, uri := range reg.All() {
		order = append(order, uri)
	}
	assert.Equal(t, []protocol.DocumentURI{docB, docA}, order)
}

func TestAllStopsEarly(t *testing.T) {
	reg := newRegistry(t)
	require.NoError(t, reg.Open(docA, "alpha"))
	require.NoError(t, reg.Open(docB, "beta"))

	seen := 0
	for range reg.All() {
		seen++
		break
	}
	assert.Equal(t, 1, seen)
}

func TestChangeRangedEdit(t *testing.T) {
	reg := newRegistry(t)
	require.NoError(t, reg.Open(docA, "alpha beta\ngamma"))

	err := reg.Change(docA, Change{
		Range: &protocol.Range{
			Start: protocol.Position{Line: 0, Character: 6},
			End:   protocol.Position{Line: 0, Character: 10},
		},
		Text: "delta",
	})
	require.NoError(t, err)

	doc, ok := reg.Document(docA)
	require.True(t, ok)
	assert.Equal(t, "alpha delta\ngamma", doc.Text())
	assert.Equal(t, 2, doc.Version())

	found := findAll(reg, "b")
	assert.Empty(t, found[docA], "removed word must leave the trie")
	assert.Equal(t, []string{"delta"}, findAll(reg, "de")[docA])
	assert.Equal(t, "delta", reg.ActiveWord())
}

func TestChangeKeepsWordStillPresentElsewhere(t *testing.T) {
	reg := newRegistry(t)
	require.NoError(t, reg.Open(docA, "foo bar foo"))

	err := reg.Change(docA, Change{
		Range: &protocol.Range{
			Start: protocol.Position{Line: 0, Character: 0},
			End:   protocol.Position{Line: 0, Character: 3},
		},
		Text: "baz",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"foo"}, findAll(reg, "fo")[docA])
}

func TestChangeFullText(t *testing.T) {
	reg := newRegistry(t)
	require.NoError(t, reg.Open(docA, "old words"))
	reg.SetActiveWord("typing")

	require.NoError(t, reg.Change(docA, Change{Text: "new content"}))

	assert.Empty(t, findAll(reg, "ol")[docA])
	assert.Equal(t, []string{"new"}, findAll(reg, "ne")[docA])
	assert.Equal(t, "typing", reg.ActiveWord(), "full replacement leaves the active word alone")
}

func TestChangeUnknownDocument(t *testing.T) {
	reg := newRegistry(t)
	err := reg.Change(docA, Change{Text: "x"})
	assert.ErrorIs(t, err, ErrUnknownDocument)
	assert.ErrorIs(t, reg.Close(docA), ErrUnknownDocument)
}

func TestCloseRemovesTrie(t *testing.T) {
	reg := newRegistry(t)
	require.NoError(t, reg.Open(docA, "alpha"))
	require.NoError(t, reg.Open(docB, "alpine"))

	require.NoError(t, reg.Close(docA))

	found := findAll(reg, "al")
	assert.NotContains(t, found, docA)
	assert.Equal(t, []string{"alpine"}, found[docB])
	_, ok := reg.Document(docA)
	assert.False(t, ok)
}

func TestTokenizationFailureIsIsolated(t *testing.T) {
	cfg := config.DefaultConfig().Index
	cfg.MaxDocumentBytes = 16
	m := metrics.New()
	reg, err := New(cfg, WithMetrics(m))
	require.NoError(t, err)

	err = reg.Open(docA, "bad \xff bytes")
	assert.ErrorIs(t, err, suggest.ErrInvalidText)
	err = reg.Open(docB, "this document is far too long")
	assert.ErrorIs(t, err, ErrDocumentTooLarge)
	require.NoError(t, reg.Open("file:///c.txt", "alpha"))

	assert.Equal(t, 3, reg.Len())
	assert.True(t, errors.Is(reg.Err(docA), suggest.ErrInvalidText))
	assert.NoError(t, reg.Err("file:///c.txt"))

	found := findAll(reg, "a")
	assert.Len(t, found, 1)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.DocumentsSkipped))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.DocumentsTracked))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TokensIndexed))
}

func TestSeed(t *testing.T) {
	reg := newRegistry(t)
	uris := []protocol.DocumentURI{docA, docB, "file:///c.txt"}
	texts := []string{"alpha", "alpine", "\xff"}

	require.NoError(t, reg.Seed(context.Background(), uris, texts))

	var order []protocol.DocumentURI
	for _, uri := range reg.All() {
		order = append(order, uri)
	}
	assert.Equal(t, []protocol.DocumentURI{docA, docB}, order)
	assert.Equal(t, 3, reg.Len())
}

func TestSeedCancelled(t *testing.T) {
	reg := newRegistry(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := reg.Seed(ctx, []protocol.DocumentURI{docA}, []string{"alpha"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, reg.Len())
}

func TestSeedMismatchedInput(t *testing.T) {
	reg := newRegistry(t)
	assert.Error(t, reg.Seed(context.Background(), []protocol.DocumentURI{docA}, nil))
}

func TestDispose(t *testing.T) {
	reg := newRegistry(t)
	require.NoError(t, reg.Open(docA, "alpha"))
	reg.SetActiveWord("alp")

	reg.Dispose()

	assert.Equal(t, 0, reg.Len())
	assert.Equal(t, "", reg.ActiveWord())
	assert.ErrorIs(t, reg.Open(docA, "alpha"), ErrDisposed)
	assert.ErrorIs(t, reg.Change(docA), ErrDisposed)
	assert.ErrorIs(t, reg.Close(docA), ErrDisposed)
}

func TestNewRejectsBadSplitter(t *testing.T) {
	cfg := config.DefaultConfig().Index
	cfg.WhitespaceSplitter = "("
	_, err := New(cfg)
	assert.Error(t, err)
}
