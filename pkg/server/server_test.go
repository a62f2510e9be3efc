package server

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/bastiangx/wordlist/internal/metrics"
	"github.com/bastiangx/wordlist/pkg/completion"
	"github.com/bastiangx/wordlist/pkg/config"
	"github.com/bastiangx/wordlist/pkg/registry"
	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func init() {
	log.SetLevel(log.ErrorLevel)
}

// session runs the server over the given requests and returns a decoder over its output.
func session(t *testing.T, cfg *config.Config, requests ...any) *msgpack.Decoder {
	t.Helper()

	var in bytes.Buffer
	enc := msgpack.NewEncoder(&in)
	for _, r := range requests {
		require.NoError(t, enc.Encode(r))
	}

	m := metrics.New()
	reg, err := registry.New(cfg.Index, registry.WithMetrics(m))
	require.NoError(t, err)
	engine := completion.New(reg, cfg.Index, completion.WithMetrics(m), completion.WithMaxPrefix(cfg.Server.MaxPrefix))

	var out bytes.Buffer
	srv := NewServer(reg, engine, cfg, m, &in, &out)
	require.NoError(t, srv.Start(context.Background()))

	dec := msgpack.NewDecoder(&out)
	var ready StatusResponse
	require.NoError(t, dec.Decode(&ready))
	require.Equal(t, StatusReady, ready.Status)
	return dec
}

func nextStatus(t *testing.T, dec *msgpack.Decoder) StatusResponse {
	t.Helper()
	var resp StatusResponse
	require.NoError(t, dec.Decode(&resp))
	return resp
}

func nextCompletion(t *testing.T, dec *msgpack.Decoder) CompletionResponse {
	t.Helper()
	var resp CompletionResponse
	require.NoError(t, dec.Decode(&resp))
	return resp
}

func words(resp CompletionResponse) []string {
	out := make([]string, 0, len(resp.Suggestions))
	for _, s := range resp.Suggestions {
		out = append(out, s.Word)
	}
	return out
}

func TestSessionLifecycle(t *testing.T) {
	dec := session(t, config.DefaultConfig(),
		Request{ID: "1", Op: OpOpen, URI: "file:///other.md", Text: "quick quicksand question"},
		Request{ID: "2", Op: OpOpen, URI: "file:///notes.md", Text: "the qui"},
		Request{ID: "3", Op: OpComplete, URI: "file:///notes.md", Line: 0, Char: 7},
		Request{ID: "4", Op: OpChange, URI: "file:///notes.md", Changes: []ChangeMessage{
			{Range: &RangeMessage{StartLine: 0, StartChar: 7, EndLine: 0, EndChar: 7}, Text: "ck"},
		}},
		Request{ID: "5", Op: OpComplete, URI: "file:///notes.md", Line: 0, Char: 9},
		Request{ID: "6", Op: OpClose, URI: "file:///other.md"},
		Request{ID: "7", Op: OpComplete, URI: "file:///notes.md", Line: 0, Char: 9},
	)

	assert.Equal(t, StatusResponse{ID: "1", Status: StatusOK}, nextStatus(t, dec))
	assert.Equal(t, StatusResponse{ID: "2", Status: StatusOK}, nextStatus(t, dec))

	resp := nextCompletion(t, dec)
	assert.Equal(t, "3", resp.ID)
	assert.Equal(t, []string{"quick", "quicksand"}, words(resp))
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, uint16(1), resp.Suggestions[0].Rank)
	assert.Equal(t, "file:///other.md", resp.Suggestions[0].Detail)

	assert.Equal(t, StatusOK, nextStatus(t, dec).Status)

	resp = nextCompletion(t, dec)
	assert.Equal(t, []string{"quicksand"}, words(resp))

	assert.Equal(t, StatusOK, nextStatus(t, dec).Status)

	resp = nextCompletion(t, dec)
	assert.Equal(t, "7", resp.ID)
	assert.Empty(t, resp.Suggestions)
	assert.Equal(t, 0, resp.Count)
}

func TestCompletionLimit(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Server.MaxLimit = 2
	cfg.Server.DefaultLimit = 1

	dec := session(t, cfg,
		Request{ID: "1", Op: OpOpen, URI: "file:///a", Text: "alpha alpine altitude also"},
		Request{ID: "2", Op: OpOpen, URI: "file:///b", Text: "al"},
		Request{ID: "3", Op: OpComplete, URI: "file:///b", Char: 2},
		Request{ID: "4", Op: OpComplete, URI: "file:///b", Char: 2, Limit: 50},
	)
	nextStatus(t, dec)
	nextStatus(t, dec)

	assert.Equal(t, []string{"alpha"}, words(nextCompletion(t, dec)))
	assert.Equal(t, []string{"alpha", "alpine"}, words(nextCompletion(t, dec)))
}

func TestErrorsKeepServing(t *testing.T) {
	dec := session(t, config.DefaultConfig(),
		Request{ID: "1", Op: OpChange, URI: "file:///missing", Changes: []ChangeMessage{{Text: "x"}}},
		Request{ID: "2", Op: OpOpen, URI: "file:///bad", Text: "bad \xff"},
		Request{ID: "3", Op: OpOpen},
		Request{ID: "4", Op: "bogus"},
		Request{ID: "5", Op: OpComplete, URI: "file:///missing", Char: 3},
		map[string]any{"id": "6", "op": OpComplete, "uri": "file:///missing", "line": "zero"},
		map[string]any{"op": OpHealth, "id": 7},
		Request{ID: "8", Op: OpHealth},
	)

	resp := nextStatus(t, dec)
	assert.Equal(t, StatusError, resp.Status)
	assert.Contains(t, resp.Error, "not tracked")

	resp = nextStatus(t, dec)
	assert.Equal(t, StatusSkipped, resp.Status)
	assert.Contains(t, resp.Error, "utf-8")

	assert.Equal(t, StatusError, nextStatus(t, dec).Status)
	assert.Equal(t, StatusError, nextStatus(t, dec).Status)

	completion := nextCompletion(t, dec)
	assert.Equal(t, "5", completion.ID)
	assert.Empty(t, completion.Suggestions)

	resp = nextStatus(t, dec)
	assert.Equal(t, "6", resp.ID)
	assert.Equal(t, StatusError, resp.Status)
	assert.Contains(t, resp.Error, "invalid request")

	resp = nextStatus(t, dec)
	assert.Equal(t, "", resp.ID)
	assert.Equal(t, StatusError, resp.Status)

	assert.Equal(t, StatusResponse{ID: "8", Status: StatusOK}, nextStatus(t, dec))
}

func TestActiveWordAndStats(t *testing.T) {
	dec := session(t, config.DefaultConfig(),
		Request{ID: "1", Op: OpOpen, URI: "file:///a", Text: "quick quicksand"},
		Request{ID: "2", Op: OpOpen, URI: "file:///b", Text: "qu"},
		Request{ID: "3", Op: OpActive, Word: "quick"},
		Request{ID: "4", Op: OpComplete, URI: "file:///b", Char: 2},
		Request{ID: "5", Op: OpStats},
	)
	nextStatus(t, dec)
	nextStatus(t, dec)
	assert.Equal(t, StatusOK, nextStatus(t, dec).Status)

	assert.Equal(t, []string{"quicksand"}, words(nextCompletion(t, dec)))

	var stats StatsResponse
	require.NoError(t, dec.Decode(&stats))
	assert.Equal(t, "5", stats.ID)
	assert.Equal(t, 2, stats.Documents)
	assert.Equal(t, 2.0, stats.Stats["wordlist_documents_tracked"])
	assert.Equal(t, 3.0, stats.Stats["wordlist_tokens_indexed"])
	assert.Equal(t, 1.0, stats.Stats[`wordlist_queries_total{result="hit"}`])
}

func TestStartStopsOnCancelledContext(t *testing.T) {
	cfg := config.DefaultConfig()
	reg, err := registry.New(cfg.Index)
	require.NoError(t, err)
	engine := completion.New(reg, cfg.Index)

	var in, out bytes.Buffer
	require.NoError(t, msgpack.NewEncoder(&in).Encode(Request{ID: "1", Op: OpHealth}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	srv := NewServer(reg, engine, cfg, nil, &in, &out)
	assert.ErrorIs(t, srv.Start(ctx), context.Canceled)
}

func TestStartReturnsWhenCancelledMidRead(t *testing.T) {
	cfg := config.DefaultConfig()
	reg, err := registry.New(cfg.Index)
	require.NoError(t, err)
	engine := completion.New(reg, cfg.Index)

	in, w := io.Pipe()
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	var out bytes.Buffer
	srv := NewServer(reg, engine, cfg, nil, in, &out)

	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	require.NoError(t, msgpack.NewEncoder(w).Encode(Request{ID: "1", Op: OpHealth}))
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Start kept blocking on open input after cancel")
	}
}
