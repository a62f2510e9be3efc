package cli

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/bastiangx/wordlist/pkg/completion"
	"github.com/bastiangx/wordlist/pkg/config"
	"github.com/bastiangx/wordlist/pkg/registry"
	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/protocol"
)

func init() {
	log.SetLevel(log.FatalLevel)
}

func TestInputHandler(t *testing.T) {
	cfg := config.DefaultConfig()
	reg, err := registry.New(cfg.Index)
	require.NoError(t, err)
	require.NoError(t, reg.Open("file:///words.txt", "quick quicksand question"))
	engine := completion.New(reg, cfg.Index)

	var out bytes.Buffer
	h := NewInputHandler(reg, engine, 1, &out)
	input := strings.Join([]string{
		"the qui",
		":docs",
		":words file:///words.txt",
		":active quick",
		"zzz",
	}, "\n")

	require.NoError(t, h.Start(context.Background(), strings.NewReader(input)))

	got := out.String()
	assert.Contains(t, got, "Found 1 suggestions for prefix 'qui'")
	assert.Contains(t, got, "quick")
	assert.NotContains(t, got, "2. ")
	assert.Contains(t, got, "file:///words.txt")
	assert.Contains(t, got, "quick quicksand question")
	assert.Contains(t, got, `active word: "quick"`)
	assert.Equal(t, "quick", reg.ActiveWord())

	_, ok := reg.Document(ScratchURI)
	assert.False(t, ok, "scratch document is closed on exit")
	_, ok = reg.Document(protocol.DocumentURI("file:///words.txt"))
	assert.True(t, ok)
}

func TestInputHandlerStopsOnCancel(t *testing.T) {
	cfg := config.DefaultConfig()
	reg, err := registry.New(cfg.Index)
	require.NoError(t, err)
	engine := completion.New(reg, cfg.Index)

	in, w := io.Pipe()
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	var out bytes.Buffer
	h := NewInputHandler(reg, engine, 5, &out)

	done := make(chan error, 1)
	go func() { done <- h.Start(ctx, in) }()

	_, err = io.WriteString(w, "qu\n")
	require.NoError(t, err)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Start kept blocking on open input after cancel")
	}
	_, ok := reg.Document(ScratchURI)
	assert.False(t, ok)
}
