// Package cli handles cmd line input and suggestions for DBG and testing the word index
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bastiangx/wordlist/internal/utils"
	"github.com/bastiangx/wordlist/pkg/completion"
	"github.com/bastiangx/wordlist/pkg/registry"
	"github.com/charmbracelet/log"
	"go.lsp.dev/protocol"
)

// ScratchURI identifies the document holding what the user types.
const ScratchURI = protocol.DocumentURI("cli://scratch")

// InputHandler reads lines from the user, treats each one as the content of a
// scratch document with the cursor at its end, and prints the suggestions.
//
// Lines starting with ':' are commands:
//
//	:docs       list indexed documents
//	:words URI  list the words of a document
//	:active W   set the active word
type InputHandler struct {
	registry     *registry.Registry
	engine       *completion.Engine
	suggestLimit int
	out          io.Writer
	requestCount int
}

// NewInputHandler handles initialization of the InputHandler with basic parameters
func NewInputHandler(reg *registry.Registry, engine *completion.Engine, limit int, out io.Writer) *InputHandler {
	return &InputHandler{
		registry:     reg,
		engine:       engine,
		suggestLimit: limit,
		out:          out,
	}
}

// Start begins the interface loop. It returns nil when in reaches EOF and
// the context error as soon as ctx ends, even mid-read.
func (h *InputHandler) Start(ctx context.Context, in io.Reader) error {
	if err := h.registry.Open(ScratchURI, ""); err != nil {
		return err
	}
	defer h.registry.Close(ScratchURI)

	fmt.Fprintln(h.out, "wordlist CLI [BETA]")
	fmt.Fprintln(h.out, "type something and press Enter to see the suggestions (Ctrl+D to exit):")

	lines, scanErr := readLines(ctx, in)
	for {
		fmt.Fprint(h.out, "> ")

		var line string
		var ok bool
		select {
		case <-ctx.Done():
			fmt.Fprintln(h.out)
			return ctx.Err()
		case line, ok = <-lines:
		}
		if !ok {
			fmt.Fprintln(h.out)
			if err := ctx.Err(); err != nil {
				return err
			}
			return <-scanErr
		}

		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if strings.HasPrefix(line, ":") {
			h.handleCommand(line)
			continue
		}
		h.handleInput(ctx, line)
	}
}

// readLines scans in on its own goroutine. The error channel receives the
// scanner error once lines is closed.
func readLines(ctx context.Context, in io.Reader) (<-chan string, <-chan error) {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(in)
		defer close(lines)
		defer func() { scanErr <- scanner.Err() }()
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines, scanErr
}

func (h *InputHandler) handleCommand(line string) {
	name, arg, _ := strings.Cut(strings.TrimPrefix(line, ":"), " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "docs":
		for trie, uri := range h.registry.All() {
			fmt.Fprintf(h.out, "  %-50s %s words\n", uri, utils.FormatWithCommas(trie.Len()))
		}
	case "words":
		doc, ok := h.registry.Document(protocol.DocumentURI(arg))
		if !ok {
			log.Errorf("Unknown document: %s", arg)
			return
		}
		trie, err := h.registry.Tokenizer().Index(doc.Text())
		if err != nil {
			log.Errorf("Document %s is not indexed: %v", arg, err)
			return
		}
		fmt.Fprintln(h.out, strings.Join(trie.Words(), " "))
	case "active":
		h.registry.SetActiveWord(arg)
		fmt.Fprintf(h.out, "active word: %q\n", arg)
	default:
		log.Errorf("Unknown command: %s", name)
	}
}

// handleInput replaces the scratch document with line and completes at its end.
func (h *InputHandler) handleInput(ctx context.Context, line string) {
	h.requestCount++

	if err := h.registry.Change(ScratchURI, registry.Change{Text: line}); err != nil {
		log.Warnf("Scratch input not indexed: %v", err)
	}
	doc, ok := h.registry.Document(ScratchURI)
	if !ok {
		log.Error("Scratch document is gone")
		return
	}

	start := time.Now()
	pos := protocol.Position{Line: 0, Character: uint32(utf8.RuneCountInString(line))}
	prefix := h.engine.Prefix(doc, pos)
	items := h.engine.Complete(ctx, doc, pos)
	elapsed := time.Since(start)
	log.Debugf("Took [ %v ] for prefix '%s' (request %d)", elapsed, prefix, h.requestCount)

	if len(items) == 0 {
		log.Warnf("No suggestions found for prefix: '%s'", prefix)
		return
	}
	if h.suggestLimit > 0 && len(items) > h.suggestLimit {
		items = items[:h.suggestLimit]
	}

	fmt.Fprintf(h.out, "Found %d suggestions for prefix '%s':\n", len(items), prefix)
	for i, item := range items {
		clWord := fmt.Sprintf("\033[38;5;75m%s\033[0m", item.Label)
		fmt.Fprintf(h.out, "%2d. %-40s (%s)\n", i+1, clWord, utils.Shorten(item.Detail, 40))
	}
}
