package suggest

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/bastiangx/wordlist/internal/utils"
	"github.com/bastiangx/wordlist/pkg/config"
)

var (
	// ErrInvalidText is returned for text that is not valid UTF-8.
	ErrInvalidText = errors.New("text is not valid utf-8")

	// ErrEmptySplitter is returned for a splitter pattern that matches the empty string.
	ErrEmptySplitter = errors.New("splitter pattern matches the empty string")
)

// Tokenizer splits text into words on every character the splitter pattern matches.
type Tokenizer struct {
	splitter    *regexp.Regexp
	matchCase   bool
	minLength   int
	skipNumbers bool
}

// NewTokenizer compiles the splitter pattern from the index config.
func NewTokenizer(cfg config.IndexConfig) (*Tokenizer, error) {
	splitter, err := regexp.Compile(cfg.WhitespaceSplitter)
	if err != nil {
		return nil, fmt.Errorf("compile splitter %q: %w", cfg.WhitespaceSplitter, err)
	}
	if splitter.MatchString("") {
		return nil, fmt.Errorf("%q: %w", cfg.WhitespaceSplitter, ErrEmptySplitter)
	}
	minLength := cfg.MinWordLength
	if minLength < 1 {
		minLength = 1
	}
	return &Tokenizer{
		splitter:    splitter,
		matchCase:   cfg.MatchCase,
		minLength:   minLength,
		skipNumbers: cfg.SkipNumbers,
	}, nil
}

// MatchCase reports whether tries built from these tokens should compare case.
func (t *Tokenizer) MatchCase() bool {
	return t.matchCase
}

// Tokens returns the words of text in order of appearance, duplicates included.
func (t *Tokenizer) Tokens(text string) ([]string, error) {
	if !utf8.ValidString(text) {
		return nil, ErrInvalidText
	}

	parts := t.splitter.Split(text, -1)
	tokens := parts[:0]
	for _, part := range parts {
		if !t.keep(part) {
			continue
		}
		tokens = append(tokens, part)
	}
	return tokens, nil
}

func (t *Tokenizer) keep(token string) bool {
	if token == "" || strings.Contains(token, keySep) {
		return false
	}
	if utf8.RuneCountInString(token) < t.minLength {
		return false
	}
	if t.skipNumbers && utils.IsOnlyNumbers(token) {
		return false
	}
	return true
}

// Index builds a trie holding every token of text.
func (t *Tokenizer) Index(text string) (*Trie, error) {
	tokens, err := t.Tokens(text)
	if err != nil {
		return nil, err
	}
	trie := NewTrie(t.matchCase)
	for _, token := range tokens {
		trie.Insert(token)
	}
	return trie, nil
}

// IsSplitter reports whether r ends a token.
func (t *Tokenizer) IsSplitter(r rune) bool {
	return t.splitter.MatchString(string(r))
}

// Strip removes every splitter match from s.
func (t *Tokenizer) Strip(s string) string {
	return t.splitter.ReplaceAllString(s, "")
}

// TokenAt returns the whole token touching column char (in runes) of line,
// or "" when the column sits between splitters.
func (t *Tokenizer) TokenAt(line string, char int) string {
	runes := []rune(line)
	char = utils.ClampInt(char, 0, len(runes))

	start := char
	for start > 0 && !t.IsSplitter(runes[start-1]) {
		start--
	}
	end := char
	for end < len(runes) && !t.IsSplitter(runes[end]) {
		end++
	}
	return string(runes[start:end])
}
