package suggest

import (
	"testing"

	"github.com/bastiangx/wordlist/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTokenizer(t *testing.T, mutate func(*config.IndexConfig)) *Tokenizer {
	t.Helper()
	cfg := config.DefaultConfig().Index
	if mutate != nil {
		mutate(&cfg)
	}
	tok, err := NewTokenizer(cfg)
	require.NoError(t, err)
	return tok
}

func TestTokens(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.IndexConfig)
		text   string
		want   []string
	}{
		{"default splitter", nil, "the quick, brown-fox\njumps_over", []string{"the", "quick", "brown", "fox", "jumps_over"}},
		{"short words dropped", nil, "a an ox", []string{"an", "ox"}},
		{"duplicates kept", nil, "foo bar foo", []string{"foo", "bar", "foo"}},
		{"unicode letters", nil, "crème brûlée", []string{"crème", "brûlée"}},
		{"whitespace only splitter", func(c *config.IndexConfig) { c.WhitespaceSplitter = `\s` }, "a.b c-d", []string{"a.b", "c-d"}},
		{"numbers skipped", func(c *config.IndexConfig) { c.SkipNumbers = true }, "port 8080 v2", []string{"port", "v2"}},
		{"empty text", nil, "", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok := newTokenizer(t, tt.mutate)
			got, err := tok.Tokens(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTokensInvalidUTF8(t *testing.T) {
	tok := newTokenizer(t, nil)
	_, err := tok.Tokens("ok \xff\xfe")
	assert.ErrorIs(t, err, ErrInvalidText)
}

func TestNewTokenizerRejectsBadPatterns(t *testing.T) {
	_, err := NewTokenizer(config.IndexConfig{WhitespaceSplitter: `[`})
	assert.Error(t, err)

	_, err = NewTokenizer(config.IndexConfig{WhitespaceSplitter: `\s*`})
	assert.ErrorIs(t, err, ErrEmptySplitter)
}

func TestTokenAt(t *testing.T) {
	tok := newTokenizer(t, nil)
	line := "the quick brown fox"

	assert.Equal(t, "quick", tok.TokenAt(line, 6))
	assert.Equal(t, "quick", tok.TokenAt(line, 9))
	assert.Equal(t, "the", tok.TokenAt(line, 0))
	assert.Equal(t, "fox", tok.TokenAt(line, 100))
	assert.Equal(t, "", tok.TokenAt("a  b", 2))
}

func TestStripAndIndex(t *testing.T) {
	tok := newTokenizer(t, nil)
	assert.Equal(t, "quick", tok.Strip(" quick."))

	trie, err := tok.Index("alpha beta alpha")
	require.NoError(t, err)
	assert.Equal(t, 2, trie.Len())
	assert.Equal(t, 2, trie.Count("alpha"))
}
