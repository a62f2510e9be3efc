// Package suggest is the core, providing the trie that stores a document's words and
// the tokenizer that splits document text into those words.
package suggest

// Finder is the read side of a word index. Completion queries only ever see this.
type Finder interface {
	// Find returns every stored token starting with prefix, in lexical order.
	Find(prefix string) []Candidate

	// Len returns the number of distinct tokens stored.
	Len() int
}

// WordIndex is a Finder that can also be updated.
type WordIndex interface {
	Finder

	// Insert adds one occurrence of token.
	Insert(token string)

	// Remove drops one occurrence of token.
	Remove(token string)
}

var _ WordIndex = (*Trie)(nil)
