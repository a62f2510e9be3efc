package suggest

import (
	"slices"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/tchap/go-patricia/v2/patricia"
)

// keySep joins the folded and original spellings of a token in case-insensitive tries.
// Tokens containing it are never stored.
const keySep = "\x00"

// Candidate is one completion match coming out of a trie.
type Candidate struct {
	Label string
	Count int
}

// entry is the item stored at a terminal patricia node.
type entry struct {
	label string
	count int
	seq   uint64
}

// Trie stores the tokens of one document and answers prefix queries.
//
// Inserting a token that is already present bumps its multiplicity instead of
// adding a second terminal. When matchCase is false, lookups ignore case but
// every spelling seen keeps its own entry and label.
type Trie struct {
	root      *patricia.Trie
	matchCase bool
	distinct  int
	seq       uint64
}

// NewTrie creates an empty trie.
func NewTrie(matchCase bool) *Trie {
	return &Trie{
		root:      patricia.NewTrie(),
		matchCase: matchCase,
	}
}

func (t *Trie) fold(s string) string {
	if t.matchCase {
		return s
	}
	return strings.ToLower(s)
}

func (t *Trie) key(token string) patricia.Prefix {
	if t.matchCase {
		return patricia.Prefix(token)
	}
	return patricia.Prefix(strings.ToLower(token) + keySep + token)
}

// Insert adds one occurrence of token. Empty tokens are ignored.
func (t *Trie) Insert(token string) {
	if token == "" || strings.Contains(token, keySep) {
		return
	}
	key := t.key(token)
	if item := t.root.Get(key); item != nil {
		item.(*entry).count++
		return
	}
	t.seq++
	t.root.Insert(key, &entry{label: token, count: 1, seq: t.seq})
	t.distinct++
}

// Remove drops one occurrence of token, deleting it once the count reaches zero.
// Removing a token that is not stored does nothing.
func (t *Trie) Remove(token string) {
	if token == "" {
		return
	}
	key := t.key(token)
	item := t.root.Get(key)
	if item == nil {
		return
	}
	e := item.(*entry)
	e.count--
	if e.count > 0 {
		return
	}
	if t.root.Delete(key) {
		t.distinct--
	}
}

// Count returns how many times token was inserted and not yet removed.
func (t *Trie) Count(token string) int {
	if token == "" {
		return 0
	}
	if item := t.root.Get(t.key(token)); item != nil {
		return item.(*entry).count
	}
	return 0
}

// Contains reports whether token is stored.
func (t *Trie) Contains(token string) bool {
	return t.Count(token) > 0
}

// Len returns the number of distinct tokens stored.
func (t *Trie) Len() int {
	return t.distinct
}

// Find returns all stored tokens starting with prefix, sorted by label.
// An empty prefix matches nothing.
func (t *Trie) Find(prefix string) []Candidate {
	if prefix == "" {
		return nil
	}

	folded := t.fold(prefix)
	var found []Candidate
	err := t.root.VisitSubtree(patricia.Prefix(folded), func(_ patricia.Prefix, item patricia.Item) error {
		e := item.(*entry)
		if !t.matchCase && !strings.HasPrefix(strings.ToLower(e.label), folded) {
			return nil
		}
		found = append(found, Candidate{Label: e.label, Count: e.count})
		return nil
	})
	if err != nil {
		log.Errorf("Error visiting trie subtree: %v", err)
		return nil
	}

	slices.SortFunc(found, func(a, b Candidate) int {
		return strings.Compare(a.Label, b.Label)
	})
	return found
}

// Words returns every stored token in insertion order.
func (t *Trie) Words() []string {
	entries := make([]*entry, 0, t.distinct)
	t.root.Visit(func(_ patricia.Prefix, item patricia.Item) error {
		entries = append(entries, item.(*entry))
		return nil
	})
	slices.SortFunc(entries, func(a, b *entry) int {
		switch {
		case a.seq < b.seq:
			return -1
		case a.seq > b.seq:
			return 1
		}
		return 0
	})
	words := make([]string, len(entries))
	for i, e := range entries {
		words[i] = e.label
	}
	return words
}
