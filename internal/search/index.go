// Package search ranks a thread's messages against a free-text query.
//
// Text is case folded and stripped of diacritics before tokenizing, so
// "Cafe" finds "café". A query term matches a message word exactly, or as a
// prefix once it is at least PrefixRunes long ("dead" finds "deadlift").
// An Index is immutable after NewIndex and safe for concurrent use.
package search

import (
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// PrefixRunes is the shortest query term allowed to match as a prefix.
const PrefixRunes = 3

// Doc is one message to index.
type Doc struct {
	ID       string
	SenderID string
	Text     string
	At       time.Time
}

// Result is a matching message. Score is in (0, 1]: the share of query terms
// found, with prefix hits counting half.
type Result struct {
	ID       string    `json:"id"`
	SenderID string    `json:"sender_id,omitempty"`
	Snippet  string    `json:"snippet"`
	Score    float64   `json:"score"`
	At       time.Time `json:"at"`
}

// Option configures NewIndex.
type Option func(*options)

type options struct {
	snippetRunes int
	stopwords    map[string]struct{}
}

// WithSnippetRunes caps the snippet returned per result. Default 160.
func WithSnippetRunes(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.snippetRunes = n
		}
	}
}

// WithStopwords drops the given words from messages and queries.
func WithStopwords(words ...string) Option {
	return func(o *options) {
		for _, w := range words {
			for _, t := range tokens(w) {
				if o.stopwords == nil {
					o.stopwords = make(map[string]struct{})
				}
				o.stopwords[t] = struct{}{}
			}
		}
	}
}

type entry struct {
	Doc
	text  string   // whitespace collapsed, original case
	words []string // folded, deduplicated, in order of first use
}

// Index holds tokenized messages.
type Index struct {
	opts    options
	entries []entry
}

// NewIndex tokenizes docs. Messages without any word are skipped.
func NewIndex(docs []Doc, opts ...Option) *Index {
	o := options{snippetRunes: 160}
	for _, fn := range opts {
		fn(&o)
	}
	ix := &Index{opts: o, entries: make([]entry, 0, len(docs))}
	for _, d := range docs {
		words := ix.terms(d.Text)
		if len(words) == 0 {
			continue
		}
		ix.entries = append(ix.entries, entry{Doc: d, text: strings.Join(strings.Fields(d.Text), " "), words: words})
	}
	return ix
}

// Len reports how many messages were indexed.
func (ix *Index) Len() int { return len(ix.entries) }

// TopK returns up to k matches, best first. Ties go to the message with
// fewer words, then the newer one, then the smaller ID. k <= 0 means 3.
func (ix *Index) TopK(query string, k int) []Result {
	q := ix.terms(query)
	if len(q) == 0 || len(ix.entries) == 0 {
		return nil
	}
	if k <= 0 {
		k = 3
	}

	type hit struct {
		e     *entry
		score float64
		first int // rune offset of the first matched word
	}
	var hits []hit
	for n := range ix.entries {
		e := &ix.entries[n]
		var sum float64
		first := -1
		for _, term := range q {
			w, weight := bestMatch(term, e.words)
			if weight == 0 {
				continue
			}
			sum += weight
			if at := wordOffset(e.text, w); at >= 0 && (first < 0 || at < first) {
				first = at
			}
		}
		if sum > 0 {
			hits = append(hits, hit{e: e, score: sum / float64(len(q)), first: first})
		}
	}

	sort.Slice(hits, func(a, b int) bool {
		x, y := hits[a], hits[b]
		switch {
		case x.score != y.score:
			return x.score > y.score
		case len(x.e.words) != len(y.e.words):
			return len(x.e.words) < len(y.e.words)
		case !x.e.At.Equal(y.e.At):
			return x.e.At.After(y.e.At)
		}
		return x.e.ID < y.e.ID
	})

	if k > len(hits) {
		k = len(hits)
	}
	out := make([]Result, k)
	for n, h := range hits[:k] {
		out[n] = Result{
			ID:       h.e.ID,
			SenderID: h.e.SenderID,
			Snippet:  snippet(h.e.text, h.first, ix.opts.snippetRunes),
			Score:    h.score,
			At:       h.e.At,
		}
	}
	return out
}

// terms folds and tokenizes s, dropping stopwords and duplicates.
func (ix *Index) terms(s string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, t := range tokens(s) {
		if _, stop := ix.opts.stopwords[t]; stop {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// bestMatch returns the word term matches and its weight: 1 for an exact
// match, 0.5 for a prefix match, 0 for none.
func bestMatch(term string, words []string) (string, float64) {
	prefixOK := utf8.RuneCountInString(term) >= PrefixRunes
	var prefix string
	for _, w := range words {
		if w == term {
			return w, 1
		}
		if prefixOK && prefix == "" && strings.HasPrefix(w, term) {
			prefix = w
		}
	}
	if prefix != "" {
		return prefix, 0.5
	}
	return "", 0
}

// tokens splits the folded form of s into letter/number runs.
func tokens(s string) []string {
	return strings.FieldsFunc(fold(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// fold lower-cases s and removes combining marks. Casers and transformers
// carry state, so each call builds its own.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return cases.Fold().String(out)
}

// wordOffset finds the rune offset in text of the first word whose folded
// form is w.
func wordOffset(text, w string) int {
	pos := 0
	start := -1
	var word []rune
	flush := func() int {
		if start >= 0 && len(word) > 0 && fold(string(word)) == w {
			return start
		}
		start, word = -1, word[:0]
		return -1
	}
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.Is(unicode.Mn, r) {
			if start < 0 {
				start = pos
			}
			word = append(word, r)
		} else if at := flush(); at >= 0 {
			return at
		}
		pos++
	}
	return flush()
}

// snippet clips text to n runes, keeping the first match in view.
func snippet(text string, first, n int) string {
	rs := []rune(text)
	if len(rs) <= n {
		return text
	}
	start := 0
	if first > n/3 {
		start = first - n/3
	}
	if start+n > len(rs) {
		start = len(rs) - n
	}
	out := string(rs[start : start+n])
	if start > 0 {
		out = "…" + out
	}
	if start+n < len(rs) {
		out += "…"
	}
	return out
}
