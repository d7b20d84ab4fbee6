// Package search provides a small, deterministic, concurrency-safe in-memory
// index over short documents such as quotes. The index is read-only after
// construction, so it can be swapped atomically when the source table
// changes.
//
// Scoring uses Jaccard similarity between the query token set and each
// document's token set: score = |Q ∩ D| / |Q ∪ D|. Ties are broken by shorter
// text, then by text, then by ID.
package search

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// Doc is one indexed document.
type Doc struct {
	ID   string
	Text string
}

// Result is a ranked document with its similarity score.
type Result struct {
	ID    string
	Text  string
	Score float64
}

// Index is implemented by all search indices.
type Index interface {
	TopK(query string, k int) []Result
	Len() int
}

// ----------------------------------------------------------------------------
// Options

type Option func(*config)

type config struct {
	minRunes  int
	stopwords map[string]struct{}
	maxDocs   int
}

func defaultConfig() config {
	return config{}
}

// WithMinRunes skips documents shorter than n runes after normalization.
func WithMinRunes(n int) Option {
	return func(c *config) {
		if n >= 0 {
			c.minRunes = n
		}
	}
}

// WithStopwords drops the given words from documents and queries.
func WithStopwords(words []string) Option {
	return func(c *config) {
		m := make(map[string]struct{}, len(words))
		for _, w := range words {
			w = strings.ToLower(strings.TrimSpace(w))
			if w != "" {
				m[w] = struct{}{}
			}
		}
		if len(m) > 0 {
			c.stopwords = m
		}
	}
}

// WithMaxDocs caps the number of indexed documents.
func WithMaxDocs(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxDocs = n
		}
	}
}

// EnglishStopwords is a short list of function words that carry no topic.
var EnglishStopwords = []string{
	"a", "an", "and", "are", "as", "at", "be", "but", "by", "for", "from",
	"i", "if", "in", "is", "it", "me", "my", "of", "on", "or", "so", "that",
	"the", "this", "to", "we", "with", "you", "your",
}

// ----------------------------------------------------------------------------
// Implementation

type doc struct {
	id     string
	text   string
	tokens map[string]struct{}
	runes  int
}

type index struct {
	cfg  config
	docs []doc
}

// NewIndex builds an Index over docs. Empty and duplicate-ID documents are
// skipped.
func NewIndex(docs []Doc, opts ...Option) Index {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	out := make([]doc, 0, len(docs))
	seen := make(map[string]struct{}, len(docs))
	for _, d := range docs {
		t := strings.TrimSpace(normalizeWhitespace(d.Text))
		if t == "" {
			continue
		}
		if _, dup := seen[d.ID]; dup {
			continue
		}
		n := utf8.RuneCountInString(t)
		if cfg.minRunes > 0 && n < cfg.minRunes {
			continue
		}
		toks := tokenize(t, cfg.stopwords)
		if len(toks) == 0 {
			continue
		}
		seen[d.ID] = struct{}{}
		out = append(out, doc{id: d.ID, text: t, tokens: toks, runes: n})
		if cfg.maxDocs > 0 && len(out) >= cfg.maxDocs {
			break
		}
	}
	return &index{cfg: cfg, docs: out}
}

// Len returns the number of indexed documents.
func (i *index) Len() int { return len(i.docs) }

// TopK returns up to k best-matching documents. k <= 0 means 3.
func (i *index) TopK(q string, k int) []Result {
	if len(i.docs) == 0 || strings.TrimSpace(q) == "" {
		return nil
	}
	if k <= 0 {
		k = 3
	}
	qTokens := tokenize(q, i.cfg.stopwords)
	if len(qTokens) == 0 {
		return nil
	}
	qLen := len(qTokens)

	type scored struct {
		d     *doc
		score float64
	}
	buf := make([]scored, 0, min(k*4, len(i.docs)))
	for n := range i.docs {
		d := &i.docs[n]
		over := overlap(qTokens, d.tokens)
		if over == 0 {
			continue
		}
		union := float64(qLen + len(d.tokens) - over)
		buf = append(buf, scored{d: d, score: float64(over) / union})
	}
	if len(buf) == 0 {
		return nil
	}

	sort.SliceStable(buf, func(a, b int) bool {
		x, y := buf[a], buf[b]
		if x.score != y.score {
			return x.score > y.score
		}
		if x.d.runes != y.d.runes {
			return x.d.runes < y.d.runes
		}
		if x.d.text != y.d.text {
			return x.d.text < y.d.text
		}
		return x.d.id < y.d.id
	})

	if k > len(buf) {
		k = len(buf)
	}
	out := make([]Result, k)
	for n := 0; n < k; n++ {
		out[n] = Result{ID: buf[n].d.id, Text: buf[n].d.text, Score: buf[n].score}
	}
	return out
}

// ----------------------------------------------------------------------------
// Helpers

var wordRE = regexp.MustCompile(`[\p{L}\p{N}]+`)

func tokenize(s string, stop map[string]struct{}) map[string]struct{} {
	words := wordRE.FindAllString(strings.ToLower(s), -1)
	if len(words) == 0 {
		return nil
	}
	out := make(map[string]struct{}, len(words))
	for _, w := range words {
		if stop != nil {
			if _, skip := stop[w]; skip {
				continue
			}
		}
		out[w] = struct{}{}
	}
	return out
}

func overlap(a, b map[string]struct{}) int {
	if len(a) > len(b) {
		a, b = b, a
	}
	n := 0
	for k := range a {
		if _, ok := b[k]; ok {
			n++
		}
	}
	return n
}

func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
