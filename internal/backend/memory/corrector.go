package memory

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/kailas-cloud/smartsearch/internal/domain"
)

// VocabularyCorrector replaces each query word with the closest catalog word
// within maxDistance edits. Words shorter than minWordLen are left alone.
type VocabularyCorrector struct {
	words       []string
	known       map[string]struct{}
	maxDistance int
	minWordLen  int
}

// NewVocabularyCorrector builds a corrector from the words of the products.
func NewVocabularyCorrector(products []domain.Product) *VocabularyCorrector {
	c := &VocabularyCorrector{known: make(map[string]struct{}), maxDistance: 2, minWordLen: 4}
	for _, p := range products {
		for _, w := range tokenize(searchText(p)) {
			if _, ok := c.known[w]; ok {
				continue
			}
			c.known[w] = struct{}{}
			c.words = append(c.words, w)
		}
	}
	return c
}

// Vocabulary builds a VocabularyCorrector from the current catalog of b.
func (b *Backend) Vocabulary() *VocabularyCorrector {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return NewVocabularyCorrector(b.products)
}

// Correct implements domain.Corrector. A query without corrections is returned as typed.
func (c *VocabularyCorrector) Correct(_ context.Context, text string) (domain.Correction, error) {
	words := strings.Fields(strings.ToLower(text))
	changed := false
	for i, w := range words {
		if fixed := c.closest(w); fixed != w {
			words[i] = fixed
			changed = true
		}
	}
	if !changed {
		return domain.Correction{Text: text}, nil
	}
	return domain.Correction{Text: strings.Join(words, " ")}, nil
}

func (c *VocabularyCorrector) closest(w string) string {
	if _, ok := c.known[w]; ok || utf8.RuneCountInString(w) < c.minWordLen {
		return w
	}
	best, bestDist := w, c.maxDistance+1
	for _, cand := range c.words {
		if d := levenshtein(w, cand); d < bestDist {
			best, bestDist = cand, d
		}
	}
	return best
}

func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(rb)]
}
