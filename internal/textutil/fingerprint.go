package textutil

import "math"

// Fingerprint represents a term-frequency vector for text similarity comparison.
type Fingerprint struct {
	tokens map[string]float64
	norm   float64
}

// NewFingerprint creates a fingerprint from the content words of text (three
// or more characters). Returns nil if no word qualifies.
func NewFingerprint(text string) *Fingerprint {
	return FingerprintOf(Tokenize(text))
}

// FingerprintOf builds a fingerprint from pre-split tokens. Returns nil for
// an empty token list.
func FingerprintOf(tokens []string) *Fingerprint {
	if len(tokens) == 0 {
		return nil
	}
	counts := make(map[string]float64, len(tokens))
	for _, token := range tokens {
		counts[token]++
	}
	var norm float64
	for _, count := range counts {
		norm += count * count
	}
	return &Fingerprint{
		tokens: counts,
		norm:   math.Sqrt(norm),
	}
}

// Tokenize folds text and keeps words of at least three characters.
func Tokenize(text string) []string {
	words := Words(text)
	terms := words[:0]
	for _, word := range words {
		if len([]rune(word)) < 3 {
			continue
		}
		terms = append(terms, word)
	}
	return terms
}

// TokenCount returns the number of unique tokens in the fingerprint.
func (f *Fingerprint) TokenCount() int {
	if f == nil {
		return 0
	}
	return len(f.tokens)
}
