// Package simhash fingerprints note bodies so near-identical notes can be
// spotted within a crawl run.
package simhash

import (
	"hash/fnv"
	"math/bits"
	"strings"
	"unicode"
)

// Fingerprint computes a 64-bit SimHash of text over overlapping character
// bigrams. Bigrams work for CJK text, which has no word separators.
// Whitespace and punctuation are ignored; Latin letters are lowercased.
func Fingerprint(text string) uint64 {
	runes := normalize(text)
	if len(runes) == 0 {
		return 0
	}
	if len(runes) == 1 {
		return hash(string(runes))
	}

	var vector [64]int
	for i := 0; i+1 < len(runes); i++ {
		h := hash(string(runes[i : i+2]))
		for b := 0; b < 64; b++ {
			if h&(1<<uint(b)) != 0 {
				vector[b]++
			} else {
				vector[b]--
			}
		}
	}

	var fingerprint uint64
	for b := 0; b < 64; b++ {
		if vector[b] > 0 {
			fingerprint |= 1 << uint(b)
		}
	}
	return fingerprint
}

func normalize(text string) []rune {
	out := make([]rune, 0, len(text))
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			out = append(out, r)
		}
	}
	return out
}

func hash(s string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return h.Sum64()
}

// Distance returns the Hamming distance between two SimHash fingerprints.
func Distance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}

// Similar returns true if the Hamming distance between two fingerprints
// is less than or equal to the threshold.
func Similar(a, b uint64, threshold int) bool {
	return Distance(a, b) <= threshold
}

// Index remembers fingerprints seen during one run and reports the first
// earlier entry within the threshold. It is not safe for concurrent use.
type Index struct {
	threshold int
	names     []string
	prints    []uint64
}

func NewIndex(threshold int) *Index {
	return &Index{threshold: threshold}
}

// Check returns the name of an earlier near-duplicate of text, or "", and
// then records text under name. Empty text is never matched.
func (ix *Index) Check(name, text string) string {
	if len(normalize(text)) == 0 {
		return ""
	}
	fp := Fingerprint(text)
	match := ""
	for i, p := range ix.prints {
		if Similar(fp, p, ix.threshold) {
			match = ix.names[i]
			break
		}
	}
	ix.names = append(ix.names, name)
	ix.prints = append(ix.prints, fp)
	return match
}
