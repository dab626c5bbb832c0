// Package score computes ROUGE-1, ROUGE-2 and ROUGE-L overlap between a
// hypothesis summary and a reference summary.
package score

import (
	"nepsum/internal/domain/entity"
)

// Scorer computes overlap statistics. The zero value uses Tokenize.
type Scorer struct {
	Tokenizer Tokenizer
}

// New returns a Scorer using tok, or Tokenize when tok is nil.
func New(tok Tokenizer) *Scorer {
	return &Scorer{Tokenizer: tok}
}

func (s *Scorer) tokenize(text string) []string {
	if s == nil || s.Tokenizer == nil {
		return Tokenize(text)
	}
	return s.Tokenizer(text)
}

// Score returns precision, recall and F-measure for unigram, bigram and
// longest-common-subsequence overlap. Precision is relative to the
// hypothesis and recall to the reference. Every value is 0 when either side
// has no tokens.
func (s *Scorer) Score(hypothesis, reference string) entity.OverlapScore {
	hyp := s.tokenize(hypothesis)
	ref := s.tokenize(reference)

	return entity.OverlapScore{
		Rouge1: ngramScore(hyp, ref, 1),
		Rouge2: ngramScore(hyp, ref, 2),
		RougeL: lcsScore(hyp, ref),
	}
}

func ngramScore(hyp, ref []string, n int) entity.MetricScore {
	hypGrams := ngrams(hyp, n)
	refGrams := ngrams(ref, n)

	hypTotal := total(hypGrams)
	refTotal := total(refGrams)
	if hypTotal == 0 || refTotal == 0 {
		return entity.MetricScore{}
	}

	matched := 0
	for g, hc := range hypGrams {
		matched += min(hc, refGrams[g])
	}
	return metric(matched, hypTotal, refTotal)
}

func lcsScore(hyp, ref []string) entity.MetricScore {
	if len(hyp) == 0 || len(ref) == 0 {
		return entity.MetricScore{}
	}
	return metric(lcsLength(hyp, ref), len(hyp), len(ref))
}

func metric(matched, hypTotal, refTotal int) entity.MetricScore {
	p := float64(matched) / float64(hypTotal)
	r := float64(matched) / float64(refTotal)
	return entity.MetricScore{Precision: p, Recall: r, FMeasure: fmeasure(p, r)}
}

func fmeasure(p, r float64) float64 {
	if p+r == 0 {
		return 0
	}
	return 2 * p * r / (p + r)
}

// ngrams counts the n-grams of tokens, keyed by the tokens joined with a
// separator that cannot occur inside a whitespace-split token.
func ngrams(tokens []string, n int) map[string]int {
	counts := make(map[string]int)
	for i := 0; i+n <= len(tokens); i++ {
		key := tokens[i]
		for j := 1; j < n; j++ {
			key += " " + tokens[i+j]
		}
		counts[key]++
	}
	return counts
}

func total(counts map[string]int) int {
	n := 0
	for _, c := range counts {
		n += c
	}
	return n
}

// lcsLength is the classic dynamic program over two rows.
func lcsLength(a, b []string) int {
	if len(a) < len(b) {
		a, b = b, a
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			switch {
			case a[i-1] == b[j-1]:
				curr[j] = prev[j-1] + 1
			case prev[j] >= curr[j-1]:
				curr[j] = prev[j]
			default:
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
