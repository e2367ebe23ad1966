// Package textstat provides the tokenization and descriptive statistics
// shared by the scorers and the local model providers.
package textstat

import (
	"math"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var apostrophes = strings.NewReplacer("’", "'", "‘", "'", "ʼ", "'")

// Normalize applies NFKC compatibility normalization, unifies apostrophes
// and case-folds the text.
func Normalize(s string) string {
	// A Caser is stateful and must not be shared between goroutines.
	return cases.Fold().String(apostrophes.Replace(norm.NFKC.String(s)))
}

// Words returns the normalized word tokens of s. Letters, digits and inner
// apostrophes form words; everything else separates them.
func Words(s string) []string {
	s = Normalize(s)
	words := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
	out := words[:0]
	for _, w := range words {
		w = strings.Trim(w, "'")
		if w != "" {
			out = append(out, w)
		}
	}
	return out
}

// Sentences splits s on terminal punctuation followed by whitespace and on
// blank lines. The returned sentences keep their punctuation.
func Sentences(s string) []string {
	s = norm.NFKC.String(s)
	var (
		out   []string
		start int
	)
	runes := []rune(s)
	emit := func(end int) {
		if sent := strings.TrimSpace(string(runes[start:end])); sent != "" {
			out = append(out, sent)
		}
		start = end
	}
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r == '\n' && i+1 < len(runes) && runes[i+1] == '\n' {
			emit(i)
			continue
		}
		if !isTerminal(r) {
			continue
		}
		j := i + 1
		for j < len(runes) && (isTerminal(runes[j]) || isClosing(runes[j])) {
			j++
		}
		if j == len(runes) || unicode.IsSpace(runes[j]) {
			emit(j)
		}
		i = j - 1
	}
	emit(len(runes))
	return out
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?' || r == '…'
}

func isClosing(r rune) bool {
	return r == '"' || r == '\'' || r == ')' || r == '”' || r == '’'
}

// Keywords returns the distinct content words of s: four letters or longer
// and not a stopword.
func Keywords(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, w := range Words(s) {
		if len([]rune(w)) >= 4 && !IsStopword(w) {
			out[w] = struct{}{}
		}
	}
	return out
}

// Trigrams returns the distinct word trigrams of a token sequence.
func Trigrams(words []string) map[string]struct{} {
	out := make(map[string]struct{})
	for i := 0; i+2 < len(words); i++ {
		out[words[i]+" "+words[i+1]+" "+words[i+2]] = struct{}{}
	}
	return out
}

// Overlap returns |a ∩ b| / |a|, or 0 when a is empty.
func Overlap(a, b map[string]struct{}) float64 {
	if len(a) == 0 {
		return 0
	}
	n := 0
	for k := range a {
		if _, ok := b[k]; ok {
			n++
		}
	}
	return float64(n) / float64(len(a))
}

// Intersect returns |a ∩ b|.
func Intersect(a, b map[string]struct{}) int {
	if len(b) < len(a) {
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

// CountPhrases counts whole-word occurrences of each phrase in s. Phrases
// are tokenized the same way as the text.
func CountPhrases(s string, phrases []string) int {
	padded := " " + strings.Join(Words(s), " ") + " "
	total := 0
	for _, p := range phrases {
		pw := Words(p)
		if len(pw) == 0 {
			continue
		}
		total += strings.Count(padded, " "+strings.Join(pw, " ")+" ")
	}
	return total
}

// CountWords counts tokens of words that appear in the set.
func CountWords(words []string, set map[string]struct{}) int {
	n := 0
	for _, w := range words {
		if _, ok := set[w]; ok {
			n++
		}
	}
	return n
}

// Set builds a lookup set from a word list, normalizing each entry.
func Set(words ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(words))
	for _, w := range words {
		out[Normalize(w)] = struct{}{}
	}
	return out
}

// Truncate keeps at most n whitespace-separated tokens of s. n <= 0 keeps
// everything.
func Truncate(s string, n int) string {
	if n <= 0 {
		return s
	}
	fields := strings.Fields(s)
	if len(fields) <= n {
		return s
	}
	return strings.Join(fields[:n], " ")
}

// Mean returns the arithmetic mean, or 0 for an empty slice.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// StdDev returns the population standard deviation.
func StdDev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := Mean(xs)
	ss := 0.0
	for _, x := range xs {
		ss += (x - m) * (x - m)
	}
	return math.Sqrt(ss / float64(len(xs)))
}

// CV returns the coefficient of variation std/mean, or 0 when the mean is 0.
func CV(xs []float64) float64 {
	m := Mean(xs)
	if m == 0 {
		return 0
	}
	return StdDev(xs) / m
}

// SentenceLengths returns the word count of each sentence.
func SentenceLengths(sentences []string) []float64 {
	out := make([]float64, len(sentences))
	for i, s := range sentences {
		out[i] = float64(len(Words(s)))
	}
	return out
}

// Clamp01 bounds v to [0,1]. NaN maps to 0.
func Clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
