package intent

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"rakshak/internal/kb"
)

const (
	DefaultConfidenceFloor    = 0.6
	DefaultMaxUtteranceLength = 256
)

// Filler words the transcriber tends to leave in; stripped before matching.
var fillerWords = map[string]bool{
	"um": true, "uh": true, "er": true, "ah": true, "well": true,
}

type Options struct {
	ConfidenceFloor    float64
	MaxUtteranceLength int
}

type Result struct {
	Category   Category
	Confidence float64

	// Suggestion is the best-guess category when the top score fell below
	// the floor but above zero. Unknown when there is no plausible guess.
	Suggestion Category
}

type phraseEntry struct {
	text     string
	tokens   []string
	category Category
}

// Matcher resolves utterances against the phrase index. Immutable after
// construction; safe for concurrent use.
type Matcher struct {
	entries []phraseEntry
	exact   map[string]Category
	floor   float64
	maxLen  int
}

func NewMatcher(base *kb.KB, opts Options) (*Matcher, error) {
	if opts.ConfidenceFloor <= 0 {
		opts.ConfidenceFloor = DefaultConfidenceFloor
	}
	if opts.MaxUtteranceLength <= 0 {
		opts.MaxUtteranceLength = DefaultMaxUtteranceLength
	}

	m := &Matcher{
		exact:  map[string]Category{},
		floor:  opts.ConfidenceFloor,
		maxLen: opts.MaxUtteranceLength,
	}

	for name, phrases := range base.Phrases {
		cat, err := ParseCategory(name)
		if err != nil {
			return nil, fmt.Errorf("phrase index: %w", err)
		}
		for _, p := range phrases {
			norm := Normalize(p)
			if norm == "" {
				continue
			}
			if prev, ok := m.exact[norm]; ok && prev != cat {
				return nil, fmt.Errorf("phrase index: %q mapped to both %s and %s", norm, prev, cat)
			}
			if _, ok := m.exact[norm]; ok {
				continue
			}
			m.exact[norm] = cat
			m.entries = append(m.entries, phraseEntry{
				text:     norm,
				tokens:   strings.Fields(norm),
				category: cat,
			})
		}
	}

	// Fixed iteration order keeps fuzzy scoring deterministic.
	sort.Slice(m.entries, func(i, j int) bool { return m.entries[i].text < m.entries[j].text })

	return m, nil
}

// Match classifies an utterance. last is the previous turn's category
// (Unknown if none) and only influences tie-breaking.
func (m *Matcher) Match(utterance string, last Category) Result {
	norm := m.truncate(Normalize(utterance))
	if norm == "" {
		return Result{Category: Unknown}
	}

	if cat, ok := m.exact[norm]; ok {
		return Result{Category: cat, Confidence: 1.0}
	}

	tokens := strings.Fields(norm)

	// A registered phrase appearing whole inside the utterance is as good
	// as an exact hit ("there is a fire in the kitchen").
	var contained []Category
	for _, e := range m.entries {
		if containsTokens(tokens, e.tokens) {
			contained = append(contained, e.category)
		}
	}
	if len(contained) > 0 {
		return Result{Category: m.pick(contained, last), Confidence: 1.0}
	}

	best := 0.0
	var cands []Category
	for _, e := range m.entries {
		score := similarity(norm, tokens, e)
		switch {
		case score > best:
			best = score
			cands = cands[:0]
			cands = append(cands, e.category)
		case score == best && score > 0:
			cands = append(cands, e.category)
		}
	}

	if best >= m.floor {
		return Result{Category: m.pick(cands, last), Confidence: best}
	}
	if best > 0 {
		return Result{Category: Unknown, Suggestion: m.pick(cands, last)}
	}
	return Result{Category: Unknown}
}

func (m *Matcher) truncate(norm string) string {
	if len(norm) <= m.maxLen {
		return norm
	}
	end := m.maxLen
	for end > 0 && !utf8.RuneStart(norm[end]) {
		end--
	}
	cut := norm[:end]
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return cut
}

func (m *Matcher) pick(cands []Category, last Category) Category {
	if len(cands) == 0 {
		return Unknown
	}
	for _, c := range cands {
		if last != Unknown && c == last {
			return c
		}
	}
	top := cands[0]
	for _, c := range cands[1:] {
		if higherPriority(c, top) {
			top = c
		}
	}
	return top
}

// similarity is the fuzzy score against one known phrase: the better of
// token-set overlap (word-order tolerant) and normalized Levenshtein
// similarity (misspelling tolerant).
func similarity(norm string, tokens []string, e phraseEntry) float64 {
	overlap := tokenOverlap(tokens, e.tokens)

	dist := levenshtein.ComputeDistance(norm, e.text)
	longest := len([]rune(norm))
	if l := len([]rune(e.text)); l > longest {
		longest = l
	}
	lev := 0.0
	if longest > 0 {
		lev = 1.0 - float64(dist)/float64(longest)
	}

	if overlap > lev {
		return overlap
	}
	return lev
}

func tokenOverlap(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := map[string]bool{}
	for _, t := range a {
		set[t] = true
	}
	union := len(set)
	inter := 0
	for _, t := range b {
		if set[t] {
			inter++
			delete(set, t)
		} else {
			union++
		}
	}
	return float64(inter) / float64(union)
}

func containsTokens(haystack, needle []string) bool {
	if len(needle) == 0 || len(needle) > len(haystack) {
		return false
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		match := true
		for j, t := range needle {
			if haystack[i+j] != t {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

// Normalize lower-cases, strips punctuation, collapses whitespace and drops
// filler words. The empty string means "nothing to match".
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}

	words := strings.Fields(b.String())
	out := words[:0]
	for _, w := range words {
		if !fillerWords[w] {
			out = append(out, w)
		}
	}
	return strings.Join(out, " ")
}
