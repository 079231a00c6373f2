// Package keywords turns free text into search tokens for the ranker.
package keywords

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Token is a single unit produced by a Tokenizer.
type Token struct {
	Text    string
	IsStop  bool
	IsAlpha bool
}

type Tokenizer interface {
	Tokenize(text string) []Token
}

// WordTokenizer lowercases text and splits it into runs of letters, runs of
// digits and single symbols. Whitespace is dropped. Apostrophes inside a
// letter run stay in the word, and English contraction suffixes ("n't", "'s",
// "'m" and so on) are split off as separate stop-word tokens.
type WordTokenizer struct {
	stopWords map[string]struct{}
}

func NewWordTokenizer() *WordTokenizer {
	return &WordTokenizer{stopWords: englishStopWords}
}

func (t *WordTokenizer) Tokenize(text string) []Token {
	text = cases.Lower(language.Und).String(text)

	var (
		tokens []Token
		run    []rune
		kind   int
	)
	emit := func(word string, alpha bool) {
		_, stop := t.stopWords[word]
		tokens = append(tokens, Token{Text: word, IsStop: stop, IsAlpha: alpha})
	}
	flush := func() {
		if len(run) == 0 {
			return
		}
		word := string(run)
		run = run[:0]
		if kind != kindLetter {
			emit(word, false)
			return
		}

		trimmed := strings.TrimRight(word, "'")
		base, suffix := splitContraction(trimmed)
		if base != "" {
			emit(base, !strings.ContainsRune(base, '\''))
		}
		if suffix != "" {
			emit(suffix, false)
		}
		for range len(word) - len(trimmed) {
			emit("'", false)
		}
	}

	for _, r := range text {
		if r == '’' {
			r = '\''
		}
		k := classify(r)
		switch {
		case r == '\'' && kind == kindLetter && len(run) > 0:
			run = append(run, r)
		case k == kindSpace:
			flush()
			kind = kindSpace
		case k == kindSymbol:
			flush()
			run = append(run, r)
			kind = kindSymbol
			flush()
		default:
			if k != kind {
				flush()
			}
			run = append(run, r)
			kind = k
		}
	}
	flush()

	return tokens
}

var contractionSuffixes = []string{"n't", "'s", "'m", "'re", "'ve", "'ll", "'d"}

// splitContraction separates a trailing contraction suffix from word.
func splitContraction(word string) (base, suffix string) {
	for _, sfx := range contractionSuffixes {
		if base, ok := strings.CutSuffix(word, sfx); ok && base != "" {
			return base, sfx
		}
	}
	return word, ""
}

const (
	kindSpace = iota
	kindLetter
	kindDigit
	kindSymbol
)

func classify(r rune) int {
	switch {
	case unicode.IsSpace(r):
		return kindSpace
	case unicode.IsLetter(r):
		return kindLetter
	case unicode.IsDigit(r):
		return kindDigit
	default:
		return kindSymbol
	}
}

// Extractor keeps the salient tokens of a message.
type Extractor struct {
	tokenizer Tokenizer
}

func NewExtractor(tokenizer Tokenizer) *Extractor {
	if tokenizer == nil {
		tokenizer = NewWordTokenizer()
	}
	return &Extractor{tokenizer: tokenizer}
}

// Extract returns the distinct alphabetic, non-stop-word tokens of text in
// order of first appearance. Empty input yields an empty slice.
func (e *Extractor) Extract(text string) []string {
	seen := make(map[string]struct{})
	keywords := []string{}
	for _, tok := range e.tokenizer.Tokenize(text) {
		if tok.IsStop || !tok.IsAlpha {
			continue
		}
		word := cases.Lower(language.Und).String(tok.Text)
		if _, dup := seen[word]; dup {
			continue
		}
		seen[word] = struct{}{}
		keywords = append(keywords, word)
	}
	return keywords
}
