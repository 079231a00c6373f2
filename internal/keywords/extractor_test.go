package keywords

import (
	"testing"
	"unicode"

	"github.com/stretchr/testify/assert"
)

func TestWordTokenizer(t *testing.T) {
	tokens := NewWordTokenizer().Tokenize("Print(1) the X2")

	var texts []string
	for _, tok := range tokens {
		texts = append(texts, tok.Text)
	}
	assert.Equal(t, []string{"print", "(", "1", ")", "the", "x", "2"}, texts)

	assert.True(t, tokens[0].IsAlpha)
	assert.False(t, tokens[1].IsAlpha)
	assert.False(t, tokens[2].IsAlpha)
	assert.True(t, tokens[4].IsStop)
}

func TestWordTokenizerContractions(t *testing.T) {
	tokens := NewWordTokenizer().Tokenize("Don't o'clock users'")

	var texts []string
	for _, tok := range tokens {
		texts = append(texts, tok.Text)
	}
	assert.Equal(t, []string{"do", "n't", "o'clock", "users", "'"}, texts)

	assert.True(t, tokens[0].IsStop)
	assert.True(t, tokens[1].IsStop)
	assert.False(t, tokens[1].IsAlpha)
	assert.False(t, tokens[2].IsAlpha)
	assert.True(t, tokens[3].IsAlpha)
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{name: "empty", text: "", want: []string{}},
		{name: "only stop words", text: "the and of", want: []string{}},
		{name: "hello", text: "hello", want: []string{"hello"}},
		{name: "request", text: "Generate Python print", want: []string{"generate", "python", "print"}},
		{name: "distinct in order", text: "sort list, then sort LIST again", want: []string{"sort", "list"}},
		{name: "drops numbers and symbols", text: "fib(10) in go!", want: []string{"fib"}},
		{name: "possessive contraction", text: "what's a closure", want: []string{"closure"}},
		{name: "negative contraction", text: "I don't know", want: []string{"know"}},
		{name: "pronoun contraction", text: "I'm stuck", want: []string{"stuck"}},
		{name: "typographic apostrophe", text: "it’s a closure, we’ve tried", want: []string{"closure", "tried"}},
		{name: "can't and won't", text: "can't compile, won't run", want: []string{"compile", "run"}},
		{name: "quoted word", text: "'sort' it", want: []string{"sort"}},
	}

	e := NewExtractor(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.Extract(tt.text))
		})
	}
}

func TestExtractNeverReturnsStopWordsOrNonAlpha(t *testing.T) {
	inputs := []string{
		"How do I write a Go HTTP server?",
		"def f(x): return x*2  # Double IT",
		"Ünïcode Straße 42 — ok",
		"   \t\n",
	}

	e := NewExtractor(nil)
	for _, in := range inputs {
		for _, kw := range e.Extract(in) {
			_, stop := englishStopWords[kw]
			assert.False(t, stop, "stop word %q from %q", kw, in)
			for _, r := range kw {
				assert.True(t, unicode.IsLetter(r), "non-letter in %q", kw)
				assert.False(t, unicode.IsUpper(r), "upper case in %q", kw)
			}
		}
	}
}
