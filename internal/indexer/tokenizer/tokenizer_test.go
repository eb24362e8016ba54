package tokenizer

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func terms(tokens []Token) []string {
	out := make([]string, len(tokens))
	for i, tok := range tokens {
		out[i] = tok.Term
	}
	return out
}

func TestTokenizeStemsAndLowercases(t *testing.T) {
	tokens := Default().Tokenize("Black Code Formatter Guide")
	assert.Equal(t, []string{"black", "code", "formatt", "guid"}, terms(tokens))
	for i, tok := range tokens {
		assert.Equal(t, i, tok.Position)
	}
	assert.Equal(t, "formatter", tokens[2].Word)
	assert.Equal(t, "guide", tokens[3].Word)
}

func TestTokenizeDropsStopWords(t *testing.T) {
	tokens := Default().Tokenize("Running Coverage in the Biofilter Project")
	assert.Equal(t, []string{"run", "coverag", "biofilt", "project"}, terms(tokens))
}

func TestTokenizeKeepsUnderscoreWords(t *testing.T) {
	tokens := Default().Tokenize("if __name__ == '__main__':")
	assert.Equal(t, []string{"__name__", "__main__"}, terms(tokens))
}

func TestTokenizeEmpty(t *testing.T) {
	assert.Empty(t, Default().Tokenize(""))
	assert.Empty(t, Default().Tokenize("   ,;  "))
	assert.Empty(t, Default().Tokenize("the and of"))
}

func TestTermsDeduplicates(t *testing.T) {
	assert.Equal(t, []string{"branch", "guid"}, Default().Terms("branches branch Guide guides"))
}

func TestNewStemmers(t *testing.T) {
	porter, err := New(Porter)
	require.NoError(t, err)
	assert.Equal(t, Porter, porter.Name())

	english, err := New(English)
	require.NoError(t, err)
	assert.Equal(t, []string{"run", "branch"}, terms(english.Tokenize("running branches")))

	none, err := New(None)
	require.NoError(t, err)
	assert.Equal(t, []string{"running", "branches"}, terms(none.Tokenize("Running branches")))

	_, err = New("lancaster")
	assert.Error(t, err)
}

func TestNormalize(t *testing.T) {
	term, ok := Default().Normalize("Branches")
	assert.True(t, ok)
	assert.Equal(t, "branch", term)

	_, ok = Default().Normalize("The")
	assert.False(t, ok)

	_, ok = Default().Normalize("")
	assert.False(t, ok)
}

func TestWords(t *testing.T) {
	assert.Equal(t, []string{"pre", "commit", "hooks"}, Words("Pre-Commit Hooks"))
}

func BenchmarkTokenize(b *testing.B) {
	text := strings.Repeat("Setting Up and Running Sphinx for Biofilter Documentation. ", 20)
	b.ReportAllocs()
	b.SetBytes(int64(len(text)))
	for i := 0; i < b.N; i++ {
		_ = Default().Tokenize(text)
	}
}

func BenchmarkTokenizeVaryingSize(b *testing.B) {
	sizes := []int{10, 100, 1000}
	base := "using tox in the biofilter project "
	for _, size := range sizes {
		text := strings.Repeat(base, size/len(base)+1)[:size]
		b.Run(fmt.Sprintf("bytes_%d", size), func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				_ = Default().Tokenize(text)
			}
		})
	}
}
