package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/tokenizer"
)

func TestParseNormalisesTerms(t *testing.T) {
	plan := Parse("Black Guides")
	assert.Equal(t, []string{"black", "guid"}, plan.Terms)
	assert.Equal(t, QueryAND, plan.Type)
	assert.False(t, plan.Explicit)
	assert.Equal(t, "Black Guides", plan.RawQuery)
}

func TestParseEmpty(t *testing.T) {
	for _, q := range []string{"", "   ", "the of and", "!!!"} {
		plan := Parse(q)
		assert.True(t, plan.Empty(), "query %q", q)
		assert.Empty(t, plan.ExcludeTerms)
	}
}

func TestParseOperators(t *testing.T) {
	plan := Parse("black OR branch")
	assert.Equal(t, QueryOR, plan.Type)
	assert.True(t, plan.Explicit)
	assert.Equal(t, []string{"black", "branch"}, plan.Terms)

	plan = New(nil, QueryOR).Parse("black AND branch")
	assert.Equal(t, QueryAND, plan.Type)
}

func TestParseLowercaseOperatorsAreWords(t *testing.T) {
	plan := Parse("black or white")
	assert.Equal(t, QueryAND, plan.Type)
	assert.Equal(t, []string{"black", "white"}, plan.Terms)
}

func TestParseExclusions(t *testing.T) {
	plan := Parse("guide NOT branching -poetry")
	assert.Equal(t, []string{"guid"}, plan.Terms)
	assert.Equal(t, []string{"branch", "poetri"}, plan.ExcludeTerms)

	plan = Parse("NOT")
	assert.True(t, plan.Empty())

	plan = Parse("-")
	assert.True(t, plan.Empty())
	assert.Empty(t, plan.ExcludeTerms)
}

func TestParseSplitsCompoundWords(t *testing.T) {
	plan := Parse("pre-commit hooks")
	assert.Equal(t, []string{"pre", "commit", "hook"}, plan.Terms)
}

func TestParseDeduplicates(t *testing.T) {
	plan := Parse("branch branches Branching")
	assert.Equal(t, []string{"branch"}, plan.Terms)
}

func TestParseRecordsUnstemmedVariants(t *testing.T) {
	plan := Parse("Branches branching black NOT guides")
	assert.Equal(t, []string{"branch", "black"}, plan.Terms)
	assert.Equal(t, []string{"branch", "branches", "branching"}, plan.Keys("branch"))
	assert.Equal(t, []string{"black"}, plan.Keys("black"))
	assert.Equal(t, []string{"guid", "guides"}, plan.Keys("guid"))
}

func TestParseWithTokenizer(t *testing.T) {
	tok, err := tokenizer.New(tokenizer.None)
	require.NoError(t, err)
	plan := New(tok, QueryOR).Parse("Branches Guides")
	assert.Equal(t, []string{"branches", "guides"}, plan.Terms)
	assert.Equal(t, QueryOR, plan.Type)
}

func TestTypeFor(t *testing.T) {
	typ, err := TypeFor("any")
	require.NoError(t, err)
	assert.Equal(t, QueryOR, typ)
	assert.Equal(t, "any", typ.String())

	typ, err = TypeFor("ALL")
	require.NoError(t, err)
	assert.Equal(t, QueryAND, typ)

	_, err = TypeFor("some")
	assert.Error(t, err)
}

func BenchmarkParse(b *testing.B) {
	queries := []string{
		"black",
		"configure pre-commit hooks",
		"coverage OR tox",
		"install poetry NOT windows",
		"formatter -legacy AND guide",
	}
	p := New(nil, QueryAND)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = p.Parse(queries[i%len(queries)])
	}
}
