package ranker

import (
	"fmt"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRankOrdersByScoreThenRef(t *testing.T) {
	docs := []ScoredDoc{
		{Ref: 4, Score: 1},
		{Ref: 2, Score: 2},
		{Ref: 0, Score: 1},
		{Ref: 3, Score: 2},
	}
	got := Rank(docs, 0)
	assert.Equal(t, []ScoredDoc{
		{Ref: 2, Score: 2},
		{Ref: 3, Score: 2},
		{Ref: 0, Score: 1},
		{Ref: 4, Score: 1},
	}, got)
}

func TestRankLimitMatchesFullSortPrefix(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	docs := make([]ScoredDoc, 500)
	for i := range docs {
		docs[i] = ScoredDoc{Ref: i, Score: rng.Intn(5)}
	}
	rng.Shuffle(len(docs), func(i, j int) { docs[i], docs[j] = docs[j], docs[i] })

	full := make([]ScoredDoc, len(docs))
	copy(full, docs)
	sort.Slice(full, func(i, j int) bool {
		if full[i].Score != full[j].Score {
			return full[i].Score > full[j].Score
		}
		return full[i].Ref < full[j].Ref
	})

	for _, limit := range []int{1, 10, 499, 500, 1000} {
		in := make([]ScoredDoc, len(docs))
		copy(in, docs)
		got := Rank(in, limit)
		want := full
		if limit < len(full) {
			want = full[:limit]
		}
		assert.Equal(t, want, got, "limit %d", limit)
	}
}

func TestRankEmpty(t *testing.T) {
	assert.Empty(t, Rank(nil, 10))
	assert.Empty(t, Rank([]ScoredDoc{}, 0))
}

func BenchmarkRankTopK(b *testing.B) {
	for _, n := range []int{100, 10000} {
		docs := make([]ScoredDoc, n)
		for i := range docs {
			docs[i] = ScoredDoc{Ref: i, Score: i % 7}
		}
		b.Run(fmt.Sprintf("docs_%d", n), func(b *testing.B) {
			in := make([]ScoredDoc, n)
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				copy(in, docs)
				_ = Rank(in, 10)
			}
		})
	}
}
