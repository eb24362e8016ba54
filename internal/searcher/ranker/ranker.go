package ranker

import (
	"container/heap"
	"sort"
)

// ScoredDoc is a candidate document and the number of distinct query terms
// it matched.
type ScoredDoc struct {
	Ref   int `json:"ref"`
	Score int `json:"score"`
}

// Rank orders docs by Score descending, then Ref ascending. With limit > 0
// only the best limit documents are kept, selected with a bounded heap
// rather than a full sort. docs is reordered in place.
func Rank(docs []ScoredDoc, limit int) []ScoredDoc {
	if limit > 0 && limit < len(docs) {
		return topK(docs, limit)
	}
	sort.Slice(docs, func(i, j int) bool {
		return better(docs[i], docs[j])
	})
	return docs
}

func better(a, b ScoredDoc) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.Ref < b.Ref
}

func topK(docs []ScoredDoc, limit int) []ScoredDoc {
	h := make(scoredDocHeap, 0, limit+1)
	for _, doc := range docs {
		if h.Len() == limit && !better(doc, h[0]) {
			continue
		}
		heap.Push(&h, doc)
		if h.Len() > limit {
			heap.Pop(&h)
		}
	}
	result := make([]ScoredDoc, h.Len())
	for i := len(result) - 1; i >= 0; i-- {
		result[i] = heap.Pop(&h).(ScoredDoc)
	}
	return result
}

// scoredDocHeap is a min-heap with the worst-ranked document on top.
type scoredDocHeap []ScoredDoc

func (h scoredDocHeap) Len() int { return len(h) }

func (h scoredDocHeap) Less(i, j int) bool { return better(h[j], h[i]) }

func (h scoredDocHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *scoredDocHeap) Push(x interface{}) {
	*h = append(*h, x.(ScoredDoc))
}

func (h *scoredDocHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
