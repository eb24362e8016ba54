package index

import (
	"fmt"
	"io"
	"os"
	"testing"
)

// BenchmarkParse measures decoding the Sphinx sample with and without
// schema validation.
func BenchmarkParse(b *testing.B) {
	data, err := os.ReadFile("testdata/searchindex.js")
	if err != nil {
		b.Fatal(err)
	}
	for _, validate := range []bool{true, false} {
		b.Run(fmt.Sprintf("schema_%t", validate), func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(data)))
			for i := 0; i < b.N; i++ {
				if _, err := Parse(data, WithSchemaValidation(validate)); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkBuilderAdd measures per-document insert throughput.
func BenchmarkBuilderAdd(b *testing.B) {
	bld := NewBuilder(nil)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		bld.AddDocument(Document{Title: "benchmark title", Path: fmt.Sprintf("doc-%d.html", i)},
			"this is a benchmark document with several terms for measuring builder throughput")
	}
}

func buildCorpus(n int) *Index {
	terms := []string{"distributed", "search", "analytics", "platform", "indexing", "query", "engine", "ranking"}
	bld := NewBuilder(nil)
	for i := 0; i < n; i++ {
		bld.AddDocument(
			Document{
				Title: fmt.Sprintf("document about %s and %s", terms[i%len(terms)], terms[(i+1)%len(terms)]),
				Path:  fmt.Sprintf("doc-%d.html", i),
			},
			fmt.Sprintf("this document covers %s %s %s in production systems",
				terms[i%len(terms)], terms[(i+2)%len(terms)], terms[(i+3)%len(terms)]),
		)
	}
	return bld.Build()
}

// BenchmarkLookupParallel measures concurrent read throughput over 10 000
// documents.
func BenchmarkLookupParallel(b *testing.B) {
	idx := buildCorpus(10000)
	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = idx.Lookup("search")
		}
	})
}

func BenchmarkEncode(b *testing.B) {
	idx := buildCorpus(5000)
	for _, d := range []Dialect{DialectGeneric, DialectSphinx} {
		b.Run(string(d), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if err := Encode(io.Discard, idx, d); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
