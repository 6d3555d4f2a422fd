package benchmark

import (
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/search-server/internal/indexer/tokenizer"
)

var sampleTexts = map[string]string{
	"short":  "the quick brown fox jumps over the lazy dog",
	"medium": "search engines keep an inverted index from each word to the documents containing it and rank documents by term frequency and inverse document frequency so that rare words weigh more than common ones",
	"long":   strings.Repeat("stop words are removed before indexing and every remaining word contributes its share of the document length to the term frequency table ", 20),
}

func BenchmarkTokenize(b *testing.B) {
	stop, err := tokenizer.NewStopWords("the", "and", "to", "of", "an", "it", "so")
	if err != nil {
		b.Fatal(err)
	}
	for name, text := range sampleTexts {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				if _, err := stop.Tokenize(text); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkTokenizeParallel(b *testing.B) {
	stop, err := tokenizer.ParseStopWords("the and to of")
	if err != nil {
		b.Fatal(err)
	}
	text := sampleTexts["medium"]
	b.ReportAllocs()
	b.SetBytes(int64(len(text)))
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_, _ = stop.Tokenize(text)
		}
	})
}

func BenchmarkSplitWords(b *testing.B) {
	text := sampleTexts["long"]
	b.ReportAllocs()
	b.SetBytes(int64(len(text)))
	for i := 0; i < b.N; i++ {
		_ = tokenizer.SplitWords(text)
	}
}
