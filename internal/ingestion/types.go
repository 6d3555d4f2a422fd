// Package ingestion reads documents and queries from line-oriented text.
//
// A document line is
//
//	id<TAB>status<TAB>r1,r2,...<TAB>text
//
// where an empty status means ACTUAL and an empty rating list means no
// ratings. Blank lines and lines starting with '#' are skipped.
package ingestion

import "github.com/Adithya-Monish-Kumar-K/search-server/internal/indexer"

// Record is one parsed document line.
type Record struct {
	Line    int
	ID      int
	Status  indexer.DocumentStatus
	Ratings []int
	Text    string
}

// DocumentAdder is the part of *indexer.Engine the loader needs.
type DocumentAdder interface {
	AddDocument(id int, text string, status indexer.DocumentStatus, ratings []int) error
}
