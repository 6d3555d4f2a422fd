package index

// TermID is the stable handle of an interned term.
type TermID int

// PostingList maps a document id to the term's frequency in that document.
type PostingList map[int]float64

// TermFreqs maps a term handle to its frequency in one document.
type TermFreqs map[TermID]float64

// TermEntry is a term and its posting list, used for snapshots.
type TermEntry struct {
	Term     string
	Postings PostingList
}
