package index

import "sync"

// TermTable stores each unique term once and hands out stable integer
// handles. Handles are never reused, even after every document containing
// the term is removed.
type TermTable struct {
	mu    sync.RWMutex
	ids   map[string]TermID
	terms []string
}

func NewTermTable() *TermTable {
	return &TermTable{ids: make(map[string]TermID)}
}

// Intern returns the handle for term, allocating one if needed. The table
// keeps its own copy of term so callers may pass substrings of large texts.
func (t *TermTable) Intern(term string) TermID {
	t.mu.RLock()
	id, ok := t.ids[term]
	t.mu.RUnlock()
	if ok {
		return id
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if id, ok := t.ids[term]; ok {
		return id
	}
	owned := string([]byte(term))
	id = TermID(len(t.terms))
	t.terms = append(t.terms, owned)
	t.ids[owned] = id
	return id
}

// Lookup returns the handle for term without allocating one.
func (t *TermTable) Lookup(term string) (TermID, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	id, ok := t.ids[term]
	return id, ok
}

// Term returns the text of a handle.
func (t *TermTable) Term(id TermID) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.terms[id]
}

func (t *TermTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.terms)
}
