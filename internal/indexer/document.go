package indexer

import (
	"fmt"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/search-server/pkg/errors"
)

// DocumentStatus is the caller-assigned classification of a document.
type DocumentStatus int

const (
	StatusActual DocumentStatus = iota
	StatusIrrelevant
	StatusBanned
	StatusRemoved
)

var statusNames = [...]string{
	StatusActual:     "ACTUAL",
	StatusIrrelevant: "IRRELEVANT",
	StatusBanned:     "BANNED",
	StatusRemoved:    "REMOVED",
}

func (s DocumentStatus) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return fmt.Sprintf("DocumentStatus(%d)", int(s))
	}
	return statusNames[s]
}

// ParseStatus accepts a status name in any letter case.
func ParseStatus(name string) (DocumentStatus, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	for i, n := range statusNames {
		if n == upper {
			return DocumentStatus(i), nil
		}
	}
	return 0, apperrors.Newf(apperrors.ErrInvalidArgument, "unknown document status %q", name)
}

func (s DocumentStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *DocumentStatus) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Strategy selects how an operation spreads its work.
type Strategy int

const (
	// Sequential runs the whole operation on the calling goroutine.
	Sequential Strategy = iota
	// Parallel fans the operation's independent steps out to a worker pool.
	Parallel
)

func (s Strategy) String() string {
	switch s {
	case Sequential:
		return "sequential"
	case Parallel:
		return "parallel"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// ParseStrategy accepts "sequential" or "parallel".
func ParseStrategy(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sequential", "seq":
		return Sequential, nil
	case "parallel", "par":
		return Parallel, nil
	default:
		return 0, apperrors.Newf(apperrors.ErrInvalidArgument, "unknown strategy %q", name)
	}
}

// Predicate decides whether a matching document may appear in results. It
// may be called from several goroutines at once under the Parallel strategy.
type Predicate func(id int, status DocumentStatus, rating int) bool

// StatusIs keeps documents with the given status.
func StatusIs(status DocumentStatus) Predicate {
	return func(_ int, s DocumentStatus, _ int) bool {
		return s == status
	}
}

// DocumentInfo is the engine's stored view of a document.
type DocumentInfo struct {
	ID     int            `json:"id"`
	Status DocumentStatus `json:"status"`
	Rating int            `json:"rating"`
	Text   string         `json:"text"`
}

// AverageRating is the truncating integer mean of ratings, 0 when empty.
func AverageRating(ratings []int) int {
	if len(ratings) == 0 {
		return 0
	}
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	return sum / len(ratings)
}
