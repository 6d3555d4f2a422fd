package ingestion

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	apperrors "github.com/Adithya-Monish-Kumar-K/search-server/pkg/errors"
)

const maxRatings = 1 << 16

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Line   int
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		names = append(names, field)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, field := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", field, e.Fields[field]))
	}
	return fmt.Sprintf("line %d: %s", e.Line, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error {
	return apperrors.ErrInvalidArgument
}

// ValidateRecord checks the fields the engine does not check itself.
func ValidateRecord(rec *Record) error {
	errs := make(map[string]string)
	if rec.ID < 0 {
		errs["id"] = "id must not be negative"
	}
	if !utf8.ValidString(rec.Text) {
		errs["text"] = "text must be valid UTF-8"
	}
	if len(rec.Ratings) > maxRatings {
		errs["ratings"] = fmt.Sprintf("at most %d ratings are allowed", maxRatings)
	}
	if len(errs) > 0 {
		return &ValidationError{Line: rec.Line, Fields: errs}
	}
	return nil
}
