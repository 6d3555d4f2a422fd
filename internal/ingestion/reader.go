package ingestion

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/search-server/internal/indexer"
	apperrors "github.com/Adithya-Monish-Kumar-K/search-server/pkg/errors"
)

const defaultMaxLineBytes = 1 << 20

// Reader parses document lines one record at a time.
type Reader struct {
	scanner *bufio.Scanner
	line    int
}

// NewReader reads from r. Lines longer than maxLineBytes fail; a
// non-positive value selects 1 MiB.
func NewReader(r io.Reader, maxLineBytes int) *Reader {
	return &Reader{scanner: newScanner(r, maxLineBytes)}
}

func newScanner(r io.Reader, maxLineBytes int) *bufio.Scanner {
	if maxLineBytes <= 0 {
		maxLineBytes = defaultMaxLineBytes
	}
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, min(maxLineBytes, 64*1024)), maxLineBytes)
	return s
}

// Next returns the next record, or io.EOF once the input is exhausted.
func (r *Reader) Next() (Record, error) {
	for r.scanner.Scan() {
		r.line++
		text := strings.TrimSuffix(r.scanner.Text(), "\r")
		if strings.TrimSpace(text) == "" || strings.HasPrefix(text, "#") {
			continue
		}
		rec, err := parseLine(r.line, text)
		if err != nil {
			return Record{}, err
		}
		if err := ValidateRecord(&rec); err != nil {
			return Record{}, err
		}
		return rec, nil
	}
	if err := r.scanner.Err(); err != nil {
		return Record{}, fmt.Errorf("line %d: %w", r.line+1, err)
	}
	return Record{}, io.EOF
}

func parseLine(line int, text string) (Record, error) {
	fields := strings.SplitN(text, "\t", 4)
	if len(fields) != 4 {
		return Record{}, apperrors.Newf(apperrors.ErrInvalidArgument,
			"line %d: expected 4 tab-separated fields, got %d", line, len(fields))
	}
	rec := Record{Line: line, Text: fields[3]}

	id, err := strconv.Atoi(strings.TrimSpace(fields[0]))
	if err != nil {
		return Record{}, apperrors.Newf(apperrors.ErrInvalidArgument, "line %d: bad id %q", line, fields[0])
	}
	rec.ID = id

	if s := strings.TrimSpace(fields[1]); s != "" {
		status, err := indexer.ParseStatus(s)
		if err != nil {
			return Record{}, fmt.Errorf("line %d: %w", line, err)
		}
		rec.Status = status
	}

	if s := strings.TrimSpace(fields[2]); s != "" {
		parts := strings.Split(s, ",")
		rec.Ratings = make([]int, 0, len(parts))
		for _, p := range parts {
			r, err := strconv.Atoi(strings.TrimSpace(p))
			if err != nil {
				return Record{}, apperrors.Newf(apperrors.ErrInvalidArgument, "line %d: bad rating %q", line, p)
			}
			rec.Ratings = append(rec.Ratings, r)
		}
	}
	return rec, nil
}

// LoadInto adds every record from r to engine and returns how many were
// added. It stops at the first failure; the error names the line.
func LoadInto(r *Reader, engine DocumentAdder) (int, error) {
	logger := slog.Default().With("component", "ingestion")
	added := 0
	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return added, err
		}
		if err := engine.AddDocument(rec.ID, rec.Text, rec.Status, rec.Ratings); err != nil {
			return added, fmt.Errorf("line %d: %w", rec.Line, err)
		}
		added++
	}
	logger.Info("documents loaded", "count", added, "lines", r.line)
	return added, nil
}

// ReadQueries returns one query per non-blank line of r.
func ReadQueries(r io.Reader, maxLineBytes int) ([]string, error) {
	s := newScanner(r, maxLineBytes)
	queries := make([]string, 0)
	line := 0
	for s.Scan() {
		line++
		q := strings.TrimSuffix(s.Text(), "\r")
		if strings.TrimSpace(q) == "" {
			continue
		}
		queries = append(queries, q)
	}
	if err := s.Err(); err != nil {
		return queries, fmt.Errorf("reading queries at line %d: %w", line+1, err)
	}
	return queries, nil
}
