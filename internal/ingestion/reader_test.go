package ingestion

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/search-server/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/search-server/pkg/errors"
)

const corpus = "# id\tstatus\tratings\ttext\n" +
	"1\tACTUAL\t7,2,7\tfunny pet and nasty rat\n" +
	"\n" +
	"2\t\t\tfunny pet with curly hair\r\n" +
	"3\tbanned\t-1\tnasty rat\twith a tab\n"

func TestReaderParsesRecords(t *testing.T) {
	r := NewReader(strings.NewReader(corpus), 0)

	rec, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, Record{Line: 2, ID: 1, Status: indexer.StatusActual, Ratings: []int{7, 2, 7}, Text: "funny pet and nasty rat"}, rec)

	rec, err = r.Next()
	require.NoError(t, err)
	assert.Equal(t, 4, rec.Line)
	assert.Equal(t, indexer.StatusActual, rec.Status)
	assert.Nil(t, rec.Ratings)
	assert.Equal(t, "funny pet with curly hair", rec.Text)

	rec, err = r.Next()
	require.NoError(t, err)
	assert.Equal(t, indexer.StatusBanned, rec.Status)
	assert.Equal(t, []int{-1}, rec.Ratings)
	assert.Equal(t, "nasty rat\twith a tab", rec.Text)

	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestReaderRejectsMalformedLines(t *testing.T) {
	cases := map[string]string{
		"missing fields": "1\tACTUAL\n",
		"bad id":         "x\tACTUAL\t\ttext\n",
		"bad status":     "1\tDELETED\t\ttext\n",
		"bad rating":     "1\t\t1,two\ttext\n",
		"negative id":    "-4\t\t\ttext\n",
		"invalid utf8":   "1\t\t\t\xff\xfe\n",
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewReader(strings.NewReader(input), 0).Next()
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)
			assert.Contains(t, err.Error(), "line 1")
		})
	}
}

func TestValidationErrorListsFields(t *testing.T) {
	err := ValidateRecord(&Record{Line: 9, ID: -1, Text: "\xff"})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Fields, 2)
	assert.Equal(t, "line 9: id: id must not be negative; text: text must be valid UTF-8", err.Error())
}

func TestReaderLineTooLong(t *testing.T) {
	input := "1\t\t\t" + strings.Repeat("a", 100) + "\n"
	_, err := NewReader(strings.NewReader(input), 32).Next()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 1")
}

func TestLoadInto(t *testing.T) {
	e, err := indexer.NewEngine(config.EngineConfig{StopWords: []string{"and", "with"}}, nil)
	require.NoError(t, err)

	n, err := LoadInto(NewReader(strings.NewReader(corpus), 0), e)
	require.Error(t, err)
	assert.Equal(t, 2, n)
	assert.ErrorIs(t, err, apperrors.ErrInvalidWord)
	assert.Contains(t, err.Error(), "line 5")

	assert.Equal(t, []int{1, 2}, e.DocumentIDs())
	info, err := e.GetDocument(1)
	require.NoError(t, err)
	assert.Equal(t, 5, info.Rating)
}

func TestLoadIntoStopsOnDuplicate(t *testing.T) {
	e, err := indexer.NewEngine(config.EngineConfig{}, nil)
	require.NoError(t, err)
	input := "1\t\t\tcat\n2\t\t\tdog\n1\t\t\tbird\n"

	n, err := LoadInto(NewReader(strings.NewReader(input), 0), e)
	assert.Equal(t, 2, n)
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)
	assert.Contains(t, err.Error(), "line 3")
}

func TestReadQueries(t *testing.T) {
	qs, err := ReadQueries(strings.NewReader("curly dog\n\n  \n-rat pet\r\n#hashtag\n"), 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"curly dog", "-rat pet", "#hashtag"}, qs)

	qs, err = ReadQueries(strings.NewReader(""), 0)
	require.NoError(t, err)
	assert.Empty(t, qs)
}
