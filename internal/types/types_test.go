package types

import (
	"errors"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
)

func TestRowEqual(t *testing.T) {
	a := NewRow("ID", "Name")
	b := Row{{Value: "ID", Highlight: true}, {Value: "Name", Mark: MarkBad}}

	assert.True(t, a.Equal(b), "equality ignores presentation state")
	assert.False(t, a.Equal(NewRow("ID")))
	assert.False(t, a.Equal(NewRow("ID", "name")))
}

func TestTableCloneIsDeep(t *testing.T) {
	orig := NewTable([][]string{{"h1", "h2"}, {"1", "2"}})
	cp := orig.Clone()
	cp[1][0].Value = "changed"
	cp[0] = append(cp[0], Cell{Value: "extra"})

	assert.Equal(t, "1", orig[1][0].Value)
	assert.Len(t, orig[0], 2)
}

func TestTableHeader(t *testing.T) {
	assert.Nil(t, Table{}.Header())
	assert.Equal(t, []string{"a"}, NewTable([][]string{{"a"}, {"b"}}).Header().Values())
}

func TestMarkRoundTrip(t *testing.T) {
	for _, m := range []Mark{MarkNone, MarkGood, MarkBad} {
		assert.Equal(t, m, ParseMark(m.String()))
	}
	assert.Equal(t, MarkNone, ParseMark("purple"))
}

func TestErrorsMatchThroughWrap(t *testing.T) {
	err := eris.Wrap(ErrInvalidURL, "merge: submission 3")
	assert.True(t, errors.Is(err, ErrInvalidURL))
	assert.False(t, errors.Is(err, ErrFetchFailure))
}

func TestKind(t *testing.T) {
	assert.Equal(t, "", Kind(nil))
	assert.Equal(t, "InvalidUrl", Kind(eris.Wrap(ErrInvalidURL, "x")))
	assert.Equal(t, "SourceSheetMissing", Kind(eris.Wrapf(ErrSourceSheetMissing, "doc %s", "a")))
	assert.Equal(t, "FetchFailure", Kind(ErrFetchFailure))
	assert.Equal(t, "InvalidRate", Kind(eris.Wrap(ErrInvalidRate, "x")))
	assert.Equal(t, "InvalidReportUrl", Kind(eris.Wrap(ErrInvalidReportURL, "x")))
	assert.Equal(t, "Error", Kind(errors.New("other")))
}
