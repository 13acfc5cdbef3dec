package search

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile_EmptyAcceptsEverything(t *testing.T) {
	m, err := Compile("")
	require.NoError(t, err)
	assert.False(t, m.Active())
	assert.Empty(t, m.Term())
	assert.True(t, m.Match(""))
	assert.True(t, m.Match("anything at all"))
}

func TestCompile_RegexSemantics(t *testing.T) {
	ts := time.Date(2024, 1, 15, 10, 30, 45, 0, time.UTC)
	path := "/data/2024-01-15T103045_a1b2c3d4-qubit_run"

	tests := []struct {
		term string
		want bool
	}{
		{term: "qubit", want: true},
		{term: "2024.*run", want: true},
		{term: "run.*2024-01-15 10", want: true},
		{term: "^/data", want: true},
		{term: "^qubit", want: false},
		{term: "a1b2[c-d]3", want: true},
		{term: "ramsey|qubit", want: true},
		{term: "ramsey", want: false},
		{term: "10:30:45", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			m, err := Compile(tt.term)
			require.NoError(t, err)
			assert.Equal(t, tt.want, m.MatchDataset(path, ts))
		})
	}
}

func TestCompile_MetacharactersAreNotLiteral(t *testing.T) {
	m, err := Compile("2024.*run")
	require.NoError(t, err)

	// the literal text "2024.*run" is absent, but the pattern matches
	assert.True(t, m.Match("2024-01-15 calibration run"))
	assert.False(t, m.Match("run 2024"))
}

func TestCompile_KeepsTerm(t *testing.T) {
	m, err := Compile("2024.*run")
	require.NoError(t, err)
	assert.True(t, m.Active())
	assert.Equal(t, "2024.*run", m.Term())
}

func TestCompile_InvalidPattern(t *testing.T) {
	_, err := Compile("run(")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidPattern)
}

func TestText(t *testing.T) {
	ts := time.Date(2024, 1, 15, 9, 5, 3, 0, time.UTC)
	assert.Equal(t, "/d/x 2024-01-15 09:05:03", Text("/d/x", ts))
}
