package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScore(t *testing.T) {
	a, b, err := parseScore("6-2")
	require.NoError(t, err)
	assert.Equal(t, 6, a)
	assert.Equal(t, 2, b)

	a, b, err = parseScore(" 11 - 13 ")
	require.NoError(t, err)
	assert.Equal(t, 11, a)
	assert.Equal(t, 13, b)

	for _, bad := range []string{"", "62", "six-two", "6-"} {
		_, _, err := parseScore(bad)
		assert.Error(t, err, bad)
	}
}

func TestMatchPath(t *testing.T) {
	t.Cleanup(func() { doubles = false })

	assert.Equal(t, "/clubs/c1/pending_matches/m1", matchPath([]string{"c1", "m1"}))
	doubles = true
	assert.Equal(t, "/clubs/c1/pending_doubles/m1", matchPath([]string{"c1", "m1"}))
}
