package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringListRoundTrip(t *testing.T) {
	// Trailing delimiters leave empty entries; they survive the round trip.
	original := StringList{"go", "sql", ""}

	v, err := original.Value()
	require.NoError(t, err)
	assert.Equal(t, "go,sql,", v)

	var decoded StringList
	require.NoError(t, decoded.Scan(v))
	assert.Equal(t, original, decoded)
}

func TestStringListEmpty(t *testing.T) {
	v, err := StringList(nil).Value()
	require.NoError(t, err)
	assert.Nil(t, v)

	var decoded StringList
	require.NoError(t, decoded.Scan(nil))
	assert.Nil(t, decoded)
}

func TestParseArticleLevel(t *testing.T) {
	level, err := ParseArticleLevel(" Beginner ")
	require.NoError(t, err)
	assert.Equal(t, LevelBeginner, level)

	_, err = ParseArticleLevel("wizard")
	assert.Error(t, err)
}
