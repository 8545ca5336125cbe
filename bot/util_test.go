package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterpretEmojiUnicode(t *testing.T) {
	emoji := interpretEmoji("🎮")
	require.NotNil(t, emoji)
	assert.Equal(t, "🎮", *emoji)
}

func TestInterpretEmojiCustom(t *testing.T) {
	emoji := interpretEmoji("<:blobwave:123456789>")
	require.NotNil(t, emoji)
	assert.Equal(t, "blobwave:123456789", *emoji)
}

func TestInterpretEmojiAnimated(t *testing.T) {
	emoji := interpretEmoji("<a:partyblob:987654321>")
	require.NotNil(t, emoji)
	assert.Equal(t, "partyblob:987654321", *emoji)
}

func TestInterpretEmojiEmpty(t *testing.T) {
	assert.Nil(t, interpretEmoji(""))
}

func TestRoleNameFromArg(t *testing.T) {
	assert.Equal(t, "Gamers", roleNameFromArg("Gamers"))
	assert.Equal(t, "Table Top", roleNameFromArg(`"Table Top"`))
	assert.Equal(t, "Gamers", roleNameFromArg("  Gamers  "))
}

func TestAddRoleArgsRegex(t *testing.T) {
	matches := addRoleArgsRegex.FindStringSubmatch(`-n "Table Top" 🎲`)
	require.NotNil(t, matches)
	assert.Equal(t, "-n", matches[1])
	assert.Equal(t, `"Table Top"`, matches[2])
	assert.Equal(t, "🎲", matches[3])

	matches = addRoleArgsRegex.FindStringSubmatch("Gamers 🎮")
	require.NotNil(t, matches)
	assert.Empty(t, matches[1])
	assert.Equal(t, "Gamers", matches[2])
	assert.Equal(t, "🎮", matches[3])

	matches = addRoleArgsRegex.FindStringSubmatch("<@&12345> 🎮")
	require.NotNil(t, matches)
	assert.Equal(t, "<@&12345>", matches[2])

	assert.Nil(t, addRoleArgsRegex.FindStringSubmatch("Gamers"))
}

func TestRemoveRoleArgsRegex(t *testing.T) {
	matches := removeRoleArgsRegex.FindStringSubmatch(`"Table Top"`)
	require.NotNil(t, matches)
	assert.Equal(t, `"Table Top"`, matches[1])

	assert.Nil(t, removeRoleArgsRegex.FindStringSubmatch("one two"))
}

func TestChangeEmojiArgsRegex(t *testing.T) {
	matches := changeEmojiArgsRegex.FindStringSubmatch("Gamers 🕹")
	require.NotNil(t, matches)
	assert.Equal(t, "Gamers", matches[1])
	assert.Equal(t, "🕹", matches[2])

	assert.Nil(t, changeEmojiArgsRegex.FindStringSubmatch("Gamers"))
}
