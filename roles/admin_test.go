package roles

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddBindingBuildsSurfaceForFirstBinding(t *testing.T) {
	env := newTestEnv(t)
	env.session.addRole("guild-1", "role-student", "Student")

	require.NoError(t, env.manager.AddBinding("guild-1", "📚", "role-student"))

	channelID, ok := env.manager.channelHint("guild-1")
	require.True(t, ok, "the first binding must create the join surface")
	messageID, ok := env.manager.cachedJoinMessage("guild-1")
	require.True(t, ok)

	message, err := env.session.ChannelMessage(channelID, messageID)
	require.NoError(t, err)
	assert.Contains(t, message.Content, "Student")
	assert.Contains(t, message.Content, "📚")
	assert.Equal(t, []string{testBotID}, env.session.messageReactions(channelID, messageID, "📚"))
}

func TestAddBindingKeepsTheExistingJoinMessage(t *testing.T) {
	env, channelID, messageID := setupBoundGuild(t)
	env.session.addRole("guild-1", "role-student", "Student")

	sentBefore := env.session.messagesSent
	require.NoError(t, env.manager.AddBinding("guild-1", "📚", "role-student"))

	//The new emoji lands on the current message before the table grows, so
	//the message keeps satisfying the identity predicate and is reused.
	assert.Equal(t, sentBefore, env.session.messagesSent, "adding a binding must never duplicate the join message")
	cached, ok := env.manager.cachedJoinMessage("guild-1")
	require.True(t, ok)
	assert.Equal(t, messageID, cached)

	message, err := env.session.ChannelMessage(channelID, messageID)
	require.NoError(t, err)
	assert.Contains(t, message.Content, "Student")
	assert.Equal(t, []string{testBotID}, env.session.messageReactions(channelID, messageID, "📚"))
	assert.Equal(t, []string{testBotID}, env.session.messageReactions(channelID, messageID, "🎮"))
}

func TestAddBindingRejectsConflictsWithoutTouchingTheMessage(t *testing.T) {
	env, channelID, messageID := setupBoundGuild(t)
	env.session.addRole("guild-1", "role-student", "Student")

	assert.ErrorIs(t, env.manager.AddBinding("guild-1", "🎮", "role-student"), ErrEmojiBound)
	assert.ErrorIs(t, env.manager.AddBinding("guild-1", "😀", "role-gamer"), ErrRoleBound)

	//A rejected binding must not leave a stray reaction behind.
	assert.Empty(t, env.session.messageReactions(channelID, messageID, "😀"))
}

func TestAddBindingIdenticalBindingSucceeds(t *testing.T) {
	env, _, _ := setupBoundGuild(t)
	assert.NoError(t, env.manager.AddBinding("guild-1", "🎮", "role-gamer"))
}

func TestRemoveBindingClearsTheEmoji(t *testing.T) {
	env, channelID, messageID := setupBoundGuild(t)
	env.session.react(channelID, messageID, "🎮", "alice")

	emoji, err := env.manager.RemoveBinding("guild-1", "role-gamer")
	require.NoError(t, err)
	assert.Equal(t, "🎮", emoji)

	//The emoji is cleared for every reactor at once, members included.
	assert.Empty(t, env.session.messageReactions(channelID, messageID, "🎮"))
	_, bound := env.manager.Bindings.Get("guild-1", "🎮")
	assert.False(t, bound)

	_, err = env.manager.RemoveBinding("guild-1", "role-gamer")
	assert.ErrorIs(t, err, ErrNotBound)
}

func TestChangeBindingEmojiSwapsTheReactions(t *testing.T) {
	env, channelID, messageID := setupBoundGuild(t)

	oldEmoji, err := env.manager.ChangeBindingEmoji("guild-1", "role-gamer", "🕹")
	require.NoError(t, err)
	assert.Equal(t, "🎮", oldEmoji)

	cached, ok := env.manager.cachedJoinMessage("guild-1")
	require.True(t, ok)
	assert.Equal(t, messageID, cached, "swapping an emoji must reuse the join message")
	assert.Empty(t, env.session.messageReactions(channelID, messageID, "🎮"))
	assert.Equal(t, []string{testBotID}, env.session.messageReactions(channelID, messageID, "🕹"))

	role, bound := env.manager.Bindings.Get("guild-1", "🕹")
	require.True(t, bound)
	assert.Equal(t, "role-gamer", role)
}

func TestChangeBindingEmojiRejectsBadTargets(t *testing.T) {
	env, channelID, messageID := setupBoundGuild(t)
	env.session.addRole("guild-1", "role-student", "Student")
	require.NoError(t, env.manager.AddBinding("guild-1", "📚", "role-student"))

	_, err := env.manager.ChangeBindingEmoji("guild-1", "role-unknown", "😀")
	assert.ErrorIs(t, err, ErrNotBound)
	_, err = env.manager.ChangeBindingEmoji("guild-1", "role-gamer", "📚")
	assert.ErrorIs(t, err, ErrEmojiBound)

	//Neither rejection may leave a stray reaction.
	assert.Empty(t, env.session.messageReactions(channelID, messageID, "😀"))
	assert.Equal(t, []string{testBotID}, env.session.messageReactions(channelID, messageID, "📚"))
}
