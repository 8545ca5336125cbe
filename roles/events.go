package roles

import (
	"github.com/sirupsen/logrus"
)

//ReactionAdded applies a reaction-add notification. Live gateway events and
//synthetic events replayed by reconciliation both come through here.
func (m *Manager) ReactionAdded(guildID, channelID, messageID, emoji, userID string) {
	lock := m.guildLock(guildID)
	lock.Lock()
	defer lock.Unlock()
	m.applyAdd(guildID, channelID, messageID, emoji, userID)
}

//ReactionRemoved applies a reaction-remove notification, live or synthetic.
func (m *Manager) ReactionRemoved(guildID, channelID, messageID, emoji, userID string) {
	lock := m.guildLock(guildID)
	lock.Lock()
	defer lock.Unlock()
	m.applyRemove(guildID, channelID, messageID, emoji, userID)
}

//ReactionsCleared handles all reactions being wiped from a message at once.
//A join message stripped of its reactions no longer satisfies the identity
//predicate, so this is treated as message destruction and the surface is
//rebuilt immediately.
func (m *Manager) ReactionsCleared(guildID, channelID, messageID string) {
	lock := m.guildLock(guildID)
	lock.Lock()
	defer lock.Unlock()
	hint, ok := m.channelHint(guildID)
	if !ok || hint != channelID {
		return
	}
	if _, err := m.ensureJoinMessage(guildID, channelID); err != nil {
		logrus.Warnf("Failed to rebuild join message in guild %v after reactions were cleared due to error %v", guildID, err)
	}
}

//MessageDeleted recreates the join message if it was the one deleted.
func (m *Manager) MessageDeleted(guildID, channelID, messageID string) {
	lock := m.guildLock(guildID)
	lock.Lock()
	defer lock.Unlock()
	hint, ok := m.channelHint(guildID)
	if !ok || hint != channelID {
		return
	}
	if cached, ok := m.cachedJoinMessage(guildID); ok && cached == messageID {
		m.cacheJoinMessage(guildID, "")
	}
	if _, err := m.ensureJoinMessage(guildID, channelID); err != nil {
		logrus.Warnf("Failed to rebuild join message in guild %v after a deletion due to error %v", guildID, err)
	}
}

//ChannelDeleted recreates the whole join surface if the join channel was
//deleted.
func (m *Manager) ChannelDeleted(guildID, channelID string) {
	lock := m.guildLock(guildID)
	lock.Lock()
	defer lock.Unlock()
	hint, ok := m.channelHint(guildID)
	if !ok || hint != channelID {
		return
	}
	m.cacheJoinMessage(guildID, "")
	if _, _, err := m.ensureJoinChannel(guildID); err != nil {
		logrus.Warnf("Failed to recreate join channel for guild %v due to error %v", guildID, err)
	}
}

//GuildAvailable runs when a guild comes online at startup or when the bot
//joins a new guild: the join surface is guaranteed and drift accumulated
//while offline is reconciled before any live event for the guild can take
//the lock.
func (m *Manager) GuildAvailable(guildID string) {
	lock := m.guildLock(guildID)
	lock.Lock()
	defer lock.Unlock()
	if _, _, err := m.ensureJoinChannel(guildID); err != nil {
		logrus.Warnf("Failed to guarantee join surface for guild %v due to error %v", guildID, err)
		return
	}
	if err := m.reconcileLocked(guildID); err != nil {
		logrus.Warnf("Failed to reconcile reactor drift for guild %v due to error %v", guildID, err)
	}
}

//BotRenamed refreshes the join message text after the bot's own display name
//changed. Content only; the reaction set is left alone.
func (m *Manager) BotRenamed(guildID string) {
	lock := m.guildLock(guildID)
	lock.Lock()
	defer lock.Unlock()
	hint, ok := m.channelHint(guildID)
	if !ok {
		return
	}
	message, err := m.locateJoinMessage(guildID, hint)
	if err != nil || message == nil {
		return
	}
	content, err := m.renderJoinMessage(guildID)
	if err != nil {
		return
	}
	if _, err := m.session.ChannelMessageEdit(hint, message.ID, content); err != nil {
		logrus.Warnf("Failed to refresh join message text in guild %v due to error %v", guildID, err)
	}
}

//applyAdd is the single code path deciding what a reaction add means. Caller
//holds the guild lock.
func (m *Manager) applyAdd(guildID, channelID, messageID, emoji, userID string) {
	if !m.onJoinMessage(guildID, channelID, messageID) {
		return
	}
	if userID == m.botID {
		return
	}
	roleID, bound := m.Bindings.Get(guildID, emoji)
	if !bound {
		//Unbound emoji are not allowed to linger on the join message.
		logrus.Infof("Member %v reacted with unbound emoji %v in guild %v, removing reaction", userID, emoji, guildID)
		if err := m.session.MessageReactionRemove(channelID, messageID, emoji, userID); err != nil {
			logrus.Warnf("Failed to remove unbound reaction %v by member %v in guild %v due to error %v", emoji, userID, guildID, err)
		}
		return
	}
	if err := m.session.GuildMemberRoleAdd(guildID, userID, roleID); err != nil {
		//Snapshot deliberately left untouched so a later reconciliation
		//retries the grant.
		logrus.Warnf("Failed to grant role %v to member %v in guild %v for emoji %v due to error %v", roleID, userID, guildID, emoji, err)
		return
	}
	if err := m.Snapshots.AddReactor(guildID, emoji, userID); err != nil {
		logrus.Warnf("Failed to record reactor %v for emoji %v in guild %v due to error %v", userID, emoji, guildID, err)
		return
	}
	logrus.Infof("Granted role %v to member %v in guild %v for emoji %v", roleID, userID, guildID, emoji)
}

//applyRemove is the single code path deciding what a reaction remove means.
//Caller holds the guild lock.
func (m *Manager) applyRemove(guildID, channelID, messageID, emoji, userID string) {
	if !m.onJoinMessage(guildID, channelID, messageID) {
		return
	}
	if userID == m.botID {
		return
	}
	roleID, bound := m.Bindings.Get(guildID, emoji)
	if !bound {
		logrus.Debugf("Member %v removed unbound emoji %v in guild %v, nothing to revoke", userID, emoji, guildID)
		return
	}
	if !m.memberHoldsRole(guildID, userID, roleID) {
		return
	}
	if err := m.session.GuildMemberRoleRemove(guildID, userID, roleID); err != nil {
		logrus.Warnf("Failed to revoke role %v from member %v in guild %v for emoji %v due to error %v", roleID, userID, guildID, emoji, err)
		return
	}
	if err := m.Snapshots.RemoveReactor(guildID, emoji, userID); err != nil {
		logrus.Warnf("Failed to drop reactor %v for emoji %v in guild %v due to error %v", userID, emoji, guildID, err)
		return
	}
	logrus.Infof("Revoked role %v from member %v in guild %v for emoji %v", roleID, userID, guildID, emoji)
}

//onJoinMessage is the identity check guarding every event: the reaction must
//sit on the guild's current join message.
func (m *Manager) onJoinMessage(guildID, channelID, messageID string) bool {
	hint, ok := m.channelHint(guildID)
	if !ok || hint != channelID {
		return false
	}
	message, err := m.locateJoinMessage(guildID, channelID)
	if err != nil || message == nil {
		return false
	}
	return message.ID == messageID
}

//memberHoldsRole reports whether a member currently has a role. A member who
//cannot be resolved any more is treated as holding nothing.
func (m *Manager) memberHoldsRole(guildID, userID, roleID string) bool {
	member, err := m.session.GuildMember(guildID, userID)
	if err != nil {
		logrus.Debugf("Failed to resolve member %v in guild %v due to error %v", userID, guildID, err)
		return false
	}
	for _, held := range member.Roles {
		if held == roleID {
			return true
		}
	}
	return false
}
