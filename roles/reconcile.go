package roles

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

const reactorPageSize = 100

//Reconcile replays the reactor drift a guild accumulated while the bot was
//offline. It is normally driven through GuildAvailable, which holds the
//guild lock across both the surface guarantee and this pass.
func (m *Manager) Reconcile(guildID string) error {
	lock := m.guildLock(guildID)
	lock.Lock()
	defer lock.Unlock()
	return m.reconcileLocked(guildID)
}

//reconcileLocked diffs the live reactor sets on the join message against the
//last persisted snapshot and pushes the difference through the same event
//path live notifications use. Caller holds the guild lock.
func (m *Manager) reconcileLocked(guildID string) error {
	channelID, messageID, err := m.ensureJoinChannel(guildID)
	if err != nil {
		return err
	}
	current, err := m.liveReactorSnapshot(guildID, channelID, messageID)
	if err != nil {
		return err
	}

	if !m.Snapshots.HasGuild(guildID) {
		//First run for this guild: there is no baseline to diff against, so
		//live state is trusted as-is and adopted as the new snapshot.
		logrus.Infof("No reactor baseline for guild %v, adopting live state", guildID)
		return m.Snapshots.ReplaceGuild(guildID, current)
	}
	previous := m.Snapshots.Reactors(guildID)

	for _, emoji := range unionKeys(current, previous) {
		was := stringSet(previous[emoji])
		is := stringSet(current[emoji])
		for _, member := range current[emoji] {
			if _, ok := was[member]; !ok {
				m.applyAdd(guildID, channelID, messageID, emoji, member)
			}
		}
		for _, member := range previous[emoji] {
			if _, ok := is[member]; !ok {
				m.applyRemove(guildID, channelID, messageID, emoji, member)
				m.pruneDepartedReactor(guildID, emoji, member)
			}
		}
	}
	//Each replayed event persisted its own snapshot change as it went, so
	//the store already reflects the live state; no bulk write needed.
	return nil
}

//pruneDepartedReactor drops a baseline entry for a member who left the guild
//entirely. Their reaction vanished along with their membership, so replay
//produced no event for them; their roles are deliberately left alone, but
//keeping them in the baseline would replay them forever.
func (m *Manager) pruneDepartedReactor(guildID, emoji, member string) {
	if !m.Snapshots.HasReactor(guildID, emoji, member) {
		return
	}
	if _, err := m.session.GuildMember(guildID, member); err == nil {
		//Still in the guild: the remove either succeeded (and already left
		//the snapshot) or failed and should be retried next pass.
		return
	}
	if err := m.Snapshots.RemoveReactor(guildID, emoji, member); err != nil {
		logrus.Warnf("Failed to drop departed reactor %v for emoji %v in guild %v due to error %v", member, emoji, guildID, err)
	}
}

//liveReactorSnapshot queries, for every reaction on the join message, the
//full list of reacting members. Reactors who are no longer guild members are
//dropped; the bot's own priming reactions are not member state and are
//excluded too.
func (m *Manager) liveReactorSnapshot(guildID, channelID, messageID string) (map[string][]string, error) {
	message, err := m.session.ChannelMessage(channelID, messageID)
	if err != nil {
		logrus.Warnf("Failed to fetch join message %v in guild %v due to error %v", messageID, guildID, err)
		return nil, fmt.Errorf("%w: %v", ErrSurfaceUnavailable, err)
	}
	snapshot := make(map[string][]string, len(message.Reactions))
	for _, reaction := range message.Reactions {
		if reaction.Emoji == nil {
			continue
		}
		emoji := reaction.Emoji.APIName()
		reactors, err := m.reactorsFor(guildID, channelID, messageID, emoji)
		if err != nil {
			return nil, err
		}
		snapshot[emoji] = reactors
	}
	return snapshot, nil
}

//reactorsFor pages through every member still in the guild who reacted with
//an emoji on the join message.
func (m *Manager) reactorsFor(guildID, channelID, messageID, emoji string) ([]string, error) {
	var reactors []string
	after := ""
	for {
		page, err := m.session.MessageReactions(channelID, messageID, emoji, reactorPageSize, "", after)
		if err != nil {
			logrus.Warnf("Failed to fetch reactors for emoji %v on join message in guild %v due to error %v", emoji, guildID, err)
			return nil, err
		}
		for _, user := range page {
			if user.ID == m.botID {
				continue
			}
			//A reactor who left the guild keeps their reaction but is not a
			//member any more; they are dropped rather than revoked.
			if _, err := m.session.GuildMember(guildID, user.ID); err != nil {
				logrus.Debugf("Dropping reactor %v in guild %v from snapshot due to error %v", user.ID, guildID, err)
				continue
			}
			reactors = append(reactors, user.ID)
		}
		if len(page) < reactorPageSize {
			return reactors, nil
		}
		after = page[len(page)-1].ID
	}
}

func unionKeys(a, b map[string][]string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	var keys []string
	for emoji := range a {
		if _, ok := seen[emoji]; !ok {
			seen[emoji] = struct{}{}
			keys = append(keys, emoji)
		}
	}
	for emoji := range b {
		if _, ok := seen[emoji]; !ok {
			seen[emoji] = struct{}{}
			keys = append(keys, emoji)
		}
	}
	return keys
}

func stringSet(members []string) map[string]struct{} {
	set := make(map[string]struct{}, len(members))
	for _, member := range members {
		set[member] = struct{}{}
	}
	return set
}
