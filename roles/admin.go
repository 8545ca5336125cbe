package roles

import (
	"github.com/sirupsen/logrus"
)

//Binding administration. Each operation mutates the binding table and then
//brings the join surface in line with it under the same guild lock, so the
//message never shows a binding that failed to persist.

//AddBinding links an emoji to a role and makes sure the join surface exists
//and reflects the new binding.
func (m *Manager) AddBinding(guildID, emoji, roleID string) error {
	lock := m.guildLock(guildID)
	lock.Lock()
	defer lock.Unlock()
	//Conflicts are rejected up front so the pre-bind reaction below cannot
	//leave a stray emoji on the message.
	if existing, ok := m.Bindings.Get(guildID, emoji); ok {
		if existing == roleID {
			return m.refreshJoinMessage(guildID)
		}
		return ErrEmojiBound
	}
	if _, ok := m.Bindings.EmojiFor(guildID, roleID); ok {
		return ErrRoleBound
	}
	//The join message identity predicate wants a reaction superset of the
	//binding table, so the new emoji has to land on the current message
	//before the table grows or the message would stop being recognised.
	m.reactOnCurrentMessage(guildID, emoji)
	if err := m.Bindings.Bind(guildID, emoji, roleID); err != nil {
		return err
	}
	return m.refreshJoinMessage(guildID)
}

//RemoveBinding drops whatever binding a role holds and clears its emoji from
//the join surface. The freed emoji is returned.
func (m *Manager) RemoveBinding(guildID, roleID string) (string, error) {
	lock := m.guildLock(guildID)
	lock.Lock()
	defer lock.Unlock()
	emoji, err := m.Bindings.Unbind(guildID, roleID)
	if err != nil {
		return "", err
	}
	return emoji, m.refreshJoinMessage(guildID)
}

//ChangeBindingEmoji moves a role's binding onto a new emoji and swaps the
//reactions on the join surface. The previous emoji is returned.
func (m *Manager) ChangeBindingEmoji(guildID, roleID, newEmoji string) (string, error) {
	lock := m.guildLock(guildID)
	lock.Lock()
	defer lock.Unlock()
	if _, ok := m.Bindings.EmojiFor(guildID, roleID); !ok {
		return "", ErrNotBound
	}
	if existing, ok := m.Bindings.Get(guildID, newEmoji); ok && existing != roleID {
		return "", ErrEmojiBound
	}
	//Same ordering concern as AddBinding: react first, then move the table.
	m.reactOnCurrentMessage(guildID, newEmoji)
	oldEmoji, err := m.Bindings.Rebind(guildID, roleID, newEmoji)
	if err != nil {
		return "", err
	}
	return oldEmoji, m.refreshJoinMessage(guildID)
}

//reactOnCurrentMessage adds an emoji to the guild's join message if one
//exists. Best effort; a missing surface is created later by the refresh.
func (m *Manager) reactOnCurrentMessage(guildID, emoji string) {
	hint, ok := m.channelHint(guildID)
	if !ok {
		return
	}
	message, err := m.locateJoinMessage(guildID, hint)
	if err != nil || message == nil {
		return
	}
	if err := m.session.MessageReactionAdd(hint, message.ID, emoji); err != nil {
		logrus.Warnf("Failed to add reaction %v to join message in guild %v due to error %v", emoji, guildID, err)
	}
}
