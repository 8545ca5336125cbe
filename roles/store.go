package roles

import (
	"sync"

	"github.com/sirupsen/logrus"
)

//BindingStore holds the emoji -> role binding tables for every guild. Within
//a guild the relation is a partial bijection: an emoji maps to at most one
//role and a role owns at most one emoji. Every successful mutation has been
//persisted before it becomes visible; a failed save leaves the previous table
//in place.
type BindingStore struct {
	mu      sync.Mutex
	storage Storage
	byGuild map[string]map[string]string
}

//LoadBindingStore builds a BindingStore from whatever the storage collaborator
//has persisted.
func LoadBindingStore(storage Storage) (*BindingStore, error) {
	tables, err := storage.LoadBindings()
	if err != nil {
		logrus.Errorf("Failed to load emoji role bindings due to error %v", err)
		return nil, err
	}
	if tables == nil {
		tables = make(map[string]map[string]string)
	}
	return &BindingStore{
		storage: storage,
		byGuild: tables,
	}, nil
}

//Get returns the role bound to an emoji in a guild, if any.
func (s *BindingStore) Get(guildID, emoji string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	role, ok := s.byGuild[guildID][emoji]
	return role, ok
}

//EmojiFor returns the emoji bound to a role in a guild, if any.
func (s *BindingStore) EmojiFor(guildID, roleID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return emojiForLocked(s.byGuild[guildID], roleID)
}

//BindingsFor returns a copy of the emoji -> role table for a guild. The copy
//may be empty but is never nil.
func (s *BindingStore) BindingsFor(guildID string) map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := make(map[string]string, len(s.byGuild[guildID]))
	for emoji, role := range s.byGuild[guildID] {
		res[emoji] = role
	}
	return res
}

//Bind links an emoji to a role in a guild. It fails with ErrEmojiBound or
//ErrRoleBound if either side of the pair is already taken by a different
//binding; an identical existing binding is accepted as a no-op.
func (s *BindingStore) Bind(guildID, emoji, roleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	table := s.byGuild[guildID]
	if existing, ok := table[emoji]; ok {
		if existing == roleID {
			return nil
		}
		return ErrEmojiBound
	}
	if _, ok := emojiForLocked(table, roleID); ok {
		return ErrRoleBound
	}
	updated := copyTable(table)
	updated[emoji] = roleID
	return s.installLocked(guildID, updated)
}

//Unbind removes whatever binding a role holds in a guild and returns the
//emoji that was attached to it. Fails with ErrNotBound if the role has no
//binding.
func (s *BindingStore) Unbind(guildID, roleID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	table := s.byGuild[guildID]
	emoji, ok := emojiForLocked(table, roleID)
	if !ok {
		return "", ErrNotBound
	}
	updated := copyTable(table)
	delete(updated, emoji)
	if err := s.installLocked(guildID, updated); err != nil {
		return "", err
	}
	return emoji, nil
}

//Rebind moves a role's binding onto a new emoji, returning the emoji it was
//previously bound to. Fails with ErrNotBound if the role has no binding and
//ErrEmojiBound if the new emoji is already taken by a different role.
func (s *BindingStore) Rebind(guildID, roleID, newEmoji string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	table := s.byGuild[guildID]
	oldEmoji, ok := emojiForLocked(table, roleID)
	if !ok {
		return "", ErrNotBound
	}
	if existing, taken := table[newEmoji]; taken && existing != roleID {
		return "", ErrEmojiBound
	}
	updated := copyTable(table)
	delete(updated, oldEmoji)
	updated[newEmoji] = roleID
	if err := s.installLocked(guildID, updated); err != nil {
		return "", err
	}
	return oldEmoji, nil
}

//installLocked persists an updated table and only then makes it visible, so
//callers never observe state that failed to reach storage.
func (s *BindingStore) installLocked(guildID string, table map[string]string) error {
	if err := s.storage.SaveGuildBindings(guildID, table); err != nil {
		logrus.Warnf("Failed to persist emoji role bindings for guild %v due to error %v", guildID, err)
		return err
	}
	s.byGuild[guildID] = table
	return nil
}

func emojiForLocked(table map[string]string, roleID string) (string, bool) {
	for emoji, role := range table {
		if role == roleID {
			return emoji, true
		}
	}
	return "", false
}

func copyTable(table map[string]string) map[string]string {
	res := make(map[string]string, len(table)+1)
	for emoji, role := range table {
		res[emoji] = role
	}
	return res
}
