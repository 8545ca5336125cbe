package roles

import (
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
)

//SnapshotStore records, per guild and emoji, the set of members whose
//reaction was last observed on the join message. The persisted copy is the
//baseline the next startup diffs against, so it is rewritten after every
//mutation.
type SnapshotStore struct {
	mu      sync.Mutex
	storage Storage
	byGuild map[string]map[string]map[string]struct{}
}

//LoadSnapshotStore builds a SnapshotStore from whatever the storage
//collaborator has persisted.
func LoadSnapshotStore(storage Storage) (*SnapshotStore, error) {
	stored, err := storage.LoadSnapshots()
	if err != nil {
		logrus.Errorf("Failed to load reactor snapshots due to error %v", err)
		return nil, err
	}
	byGuild := make(map[string]map[string]map[string]struct{}, len(stored))
	for guildID, reactors := range stored {
		byGuild[guildID] = setsFromSlices(reactors)
	}
	return &SnapshotStore{
		storage: storage,
		byGuild: byGuild,
	}, nil
}

//HasGuild reports whether any snapshot has ever been persisted for a guild.
func (s *SnapshotStore) HasGuild(guildID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.byGuild[guildID]
	return ok
}

//Reactors returns the recorded reactor sets for a guild, keyed by emoji.
func (s *SnapshotStore) Reactors(guildID string) map[string][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slicesFromSets(s.byGuild[guildID])
}

//HasReactor reports whether a member is recorded as reacting with an emoji.
func (s *SnapshotStore) HasReactor(guildID, emoji, userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.byGuild[guildID][emoji][userID]
	return ok
}

//AddReactor records a member as reacting with an emoji and persists the
//guild's snapshot. Recording a member who is already present changes nothing.
func (s *SnapshotStore) AddReactor(guildID, emoji, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	guild := s.byGuild[guildID]
	if _, ok := guild[emoji][userID]; ok {
		return nil
	}
	if guild == nil {
		guild = make(map[string]map[string]struct{})
		s.byGuild[guildID] = guild
	}
	if guild[emoji] == nil {
		guild[emoji] = make(map[string]struct{})
	}
	guild[emoji][userID] = struct{}{}
	if err := s.persistLocked(guildID); err != nil {
		delete(guild[emoji], userID)
		return err
	}
	return nil
}

//RemoveReactor removes a member from an emoji's reactor set and persists the
//guild's snapshot. Removing an absent member changes nothing.
func (s *SnapshotStore) RemoveReactor(guildID, emoji, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	reactors := s.byGuild[guildID][emoji]
	if _, ok := reactors[userID]; !ok {
		return nil
	}
	delete(reactors, userID)
	if err := s.persistLocked(guildID); err != nil {
		reactors[userID] = struct{}{}
		return err
	}
	return nil
}

//ReplaceGuild swaps in a freshly observed snapshot for a guild wholesale and
//persists it. Used when live state is adopted without replay.
func (s *SnapshotStore) ReplaceGuild(guildID string, reactors map[string][]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	previous, had := s.byGuild[guildID]
	s.byGuild[guildID] = setsFromSlices(reactors)
	if err := s.persistLocked(guildID); err != nil {
		if had {
			s.byGuild[guildID] = previous
		} else {
			delete(s.byGuild, guildID)
		}
		return err
	}
	return nil
}

func (s *SnapshotStore) persistLocked(guildID string) error {
	err := s.storage.SaveGuildSnapshot(guildID, slicesFromSets(s.byGuild[guildID]))
	if err != nil {
		logrus.Warnf("Failed to persist reactor snapshot for guild %v due to error %v", guildID, err)
	}
	return err
}

func setsFromSlices(reactors map[string][]string) map[string]map[string]struct{} {
	res := make(map[string]map[string]struct{}, len(reactors))
	for emoji, members := range reactors {
		set := make(map[string]struct{}, len(members))
		for _, member := range members {
			set[member] = struct{}{}
		}
		res[emoji] = set
	}
	return res
}

//slicesFromSets renders reactor sets as sorted slices so persisted documents
//are stable across runs.
func slicesFromSets(reactors map[string]map[string]struct{}) map[string][]string {
	res := make(map[string][]string, len(reactors))
	for emoji, set := range reactors {
		members := make([]string, 0, len(set))
		for member := range set {
			members = append(members, member)
		}
		sort.Strings(members)
		res[emoji] = members
	}
	return res
}
