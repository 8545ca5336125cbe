package roles

import (
	"sync"

	"github.com/sirupsen/logrus"
)

//Manager is the reaction-to-role synchronization engine. It owns the binding
//and snapshot stores, maintains the join surface for every guild and applies
//reaction events (live or replayed) to role membership.
type Manager struct {
	session Session
	storage Storage
	botID   string

	Bindings  *BindingStore
	Snapshots *SnapshotStore

	//Persisted guild -> join channel hints, plus an in-memory cache of the
	//located join message. The message cache is an optimization only; the
	//predicate scan in locateJoinMessage is the source of truth.
	stateMu      sync.Mutex
	channelHints map[string]string
	joinMessages map[string]string

	//One lock per guild serializes event application, binding mutation and
	//reconciliation against each other.
	locksMu    sync.Mutex
	guildLocks map[string]*sync.Mutex
}

//NewManager loads persisted state and returns a ready engine. botID is the
//bot's own user ID; events originating from it are never treated as member
//actions.
func NewManager(session Session, storage Storage, botID string) (*Manager, error) {
	bindings, err := LoadBindingStore(storage)
	if err != nil {
		return nil, err
	}
	snapshots, err := LoadSnapshotStore(storage)
	if err != nil {
		return nil, err
	}
	hints, err := storage.LoadChannelHints()
	if err != nil {
		logrus.Errorf("Failed to load join channel hints due to error %v", err)
		return nil, err
	}
	if hints == nil {
		hints = make(map[string]string)
	}
	return &Manager{
		session:      session,
		storage:      storage,
		botID:        botID,
		Bindings:     bindings,
		Snapshots:    snapshots,
		channelHints: hints,
		joinMessages: make(map[string]string),
		guildLocks:   make(map[string]*sync.Mutex),
	}, nil
}

//guildLock returns the mutex serializing all engine work for one guild.
func (m *Manager) guildLock(guildID string) *sync.Mutex {
	m.locksMu.Lock()
	defer m.locksMu.Unlock()
	lock, ok := m.guildLocks[guildID]
	if !ok {
		lock = &sync.Mutex{}
		m.guildLocks[guildID] = lock
	}
	return lock
}

func (m *Manager) channelHint(guildID string) (string, bool) {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	hint, ok := m.channelHints[guildID]
	return hint, ok
}

func (m *Manager) setChannelHint(guildID, channelID string) {
	m.stateMu.Lock()
	m.channelHints[guildID] = channelID
	m.stateMu.Unlock()
	if err := m.storage.SaveChannelHint(guildID, channelID); err != nil {
		logrus.Warnf("Failed to persist join channel hint for guild %v due to error %v", guildID, err)
	}
}

func (m *Manager) cachedJoinMessage(guildID string) (string, bool) {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	id, ok := m.joinMessages[guildID]
	return id, ok
}

func (m *Manager) cacheJoinMessage(guildID, messageID string) {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	if messageID == "" {
		delete(m.joinMessages, guildID)
	} else {
		m.joinMessages[guildID] = messageID
	}
}
