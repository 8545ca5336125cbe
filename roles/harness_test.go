package roles

import (
	"fmt"
	"sort"
	"sync"

	"github.com/bwmarrin/discordgo"
)

//In-memory stand-ins for the discord session and the persistence
//collaborator, shared by every test in this package.

const testBotID = "bot-1"

type fakeStorage struct {
	mu       sync.Mutex
	bindings map[string]map[string]string
	snaps    map[string]map[string][]string
	hints    map[string]string

	failSaveBindings error
	failSaveSnapshot error

	bindingSaves  int
	snapshotSaves int
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{
		bindings: map[string]map[string]string{},
		snaps:    map[string]map[string][]string{},
		hints:    map[string]string{},
	}
}

func (s *fakeStorage) LoadBindings() (map[string]map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := make(map[string]map[string]string, len(s.bindings))
	for guild, table := range s.bindings {
		cp := make(map[string]string, len(table))
		for k, v := range table {
			cp[k] = v
		}
		res[guild] = cp
	}
	return res, nil
}

func (s *fakeStorage) SaveGuildBindings(guildID string, bindings map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSaveBindings != nil {
		return s.failSaveBindings
	}
	s.bindingSaves++
	cp := make(map[string]string, len(bindings))
	for k, v := range bindings {
		cp[k] = v
	}
	s.bindings[guildID] = cp
	return nil
}

func (s *fakeStorage) LoadSnapshots() (map[string]map[string][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := make(map[string]map[string][]string, len(s.snaps))
	for guild, reactors := range s.snaps {
		cp := make(map[string][]string, len(reactors))
		for emoji, members := range reactors {
			cp[emoji] = append([]string(nil), members...)
		}
		res[guild] = cp
	}
	return res, nil
}

func (s *fakeStorage) SaveGuildSnapshot(guildID string, reactors map[string][]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSaveSnapshot != nil {
		return s.failSaveSnapshot
	}
	s.snapshotSaves++
	cp := make(map[string][]string, len(reactors))
	for emoji, members := range reactors {
		cp[emoji] = append([]string(nil), members...)
	}
	s.snaps[guildID] = cp
	return nil
}

func (s *fakeStorage) LoadChannelHints() (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := make(map[string]string, len(s.hints))
	for k, v := range s.hints {
		res[k] = v
	}
	return res, nil
}

func (s *fakeStorage) SaveChannelHint(guildID, channelID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hints[guildID] = channelID
	return nil
}

type fakeMessage struct {
	id        string
	channelID string
	authorID  string
	content   string
	//emoji -> reacting user IDs
	reactions map[string]map[string]struct{}
}

type fakeSession struct {
	mu    sync.Mutex
	botID string

	guilds   map[string]*discordgo.Guild
	roles    map[string][]*discordgo.Role
	members  map[string]map[string]*discordgo.Member
	channels map[string]*discordgo.Channel
	//channelID -> messages, newest first (discord history order)
	messages map[string][]*fakeMessage

	nextID int

	failRoleAdd    error
	failRoleRemove error

	channelsCreated int
	messagesSent    int
	roleGrants      map[string]int
	roleRevokes     map[string]int
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		botID:       testBotID,
		guilds:      map[string]*discordgo.Guild{},
		roles:       map[string][]*discordgo.Role{},
		members:     map[string]map[string]*discordgo.Member{},
		channels:    map[string]*discordgo.Channel{},
		messages:    map[string][]*fakeMessage{},
		roleGrants:  map[string]int{},
		roleRevokes: map[string]int{},
	}
}

//addGuild registers a guild along with the bot's own member carrying a
//managed integration role.
func (f *fakeSession) addGuild(guildID, name string) {
	f.guilds[guildID] = &discordgo.Guild{ID: guildID, Name: name, OwnerID: "owner-1"}
	botRoleID := guildID + "-botrole"
	f.roles[guildID] = []*discordgo.Role{
		{ID: botRoleID, Name: "momiji", Managed: true},
	}
	f.members[guildID] = map[string]*discordgo.Member{
		f.botID: {
			GuildID: guildID,
			User:    &discordgo.User{ID: f.botID, Username: "momiji"},
			Roles:   []string{botRoleID},
		},
	}
}

func (f *fakeSession) addRole(guildID, roleID, name string) {
	f.roles[guildID] = append(f.roles[guildID], &discordgo.Role{ID: roleID, Name: name})
}

func (f *fakeSession) addMember(guildID, userID string, roleIDs ...string) {
	f.members[guildID][userID] = &discordgo.Member{
		GuildID: guildID,
		User:    &discordgo.User{ID: userID, Username: "user-" + userID},
		Roles:   roleIDs,
	}
}

//react records a reaction as if a user had clicked it in the client.
func (f *fakeSession) react(channelID, messageID, emoji, userID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg := f.findMessage(channelID, messageID)
	if msg == nil {
		panic(fmt.Sprintf("no message %v in channel %v", messageID, channelID))
	}
	if msg.reactions[emoji] == nil {
		msg.reactions[emoji] = map[string]struct{}{}
	}
	msg.reactions[emoji][userID] = struct{}{}
}

func (f *fakeSession) unreact(channelID, messageID, emoji, userID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg := f.findMessage(channelID, messageID)
	if msg != nil {
		delete(msg.reactions[emoji], userID)
	}
}

func (f *fakeSession) memberRoles(guildID, userID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	member, ok := f.members[guildID][userID]
	if !ok {
		return nil
	}
	return append([]string(nil), member.Roles...)
}

func (f *fakeSession) messageReactions(channelID, messageID, emoji string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg := f.findMessage(channelID, messageID)
	if msg == nil {
		return nil
	}
	var users []string
	for user := range msg.reactions[emoji] {
		users = append(users, user)
	}
	sort.Strings(users)
	return users
}

func (f *fakeSession) findMessage(channelID, messageID string) *fakeMessage {
	for _, msg := range f.messages[channelID] {
		if msg.id == messageID {
			return msg
		}
	}
	return nil
}

func (f *fakeSession) renderMessage(msg *fakeMessage) *discordgo.Message {
	var reactions []*discordgo.MessageReactions
	emoji := make([]string, 0, len(msg.reactions))
	for e := range msg.reactions {
		if len(msg.reactions[e]) > 0 {
			emoji = append(emoji, e)
		}
	}
	sort.Strings(emoji)
	for _, e := range emoji {
		reactions = append(reactions, &discordgo.MessageReactions{
			Count: len(msg.reactions[e]),
			Emoji: &discordgo.Emoji{Name: e},
		})
	}
	return &discordgo.Message{
		ID:        msg.id,
		ChannelID: msg.channelID,
		Content:   msg.content,
		Author:    &discordgo.User{ID: msg.authorID},
		Reactions: reactions,
	}
}

func (f *fakeSession) newID(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%v-%d", prefix, f.nextID)
}

//----- Session implementation -----

func (f *fakeSession) Guild(guildID string, options ...discordgo.RequestOption) (*discordgo.Guild, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	guild, ok := f.guilds[guildID]
	if !ok {
		return nil, fmt.Errorf("unknown guild %v", guildID)
	}
	return guild, nil
}

func (f *fakeSession) GuildRoles(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*discordgo.Role(nil), f.roles[guildID]...), nil
}

func (f *fakeSession) GuildMember(guildID, userID string, options ...discordgo.RequestOption) (*discordgo.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	member, ok := f.members[guildID][userID]
	if !ok {
		return nil, fmt.Errorf("unknown member %v in guild %v", userID, guildID)
	}
	return member, nil
}

func (f *fakeSession) GuildMemberRoleAdd(guildID, userID, roleID string, options ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failRoleAdd != nil {
		return f.failRoleAdd
	}
	member, ok := f.members[guildID][userID]
	if !ok {
		return fmt.Errorf("unknown member %v in guild %v", userID, guildID)
	}
	for _, held := range member.Roles {
		if held == roleID {
			return nil
		}
	}
	member.Roles = append(member.Roles, roleID)
	f.roleGrants[userID+":"+roleID]++
	return nil
}

func (f *fakeSession) GuildMemberRoleRemove(guildID, userID, roleID string, options ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failRoleRemove != nil {
		return f.failRoleRemove
	}
	member, ok := f.members[guildID][userID]
	if !ok {
		return fmt.Errorf("unknown member %v in guild %v", userID, guildID)
	}
	var kept []string
	for _, held := range member.Roles {
		if held != roleID {
			kept = append(kept, held)
		}
	}
	member.Roles = kept
	f.roleRevokes[userID+":"+roleID]++
	return nil
}

func (f *fakeSession) GuildChannelCreateComplex(guildID string, data discordgo.GuildChannelCreateData, options ...discordgo.RequestOption) (*discordgo.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.guilds[guildID]; !ok {
		return nil, fmt.Errorf("unknown guild %v", guildID)
	}
	channel := &discordgo.Channel{
		ID:                   f.newID("chan"),
		GuildID:              guildID,
		Name:                 data.Name,
		Type:                 data.Type,
		PermissionOverwrites: data.PermissionOverwrites,
	}
	f.channels[channel.ID] = channel
	f.channelsCreated++
	return channel, nil
}

func (f *fakeSession) Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	channel, ok := f.channels[channelID]
	if !ok {
		return nil, fmt.Errorf("unknown channel %v", channelID)
	}
	return channel, nil
}

func (f *fakeSession) deleteChannel(channelID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.channels, channelID)
	delete(f.messages, channelID)
}

func (f *fakeSession) deleteMessage(channelID, messageID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var kept []*fakeMessage
	for _, msg := range f.messages[channelID] {
		if msg.id != messageID {
			kept = append(kept, msg)
		}
	}
	f.messages[channelID] = kept
}

func (f *fakeSession) clearReactions(channelID, messageID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg := f.findMessage(channelID, messageID)
	if msg != nil {
		msg.reactions = map[string]map[string]struct{}{}
	}
}

func (f *fakeSession) ChannelMessage(channelID, messageID string, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg := f.findMessage(channelID, messageID)
	if msg == nil {
		return nil, fmt.Errorf("unknown message %v in channel %v", messageID, channelID)
	}
	return f.renderMessage(msg), nil
}

func (f *fakeSession) ChannelMessages(channelID string, limit int, beforeID, afterID, aroundID string, options ...discordgo.RequestOption) ([]*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.channels[channelID]; !ok {
		return nil, fmt.Errorf("unknown channel %v", channelID)
	}
	var res []*discordgo.Message
	for _, msg := range f.messages[channelID] {
		res = append(res, f.renderMessage(msg))
		if len(res) >= limit {
			break
		}
	}
	return res, nil
}

func (f *fakeSession) ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.channels[channelID]; !ok {
		return nil, fmt.Errorf("unknown channel %v", channelID)
	}
	msg := &fakeMessage{
		id:        f.newID("msg"),
		channelID: channelID,
		authorID:  f.botID,
		content:   content,
		reactions: map[string]map[string]struct{}{},
	}
	//newest first
	f.messages[channelID] = append([]*fakeMessage{msg}, f.messages[channelID]...)
	f.messagesSent++
	return f.renderMessage(msg), nil
}

func (f *fakeSession) ChannelMessageEdit(channelID, messageID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg := f.findMessage(channelID, messageID)
	if msg == nil {
		return nil, fmt.Errorf("unknown message %v in channel %v", messageID, channelID)
	}
	msg.content = content
	return f.renderMessage(msg), nil
}

func (f *fakeSession) MessageReactionAdd(channelID, messageID, emojiID string, options ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg := f.findMessage(channelID, messageID)
	if msg == nil {
		return fmt.Errorf("unknown message %v in channel %v", messageID, channelID)
	}
	if msg.reactions[emojiID] == nil {
		msg.reactions[emojiID] = map[string]struct{}{}
	}
	//The session reacts as the bot account.
	msg.reactions[emojiID][f.botID] = struct{}{}
	return nil
}

func (f *fakeSession) MessageReactionRemove(channelID, messageID, emojiID, userID string, options ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg := f.findMessage(channelID, messageID)
	if msg == nil {
		return fmt.Errorf("unknown message %v in channel %v", messageID, channelID)
	}
	delete(msg.reactions[emojiID], userID)
	return nil
}

func (f *fakeSession) MessageReactionsRemoveEmoji(channelID, messageID, emojiID string, options ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg := f.findMessage(channelID, messageID)
	if msg == nil {
		return fmt.Errorf("unknown message %v in channel %v", messageID, channelID)
	}
	delete(msg.reactions, emojiID)
	return nil
}

func (f *fakeSession) MessageReactions(channelID, messageID, emojiID string, limit int, beforeID, afterID string, options ...discordgo.RequestOption) ([]*discordgo.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg := f.findMessage(channelID, messageID)
	if msg == nil {
		return nil, fmt.Errorf("unknown message %v in channel %v", messageID, channelID)
	}
	var ids []string
	for user := range msg.reactions[emojiID] {
		ids = append(ids, user)
	}
	sort.Strings(ids)
	var res []*discordgo.User
	for _, id := range ids {
		if afterID != "" && id <= afterID {
			continue
		}
		res = append(res, &discordgo.User{ID: id})
		if len(res) >= limit {
			break
		}
	}
	return res, nil
}
