package roles

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
)

const joinChannelName = "join"
const joinMessageHistoryWindow = 100

const everyonePermissions int64 = discordgo.PermissionViewChannel | discordgo.PermissionReadMessageHistory
const botChannelPermissions int64 = discordgo.PermissionViewChannel |
	discordgo.PermissionAddReactions |
	discordgo.PermissionSendMessages |
	discordgo.PermissionReadMessageHistory |
	discordgo.PermissionManageMessages

//EnsureJoinSurface guarantees the guild has a join channel carrying a join
//message whose reactions match the binding table. It is the public entry
//point used at guild startup and by binding administration.
func (m *Manager) EnsureJoinSurface(guildID string) error {
	lock := m.guildLock(guildID)
	lock.Lock()
	defer lock.Unlock()
	_, _, err := m.ensureJoinChannel(guildID)
	return err
}

//ensureJoinChannel returns the guild's join channel and message, creating
//either if missing. A persisted channel hint is preferred over creation; a
//hint pointing at a deleted channel is replaced. Caller holds the guild lock.
func (m *Manager) ensureJoinChannel(guildID string) (channelID, messageID string, err error) {
	if hint, ok := m.channelHint(guildID); ok {
		channel, err := m.session.Channel(hint)
		if err == nil && channel.GuildID == guildID {
			messageID, err := m.ensureJoinMessage(guildID, hint)
			return hint, messageID, err
		}
		logrus.Infof("Join channel hint %v for guild %v is stale, recreating channel", hint, guildID)
	}

	channel, err := m.createJoinChannel(guildID)
	if err != nil {
		return "", "", err
	}
	m.setChannelHint(guildID, channel.ID)
	messageID, err = m.ensureJoinMessage(guildID, channel.ID)
	return channel.ID, messageID, err
}

//createJoinChannel makes a fresh text channel where the everyone role may
//only read and the bot's integration role may manage the join message. If
//the integration role cannot be found no channel is created.
func (m *Manager) createJoinChannel(guildID string) (*discordgo.Channel, error) {
	botRole, err := m.integrationRole(guildID)
	if err != nil {
		return nil, err
	}

	overwrites := []*discordgo.PermissionOverwrite{
		{
			//The everyone role shares its ID with the guild.
			ID:    guildID,
			Type:  discordgo.PermissionOverwriteTypeRole,
			Allow: everyonePermissions,
			Deny:  discordgo.PermissionAll &^ everyonePermissions,
		},
		{
			ID:    botRole,
			Type:  discordgo.PermissionOverwriteTypeRole,
			Allow: botChannelPermissions,
		},
	}
	channel, err := m.session.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
		Name:                 joinChannelName,
		Type:                 discordgo.ChannelTypeGuildText,
		PermissionOverwrites: overwrites,
	})
	if err != nil {
		logrus.Warnf("Failed to create join channel in guild %v due to error %v", guildID, err)
		return nil, fmt.Errorf("%w: %v", ErrSurfaceUnavailable, err)
	}
	logrus.Infof("Created join channel %v in guild %v", channel.ID, guildID)
	return channel, nil
}

//integrationRole finds the managed role discord granted the bot when it was
//added to the guild.
func (m *Manager) integrationRole(guildID string) (string, error) {
	botMember, err := m.session.GuildMember(guildID, m.botID)
	if err != nil {
		logrus.Warnf("Failed to fetch own member object for guild %v due to error %v", guildID, err)
		return "", fmt.Errorf("%w: %v", ErrSurfaceUnavailable, err)
	}
	guildRoles, err := m.session.GuildRoles(guildID)
	if err != nil {
		logrus.Warnf("Failed to fetch roles for guild %v due to error %v", guildID, err)
		return "", fmt.Errorf("%w: %v", ErrSurfaceUnavailable, err)
	}
	held := make(map[string]struct{}, len(botMember.Roles))
	for _, roleID := range botMember.Roles {
		held[roleID] = struct{}{}
	}
	for _, role := range guildRoles {
		if _, ok := held[role.ID]; ok && role.Managed {
			return role.ID, nil
		}
	}
	logrus.Warnf("No integration role found for bot in guild %v", guildID)
	return "", fmt.Errorf("%w: no integration role found for bot in guild %v", ErrSurfaceUnavailable, guildID)
}

//ensureJoinMessage locates the join message in a channel, creating it if
//absent and repairing its reaction set if it has drifted from the binding
//table. Caller holds the guild lock.
func (m *Manager) ensureJoinMessage(guildID, channelID string) (string, error) {
	message, err := m.locateJoinMessage(guildID, channelID)
	if err != nil {
		return "", err
	}
	if message != nil {
		m.cacheJoinMessage(guildID, message.ID)
		m.syncReactions(guildID, channelID, message)
		return message.ID, nil
	}

	content, err := m.renderJoinMessage(guildID)
	if err != nil {
		return "", err
	}
	message, err = m.session.ChannelMessageSend(channelID, content)
	if err != nil {
		logrus.Warnf("Failed to post join message in channel %v of guild %v due to error %v", channelID, guildID, err)
		return "", fmt.Errorf("%w: %v", ErrSurfaceUnavailable, err)
	}
	for _, emoji := range m.boundEmoji(guildID) {
		if err := m.session.MessageReactionAdd(channelID, message.ID, emoji); err != nil {
			logrus.Warnf("Failed to add reaction %v to join message in guild %v due to error %v", emoji, guildID, err)
		}
	}
	m.cacheJoinMessage(guildID, message.ID)
	logrus.Infof("Created join message %v in channel %v of guild %v", message.ID, channelID, guildID)
	return message.ID, nil
}

//locateJoinMessage scans channel history for the first message authored by
//the bot whose reactions are a superset of the bound emoji. The cached
//message ID is tried first but is only trusted if the predicate still holds.
func (m *Manager) locateJoinMessage(guildID, channelID string) (*discordgo.Message, error) {
	bindings := m.Bindings.BindingsFor(guildID)

	if cached, ok := m.cachedJoinMessage(guildID); ok {
		message, err := m.session.ChannelMessage(channelID, cached)
		if err == nil && m.isJoinMessage(message, bindings) {
			return message, nil
		}
		m.cacheJoinMessage(guildID, "")
	}

	messages, err := m.session.ChannelMessages(channelID, joinMessageHistoryWindow, "", "", "")
	if err != nil {
		logrus.Warnf("Failed to fetch history of channel %v in guild %v due to error %v", channelID, guildID, err)
		return nil, fmt.Errorf("%w: %v", ErrSurfaceUnavailable, err)
	}
	for _, message := range messages {
		if m.isJoinMessage(message, bindings) {
			return message, nil
		}
	}
	return nil, nil
}

//isJoinMessage is the identity predicate for the join message: authored by
//the bot, bearing at least every bound emoji as a reaction.
func (m *Manager) isJoinMessage(message *discordgo.Message, bindings map[string]string) bool {
	if message == nil || message.Author == nil || message.Author.ID != m.botID {
		return false
	}
	present := reactionEmojiSet(message)
	for emoji := range bindings {
		if _, ok := present[emoji]; !ok {
			return false
		}
	}
	return true
}

//RefreshJoinSurface re-renders the join message and reconciles its reaction
//set with the binding table. Used after binding administration and when the
//bot's own display name changes.
func (m *Manager) RefreshJoinSurface(guildID string) error {
	lock := m.guildLock(guildID)
	lock.Lock()
	defer lock.Unlock()
	return m.refreshJoinMessage(guildID)
}

func (m *Manager) refreshJoinMessage(guildID string) error {
	channelID, messageID, err := m.ensureJoinChannel(guildID)
	if err != nil {
		return err
	}
	content, err := m.renderJoinMessage(guildID)
	if err != nil {
		return err
	}
	if _, err := m.session.ChannelMessageEdit(channelID, messageID, content); err != nil {
		logrus.Warnf("Failed to edit join message %v in guild %v due to error %v", messageID, guildID, err)
		return fmt.Errorf("%w: %v", ErrSurfaceUnavailable, err)
	}
	message, err := m.session.ChannelMessage(channelID, messageID)
	if err != nil {
		logrus.Warnf("Failed to fetch join message %v in guild %v due to error %v", messageID, guildID, err)
		return fmt.Errorf("%w: %v", ErrSurfaceUnavailable, err)
	}
	m.syncReactions(guildID, channelID, message)
	return nil
}

//syncReactions is the only place the bot adds or removes reactions itself:
//it makes the join message carry exactly the bound emoji set. Leftover
//reactions from removed bindings are cleared for every reactor at once.
func (m *Manager) syncReactions(guildID, channelID string, message *discordgo.Message) {
	present := reactionEmojiSet(message)
	bound := m.Bindings.BindingsFor(guildID)
	for _, emoji := range sortedKeys(bound) {
		if _, ok := present[emoji]; !ok {
			if err := m.session.MessageReactionAdd(channelID, message.ID, emoji); err != nil {
				logrus.Warnf("Failed to add reaction %v to join message in guild %v due to error %v", emoji, guildID, err)
			}
		}
	}
	for emoji := range present {
		if _, ok := bound[emoji]; !ok {
			if err := m.session.MessageReactionsRemoveEmoji(channelID, message.ID, emoji); err != nil {
				logrus.Warnf("Failed to clear stale reaction %v from join message in guild %v due to error %v", emoji, guildID, err)
			}
		}
	}
}

//renderJoinMessage builds the join message text: a welcome line, usage text
//and one line per binding, ordered by emoji so the output is deterministic.
func (m *Manager) renderJoinMessage(guildID string) (string, error) {
	guild, err := m.session.Guild(guildID)
	if err != nil {
		logrus.Warnf("Failed to fetch guild %v due to error %v", guildID, err)
		return "", fmt.Errorf("%w: %v", ErrSurfaceUnavailable, err)
	}
	botName := m.botDisplayName(guildID)
	roleNames := m.roleNames(guildID)
	bindings := m.Bindings.BindingsFor(guildID)

	var b strings.Builder
	fmt.Fprintf(&b, "Welcome to **%v**! :wave:\n", guild.Name)
	b.WriteString("This is the join channel, where you can pick your own roles.\n")
	b.WriteString("React below with one of the listed emoji and the matching role will be assigned to you; remove your reaction to give the role up again.\n")
	fmt.Fprintf(&b, "If **%v** is offline it may take a while for your role to arrive, but it will be sorted out as soon as the bot is back.\n", botName)
	if len(bindings) > 0 {
		b.WriteString("Roles on offer:\n")
		for _, emoji := range sortedKeys(bindings) {
			roleID := bindings[emoji]
			name, ok := roleNames[roleID]
			if !ok {
				name = roleID
			}
			fmt.Fprintf(&b, "%v: for the **%v** role\n", displayEmoji(emoji), name)
		}
	}
	b.WriteString("Just click the emoji below to get going!")
	return b.String(), nil
}

//botDisplayName returns the bot's nickname in a guild, falling back to its
//username.
func (m *Manager) botDisplayName(guildID string) string {
	member, err := m.session.GuildMember(guildID, m.botID)
	if err != nil || member == nil {
		logrus.Debugf("Failed to fetch own member object for guild %v due to error %v", guildID, err)
		return "this bot"
	}
	if member.Nick != "" {
		return member.Nick
	}
	if member.User != nil {
		return member.User.Username
	}
	return "this bot"
}

func (m *Manager) roleNames(guildID string) map[string]string {
	names := make(map[string]string)
	guildRoles, err := m.session.GuildRoles(guildID)
	if err != nil {
		logrus.Debugf("Failed to fetch roles for guild %v due to error %v", guildID, err)
		return names
	}
	for _, role := range guildRoles {
		names[role.ID] = role.Name
	}
	return names
}

func (m *Manager) boundEmoji(guildID string) []string {
	return sortedKeys(m.Bindings.BindingsFor(guildID))
}

//reactionEmojiSet collects the API names of every reaction on a message.
func reactionEmojiSet(message *discordgo.Message) map[string]struct{} {
	present := make(map[string]struct{}, len(message.Reactions))
	for _, reaction := range message.Reactions {
		if reaction.Emoji != nil {
			present[reaction.Emoji.APIName()] = struct{}{}
		}
	}
	return present
}

//displayEmoji renders a stored emoji identifier back into chat form. Custom
//emoji are stored as name:id and need the <:...:> wrapper.
func displayEmoji(emoji string) string {
	if strings.Contains(emoji, ":") {
		return fmt.Sprintf("<:%v>", emoji)
	}
	return emoji
}

func sortedKeys(table map[string]string) []string {
	keys := make([]string, 0, len(table))
	for key := range table {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
