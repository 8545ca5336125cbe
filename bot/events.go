package bot

import (
	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
)

//The thin layer between gateway notifications and the role engine. Every
//handler guards against events racing in before Init has finished wiring the
//engine up; anything dropped here is recovered by the next reconciliation
//pass for the guild.

//HandleReactionAdd is called when any reaction is added to any message.
func (b *MomijiBot) HandleReactionAdd(evt *discordgo.MessageReactionAdd) {
	if b.Roles == nil || evt.GuildID == "" {
		return
	}
	b.Roles.ReactionAdded(evt.GuildID, evt.ChannelID, evt.MessageID, evt.Emoji.APIName(), evt.UserID)
}

//HandleReactionRemove is called when any reaction is removed from any message.
func (b *MomijiBot) HandleReactionRemove(evt *discordgo.MessageReactionRemove) {
	if b.Roles == nil || evt.GuildID == "" {
		return
	}
	b.Roles.ReactionRemoved(evt.GuildID, evt.ChannelID, evt.MessageID, evt.Emoji.APIName(), evt.UserID)
}

//HandleReactionRemoveAll is called when all reactions are wiped from a message at once.
func (b *MomijiBot) HandleReactionRemoveAll(evt *discordgo.MessageReactionRemoveAll) {
	if b.Roles == nil || evt.GuildID == "" {
		return
	}
	b.Roles.ReactionsCleared(evt.GuildID, evt.ChannelID, evt.MessageID)
}

//HandleMessageDelete is called when a message is deleted.
func (b *MomijiBot) HandleMessageDelete(evt *discordgo.MessageDelete) {
	if b.Roles == nil || evt.GuildID == "" {
		return
	}
	b.Roles.MessageDeleted(evt.GuildID, evt.ChannelID, evt.ID)
}

//HandleChannelDelete is called when a channel is deleted.
func (b *MomijiBot) HandleChannelDelete(evt *discordgo.ChannelDelete) {
	if b.Roles == nil || evt.Channel == nil || evt.GuildID == "" {
		return
	}
	b.Roles.ChannelDeleted(evt.GuildID, evt.ID)
}

//HandleGuildCreate is called once per joined guild after connecting, and again
//whenever the bot is added to a new guild. This is where the join surface is
//guaranteed and offline reactor drift gets reconciled.
func (b *MomijiBot) HandleGuildCreate(evt *discordgo.GuildCreate) {
	if b.Roles == nil || evt.Guild == nil {
		return
	}
	logrus.Infof("Guild %v (%v) is available", evt.Guild.Name, evt.Guild.ID)
	b.Roles.GuildAvailable(evt.Guild.ID)
}

//HandleMemberUpdate is called when any member of a guild changes. Only the
//bot's own rename matters here: the join message text names the bot, so it
//gets refreshed.
func (b *MomijiBot) HandleMemberUpdate(evt *discordgo.GuildMemberUpdate) {
	if b.Roles == nil || evt.Member == nil || evt.User == nil {
		return
	}
	if evt.User.ID != b.DiscordConnection.BotUserID() {
		return
	}
	if evt.BeforeUpdate != nil && evt.BeforeUpdate.Nick == evt.Nick {
		return
	}
	b.Roles.BotRenamed(evt.GuildID)
}
