package guildmodels

//GuildBindings is the stored emoji -> role binding table for one guild.
type GuildBindings struct {
	GuildID    string            `gorethink:"id"`
	EmojiRoles map[string]string `gorethink:"emoji_roles"`
}
