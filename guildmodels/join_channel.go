package guildmodels

//JoinChannelHint records which channel carries a guild's join message, so a
//restart can skip the full channel scan. The hint is advisory; the engine
//verifies the channel still exists before trusting it.
type JoinChannelHint struct {
	GuildID   string `gorethink:"id"`
	ChannelID string `gorethink:"channel_id"`
}
