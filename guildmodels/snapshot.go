package guildmodels

//GuildSnapshot is the last observed reactor state for one guild: the members
//reacting with each emoji on the join message when it was last looked at.
type GuildSnapshot struct {
	GuildID  string              `gorethink:"id"`
	Reactors map[string][]string `gorethink:"reactors"`
}
