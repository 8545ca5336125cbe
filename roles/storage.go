package roles

//Storage is the persistence surface the role engine consumes. All identifiers
//are opaque strings from discord; documents are replaced wholesale per guild.
type Storage interface {
	//LoadBindings returns every stored guild binding table, keyed by guild
	//then by emoji, with role IDs as values.
	LoadBindings() (map[string]map[string]string, error)
	//SaveGuildBindings replaces the stored binding table for one guild.
	SaveGuildBindings(guildID string, bindings map[string]string) error

	//LoadSnapshots returns every stored reactor snapshot, keyed by guild then
	//by emoji, with reacting member IDs as values.
	LoadSnapshots() (map[string]map[string][]string, error)
	//SaveGuildSnapshot replaces the stored reactor snapshot for one guild.
	SaveGuildSnapshot(guildID string, reactors map[string][]string) error

	//LoadChannelHints returns the stored guild -> join channel mapping.
	LoadChannelHints() (map[string]string, error)
	//SaveChannelHint records the join channel for a guild.
	SaveChannelHint(guildID, channelID string) error
}
