package bot

import (
	"net/url"

	"github.com/bwmarrin/discordgo"
	"github.com/callummance/momiji/db"
	"github.com/callummance/momiji/discord"
	"github.com/callummance/momiji/roles"
	"github.com/prometheus/common/log"
	"github.com/sirupsen/logrus"
)

//MomijiBot represents an instance of the discord bot, containing handles to the various external connections.
type MomijiBot struct {
	DiscordConnection *discord.EventSource
	DBConnection      *db.DBConnection
	Roles             *roles.Manager
}

//Init creates a new MomijiBot instance
func Init() (*MomijiBot, error) {
	var res MomijiBot
	//Start database connection
	dbConn, err := db.Init()
	if err != nil {
		logrus.Errorf("Cannot start bot due to error initializing database connection: %v", err)
		return nil, err
	}

	//Start discord connection
	disc, err := discord.StartDiscordListener(&res)
	if err != nil {
		logrus.Errorf("Cannot start bot due to error initializing discord connection: %v", err)
		return nil, err
	}

	//Start the role engine now both collaborators exist. Gateway events that
	//raced in before this point were dropped by the nil guard in the
	//handlers; the per-guild reconciliation pass picks their effects up.
	manager, err := roles.NewManager(disc.Session(), dbConn, disc.BotUserID())
	if err != nil {
		logrus.Errorf("Cannot start bot due to error initializing role engine: %v", err)
		disc.Close()
		dbConn.Close()
		return nil, err
	}

	res.DiscordConnection = disc
	res.DBConnection = dbConn
	res.Roles = manager

	return &res, nil
}

//BotAddURL generates a URL that can be used to add the bot to a server
func (b *MomijiBot) BotAddURL() (*url.URL, error) {
	return b.DiscordConnection.BotAddURL()
}

//DiscordSession returns a handle to the underlying discord session
func (b *MomijiBot) DiscordSession() *discordgo.Session {
	return b.DiscordConnection.Session()
}

//Close cleanly terminates the bot instance
func (b *MomijiBot) Close() {
	log.Info("Terminating bot...")
	b.DiscordConnection.Close()
	b.DBConnection.Close()
}
