package discord

import (
	"fmt"
	"net/url"
	"os"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
)

const discordTokenEnvVar = "MOMIJI_DISCORD_BOT_TOKEN"
const botScope = "bot"
const permissions = discordgo.PermissionAllText | discordgo.PermissionManageChannels | discordgo.PermissionManageRoles

//EventHandler is a struct which can handle all the events the discord listener generates.
type EventHandler interface {
	HandleMessage(*discordgo.MessageCreate)
	HandleReactionAdd(*discordgo.MessageReactionAdd)
	HandleReactionRemove(*discordgo.MessageReactionRemove)
	HandleReactionRemoveAll(*discordgo.MessageReactionRemoveAll)
	HandleMessageDelete(*discordgo.MessageDelete)
	HandleChannelDelete(*discordgo.ChannelDelete)
	HandleGuildCreate(*discordgo.GuildCreate)
	HandleMemberUpdate(*discordgo.GuildMemberUpdate)
}

//EventSource represents a connection to the Discord gateway
type EventSource struct {
	discordClient *discordgo.Session
	handler       EventHandler
}

//StartDiscordListener initializes an EventSource and starts listening for events from the discord gateway
func StartDiscordListener(handler EventHandler) (*EventSource, error) {
	//Get token from environment variable
	apiTok, exists := os.LookupEnv(discordTokenEnvVar)
	if !exists {
		logrus.Errorf("`%v` env variable was not set.", discordTokenEnvVar)
		return nil, fmt.Errorf("`%v` env variable was not set", discordTokenEnvVar)
	}

	//Create new client
	dc, err := discordgo.New("Bot " + apiTok)
	if err != nil {
		logrus.Warnf("Failed to create Discord gateway client due to %v", err)
		return nil, err
	}
	dispatch := EventSource{
		discordClient: dc,
		handler:       handler,
	}

	//Register event handlers
	dc.AddHandler(dispatch.dispatchMessageCreateEvent)
	dc.AddHandler(dispatch.dispatchReactionAddEvent)
	dc.AddHandler(dispatch.dispatchReactionRemoveEvent)
	dc.AddHandler(dispatch.dispatchReactionRemoveAllEvent)
	dc.AddHandler(dispatch.dispatchMessageDeleteEvent)
	dc.AddHandler(dispatch.dispatchChannelDeleteEvent)
	dc.AddHandler(dispatch.dispatchGuildCreateEvent)
	dc.AddHandler(dispatch.dispatchMemberUpdateEvent)

	//Register intents
	dc.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMessageReactions |
		discordgo.IntentsGuildMembers

	//Open a websocket connection
	err = dc.Open()
	if err != nil {
		logrus.Errorf("Failed to connect to discord websockets gateway; encountered error %v", err)
		return nil, err
	}
	return &dispatch, nil
}

//BotAddURL generates a URL that can be used to add the bot to a server
func (d *EventSource) BotAddURL() (*url.URL, error) {
	user, err := d.discordClient.User("@me")
	if err != nil {
		return nil, err
	}
	clientID := user.ID

	url, err := url.Parse("https://discord.com/api/oauth2/authorize")
	if err != nil {
		return nil, err
	}
	q := url.Query()
	q.Set("client_id", clientID)
	q.Set("scope", botScope)
	q.Set("permissions", fmt.Sprintf("%d", permissions))
	url.RawQuery = q.Encode()

	return url, nil
}

//Close cleanly terminates the Discord connection
func (d *EventSource) Close() {
	logrus.Info("Terminating discord event listener...")
	_ = d.discordClient.Close()
}

//Session returns a handle to the underlying discordgo session
func (d *EventSource) Session() *discordgo.Session {
	return d.discordClient
}

//BotUserID returns the connected bot account's own user ID
func (d *EventSource) BotUserID() string {
	return d.discordClient.State.User.ID
}

//recoverHandlerPanic prevents a panicking handler from crashing the whole bot
func recoverHandlerPanic() {
	if r := recover(); r != nil {
		logrus.Errorf("Bot handler thread panicked: %v", r)
	}
}

func (d *EventSource) dispatchMessageCreateEvent(s *discordgo.Session, m *discordgo.MessageCreate) {
	//Ignore messages created by bot
	if m.Author != nil && m.Author.ID == s.State.User.ID {
		logrus.Debug("Got a message from self; Ignoring.")
		return
	}
	defer recoverHandlerPanic()
	d.handler.HandleMessage(m)
}

func (d *EventSource) dispatchReactionAddEvent(s *discordgo.Session, r *discordgo.MessageReactionAdd) {
	defer recoverHandlerPanic()
	d.handler.HandleReactionAdd(r)
}

func (d *EventSource) dispatchReactionRemoveEvent(s *discordgo.Session, r *discordgo.MessageReactionRemove) {
	defer recoverHandlerPanic()
	d.handler.HandleReactionRemove(r)
}

func (d *EventSource) dispatchReactionRemoveAllEvent(s *discordgo.Session, r *discordgo.MessageReactionRemoveAll) {
	defer recoverHandlerPanic()
	d.handler.HandleReactionRemoveAll(r)
}

func (d *EventSource) dispatchMessageDeleteEvent(s *discordgo.Session, m *discordgo.MessageDelete) {
	defer recoverHandlerPanic()
	d.handler.HandleMessageDelete(m)
}

func (d *EventSource) dispatchChannelDeleteEvent(s *discordgo.Session, c *discordgo.ChannelDelete) {
	defer recoverHandlerPanic()
	d.handler.HandleChannelDelete(c)
}

func (d *EventSource) dispatchGuildCreateEvent(s *discordgo.Session, g *discordgo.GuildCreate) {
	defer recoverHandlerPanic()
	d.handler.HandleGuildCreate(g)
}

func (d *EventSource) dispatchMemberUpdateEvent(s *discordgo.Session, m *discordgo.GuildMemberUpdate) {
	defer recoverHandlerPanic()
	d.handler.HandleMemberUpdate(m)
}
