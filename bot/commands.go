package bot

import (
	"strings"

	"github.com/bwmarrin/discordgo"
)

//HandleMessage is called upon every recieved message. It checks if the message is a command, and executes it.
func (b *MomijiBot) HandleMessage(msg *discordgo.MessageCreate) {
	if b.Roles == nil || msg.GuildID == "" {
		return
	}
	if strings.HasPrefix(msg.Content, "!") {
		//We have a command
		words := strings.SplitN(msg.Content, " ", 2)
		command := strings.ToLower(strings.TrimLeft(words[0], "!"))
		switch command {
		case "addrole":
			b.HandleAddRoleMessage(msg)
		case "removerole":
			b.HandleRemoveRoleMessage(msg)
		case "changeemoji":
			b.HandleChangeEmojiMessage(msg)
		}
	}
}
