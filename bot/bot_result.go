package bot

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
)

const (
	successMessageColour int = 0x28bd00
	errorMessageColour   int = 0xbd1b00
)

//BotResponse represents the result of a command which can be both communicated over discord and written to the log.
type BotResponse interface {
	DiscordResponse() *discordgo.MessageSend
	WriteToLog()
}

//ResponseSuccess will be returned when a command has been successfully completed
type ResponseSuccess struct {
	//The base command name
	command string
	//The entire text contents of the message
	commandMsg string
	//A human-readable description of what was done
	description string
	//The time the success was logged at
	timestamp time.Time
}

//DiscordResponse builds a MessageSend object which can be sent back to whoever sent a command message.
func (r ResponseSuccess) DiscordResponse() *discordgo.MessageSend {
	embed := discordgo.MessageEmbed{
		Title:       "Success! \\o/",
		Type:        discordgo.EmbedTypeRich,
		Description: r.description,
		Timestamp:   r.timestamp.Format(time.RFC3339),
		Color:       successMessageColour,
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Log ID: %d", r.timestamp.UnixNano()),
		},
	}
	return &discordgo.MessageSend{
		Embed: &embed,
	}
}

//WriteToLog dumps data on a discord command response to the log
func (r ResponseSuccess) WriteToLog() {
	logrus.Infof("%v Completed command %v successfully: %v", logLineLabel(r.timestamp), r.commandMsg, r.description)
}

//ResponseSyntaxError will be returned when there was an issue with the user's input
type ResponseSyntaxError struct {
	//The base command name
	command string
	//The entire text contents of the message
	commandMsg string
	//A human-readable description of the issue
	description string
	//A description of the correct syntax
	syntax string
	//The time the error was logged at
	timestamp time.Time
}

//DiscordResponse builds a MessageSend object which can be sent back to whoever sent a command message.
func (r ResponseSyntaxError) DiscordResponse() *discordgo.MessageSend {
	description := fmt.Sprintf("Sorry, but there was a problem with the data you supplied for the %v command: \n%v", r.command, r.description)
	fields := map[string]string{
		"Your command":   r.commandMsg,
		"Correct syntax": r.syntax,
	}
	embed := discordgo.MessageEmbed{
		Title:       "Uh-oh, there was something wrong with that command",
		Type:        discordgo.EmbedTypeRich,
		Description: description,
		Timestamp:   r.timestamp.Format(time.RFC3339),
		Color:       errorMessageColour,
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Log ID: %d", r.timestamp.UnixNano()),
		},
		Fields: stringMapToFields(fields),
	}
	return &discordgo.MessageSend{
		Embed: &embed,
	}
}

//WriteToLog dumps data on a discord command response to the log
func (r ResponseSyntaxError) WriteToLog() {
	logrus.Infof("%v Syntax error in command %v: %v", logLineLabel(r.timestamp), r.commandMsg, r.description)
}

//ResponseBindingConflict will be returned when a bind would break the one
//emoji to one role rule for a guild
type ResponseBindingConflict struct {
	//The base command name
	command string
	//The entire text contents of the message
	commandMsg string
	//A human-readable description of which side of the binding clashed
	description string
	//The time the conflict was logged at
	timestamp time.Time
}

//DiscordResponse builds a MessageSend object which can be sent back to whoever sent a command message.
func (r ResponseBindingConflict) DiscordResponse() *discordgo.MessageSend {
	embed := discordgo.MessageEmbed{
		Title:       "That binding clashes with an existing one",
		Type:        discordgo.EmbedTypeRich,
		Description: r.description,
		Timestamp:   r.timestamp.Format(time.RFC3339),
		Color:       errorMessageColour,
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Log ID: %d", r.timestamp.UnixNano()),
		},
	}
	return &discordgo.MessageSend{
		Embed: &embed,
	}
}

//WriteToLog dumps data on a discord command response to the log
func (r ResponseBindingConflict) WriteToLog() {
	logrus.Infof("%v Rejected command %v due to binding conflict: %v", logLineLabel(r.timestamp), r.commandMsg, r.description)
}

//ResponseRoleNotFound will be returned when no role matching the user's input exists
type ResponseRoleNotFound struct {
	//The base command name
	command string
	//The entire text contents of the message
	commandMsg string
	//The role identifier that failed to resolve
	roleName string
	//The time the error was logged at
	timestamp time.Time
}

//DiscordResponse builds a MessageSend object which can be sent back to whoever sent a command message.
func (r ResponseRoleNotFound) DiscordResponse() *discordgo.MessageSend {
	description := fmt.Sprintf("I couldn't find any role matching `%v` on this server.", r.roleName)
	embed := discordgo.MessageEmbed{
		Title:       "Role not found",
		Type:        discordgo.EmbedTypeRich,
		Description: description,
		Timestamp:   r.timestamp.Format(time.RFC3339),
		Color:       errorMessageColour,
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Log ID: %d", r.timestamp.UnixNano()),
		},
	}
	return &discordgo.MessageSend{
		Embed: &embed,
	}
}

//WriteToLog dumps data on a discord command response to the log
func (r ResponseRoleNotFound) WriteToLog() {
	logrus.Infof("%v Could not resolve role %v for command %v", logLineLabel(r.timestamp), r.roleName, r.commandMsg)
}

//ResponseInternalError will be returned when there was some kind of error within the bot or when communicating with
//APIs
type ResponseInternalError struct {
	//The base command name
	command string
	//The entire text contents of the message
	commandMsg string
	//A human-readable description of the issue
	description string
	//A map containing fields which should be included in the embed
	data map[string]string
	//The time the error was logged at
	timestamp time.Time
}

//DiscordResponse builds a MessageSend object which can be sent back to whoever sent a command message.
func (r ResponseInternalError) DiscordResponse() *discordgo.MessageSend {
	description := fmt.Sprintf("Oops! I encountered an unexpected error whilst running your %v command. Please try again later or file a bug report.", r.command)
	dataWithDescription := r.data
	if dataWithDescription == nil {
		dataWithDescription = map[string]string{}
	}
	dataWithDescription["Error"] = r.description
	embed := discordgo.MessageEmbed{
		Title:       "Oops, something went wrong ;w;",
		Type:        discordgo.EmbedTypeRich,
		Description: description,
		Timestamp:   r.timestamp.Format(time.RFC3339),
		Color:       errorMessageColour,
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Log ID: %d", r.timestamp.UnixNano()),
		},
		Fields: stringMapToFields(dataWithDescription),
	}
	return &discordgo.MessageSend{
		Embed: &embed,
	}
}

//WriteToLog dumps data on a discord command response to the log
func (r ResponseInternalError) WriteToLog() {
	logrus.Infof("%v Internal error whilst executing command %v: %v | data: %v", logLineLabel(r.timestamp), r.commandMsg, r.description, r.data)
}

//ResponseNotAllowed will be returned when a user tried to run a command that they do not have the correct role for
type ResponseNotAllowed struct {
	//The base command name
	command string
	//The entire text contents of the message
	commandMsg string
	//A human-readable description of the issue
	description string
	//The time the error was logged at
	timestamp time.Time
}

//DiscordResponse builds a MessageSend object which can be sent back to whoever sent a command message.
func (r ResponseNotAllowed) DiscordResponse() *discordgo.MessageSend {
	description := "I'm sorry Dave, I can't let you do that..."
	fields := map[string]string{
		"Reason":  r.description,
		"Command": r.commandMsg,
	}
	embed := discordgo.MessageEmbed{
		Title:       "That's illegal m8",
		Type:        discordgo.EmbedTypeRich,
		Description: description,
		Timestamp:   r.timestamp.Format(time.RFC3339),
		Color:       errorMessageColour,
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Log ID: %d", r.timestamp.UnixNano()),
		},
		Fields: stringMapToFields(fields),
	}
	return &discordgo.MessageSend{
		Embed: &embed,
	}
}

//WriteToLog dumps data on a discord command response to the log
func (r ResponseNotAllowed) WriteToLog() {
	logrus.Infof("%v Rejected command `%v` as the sender did not have the correct priveliges | description: %v", logLineLabel(r.timestamp), r.commandMsg, r.description)
}

/////////////////////
//Utility Functions//
/////////////////////

func logLineLabel(t time.Time) string {
	return fmt.Sprintf("#%v# | ", t.UnixNano())
}

func stringMapToFields(fields map[string]string) []*discordgo.MessageEmbedField {
	var res []*discordgo.MessageEmbedField
	for fieldName, content := range fields {
		field := discordgo.MessageEmbedField{
			Name:   fieldName,
			Value:  content,
			Inline: false,
		}
		res = append(res, &field)
	}
	return res
}
