package bot

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/callummance/momiji/roles"
	"github.com/sirupsen/logrus"
)

const discordDevUIDEnvVar string = "MOMIJI_DISCORD_DEV_UID"

const handleAddRoleSyntax string = "```" +
	`!addrole [-n] <role> <emoji>
	<role> may be the role name (in double quotation marks if it contains spaces) or an @mention.
	<emoji> should be an emoji.
	Pass -n to have the bot create the role if it does not exist yet.` +
	"```"

const handleRemoveRoleSyntax string = "```" +
	`!removerole <role>
	<role> may be the role name (in double quotation marks if it contains spaces) or an @mention.
	The role itself is not deleted, it just stops being self-assignable.` +
	"```"

const handleChangeEmojiSyntax string = "```" +
	`!changeemoji <role> <emoji>
	<role> may be the role name (in double quotation marks if it contains spaces) or an @mention.
	<emoji> should be the new emoji for the role.` +
	"```"

var addRoleArgsRegex = regexp.MustCompile(`^\s*(?:(-n)\s+)?((?:"?<@&\d+>"?)|(?:"[^"]*")|(?:\w+))\s+(\S+)\s*$`)
var removeRoleArgsRegex = regexp.MustCompile(`^\s*((?:"?<@&\d+>"?)|(?:"[^"]*")|(?:\w+))\s*$`)
var changeEmojiArgsRegex = regexp.MustCompile(`^\s*((?:"?<@&\d+>"?)|(?:"[^"]*")|(?:\w+))\s+(\S+)\s*$`)

//HandleAddRoleMessage handles a message containing an add role command
//command format: !addrole [-n] <role> <emoji>
func (b *MomijiBot) HandleAddRoleMessage(msg *discordgo.MessageCreate) {
	b.runAdminCommand(msg, "!addrole", func() BotResponse {
		argString := strings.TrimSpace(strings.TrimPrefix(msg.Content, "!addrole"))
		matches := addRoleArgsRegex.FindStringSubmatch(argString)
		if matches == nil {
			return ResponseSyntaxError{
				command:     "!addrole",
				commandMsg:  msg.Content,
				description: "I couldn't understand that",
				syntax:      handleAddRoleSyntax,
				timestamp:   time.Now(),
			}
		}
		createIfMissing := matches[1] == "-n"
		roleArg := matches[2]
		emoji := interpretEmoji(matches[3])
		if emoji == nil {
			return ResponseSyntaxError{
				command:     "!addrole",
				commandMsg:  msg.Content,
				description: fmt.Sprintf("`%v` doesn't look like an emoji to me", matches[3]),
				syntax:      handleAddRoleSyntax,
				timestamp:   time.Now(),
			}
		}

		role, err := b.interpretRoleString(roleArg, msg.GuildID)
		if err != nil {
			return ResponseInternalError{
				command:     "!addrole",
				commandMsg:  msg.Content,
				description: "Failed to look up roles on this server",
				data:        map[string]string{"Error": err.Error()},
				timestamp:   time.Now(),
			}
		}
		if role == nil {
			if !createIfMissing {
				return ResponseRoleNotFound{
					command:    "!addrole",
					commandMsg: msg.Content,
					roleName:   roleArg,
					timestamp:  time.Now(),
				}
			}
			roleName := roleNameFromArg(roleArg)
			role, err = b.DiscordSession().GuildRoleCreate(msg.GuildID, &discordgo.RoleParams{Name: roleName})
			if err != nil {
				logrus.Warnf("Failed to create role %v in guild %v due to error %v", roleName, msg.GuildID, err)
				return ResponseInternalError{
					command:     "!addrole",
					commandMsg:  msg.Content,
					description: fmt.Sprintf("Failed to create the %v role", roleName),
					data:        map[string]string{"Error": err.Error()},
					timestamp:   time.Now(),
				}
			}
			logrus.Infof("Created role %v (%v) in guild %v for self-assignment", roleName, role.ID, msg.GuildID)
		}

		if err := b.Roles.AddBinding(msg.GuildID, *emoji, role.ID); err != nil {
			return bindingErrorResponse("!addrole", msg.Content, err)
		}
		return ResponseSuccess{
			command:     "!addrole",
			commandMsg:  msg.Content,
			description: fmt.Sprintf("Added role **%v** to the assignable roles with the emoji %v", role.Name, matches[3]),
			timestamp:   time.Now(),
		}
	})
}

//HandleRemoveRoleMessage handles a message containing a remove role command
//command format: !removerole <role>
func (b *MomijiBot) HandleRemoveRoleMessage(msg *discordgo.MessageCreate) {
	b.runAdminCommand(msg, "!removerole", func() BotResponse {
		argString := strings.TrimSpace(strings.TrimPrefix(msg.Content, "!removerole"))
		matches := removeRoleArgsRegex.FindStringSubmatch(argString)
		if matches == nil {
			return ResponseSyntaxError{
				command:     "!removerole",
				commandMsg:  msg.Content,
				description: "I couldn't understand that",
				syntax:      handleRemoveRoleSyntax,
				timestamp:   time.Now(),
			}
		}
		role, err := b.interpretRoleString(matches[1], msg.GuildID)
		if err != nil {
			return ResponseInternalError{
				command:     "!removerole",
				commandMsg:  msg.Content,
				description: "Failed to look up roles on this server",
				data:        map[string]string{"Error": err.Error()},
				timestamp:   time.Now(),
			}
		}
		if role == nil {
			return ResponseRoleNotFound{
				command:    "!removerole",
				commandMsg: msg.Content,
				roleName:   matches[1],
				timestamp:  time.Now(),
			}
		}

		emoji, err := b.Roles.RemoveBinding(msg.GuildID, role.ID)
		if err != nil {
			return bindingErrorResponse("!removerole", msg.Content, err)
		}
		return ResponseSuccess{
			command:     "!removerole",
			commandMsg:  msg.Content,
			description: fmt.Sprintf("Role **%v** is no longer self-assignable (freed up %v)", role.Name, emoji),
			timestamp:   time.Now(),
		}
	})
}

//HandleChangeEmojiMessage handles a message containing a change emoji command
//command format: !changeemoji <role> <emoji>
func (b *MomijiBot) HandleChangeEmojiMessage(msg *discordgo.MessageCreate) {
	b.runAdminCommand(msg, "!changeemoji", func() BotResponse {
		argString := strings.TrimSpace(strings.TrimPrefix(msg.Content, "!changeemoji"))
		matches := changeEmojiArgsRegex.FindStringSubmatch(argString)
		if matches == nil {
			return ResponseSyntaxError{
				command:     "!changeemoji",
				commandMsg:  msg.Content,
				description: "I couldn't understand that",
				syntax:      handleChangeEmojiSyntax,
				timestamp:   time.Now(),
			}
		}
		emoji := interpretEmoji(matches[2])
		if emoji == nil {
			return ResponseSyntaxError{
				command:     "!changeemoji",
				commandMsg:  msg.Content,
				description: fmt.Sprintf("`%v` doesn't look like an emoji to me", matches[2]),
				syntax:      handleChangeEmojiSyntax,
				timestamp:   time.Now(),
			}
		}
		role, err := b.interpretRoleString(matches[1], msg.GuildID)
		if err != nil {
			return ResponseInternalError{
				command:     "!changeemoji",
				commandMsg:  msg.Content,
				description: "Failed to look up roles on this server",
				data:        map[string]string{"Error": err.Error()},
				timestamp:   time.Now(),
			}
		}
		if role == nil {
			return ResponseRoleNotFound{
				command:    "!changeemoji",
				commandMsg: msg.Content,
				roleName:   matches[1],
				timestamp:  time.Now(),
			}
		}

		oldEmoji, err := b.Roles.ChangeBindingEmoji(msg.GuildID, role.ID, *emoji)
		if err != nil {
			return bindingErrorResponse("!changeemoji", msg.Content, err)
		}
		return ResponseSuccess{
			command:     "!changeemoji",
			commandMsg:  msg.Content,
			description: fmt.Sprintf("Changed the emoji for the role **%v** from %v to %v", role.Name, oldEmoji, matches[2]),
			timestamp:   time.Now(),
		}
	})
}

//runAdminCommand wraps a command body with the admin gate and the
//respond-by-reply plumbing shared by every binding command.
func (b *MomijiBot) runAdminCommand(msg *discordgo.MessageCreate, command string, body func() BotResponse) {
	var result BotResponse
	isFromAdmin, err := b.isFromAdmin(msg.Member, msg.Author, msg.GuildID)
	if err != nil {
		logrus.Warnf("Failed to check if message came from admin due to error %v", err)
		result = ResponseInternalError{
			command:     command,
			commandMsg:  msg.Content,
			description: "Failed to check your permissions",
			data:        map[string]string{"Error": err.Error()},
			timestamp:   time.Now(),
		}
	} else if !isFromAdmin {
		result = ResponseNotAllowed{
			command:     command,
			commandMsg:  msg.Content,
			description: fmt.Sprintf("The %v command needs the Manage Server permission", command),
			timestamp:   time.Now(),
		}
	} else {
		result = body()
	}
	//Respond
	result.WriteToLog()
	resp := result.DiscordResponse()
	resp.Reference = &discordgo.MessageReference{
		MessageID: msg.ID,
		ChannelID: msg.ChannelID,
		GuildID:   msg.GuildID,
	}
	_, err = b.DiscordSession().ChannelMessageSendComplex(msg.ChannelID, resp)
	if err != nil {
		logrus.Errorf("Failed to send response to command due to error %v", err)
	}
}

//bindingErrorResponse renders an error from the role engine as a command
//response.
func bindingErrorResponse(command, commandMsg string, err error) BotResponse {
	switch {
	case errors.Is(err, roles.ErrEmojiBound):
		return ResponseBindingConflict{
			command:     command,
			commandMsg:  commandMsg,
			description: "That emoji already has a role associated with it!",
			timestamp:   time.Now(),
		}
	case errors.Is(err, roles.ErrRoleBound):
		return ResponseBindingConflict{
			command:     command,
			commandMsg:  commandMsg,
			description: "That role already has an emoji associated with it!",
			timestamp:   time.Now(),
		}
	case errors.Is(err, roles.ErrNotBound):
		return ResponseBindingConflict{
			command:     command,
			commandMsg:  commandMsg,
			description: "That role isn't self-assignable",
			timestamp:   time.Now(),
		}
	case errors.Is(err, roles.ErrSurfaceUnavailable):
		return ResponseInternalError{
			command:     command,
			commandMsg:  commandMsg,
			description: "The binding was recorded but I couldn't update the join channel",
			data:        map[string]string{"Error": err.Error()},
			timestamp:   time.Now(),
		}
	default:
		return ResponseInternalError{
			command:     command,
			commandMsg:  commandMsg,
			description: "Encountered internal error whilst updating role bindings",
			data:        map[string]string{"Error": err.Error()},
			timestamp:   time.Now(),
		}
	}
}

func isDev(userID string) bool {
	devUID, exists := os.LookupEnv(discordDevUIDEnvVar)
	if !exists {
		return false
	}
	return userID == devUID
}
