package bot

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
)

//Allows @mentions, double quotation marked roles or roles only made up from letters
var roleRegex = regexp.MustCompile(`^\s*(?:"?<@&(\d+)>"?|"([^"]*)"|(\w+))\s*$`)

//interpretRoleString resolves a role argument (mention, quoted name or bare
//word) against the roles of a guild. A nil role with a nil error means the
//argument was well-formed but no such role exists.
func (b *MomijiBot) interpretRoleString(roleStr string, guildID string) (*discordgo.Role, error) {
	guildRoles, err := b.DiscordSession().GuildRoles(guildID)
	if err != nil {
		logrus.Warnf("Failed to fetch guild roles for guild id %v", guildID)
		return nil, err
	}
	matches := roleRegex.FindStringSubmatch(roleStr)

	switch {
	case matches == nil:
		return nil, fmt.Errorf("empty role identifier was provided")
	case matches[1] != "":
		//We have a role id directly
		rid := matches[1]
		for _, guildRole := range guildRoles {
			if guildRole.ID == rid {
				return guildRole, nil
			}
		}
		return nil, nil
	case matches[2] != "" || matches[3] != "":
		//We have a role name, quoted or bare
		roleName := matches[2]
		if roleName == "" {
			roleName = matches[3]
		}
		for _, guildRole := range guildRoles {
			if guildRole.Name == roleName {
				return guildRole, nil
			}
		}
		return nil, nil
	default:
		return nil, fmt.Errorf("%v was not a valid role string format", roleStr)
	}
}

//roleNameFromArg strips mention/quote syntax from a role argument, leaving
//the plain name. Used when creating a role that does not exist yet.
func roleNameFromArg(roleStr string) string {
	matches := roleRegex.FindStringSubmatch(roleStr)
	if matches == nil {
		return strings.TrimSpace(roleStr)
	}
	if matches[2] != "" {
		return matches[2]
	}
	if matches[3] != "" {
		return matches[3]
	}
	return strings.TrimSpace(roleStr)
}

//This is kind of a mess and waay too greedy but the symbol other category doesn't seem to work with RE2 so eh ¯\_(ツ)_/¯
const unicodeEmojiRegex = `(\S{1,4})`

var emojiRegex = regexp.MustCompile(`(<(a?):([^:]+):(\d+)>)|` + unicodeEmojiRegex)

//interpretEmoji turns an emoji argument into the API name the reaction
//endpoints expect: the raw character for unicode emoji, name:id for custom
//guild emoji.
func interpretEmoji(emojiStr string) *string {
	matches := emojiRegex.FindStringSubmatch(emojiStr)
	switch {
	case matches == nil:
		return nil
	case matches[1] != "":
		//Discord guild emoji
		name := matches[3]
		id := matches[4]
		apiName := fmt.Sprintf("%v:%v", name, id)
		return &apiName
	case matches[5] != "":
		//Unicode emoji
		return &matches[5]
	default:
		return nil
	}
}

const adminPermissions int64 = discordgo.PermissionManageServer | discordgo.PermissionAdministrator

//isFromAdmin reports whether a command message came from someone allowed to
//administer role bindings: the dev, the guild owner, or a member holding a
//role with the Manage Server permission.
func (b *MomijiBot) isFromAdmin(member *discordgo.Member, user *discordgo.User, guildID string) (bool, error) {
	//Works if from dev
	if isDev(user.ID) {
		return true, nil
	}
	//Works if from server owner
	guild, err := b.DiscordSession().Guild(guildID)
	if err != nil {
		logrus.Warnf("Failed to fetch guild object from Discord API when checking if user %v is admin for server %v", user.ID, guildID)
		return false, err
	} else if guild.OwnerID == user.ID {
		return true, nil
	}
	if member == nil {
		return false, nil
	}
	//Works if the user holds a role which can manage the server
	guildRoles, err := b.DiscordSession().GuildRoles(guildID)
	if err != nil {
		logrus.Warnf("Failed to fetch guild roles when checking if user %v is admin for server %v", user.ID, guildID)
		return false, err
	}
	held := make(map[string]struct{}, len(member.Roles))
	for _, roleID := range member.Roles {
		held[roleID] = struct{}{}
	}
	for _, role := range guildRoles {
		if _, ok := held[role.ID]; ok && role.Permissions&adminPermissions != 0 {
			return true, nil
		}
	}
	return false, nil
}
