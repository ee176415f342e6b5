package commands

import (
	"github.com/bwmarrin/discordgo"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"harmony/internal/music"
)

// --- Member context ---

func (r *Router) member(s *discordgo.Session, guildID string, u *discordgo.User, roles []string, perms int64) music.Member {
	return music.Member{
		UserID:         u.ID,
		Username:       u.Username,
		Mention:        u.Mention(),
		RoleIDs:        roles,
		ManageGuild:    canManageGuild(perms),
		VoiceChannelID: findUserVoiceChannel(s.State, guildID, u.ID),
	}
}

func canManageGuild(perms int64) bool {
	return perms&(discordgo.PermissionManageGuild|discordgo.PermissionAdministrator) != 0
}

// messagePermissions resolves the author's permissions, preferring the state cache.
func messagePermissions(s *discordgo.Session, userID, channelID string, log *zap.Logger) int64 {
	if perms, err := s.State.UserChannelPermissions(userID, channelID); err == nil {
		return perms
	}
	perms, err := s.UserChannelPermissions(userID, channelID)
	if err != nil {
		log.Warn("Failed to resolve permissions",
			zap.String("user", userID),
			zap.String("channel", channelID),
			zap.Error(err),
		)
		return 0
	}
	return perms
}

// findUserVoiceChannel finds the voice channel the user is in.
func findUserVoiceChannel(state *discordgo.State, guildID, userID string) string {
	if state == nil {
		return ""
	}
	guild, err := state.Guild(guildID)
	if err != nil {
		return ""
	}
	for _, vs := range guild.VoiceStates {
		if vs.UserID == userID {
			return vs.ChannelID
		}
	}
	return ""
}

// Directory answers role and channel lookups from the state cache, falling
// back to REST.
type Directory struct {
	state   *discordgo.State
	fetch   func(guildID string) ([]*discordgo.Role, error)
	channel func(channelID string) (*discordgo.Channel, error)
	log     *zap.Logger
}

var _ music.Directory = (*Directory)(nil)

func NewDirectory(s *discordgo.Session, log *zap.Logger) *Directory {
	return &Directory{
		state:   s.State,
		fetch:   func(guildID string) ([]*discordgo.Role, error) { return s.GuildRoles(guildID) },
		channel: func(channelID string) (*discordgo.Channel, error) { return s.Channel(channelID) },
		log:     log.Named("directory"),
	}
}

func (d *Directory) RoleExists(guildID, roleID string) bool {
	if d.state != nil {
		if _, err := d.state.Role(guildID, roleID); err == nil {
			return true
		}
	}
	roles, err := d.fetch(guildID)
	if err != nil {
		d.log.Warn("Failed to fetch guild roles", zap.String("guild", guildID), zap.Error(err))
		return false
	}
	return lo.ContainsBy(roles, func(r *discordgo.Role) bool { return r.ID == roleID })
}

func (d *Directory) ChannelExists(guildID, channelID string) bool {
	if d.state != nil {
		if c, err := d.state.Channel(channelID); err == nil {
			return isGuildTextChannel(c, guildID)
		}
	}
	c, err := d.channel(channelID)
	if err != nil {
		d.log.Debug("Failed to fetch channel", zap.String("channel", channelID), zap.Error(err))
		return false
	}
	return isGuildTextChannel(c, guildID)
}

func isGuildTextChannel(c *discordgo.Channel, guildID string) bool {
	if c.GuildID != guildID {
		return false
	}
	return c.Type == discordgo.ChannelTypeGuildText || c.Type == discordgo.ChannelTypeGuildNews
}

// --- Delivery ---

func messageSend(resp music.Response, ref *discordgo.MessageReference) *discordgo.MessageSend {
	send := &discordgo.MessageSend{
		Content:         resp.Content,
		Components:      resp.Components,
		Reference:       ref,
		AllowedMentions: &discordgo.MessageAllowedMentions{},
	}
	if resp.Embed != nil {
		send.Embeds = []*discordgo.MessageEmbed{resp.Embed}
	}
	return send
}

func interactionResponse(resp music.Response) *discordgo.InteractionResponse {
	data := &discordgo.InteractionResponseData{
		Content:         resp.Content,
		Components:      resp.Components,
		AllowedMentions: &discordgo.MessageAllowedMentions{},
	}
	if resp.Embed != nil {
		data.Embeds = []*discordgo.MessageEmbed{resp.Embed}
	}
	if resp.Ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	}
}

func (r *Router) sendMessage(s *discordgo.Session, m *discordgo.Message, resp music.Response) {
	defer r.recoverDelivery(m.GuildID)

	if resp.Reaction != "" {
		if err := s.MessageReactionAdd(m.ChannelID, m.ID, resp.Reaction); err != nil {
			r.log.Warn("Failed to react", zap.String("channel", m.ChannelID), zap.Error(err))
		}
		return
	}
	if _, err := s.ChannelMessageSendComplex(m.ChannelID, messageSend(resp, m.Reference())); err != nil {
		r.log.Warn("Failed to send reply", zap.String("channel", m.ChannelID), zap.Error(err))
	}
}

func (r *Router) respond(s *discordgo.Session, i *discordgo.InteractionCreate, resp music.Response) {
	defer r.recoverDelivery(i.GuildID)

	if err := s.InteractionRespond(i.Interaction, interactionResponse(resp)); err != nil {
		r.log.Warn("Failed to respond to interaction", zap.String("guild", i.GuildID), zap.Error(err))
	}
}

func (r *Router) recoverDelivery(guildID string) {
	if rec := recover(); rec != nil {
		r.log.Error("Recovered from panic while responding",
			zap.String("guild", guildID),
			zap.Any("panic", rec),
		)
	}
}
