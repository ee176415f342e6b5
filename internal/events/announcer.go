package events

import (
	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"harmony/internal/music"
	"harmony/internal/player"
)

// Messenger is the part of *discordgo.Session the announcer uses.
type Messenger interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEditComplex(m *discordgo.MessageEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Announcer posts playback events to the channel that requested the music.
type Announcer struct {
	s   Messenger
	log *zap.Logger
}

var _ player.Announcer = (*Announcer)(nil)

func NewAnnouncer(s Messenger, log *zap.Logger) *Announcer {
	return &Announcer{s: s, log: log.Named("events")}
}

// TrackStarted sends the "Now Playing" card with playback controls and
// returns its message id.
func (a *Announcer) TrackStarted(channelID string, t music.Track, paused, repeat bool) string {
	msg, err := a.s.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{music.TrackStartedEmbed(t)},
		Components: music.ControlRows(paused, repeat),
	})
	if err != nil {
		a.log.Warn("Failed to announce track",
			zap.String("channel", channelID),
			zap.String("title", t.Title),
			zap.Error(err),
		)
		return ""
	}
	a.log.Debug("Track started", zap.String("channel", channelID), zap.String("title", t.Title))
	return msg.ID
}

// QueueEnded replaces the last "Now Playing" card and drops its buttons.
func (a *Announcer) QueueEnded(channelID, messageID string) {
	empty := []discordgo.MessageComponent{}
	_, err := a.s.ChannelMessageEditComplex(&discordgo.MessageEdit{
		ID:         messageID,
		Channel:    channelID,
		Embeds:     &[]*discordgo.MessageEmbed{music.QueueEndedEmbed()},
		Components: &empty,
	})
	if err != nil {
		a.log.Warn("Failed to mark queue ended",
			zap.String("channel", channelID),
			zap.String("message", messageID),
			zap.Error(err),
		)
	}
}

func (a *Announcer) PlaybackFailed(channelID string, err error) {
	_, sendErr := a.s.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{music.ErrorEmbed(err)},
	})
	if sendErr != nil {
		a.log.Warn("Failed to report player error",
			zap.String("channel", channelID),
			zap.NamedError("cause", err),
			zap.Error(sendErr),
		)
	}
}
