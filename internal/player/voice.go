package player

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
)

// Voice is a joined voice channel.
type Voice interface {
	Speaking(on bool)
	Send(ctx context.Context, packet []byte) error
	Disconnect()
}

// Dialer joins a voice channel.
type Dialer func(guildID, channelID string) (Voice, error)

// voiceSettle gives the voice websocket time to finish its handshake.
const voiceSettle = 250 * time.Millisecond

// DiscordDialer joins voice channels through a discordgo session.
func DiscordDialer(s *discordgo.Session) Dialer {
	return func(guildID, channelID string) (Voice, error) {
		vc, err := s.ChannelVoiceJoin(guildID, channelID, false, true)
		if err != nil {
			return nil, fmt.Errorf("failed to join voice channel: %w", err)
		}
		time.Sleep(voiceSettle)
		return discordVoice{vc: vc}, nil
	}
}

type discordVoice struct {
	vc *discordgo.VoiceConnection
}

func (v discordVoice) Speaking(on bool) {
	v.vc.Speaking(on)
}

func (v discordVoice) Send(ctx context.Context, packet []byte) error {
	select {
	case v.vc.OpusSend <- packet:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (v discordVoice) Disconnect() {
	v.vc.Disconnect()
}
