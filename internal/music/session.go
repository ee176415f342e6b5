package music

import (
	"context"
	"time"
)

// Track is a snapshot of one queued or playing song.
type Track struct {
	Title       string
	Artist      string
	URL         string
	Thumbnail   string
	RequestedBy string
	Duration    time.Duration
	Position    time.Duration
}

// PlayMetadata travels with a play request so the player knows where to announce.
type PlayMetadata struct {
	TextChannelID string
	RequestedBy   string
}

// Session is the playback facade for one guild.
type Session interface {
	Active() (Track, bool)
	Play(ctx context.Context, voiceChannelID, query string, meta PlayMetadata) (Track, error)
	Skip() error
	SetPaused(paused bool) error
	Paused() bool
	Stop() error
	SetRepeat(repeat bool) error
	Repeat() bool
	Shuffle() error
	SeekTo(pos time.Duration) error
	SeekBy(delta time.Duration, clamp bool) error
	SetVolume(percent int) error
	Volume() int
	Leave() error
	Queue(limit int) []Track
	QueueLen() int
	TotalQueueTime() time.Duration
}

// Players hands out per-guild sessions.
type Players interface {
	// Session returns nil when the guild has no player.
	Session(guildID string) Session
	Open(guildID string, volume int) Session
}

// Directory answers questions about guild entities that live on the chat platform.
type Directory interface {
	RoleExists(guildID, roleID string) bool
	// ChannelExists reports whether channelID is a text channel of the guild.
	ChannelExists(guildID, channelID string) bool
}
