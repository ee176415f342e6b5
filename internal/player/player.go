package player

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"harmony/internal/music"
	"harmony/internal/subsonic"
)

var (
	ErrNotConnected   = errors.New("player is not connected")
	ErrNothingPlaying = errors.New("nothing is playing")
	ErrNoResults      = music.ErrNoResults
	ErrSeekRange      = errors.New("seek position out of range")
	ErrVolumeRange    = errors.New("volume out of range")
)

// frameDuration is the length of one Opus packet produced by the encoder.
const frameDuration = 20 * time.Millisecond

// Library is the track source.
type Library interface {
	Search(ctx context.Context, query string, count int) ([]subsonic.Song, error)
	Stream(ctx context.Context, id string, opts subsonic.StreamOptions) (io.ReadCloser, error)
}

// Announcer posts playback events to the text channel that requested them.
type Announcer interface {
	TrackStarted(channelID string, t music.Track, paused, repeat bool) (messageID string)
	QueueEnded(channelID, messageID string)
	PlaybackFailed(channelID string, err error)
}

// Deps are the collaborators shared by every player.
type Deps struct {
	Dial      Dialer
	Library   Library
	Encoder   Encoder
	Announcer Announcer
}

type entry struct {
	songID string
	track  music.Track
}

// Player manages audio playback for a single guild.
type Player struct {
	guildID string
	deps    Deps
	log     *zap.Logger

	mu       sync.Mutex
	queue    []*entry
	current  *entry
	paused   bool
	resume   chan struct{} // non-nil while paused, closed on resume
	repeat   bool
	volume   int
	running  bool
	done     chan struct{}
	cancel   context.CancelFunc // aborts the current stream
	skipped  bool
	stopping bool
	seek     *time.Duration
	offset   time.Duration
	scaler   *PCMVolume
	voice    Voice

	textChannelID string
	announceID    string

	frames atomic.Int64
}

var _ music.Session = (*Player)(nil)

// NewPlayer creates an idle player for a guild.
func NewPlayer(guildID string, volume int, deps Deps, log *zap.Logger) *Player {
	return &Player{
		guildID: guildID,
		deps:    deps,
		volume:  volume,
		log:     log.With(zap.String("guild", guildID)),
	}
}

// Running reports whether the playback loop is alive.
func (p *Player) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *Player) Active() (music.Track, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return music.Track{}, false
	}
	t := p.current.track
	t.Position = p.positionLocked()
	return t, true
}

func (p *Player) positionLocked() time.Duration {
	pos := p.offset + time.Duration(p.frames.Load())*frameDuration
	if d := p.current.track.Duration; d > 0 && pos > d {
		pos = d
	}
	return pos
}

// Play searches for query and queues the first hit, joining voiceChannelID
// when the player is idle.
func (p *Player) Play(ctx context.Context, voiceChannelID, query string, meta music.PlayMetadata) (music.Track, error) {
	songs, err := p.deps.Library.Search(ctx, query, 1)
	if err != nil {
		return music.Track{}, fmt.Errorf("search %q: %w", query, err)
	}
	if len(songs) == 0 {
		return music.Track{}, fmt.Errorf("search %q: %w", query, ErrNoResults)
	}

	song := songs[0]
	e := &entry{
		songID: song.ID,
		track: music.Track{
			Title:       song.Title,
			Artist:      song.Artist,
			RequestedBy: meta.RequestedBy,
			Duration:    song.Length(),
		},
	}

	p.mu.Lock()
	if meta.TextChannelID != "" {
		p.textChannelID = meta.TextChannelID
	}
	if p.running {
		if p.stopping {
			// the loop is on its way out and would drop the entry
			p.mu.Unlock()
			return music.Track{}, ErrNotConnected
		}
		p.queue = append(p.queue, e)
		p.mu.Unlock()
		p.log.Info("Enqueued", zap.String("title", song.Title), zap.String("artist", song.Artist))
		return e.track, nil
	}
	p.running = true
	p.current = e
	p.mu.Unlock()

	voice, err := p.deps.Dial(p.guildID, voiceChannelID)
	if err != nil {
		p.mu.Lock()
		p.running = false
		p.current = nil
		p.queue = nil
		p.mu.Unlock()
		return music.Track{}, err
	}

	p.mu.Lock()
	if p.stopping {
		// closed while we were joining
		p.teardownLocked(voice)
		p.mu.Unlock()
		return music.Track{}, ErrNotConnected
	}
	p.voice = voice
	p.done = make(chan struct{})
	ctx = p.beginTrackLocked(e)
	done := p.done
	p.mu.Unlock()

	p.log.Info("Joined voice", zap.String("channel", voiceChannelID), zap.String("title", song.Title))
	go p.playLoop(ctx, voice, done)
	return e.track, nil
}

// beginTrackLocked makes e current and returns the context for its first stream.
func (p *Player) beginTrackLocked(e *entry) context.Context {
	p.current = e
	p.skipped = false
	p.seek = nil
	p.offset = 0
	p.frames.Store(0)
	return p.newStreamLocked()
}

func (p *Player) newStreamLocked() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	return ctx
}

func (p *Player) Skip() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return ErrNothingPlaying
	}
	p.skipped = true
	p.interruptLocked()
	p.log.Info("Skipped", zap.String("title", p.current.track.Title))
	return nil
}

func (p *Player) interruptLocked() {
	if p.cancel != nil {
		p.cancel()
	}
	p.unpauseLocked()
}

func (p *Player) SetPaused(paused bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return ErrNothingPlaying
	}
	if paused {
		if p.resume == nil {
			p.resume = make(chan struct{})
		}
		p.paused = true
	} else {
		p.unpauseLocked()
	}
	p.log.Info("Pause toggled", zap.Bool("paused", paused))
	return nil
}

func (p *Player) unpauseLocked() {
	if p.resume != nil {
		close(p.resume)
		p.resume = nil
	}
	p.paused = false
}

func (p *Player) Paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

// Stop clears the queue and ends playback. The loop disconnects on its way out.
func (p *Player) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return ErrNothingPlaying
	}
	p.stopLocked()
	p.log.Info("Stopped playback")
	return nil
}

func (p *Player) stopLocked() {
	p.queue = nil
	p.stopping = true
	p.interruptLocked()
}

// Leave disconnects from voice, dropping the queue.
func (p *Player) Leave() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return ErrNotConnected
	}
	p.stopLocked()
	p.log.Info("Leaving voice")
	return nil
}

func (p *Player) SetRepeat(repeat bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return ErrNothingPlaying
	}
	p.repeat = repeat
	return nil
}

func (p *Player) Repeat() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.repeat
}

func (p *Player) Shuffle() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.queue) < 2 {
		return nil
	}
	p.queue = lo.Shuffle(p.queue)
	return nil
}

// SeekTo restarts the current track at pos.
func (p *Player) SeekTo(pos time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return ErrNothingPlaying
	}
	if pos < 0 {
		return ErrSeekRange
	}
	if d := p.current.track.Duration; d > 0 && pos > d {
		return ErrSeekRange
	}
	p.seekLocked(pos)
	return nil
}

// SeekBy moves relative to the current position. With clamp the target is
// pinned to the track bounds, otherwise leaving them is an error.
func (p *Player) SeekBy(delta time.Duration, clamp bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return ErrNothingPlaying
	}
	target := p.positionLocked() + delta
	d := p.current.track.Duration
	if clamp {
		target = max(target, 0)
		if d > 0 {
			target = min(target, d)
		}
	} else if target < 0 || (d > 0 && target > d) {
		return ErrSeekRange
	}
	p.seekLocked(target)
	return nil
}

func (p *Player) seekLocked(pos time.Duration) {
	p.seek = &pos
	// position reads report the target until the new stream starts counting
	p.offset = pos
	p.frames.Store(0)
	if p.cancel != nil {
		p.cancel()
	}
	p.log.Info("Seeking", zap.Duration("position", pos))
}

// SetVolume takes effect on the stream immediately.
func (p *Player) SetVolume(percent int) error {
	if percent < 0 || percent > 200 {
		return ErrVolumeRange
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volume = percent
	if p.scaler != nil {
		p.scaler.SetVolume(volumeFactor(percent))
	}
	return nil
}

func volumeFactor(percent int) float64 {
	return float64(percent) / 100
}

func (p *Player) Volume() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

// setIdleVolume resets the volume of a player that is not playing.
func (p *Player) setIdleVolume(percent int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		p.volume = percent
	}
}

func (p *Player) Queue(limit int) []music.Track {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := len(p.queue)
	if limit >= 0 && limit < n {
		n = limit
	}
	return lo.Map(p.queue[:n], func(e *entry, _ int) music.Track { return e.track })
}

func (p *Player) QueueLen() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

func (p *Player) TotalQueueTime() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return lo.SumBy(p.queue, func(e *entry) time.Duration { return e.track.Duration })
}

// Close stops playback and waits for the loop to disconnect.
func (p *Player) Close() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.stopLocked()
	done := p.done
	p.mu.Unlock()

	if done != nil {
		<-done
	}
}

// playLoop plays tracks until the queue runs dry or playback is stopped.
func (p *Player) playLoop(ctx context.Context, voice Voice, done chan struct{}) {
	defer close(done)

	e := p.currentEntry()
	for e != nil {
		p.announceStart(e)
		failed := p.playTrack(ctx, voice, e)

		p.mu.Lock()
		e = p.nextLocked(failed)
		if e == nil {
			// disconnect under the lock so a concurrent Play cannot join half way
			p.teardownLocked(voice)
			text, msgID := p.textChannelID, p.announceID
			p.announceID = ""
			p.mu.Unlock()

			p.log.Info("Playback finished, left voice")
			if p.deps.Announcer != nil && text != "" && msgID != "" {
				p.deps.Announcer.QueueEnded(text, msgID)
			}
			return
		}
		ctx = p.beginTrackLocked(e)
		p.mu.Unlock()
	}
}

func (p *Player) currentEntry() *entry {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// nextLocked picks what to play after the current track ends. A track that
// failed is never repeated.
func (p *Player) nextLocked(failed bool) *entry {
	switch {
	case p.stopping:
		return nil
	case p.repeat && !p.skipped && !failed:
		return p.current
	case len(p.queue) > 0:
		e := p.queue[0]
		p.queue = p.queue[1:]
		return e
	default:
		return nil
	}
}

// playTrack streams e, restarting the stream for every seek. It reports
// whether the track ended on a stream error.
func (p *Player) playTrack(ctx context.Context, voice Voice, e *entry) bool {
	for {
		err := p.stream(ctx, voice, e)

		p.mu.Lock()
		seek := p.seek
		p.seek = nil
		if seek != nil && !p.skipped && !p.stopping {
			ctx = p.newStreamLocked()
			p.mu.Unlock()
			continue
		}
		text := p.textChannelID
		p.mu.Unlock()

		if err == nil || errors.Is(err, context.Canceled) {
			return false
		}
		p.log.Error("Stream failed", zap.String("title", e.track.Title), zap.Error(err))
		if p.deps.Announcer != nil && text != "" {
			p.deps.Announcer.PlaybackFailed(text, err)
		}
		return true
	}
}

// stream sends one transcode of e, starting at the current offset.
func (p *Player) stream(ctx context.Context, voice Voice, e *entry) error {
	p.mu.Lock()
	offset := p.offset
	volume := p.volume
	p.mu.Unlock()

	body, err := p.deps.Library.Stream(ctx, e.songID, subsonic.StreamOptions{Format: "wav", Offset: offset})
	if err != nil {
		return err
	}
	defer body.Close()

	h, err := ReadWavHeader(body)
	if err != nil {
		return fmt.Errorf("parsing WAV header: %w", err)
	}
	p.log.Debug("Stream info",
		zap.Uint32("rate", h.SampleRate),
		zap.Uint16("channels", h.NumChannels),
		zap.Uint16("bits", h.BitsPerSample),
	)

	scaler := NewPCMVolume(body)
	scaler.SetVolume(volumeFactor(volume))
	p.mu.Lock()
	p.scaler = scaler
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		if p.scaler == scaler {
			p.scaler = nil
		}
		p.mu.Unlock()
	}()

	packets, err := p.deps.Encoder.Encode(ctx, scaler, *h)
	if err != nil {
		return err
	}
	defer packets.Close()

	voice.Speaking(true)
	defer voice.Speaking(false)

	for {
		if err := p.waitWhilePaused(ctx); err != nil {
			return err
		}
		packet, err := packets.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		if err := voice.Send(ctx, packet); err != nil {
			return err
		}
		p.frames.Add(1)
	}
}

func (p *Player) waitWhilePaused(ctx context.Context) error {
	p.mu.Lock()
	resume := p.resume
	p.mu.Unlock()
	if resume == nil {
		return ctx.Err()
	}
	select {
	case <-resume:
		return ctx.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Player) announceStart(e *entry) {
	if p.deps.Announcer == nil {
		return
	}
	p.mu.Lock()
	text, paused, repeat := p.textChannelID, p.paused, p.repeat
	p.mu.Unlock()
	if text == "" {
		return
	}

	id := p.deps.Announcer.TrackStarted(text, e.track, paused, repeat)
	p.mu.Lock()
	p.announceID = id
	p.mu.Unlock()
}

func (p *Player) teardownLocked(voice Voice) {
	voice.Disconnect()
	p.running = false
	p.current = nil
	p.queue = nil
	p.stopping = false
	p.skipped = false
	p.repeat = false
	p.seek = nil
	p.unpauseLocked()
	p.voice = nil
	p.cancel = nil
}
