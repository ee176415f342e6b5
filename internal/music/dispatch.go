package music

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"harmony/internal/guildconfig"
)

// ErrNoResults is returned by Session.Play when the search finds nothing.
var ErrNoResults = errors.New("no results")

// ConfigStore is the part of the guild configuration store the dispatcher needs.
type ConfigStore interface {
	Get(ctx context.Context, guildID string) guildconfig.Config
	Set(ctx context.Context, guildID string, cfg guildconfig.Config) error
}

// Links are the URLs shown by the invite and support commands.
type Links struct {
	Invite  string
	Support string
}

// Call is one authorized unit of work.
type Call struct {
	GuildID       string
	ChannelID     string
	Member        Member
	Action        Action
	Config        guildconfig.Config
	FromComponent bool
}

// Dispatcher executes actions against the playback facade and the config store.
type Dispatcher struct {
	players Players
	store   ConfigStore
	dir     Directory
	links   Links
	log     *zap.Logger
}

func NewDispatcher(players Players, store ConfigStore, dir Directory, links Links, log *zap.Logger) *Dispatcher {
	return &Dispatcher{
		players: players,
		store:   store,
		dir:     dir,
		links:   links,
		log:     log.Named("dispatch"),
	}
}

// Dispatch runs call.Action if auth allows it and shapes the reply.
func (d *Dispatcher) Dispatch(ctx context.Context, call Call, auth Authorization) (resp Response) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("Panic while dispatching",
				zap.String("guild", call.GuildID),
				zap.String("action", call.Action.Name()),
				zap.Any("panic", r),
			)
			resp = Failure()
		}
	}()

	if !auth.Allowed {
		d.log.Debug("Action denied",
			zap.String("guild", call.GuildID),
			zap.String("user", call.Member.UserID),
			zap.String("action", call.Action.Name()),
			zap.String("reason", auth.Reason),
		)
		return denied(auth.Reason, call.FromComponent)
	}

	switch call.Action.Class() {
	case ClassControl:
		return d.control(call)
	case ClassConfig:
		return d.configure(ctx, call)
	default:
		return d.open(ctx, call)
	}
}

func (d *Dispatcher) control(call Call) Response {
	s := d.players.Session(call.GuildID)
	if s == nil {
		return idle(msgNothingPlaying)
	}
	cur, ok := s.Active()
	if !ok {
		return idle(msgNothingPlaying)
	}

	var (
		err error
		msg string
	)
	switch a := call.Action.(type) {
	case Skip:
		err, msg = s.Skip(), "⏭️ Skipped the current track"
	case Pause:
		err, msg = s.SetPaused(true), "⏸️ Playback paused"
	case Resume:
		err, msg = s.SetPaused(false), "▶️ Playback resumed"
	case TogglePause:
		paused := !s.Paused()
		err, msg = s.SetPaused(paused), "▶️ Playback resumed"
		if paused {
			msg = "⏸️ Playback paused"
		}
	case Stop:
		err, msg = s.Stop(), "⏹️ Stopped playback and cleared queue"
	case Loop:
		repeat := !s.Repeat()
		err, msg = s.SetRepeat(repeat), "🔁 Loop disabled"
		if repeat {
			msg = "🔁 Loop enabled"
		}
	case Shuffle:
		if s.QueueLen() < 2 {
			return invalid(msgFewToShuffle)
		}
		err, msg = s.Shuffle(), "🔀 Queue shuffled"
	case Seek:
		if cur.Duration > 0 && a.To > cur.Duration {
			return invalid(msgSeekPastEnd)
		}
		err, msg = s.SeekTo(a.To), fmt.Sprintf("⏩ Seeking to %s", FormatTime(a.To))
	case SeekBy:
		err = s.SeekBy(a.Delta, true)
		if a.Delta < 0 {
			msg = fmt.Sprintf("⏪ Rewinded %d seconds", int(-a.Delta.Seconds()))
		} else {
			msg = fmt.Sprintf("⏩ Forwarded %d seconds", int(a.Delta.Seconds()))
		}
	case Volume:
		err, msg = s.SetVolume(a.Percent), fmt.Sprintf("🔊 Volume set to %d%%", a.Percent)
	case Leave:
		err, msg = s.Leave(), "🚪 Left the voice channel"
	case BadTime:
		if a.Input == "" {
			return invalid(msgNoSeekTime)
		}
		return invalid(msgBadSeekTime)
	case BadVolume:
		return invalid(msgBadVolume)
	default:
		return Failure()
	}

	if err != nil {
		d.log.Error("Playback control failed",
			zap.String("guild", call.GuildID),
			zap.String("action", call.Action.Name()),
			zap.Error(err),
		)
		return Failure()
	}
	return reply(msg)
}

func (d *Dispatcher) open(ctx context.Context, call Call) Response {
	switch a := call.Action.(type) {
	case Play:
		return d.play(ctx, call, a)
	case ShowQueue:
		s := d.players.Session(call.GuildID)
		if s == nil {
			return idle(msgEmptyQueue)
		}
		cur, ok := s.Active()
		if !ok {
			return idle(msgEmptyQueue)
		}
		return embedReply(queueEmbed(cur, s.Queue(queuePreview), s.QueueLen(), s.TotalQueueTime()))
	case NowPlaying:
		s := d.players.Session(call.GuildID)
		if s == nil {
			return idle(msgNothingPlaying)
		}
		cur, ok := s.Active()
		if !ok {
			return idle(msgNothingPlaying)
		}
		return embedReply(nowPlayingEmbed(cur, s.Volume()))
	case Lyrics:
		return Response{Content: msgLyrics, Ephemeral: true, Outcome: OutcomeOK}
	case Help:
		if a.Topic == "" {
			return Response{Embed: helpEmbed(call.Config.Prefix), Components: helpMenu(), Outcome: OutcomeOK}
		}
		return Response{Embed: helpTopicEmbed(a.Topic, call.Config.Prefix), Ephemeral: call.FromComponent, Outcome: OutcomeOK}
	case Invite:
		return embedReply(inviteEmbed(d.links))
	case Support:
		return embedReply(supportEmbed(d.links))
	case Unknown:
		return Response{
			Content: fmt.Sprintf("❌ Unknown command. Use `%shelp` to see available commands.", call.Config.Prefix),
			Outcome: OutcomeInvalid,
		}
	default:
		return Failure()
	}
}

func (d *Dispatcher) play(ctx context.Context, call Call, a Play) Response {
	if call.Member.VoiceChannelID == "" {
		return invalid(msgNoVoice)
	}
	if a.Query == "" {
		return invalid(msgNoQuery)
	}

	s := d.players.Session(call.GuildID)
	if s == nil {
		s = d.players.Open(call.GuildID, call.Config.DefaultVolume)
	}

	t, err := s.Play(ctx, call.Member.VoiceChannelID, a.Query, PlayMetadata{
		TextChannelID: call.ChannelID,
		RequestedBy:   call.Member.Mention,
	})
	if errors.Is(err, ErrNoResults) {
		return invalid(fmt.Sprintf("❌ No results found for: **%s**", a.Query))
	}
	if err != nil {
		d.log.Error("Play failed",
			zap.String("guild", call.GuildID),
			zap.String("query", a.Query),
			zap.Error(err),
		)
		return Response{Content: msgPlayFailure, Outcome: OutcomeFailed}
	}

	if a.FromMusicChannel {
		return Response{Reaction: "✅", Outcome: OutcomeOK}
	}
	return embedReply(addedEmbed(t, call.Member.Username))
}

func (d *Dispatcher) configure(ctx context.Context, call Call) Response {
	cfg := d.store.Get(ctx, call.GuildID)
	if cfg.Degraded {
		// writing now would replace the stored record with defaults
		d.log.Warn("Guild config unavailable, refusing to change it",
			zap.String("guild", call.GuildID),
			zap.String("action", call.Action.Name()),
		)
		return Failure()
	}

	var msg string
	switch a := call.Action.(type) {
	case SetPrefix:
		if !guildconfig.ValidPrefix(a.Prefix) {
			return invalid(msgBadPrefix)
		}
		cfg.Prefix = a.Prefix
		msg = fmt.Sprintf("✅ Prefix changed to `%s`", a.Prefix)
	case SetMusicChannel:
		switch {
		case a.Clear:
			cfg.MusicChannel = ""
			msg = "✅ Music channel disabled"
		case a.ChannelID == "" || !d.dir.ChannelExists(call.GuildID, a.ChannelID):
			return invalid(msgBadChannel)
		default:
			cfg.MusicChannel = a.ChannelID
			msg = fmt.Sprintf("✅ Music channel set to <#%s>", a.ChannelID)
		}
	case AddDJ:
		if a.RoleID == "" || !d.dir.RoleExists(call.GuildID, a.RoleID) {
			return invalid(msgBadRole)
		}
		if !cfg.AddDJRole(a.RoleID) {
			return invalid(msgAlreadyDJ)
		}
		msg = fmt.Sprintf("✅ Added <@&%s> to DJ roles", a.RoleID)
	case RemoveDJ:
		if a.RoleID == "" {
			return invalid(msgBadRole)
		}
		// a role deleted from the guild can still be removed from the list
		if !cfg.RemoveDJRole(a.RoleID) {
			if !d.dir.RoleExists(call.GuildID, a.RoleID) {
				return invalid(msgBadRole)
			}
			return invalid(msgNotDJ)
		}
		msg = fmt.Sprintf("✅ Removed <@&%s> from DJ roles", a.RoleID)
	default:
		return Failure()
	}

	if err := d.store.Set(ctx, call.GuildID, cfg); err != nil {
		d.log.Error("Failed to save guild config",
			zap.String("guild", call.GuildID),
			zap.String("action", call.Action.Name()),
			zap.Error(err),
		)
		return Failure()
	}
	return reply(msg)
}
