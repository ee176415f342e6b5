package music

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"harmony/internal/guildconfig"
)

const guild = "g1"

type harness struct {
	players *fakePlayers
	store   *fakeStore
	dir     fakeDirectory
	d       *Dispatcher
}

func newHarness(session *fakeSession) *harness {
	h := &harness{
		players: &fakePlayers{session: session},
		store:   newFakeStore(),
		dir:     fakeDirectory{"roleA": true, "roleB": true, "c1": true},
	}
	h.d = NewDispatcher(h.players, h.store, h.dir, Links{Invite: "https://invite", Support: "https://support"}, zap.NewNop())
	return h
}

func (h *harness) run(a Action, m Member) Response {
	cfg := h.store.Get(context.Background(), guild)
	return h.d.Dispatch(context.Background(), Call{
		GuildID:   guild,
		ChannelID: "text",
		Member:    m,
		Action:    a,
		Config:    cfg,
	}, Authorize(a, m, cfg))
}

func playing() *fakeSession {
	return &fakeSession{
		active:  true,
		current: Track{Title: "Song", Duration: 3 * time.Minute, Position: time.Minute},
		queue:   []Track{{Title: "a"}, {Title: "b"}},
		volume:  50,
	}
}

func TestDispatchDeniedMakesNoCalls(t *testing.T) {
	all := append(append([]Action{}, configActions...), controlActions...)

	for _, a := range all {
		t.Run(a.Name(), func(t *testing.T) {
			s := playing()
			h := newHarness(s)
			h.store.configs[guild] = guildconfig.Config{Prefix: "S-", DJRoles: []string{"roleA"}, DefaultVolume: 50}

			resp := h.run(a, Member{UserID: "u", RoleIDs: []string{"other"}})

			assert.Equal(t, OutcomeDenied, resp.Outcome)
			assert.Contains(t, resp.Content, "requires")
			assert.Empty(t, s.Calls())
			assert.Zero(t, h.store.writes)
		})
	}
}

func TestDispatchNothingPlaying(t *testing.T) {
	for _, a := range controlActions {
		t.Run(a.Name()+"/no session", func(t *testing.T) {
			h := newHarness(nil)
			resp := h.run(a, Member{})
			assert.Equal(t, OutcomeIdle, resp.Outcome)
			assert.Equal(t, msgNothingPlaying, resp.Content)
			assert.Zero(t, h.players.opened)
		})
		t.Run(a.Name()+"/idle session", func(t *testing.T) {
			s := &fakeSession{}
			h := newHarness(s)
			resp := h.run(a, Member{})
			assert.Equal(t, msgNothingPlaying, resp.Content)
			assert.Empty(t, s.Calls())
		})
	}
}

func TestDispatchVolumeBounds(t *testing.T) {
	cfg := guildconfig.Default("S-")

	for _, in := range []string{"-5", "250", "abc"} {
		t.Run(in, func(t *testing.T) {
			s := playing()
			h := newHarness(s)
			a, _ := ParseText("S-volume "+in, "text", cfg)

			resp := h.run(a, Member{})

			assert.Equal(t, OutcomeInvalid, resp.Outcome)
			assert.Equal(t, msgBadVolume, resp.Content)
			assert.Empty(t, s.Calls())
		})
	}

	s := playing()
	h := newHarness(s)
	a, _ := ParseText("S-volume 75", "text", cfg)
	resp := h.run(a, Member{})

	assert.Equal(t, OutcomeOK, resp.Outcome)
	assert.Equal(t, "🔊 Volume set to 75%", resp.Content)
	assert.Equal(t, []string{"setvolume"}, s.Calls())
	assert.Equal(t, 75, s.lastVolume)
}

func TestDispatchNonDJPauseDenied(t *testing.T) {
	s := playing()
	h := newHarness(s)
	h.store.configs[guild] = guildconfig.Config{Prefix: "S-", DJRoles: []string{"roleA"}, DefaultVolume: 50}

	resp := h.run(Pause{}, Member{UserID: "u"})

	assert.Equal(t, OutcomeDenied, resp.Outcome)
	assert.Equal(t, "❌ This command requires DJ permissions.", resp.Content)
	assert.NotContains(t, s.Calls(), "setpaused")
	assert.False(t, s.paused)
}

func TestDispatchAddDJTwice(t *testing.T) {
	h := newHarness(nil)
	admin := Member{ManageGuild: true}

	resp := h.run(AddDJ{RoleID: "roleB"}, admin)
	assert.Equal(t, "✅ Added <@&roleB> to DJ roles", resp.Content)
	assert.Equal(t, []string{"roleB"}, h.store.configs[guild].DJRoles)

	resp = h.run(AddDJ{RoleID: "roleB"}, admin)
	assert.Equal(t, msgAlreadyDJ, resp.Content)
	assert.Equal(t, []string{"roleB"}, h.store.configs[guild].DJRoles)
	assert.Equal(t, 1, h.store.writes)
}

func TestDispatchConfigActions(t *testing.T) {
	admin := Member{ManageGuild: true}

	tests := []struct {
		name   string
		seed   []string
		action Action
		want   string
		writes int
		check  func(t *testing.T, cfg guildconfig.Config)
	}{
		{
			name: "prefix", action: SetPrefix{Prefix: "!"}, want: "✅ Prefix changed to `!`", writes: 1,
			check: func(t *testing.T, cfg guildconfig.Config) { assert.Equal(t, "!", cfg.Prefix) },
		},
		{name: "prefix empty", action: SetPrefix{}, want: msgBadPrefix},
		{name: "prefix long", action: SetPrefix{Prefix: "!!!!"}, want: msgBadPrefix},
		{
			name: "music channel", action: SetMusicChannel{ChannelID: "c1"}, want: "✅ Music channel set to <#c1>", writes: 1,
			check: func(t *testing.T, cfg guildconfig.Config) { assert.Equal(t, "c1", cfg.MusicChannel) },
		},
		{
			name: "music channel off", action: SetMusicChannel{Clear: true}, want: "✅ Music channel disabled", writes: 1,
			check: func(t *testing.T, cfg guildconfig.Config) { assert.Empty(t, cfg.MusicChannel) },
		},
		{name: "music channel bad", action: SetMusicChannel{}, want: msgBadChannel},
		{name: "music channel elsewhere", action: SetMusicChannel{ChannelID: "123456789012345678"}, want: msgBadChannel},
		{name: "adddj missing role", action: AddDJ{}, want: msgBadRole},
		{name: "adddj unknown role", action: AddDJ{RoleID: "ghost"}, want: msgBadRole},
		{
			name: "removedj", seed: []string{"roleA", "roleB"}, action: RemoveDJ{RoleID: "roleA"},
			want: "✅ Removed <@&roleA> from DJ roles", writes: 1,
			check: func(t *testing.T, cfg guildconfig.Config) { assert.Equal(t, []string{"roleB"}, cfg.DJRoles) },
		},
		{
			name: "removedj deleted role", seed: []string{"ghost"}, action: RemoveDJ{RoleID: "ghost"},
			want: "✅ Removed <@&ghost> from DJ roles", writes: 1,
		},
		{name: "removedj not dj", action: RemoveDJ{RoleID: "roleA"}, want: msgNotDJ},
		{name: "removedj unknown", action: RemoveDJ{RoleID: "ghost"}, want: msgBadRole},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(nil)
			if tt.seed != nil {
				cfg := guildconfig.Default("")
				cfg.DJRoles = tt.seed
				h.store.configs[guild] = cfg
			}

			resp := h.run(tt.action, admin)

			assert.Equal(t, tt.want, resp.Content)
			assert.Equal(t, tt.writes, h.store.writes)
			if tt.check != nil {
				tt.check(t, h.store.configs[guild])
			}
		})
	}
}

func TestDispatchPersistenceError(t *testing.T) {
	h := newHarness(nil)
	h.store.setErr = &guildconfig.PersistenceError{GuildID: guild, Err: errors.New("disk full")}

	resp := h.run(SetPrefix{Prefix: "!"}, Member{ManageGuild: true})

	assert.Equal(t, OutcomeFailed, resp.Outcome)
	assert.Equal(t, msgGenericFailure, resp.Content)
}

func TestDispatchDegradedConfigRefusesWrites(t *testing.T) {
	for _, a := range []Action{SetPrefix{Prefix: "!"}, SetMusicChannel{ChannelID: "c1"}, SetMusicChannel{Clear: true}, AddDJ{RoleID: "roleA"}} {
		t.Run(a.Name(), func(t *testing.T) {
			h := newHarness(nil)
			cfg := guildconfig.Default("")
			cfg.Degraded = true
			h.store.configs[guild] = cfg

			resp := h.run(a, Member{ManageGuild: true})

			assert.Equal(t, OutcomeFailed, resp.Outcome)
			assert.Equal(t, msgGenericFailure, resp.Content)
			assert.Zero(t, h.store.writes)
		})
	}
}

func TestDispatchControl(t *testing.T) {
	tests := []struct {
		action Action
		want   string
		call   string
	}{
		{Skip{}, "⏭️ Skipped the current track", "skip"},
		{Pause{}, "⏸️ Playback paused", "setpaused"},
		{Resume{}, "▶️ Playback resumed", "setpaused"},
		{TogglePause{}, "⏸️ Playback paused", "setpaused"},
		{Stop{}, "⏹️ Stopped playback and cleared queue", "stop"},
		{Loop{}, "🔁 Loop enabled", "setrepeat"},
		{Shuffle{}, "🔀 Queue shuffled", "shuffle"},
		{Seek{To: 90 * time.Second}, "⏩ Seeking to 1:30", "seekto"},
		{SeekBy{Delta: -5 * time.Second}, "⏪ Rewinded 5 seconds", "seekby"},
		{SeekBy{Delta: 5 * time.Second}, "⏩ Forwarded 5 seconds", "seekby"},
		{Leave{}, "🚪 Left the voice channel", "leave"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s %s", tt.action.Name(), tt.call), func(t *testing.T) {
			s := playing()
			h := newHarness(s)

			resp := h.run(tt.action, Member{})

			assert.Equal(t, OutcomeOK, resp.Outcome)
			assert.Equal(t, tt.want, resp.Content)
			assert.Equal(t, []string{tt.call}, s.Calls())
		})
	}
}

func TestDispatchToggles(t *testing.T) {
	s := playing()
	s.paused, s.repeat = true, true
	h := newHarness(s)

	assert.Equal(t, "▶️ Playback resumed", h.run(TogglePause{}, Member{}).Content)
	assert.False(t, s.paused)
	assert.Equal(t, "🔁 Loop disabled", h.run(Loop{}, Member{}).Content)
	assert.False(t, s.repeat)
}

func TestDispatchShuffleNeedsTwoTracks(t *testing.T) {
	s := playing()
	s.queue = s.queue[:1]
	h := newHarness(s)

	resp := h.run(Shuffle{}, Member{})

	assert.Equal(t, msgFewToShuffle, resp.Content)
	assert.Empty(t, s.Calls())
}

func TestDispatchBadTime(t *testing.T) {
	s := playing()
	h := newHarness(s)

	assert.Equal(t, msgNoSeekTime, h.run(BadTime{}, Member{}).Content)
	assert.Equal(t, msgBadSeekTime, h.run(BadTime{Input: "abc"}, Member{}).Content)
	assert.Empty(t, s.Calls())
}

func TestDispatchSeekPastEnd(t *testing.T) {
	s := playing()
	h := newHarness(s)

	resp := h.run(Seek{To: 4 * time.Minute}, Member{})

	assert.Equal(t, OutcomeInvalid, resp.Outcome)
	assert.Equal(t, msgSeekPastEnd, resp.Content)
	assert.Empty(t, s.Calls())
}

func TestDispatchFacadeError(t *testing.T) {
	s := playing()
	s.err = errors.New("voice gone")
	h := newHarness(s)

	resp := h.run(Skip{}, Member{})

	assert.Equal(t, OutcomeFailed, resp.Outcome)
	assert.Equal(t, msgGenericFailure, resp.Content)
	assert.Equal(t, []string{"skip"}, s.Calls())
}

func TestDispatchPlay(t *testing.T) {
	t.Run("not in voice", func(t *testing.T) {
		h := newHarness(nil)
		resp := h.run(Play{Query: "song"}, Member{})
		assert.Equal(t, msgNoVoice, resp.Content)
		assert.Zero(t, h.players.opened)
	})

	t.Run("no query", func(t *testing.T) {
		h := newHarness(nil)
		resp := h.run(Play{}, Member{VoiceChannelID: "v"})
		assert.Equal(t, msgNoQuery, resp.Content)
		assert.Zero(t, h.players.opened)
	})

	t.Run("opens at default volume", func(t *testing.T) {
		h := newHarness(nil)
		cfg := guildconfig.Default("")
		cfg.DefaultVolume = 80
		h.store.configs[guild] = cfg

		resp := h.run(Play{Query: "song"}, Member{VoiceChannelID: "v", Mention: "<@u>", Username: "user"})

		require.Equal(t, OutcomeOK, resp.Outcome)
		require.NotNil(t, resp.Embed)
		assert.Contains(t, resp.Embed.Description, "Added **song** to the queue")
		assert.Equal(t, 1, h.players.opened)
		assert.Equal(t, 80, h.players.openVolume)
		assert.Equal(t, PlayMetadata{TextChannelID: "text", RequestedBy: "<@u>"}, h.players.session.lastMeta)
	})

	t.Run("reuses session", func(t *testing.T) {
		s := playing()
		h := newHarness(s)
		h.run(Play{Query: "next"}, Member{VoiceChannelID: "v"})
		assert.Zero(t, h.players.opened)
		assert.Equal(t, "next", s.lastPlay)
	})

	t.Run("music channel reacts", func(t *testing.T) {
		h := newHarness(playing())
		resp := h.run(Play{Query: "song", FromMusicChannel: true}, Member{VoiceChannelID: "v"})
		assert.Equal(t, "✅", resp.Reaction)
		assert.Empty(t, resp.Content)
	})

	t.Run("no results", func(t *testing.T) {
		s := playing()
		s.playErr = fmt.Errorf("search %q: %w", "zzz", ErrNoResults)
		h := newHarness(s)
		resp := h.run(Play{Query: "zzz"}, Member{VoiceChannelID: "v"})
		assert.Equal(t, "❌ No results found for: **zzz**", resp.Content)
	})

	t.Run("failure", func(t *testing.T) {
		s := playing()
		s.playErr = errors.New("ffmpeg missing")
		h := newHarness(s)
		resp := h.run(Play{Query: "song"}, Member{VoiceChannelID: "v"})
		assert.Equal(t, OutcomeFailed, resp.Outcome)
		assert.Equal(t, msgPlayFailure, resp.Content)
	})
}

func TestDispatchInformational(t *testing.T) {
	t.Run("queue empty", func(t *testing.T) {
		h := newHarness(nil)
		assert.Equal(t, msgEmptyQueue, h.run(ShowQueue{}, Member{}).Content)
	})

	t.Run("queue", func(t *testing.T) {
		s := playing()
		for i := range 12 {
			s.queue = append(s.queue, Track{Title: fmt.Sprintf("t%d", i), Duration: time.Minute})
		}
		h := newHarness(s)

		resp := h.run(ShowQueue{}, Member{})

		require.NotNil(t, resp.Embed)
		assert.Equal(t, "📜 Current Queue", resp.Embed.Title)
		assert.Contains(t, resp.Embed.Description, "**10.**")
		assert.NotContains(t, resp.Embed.Description, "**11.**")
		assert.Contains(t, resp.Embed.Description, "...and 4 more")
		assert.Equal(t, "14", resp.Embed.Fields[1].Value)
		assert.Equal(t, "12:00", resp.Embed.Fields[2].Value)
		assert.Empty(t, s.Calls())
	})

	t.Run("nowplaying idle", func(t *testing.T) {
		h := newHarness(&fakeSession{})
		assert.Equal(t, msgNothingPlaying, h.run(NowPlaying{}, Member{}).Content)
	})

	t.Run("nowplaying", func(t *testing.T) {
		h := newHarness(playing())
		resp := h.run(NowPlaying{}, Member{})
		require.NotNil(t, resp.Embed)
		assert.Contains(t, resp.Embed.Fields[0].Value, "1:00 / 3:00")
		assert.Equal(t, "50%", resp.Embed.Fields[2].Value)
	})

	t.Run("lyrics", func(t *testing.T) {
		resp := newHarness(nil).run(Lyrics{}, Member{})
		assert.Equal(t, msgLyrics, resp.Content)
		assert.True(t, resp.Ephemeral)
	})

	t.Run("help", func(t *testing.T) {
		resp := newHarness(nil).run(Help{}, Member{})
		require.NotNil(t, resp.Embed)
		assert.Contains(t, resp.Embed.Description, "S-")
		assert.Len(t, resp.Components, 1)
	})

	t.Run("help topic", func(t *testing.T) {
		resp := newHarness(nil).run(Help{Topic: TopicConfig}, Member{})
		require.NotNil(t, resp.Embed)
		assert.Equal(t, "⚙️ Configuration", resp.Embed.Title)
	})

	t.Run("invite", func(t *testing.T) {
		resp := newHarness(nil).run(Invite{}, Member{})
		require.NotNil(t, resp.Embed)
		assert.Contains(t, resp.Embed.Description, "https://invite")
	})

	t.Run("support", func(t *testing.T) {
		resp := newHarness(nil).run(Support{}, Member{})
		require.NotNil(t, resp.Embed)
		assert.Contains(t, resp.Embed.Description, "https://support")
	})

	t.Run("unknown", func(t *testing.T) {
		resp := newHarness(nil).run(Unknown{Command: "dance"}, Member{})
		assert.Equal(t, "❌ Unknown command. Use `S-help` to see available commands.", resp.Content)
	})
}

func TestDispatchComponentDenialWording(t *testing.T) {
	h := newHarness(playing())
	resp := h.d.Dispatch(context.Background(), Call{
		GuildID:       guild,
		Action:        Skip{},
		FromComponent: true,
	}, Authorization{Reason: ReasonNeedsDJ})

	assert.Equal(t, "❌ This control requires DJ permissions.", resp.Content)
	assert.True(t, resp.Ephemeral)
}
