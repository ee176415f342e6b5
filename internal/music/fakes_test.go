package music

import (
	"context"
	"sync"
	"time"

	"harmony/internal/guildconfig"
)

// fakeSession records every mutating call.
type fakeSession struct {
	mu      sync.Mutex
	calls   []string
	active  bool
	current Track
	queue   []Track
	paused  bool
	repeat  bool
	volume  int
	err     error
	playErr error

	lastVolume int
	lastSeek   time.Duration
	lastPlay   string
	lastMeta   PlayMetadata
}

func (f *fakeSession) record(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
	return f.err
}

func (f *fakeSession) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeSession) Active() (Track, bool) { return f.current, f.active }

func (f *fakeSession) Play(_ context.Context, voiceChannelID, query string, meta PlayMetadata) (Track, error) {
	f.record("play")
	f.lastPlay, f.lastMeta = query, meta
	if f.playErr != nil {
		return Track{}, f.playErr
	}
	return Track{Title: query, RequestedBy: meta.RequestedBy}, nil
}

func (f *fakeSession) Skip() error { return f.record("skip") }

func (f *fakeSession) SetPaused(p bool) error {
	f.paused = p
	return f.record("setpaused")
}

func (f *fakeSession) Paused() bool { return f.paused }
func (f *fakeSession) Stop() error  { return f.record("stop") }

func (f *fakeSession) SetRepeat(r bool) error {
	f.repeat = r
	return f.record("setrepeat")
}

func (f *fakeSession) Repeat() bool   { return f.repeat }
func (f *fakeSession) Shuffle() error { return f.record("shuffle") }

func (f *fakeSession) SeekTo(d time.Duration) error {
	f.lastSeek = d
	return f.record("seekto")
}

func (f *fakeSession) SeekBy(d time.Duration, _ bool) error {
	f.lastSeek = d
	return f.record("seekby")
}

func (f *fakeSession) SetVolume(v int) error {
	f.lastVolume = v
	return f.record("setvolume")
}

func (f *fakeSession) Volume() int  { return f.volume }
func (f *fakeSession) Leave() error { return f.record("leave") }

func (f *fakeSession) Queue(limit int) []Track {
	if limit > len(f.queue) {
		limit = len(f.queue)
	}
	return f.queue[:limit]
}

func (f *fakeSession) QueueLen() int { return len(f.queue) }

func (f *fakeSession) TotalQueueTime() time.Duration {
	var total time.Duration
	for _, t := range f.queue {
		total += t.Duration
	}
	return total
}

type fakePlayers struct {
	session    *fakeSession
	opened     int
	openVolume int
}

func (p *fakePlayers) Session(string) Session {
	if p.session == nil {
		return nil
	}
	return p.session
}

func (p *fakePlayers) Open(_ string, volume int) Session {
	p.opened++
	p.openVolume = volume
	if p.session == nil {
		p.session = &fakeSession{volume: volume}
	}
	return p.session
}

type fakeStore struct {
	mu      sync.Mutex
	configs map[string]guildconfig.Config
	writes  int
	setErr  error
	getHook func()
}

func newFakeStore() *fakeStore {
	return &fakeStore{configs: make(map[string]guildconfig.Config)}
}

func (s *fakeStore) Get(_ context.Context, guildID string) guildconfig.Config {
	if s.getHook != nil {
		s.getHook()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, ok := s.configs[guildID]
	if !ok {
		cfg = guildconfig.Default("")
		s.configs[guildID] = cfg
	}
	return cfg.Clone()
}

func (s *fakeStore) Set(_ context.Context, guildID string, cfg guildconfig.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	if s.setErr != nil {
		return s.setErr
	}
	s.configs[guildID] = cfg.Clone()
	return nil
}

type fakeDirectory map[string]bool

func (d fakeDirectory) RoleExists(_, roleID string) bool { return d[roleID] }

func (d fakeDirectory) ChannelExists(_, channelID string) bool { return d[channelID] }
