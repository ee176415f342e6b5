package player

import (
	"context"
	"sync"

	"github.com/sourcegraph/conc"
	"go.uber.org/zap"

	"harmony/internal/music"
)

// Manager tracks per-guild Player instances. Idle players are kept so the
// next play request reuses them.
type Manager struct {
	players map[string]*Player
	deps    Deps
	log     *zap.Logger
	mu      sync.Mutex
}

var _ music.Players = (*Manager)(nil)

func NewManager(deps Deps, log *zap.Logger) *Manager {
	return &Manager{
		players: make(map[string]*Player),
		deps:    deps,
		log:     log.Named("player"),
	}
}

// Session returns the guild's player while it is playing, nil otherwise.
func (m *Manager) Session(guildID string) music.Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.players[guildID]
	if !ok || !p.Running() {
		// a typed nil would not compare equal to nil
		return nil
	}
	return p
}

// Open returns the guild's player, creating it if needed. An idle player
// starts its next session at volume.
func (m *Manager) Open(guildID string, volume int) music.Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p, ok := m.players[guildID]; ok {
		p.setIdleVolume(volume)
		return p
	}

	p := NewPlayer(guildID, volume, m.deps, m.log)
	m.players[guildID] = p
	m.log.Info("Created player", zap.String("guild", guildID))
	return p
}

// Shutdown stops every player in parallel and waits for them to leave voice.
func (m *Manager) Shutdown(ctx context.Context) {
	m.mu.Lock()
	players := make([]*Player, 0, len(m.players))
	for _, p := range m.players {
		players = append(players, p)
	}
	m.mu.Unlock()

	finished := make(chan struct{})
	go func() {
		defer close(finished)
		var wg conc.WaitGroup
		for _, p := range players {
			wg.Go(p.Close)
		}
		wg.Wait()
	}()

	select {
	case <-finished:
		m.log.Info("All players stopped", zap.Int("count", len(players)))
	case <-ctx.Done():
		m.log.Warn("Gave up waiting for players", zap.Error(ctx.Err()))
	}
}
