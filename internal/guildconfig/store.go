package guildconfig

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Backend is the durable storage behind a Store.
type Backend interface {
	// Load returns the stored record and whether one exists.
	Load(ctx context.Context, guildID string) (Config, bool, error)
	// Save overwrites the full record.
	Save(ctx context.Context, guildID string, cfg Config) error
}

// PersistenceError reports that a record could not be written to the backend.
type PersistenceError struct {
	GuildID string
	Err     error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist config for guild %s: %v", e.GuildID, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Store is a read-through cache of guild records over a Backend.
type Store struct {
	backend Backend
	prefix  string
	log     *zap.Logger

	mu    sync.RWMutex
	cache map[string]Config
	group singleflight.Group
}

// NewStore creates a Store. defaultPrefix seeds records created on first access.
func NewStore(backend Backend, defaultPrefix string, log *zap.Logger) *Store {
	if !ValidPrefix(defaultPrefix) {
		defaultPrefix = DefaultPrefix
	}
	return &Store{
		backend: backend,
		prefix:  defaultPrefix,
		log:     log.Named("guildconfig"),
		cache:   make(map[string]Config),
	}
}

// ErrDegraded is returned by Set for a record that was served in place of one
// that could not be read.
var ErrDegraded = errors.New("guild config was not loaded")

// Get returns the record for guildID, creating and persisting defaults when absent.
// It never fails: when the backend cannot be read, defaults are served with
// Degraded set and nothing is cached.
func (s *Store) Get(ctx context.Context, guildID string) Config {
	s.mu.RLock()
	cfg, ok := s.cache[guildID]
	s.mu.RUnlock()
	if ok {
		return cfg.Clone()
	}

	// the load is shared by every waiting caller, so it must outlive the first one
	loadCtx := context.WithoutCancel(ctx)
	v, _, _ := s.group.Do(guildID, func() (any, error) {
		return s.load(loadCtx, guildID), nil
	})
	return v.(Config).Clone()
}

func (s *Store) load(ctx context.Context, guildID string) Config {
	s.mu.RLock()
	cfg, ok := s.cache[guildID]
	s.mu.RUnlock()
	if ok {
		return cfg
	}

	cfg, found, err := s.backend.Load(ctx, guildID)
	if err != nil {
		s.log.Error("Failed to load guild config, serving defaults",
			zap.String("guild", guildID), zap.Error(err))
		cfg = Default(s.prefix)
		cfg.Degraded = true
		return cfg
	}

	if found {
		cfg = cfg.normalize(s.prefix)
	} else {
		cfg = Default(s.prefix)
		if err := s.backend.Save(ctx, guildID, cfg); err != nil {
			// Served from memory; the next write will try again.
			s.log.Warn("Failed to persist default guild config",
				zap.String("guild", guildID), zap.Error(err))
		} else {
			s.log.Debug("Created default guild config", zap.String("guild", guildID))
		}
	}

	s.mu.Lock()
	s.cache[guildID] = cfg
	s.mu.Unlock()
	return cfg
}

// Set validates cfg and overwrites the stored record.
func (s *Store) Set(ctx context.Context, guildID string, cfg Config) error {
	if cfg.Degraded {
		return ErrDegraded
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	cfg = cfg.Clone()

	if err := s.backend.Save(ctx, guildID, cfg); err != nil {
		return &PersistenceError{GuildID: guildID, Err: err}
	}

	s.mu.Lock()
	s.cache[guildID] = cfg
	s.mu.Unlock()
	return nil
}
