package guildconfig

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

const (
	DefaultPrefix = "S-"
	DefaultVolume = 50

	MaxPrefixLength = 3
	MinVolume       = 0
	MaxVolume       = 200
)

// ErrInvalidConfig is returned when a record breaks one of its invariants.
var ErrInvalidConfig = errors.New("invalid guild config")

var validate = validator.New()

// Config is the per-guild configuration record.
type Config struct {
	Prefix        string   `json:"prefix" validate:"required,min=1,max=3"`
	DJRoles       []string `json:"djRoles" validate:"unique,dive,required"`
	MusicChannel  string   `json:"musicChannel,omitempty"`
	DefaultVolume int      `json:"defaultVolume" validate:"min=0,max=200"`

	// Degraded marks defaults served because the stored record could not be
	// read. It is never persisted.
	Degraded bool `json:"-"`
}

// Default returns a fresh record. An invalid prefix falls back to DefaultPrefix.
func Default(prefix string) Config {
	if !ValidPrefix(prefix) {
		prefix = DefaultPrefix
	}
	return Config{
		Prefix:        prefix,
		DJRoles:       []string{},
		DefaultVolume: DefaultVolume,
	}
}

// Validate checks the record invariants.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Clone returns a deep copy so callers can mutate without touching cached state.
func (c Config) Clone() Config {
	c.DJRoles = append([]string{}, c.DJRoles...)
	return c
}

// HasDJRole reports whether any of roles is a configured DJ role.
func (c Config) HasDJRole(roles []string) bool {
	return lo.Some(c.DJRoles, roles)
}

// AddDJRole adds roleID and reports whether it was missing.
func (c *Config) AddDJRole(roleID string) bool {
	if lo.Contains(c.DJRoles, roleID) {
		return false
	}
	c.DJRoles = append(c.DJRoles, roleID)
	return true
}

// RemoveDJRole removes roleID and reports whether it was present.
func (c *Config) RemoveDJRole(roleID string) bool {
	if !lo.Contains(c.DJRoles, roleID) {
		return false
	}
	c.DJRoles = lo.Without(c.DJRoles, roleID)
	return true
}

// ValidPrefix reports whether p is 1 to 3 characters long.
func ValidPrefix(p string) bool {
	n := utf8.RuneCountInString(p)
	return n >= 1 && n <= MaxPrefixLength
}

// ValidVolume reports whether v is within [MinVolume, MaxVolume].
func ValidVolume(v int) bool {
	return v >= MinVolume && v <= MaxVolume
}

// normalize repairs records loaded from older or hand-edited storage.
func (c Config) normalize(prefix string) Config {
	if !ValidPrefix(c.Prefix) {
		c.Prefix = prefix
	}
	c.DJRoles = lo.Uniq(lo.Compact(c.DJRoles))
	if !ValidVolume(c.DefaultVolume) {
		c.DefaultVolume = DefaultVolume
	}
	return c
}
