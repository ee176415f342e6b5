package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"harmony/internal/guildconfig"
)

const guildKeyPrefix = "guild/"

// KV stores guild configs in a Badger database, one JSON value per guild.
type KV struct {
	db  *badger.DB
	log *zap.Logger
}

var _ guildconfig.Backend = (*KV)(nil)

// OpenKV opens a Badger database at path. An empty path opens an in-memory database.
func OpenKV(path string, log *zap.Logger) (*KV, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}
	kv := &KV{db: db, log: log.Named("kv")}
	kv.log.Info("Badger opened", zap.String("path", path))
	return kv, nil
}

func (k *KV) Close() error {
	k.log.Info("Badger closing")
	return k.db.Close()
}

func guildKey(guildID string) []byte {
	return []byte(guildKeyPrefix + guildID)
}

// Load returns the stored config for a guild.
func (k *KV) Load(ctx context.Context, guildID string) (guildconfig.Config, bool, error) {
	if err := ctx.Err(); err != nil {
		return guildconfig.Config{}, false, err
	}

	var raw []byte
	err := k.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(guildKey(guildID))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return guildconfig.Config{}, false, nil
	}
	if err != nil {
		return guildconfig.Config{}, false, err
	}

	var cfg guildconfig.Config
	if err := sonic.Unmarshal(raw, &cfg); err != nil {
		return guildconfig.Config{}, false, fmt.Errorf("failed to unmarshal guild config: %w", err)
	}
	if cfg.DJRoles == nil {
		cfg.DJRoles = []string{}
	}
	return cfg, true, nil
}

// Save overwrites the config for a guild.
func (k *KV) Save(ctx context.Context, guildID string, cfg guildconfig.Config) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := sonic.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal guild config: %w", err)
	}
	return k.db.Update(func(txn *badger.Txn) error {
		return txn.Set(guildKey(guildID), raw)
	})
}
