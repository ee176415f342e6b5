package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"harmony/internal/guildconfig"
)

type DB struct {
	conn *sql.DB
	log  *zap.Logger
}

var _ guildconfig.Backend = (*DB)(nil)

// New opens the SQLite database at dsn and creates the schema.
func New(dsn string, log *zap.Logger) (*DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	d := &DB{conn: db, log: log.Named("database")}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	d.log.Info("Database connected", zap.String("dsn", dsn))
	return d, nil
}

func (d *DB) migrate() error {
	_, err := d.conn.Exec(`
	CREATE TABLE IF NOT EXISTS guild_config (
		guild_id TEXT PRIMARY KEY,
		prefix TEXT NOT NULL,
		dj_roles TEXT NOT NULL DEFAULT '[]',
		music_channel TEXT NOT NULL DEFAULT '',
		default_volume INTEGER NOT NULL DEFAULT 50
	);`)
	return err
}

func (d *DB) Close() error {
	d.log.Info("Database connection closing")
	return d.conn.Close()
}

// Load returns the stored config for a guild.
func (d *DB) Load(ctx context.Context, guildID string) (guildconfig.Config, bool, error) {
	var (
		cfg      guildconfig.Config
		rolesStr string
	)
	err := d.conn.QueryRowContext(ctx,
		"SELECT prefix, dj_roles, music_channel, default_volume FROM guild_config WHERE guild_id = ?", guildID,
	).Scan(&cfg.Prefix, &rolesStr, &cfg.MusicChannel, &cfg.DefaultVolume)
	if errors.Is(err, sql.ErrNoRows) {
		return guildconfig.Config{}, false, nil
	}
	if err != nil {
		return guildconfig.Config{}, false, err
	}
	if err := sonic.UnmarshalString(rolesStr, &cfg.DJRoles); err != nil {
		return guildconfig.Config{}, false, fmt.Errorf("failed to unmarshal dj roles: %w", err)
	}
	if cfg.DJRoles == nil {
		cfg.DJRoles = []string{}
	}
	return cfg, true, nil
}

// Save upserts the full config for a guild.
func (d *DB) Save(ctx context.Context, guildID string, cfg guildconfig.Config) error {
	roles := cfg.DJRoles
	if roles == nil {
		roles = []string{}
	}
	rolesStr, err := sonic.MarshalString(roles)
	if err != nil {
		return fmt.Errorf("failed to marshal dj roles: %w", err)
	}
	_, err = d.conn.ExecContext(ctx, `
		INSERT INTO guild_config (guild_id, prefix, dj_roles, music_channel, default_volume)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(guild_id) DO UPDATE SET
		prefix = excluded.prefix,
		dj_roles = excluded.dj_roles,
		music_channel = excluded.music_channel,
		default_volume = excluded.default_volume
	`, guildID, cfg.Prefix, rolesStr, cfg.MusicChannel, cfg.DefaultVolume)
	return err
}
