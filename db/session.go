/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package db

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/flamego/session"
	"github.com/jackc/pgx/v5"
)

const (
	defaultSessionLifetime = 7 * 24 * time.Hour
	defaultSessionTable    = "flamego_sessions"
)

// PostgresSessionConfig configures the session store. Zero values fall back
// to a 7 day lifetime, the flamego_sessions table and gob encoding.
type PostgresSessionConfig struct {
	Lifetime  time.Duration
	TableName string
	Encoder   session.Encoder
	Decoder   session.Decoder
}

func (c PostgresSessionConfig) withDefaults() PostgresSessionConfig {
	if c.Lifetime <= 0 {
		c.Lifetime = defaultSessionLifetime
	}

	if c.TableName == "" {
		c.TableName = defaultSessionTable
	}

	if c.Encoder == nil {
		c.Encoder = session.GobEncoder
	}

	if c.Decoder == nil {
		c.Decoder = session.GobDecoder
	}

	return c
}

// PostgresSessionStore implements session.Store on top of the pool. The web
// UI only keeps flash messages in it.
type PostgresSessionStore struct {
	config PostgresSessionConfig
	table  string
}

// PostgresSessionIniter returns a session.Initer that accepts an optional
// PostgresSessionConfig argument.
func PostgresSessionIniter() session.Initer {
	return func(_ context.Context, args ...interface{}) (session.Store, error) {
		var cfg PostgresSessionConfig

		if len(args) > 0 {
			var ok bool
			if cfg, ok = args[0].(PostgresSessionConfig); !ok {
				return nil, ErrInvalidSessionConfig
			}
		}

		cfg = cfg.withDefaults()

		return &PostgresSessionStore{
			config: cfg,
			table:  pgx.Identifier{cfg.TableName}.Sanitize(),
		}, nil
	}
}

// exec runs a statement against the session table.
func (s *PostgresSessionStore) exec(ctx context.Context, query string, args ...any) error {
	if pool == nil {
		return ErrDatabaseConnectionNotInitialized
	}

	_, err := pool.Exec(ctx, query, args...)

	return err
}

func (s *PostgresSessionStore) expiry() time.Time {
	return time.Now().Add(s.config.Lifetime)
}

// The session middleware writes the cookie itself.
func discardIDWriter(http.ResponseWriter, *http.Request, string) {}

// Exist reports whether an unexpired session with sid is stored.
func (s *PostgresSessionStore) Exist(ctx context.Context, sid string) bool {
	if pool == nil {
		return false
	}

	var exists bool

	err := pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM `+s.table+` WHERE id = $1 AND expires_at > NOW())`, sid,
	).Scan(&exists)

	return err == nil && exists
}

// Read loads the session with sid, or starts an empty one under that ID.
func (s *PostgresSessionStore) Read(ctx context.Context, sid string) (session.Session, error) {
	if pool == nil {
		return nil, ErrDatabaseConnectionNotInitialized
	}

	var raw []byte

	err := pool.QueryRow(ctx,
		`SELECT data FROM `+s.table+` WHERE id = $1 AND expires_at > NOW()`, sid,
	).Scan(&raw)

	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return session.NewBaseSession(sid, s.config.Encoder, discardIDWriter), nil
	case err != nil:
		return nil, fmt.Errorf("failed to read session: %w", err)
	case len(raw) == 0:
		return session.NewBaseSession(sid, s.config.Encoder, discardIDWriter), nil
	}

	data, err := s.config.Decoder(raw)
	if err != nil {
		logger.Warn("Discarding undecodable session", "error", err)
		return session.NewBaseSession(sid, s.config.Encoder, discardIDWriter), nil
	}

	return session.NewBaseSessionWithData(sid, s.config.Encoder, discardIDWriter, data), nil
}

// Destroy removes the session with sid.
func (s *PostgresSessionStore) Destroy(ctx context.Context, sid string) error {
	return s.exec(ctx, `DELETE FROM `+s.table+` WHERE id = $1`, sid)
}

// Touch extends the lifetime of the session with sid.
func (s *PostgresSessionStore) Touch(ctx context.Context, sid string) error {
	return s.exec(ctx, `UPDATE `+s.table+` SET expires_at = $1 WHERE id = $2`, s.expiry(), sid)
}

// Save upserts the encoded session.
func (s *PostgresSessionStore) Save(ctx context.Context, sess session.Session) error {
	data, err := sess.Encode()
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	return s.exec(ctx, `
		INSERT INTO `+s.table+` (id, data, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE
		SET data = EXCLUDED.data, expires_at = EXCLUDED.expires_at
	`, sess.ID(), data, s.expiry())
}

// GC deletes expired sessions.
func (s *PostgresSessionStore) GC(ctx context.Context) error {
	return s.exec(ctx, `DELETE FROM `+s.table+` WHERE expires_at < NOW()`)
}
