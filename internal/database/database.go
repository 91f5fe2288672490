// internal/database/database.go

// Package database connects retrieval jobs to PostgreSQL for persisting
// fetched rows. It builds connection strings from structured parameters and
// waits out the window where a freshly started server refuses connections.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog"

	xerrors "github.com/valpere/DataRetriever/internal/errors"
	"github.com/valpere/DataRetriever/internal/logging"
)

// Params are the connection parameters assembled into a DSN.
type Params struct {
	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port,omitempty" json:"port,omitempty"`
	Database string `yaml:"database" json:"database"`
	Username string `yaml:"username,omitempty" json:"username,omitempty"`
	Password string `yaml:"password,omitempty" json:"password,omitempty"`

	// SSLMode is passed through to the driver (disable, require,
	// verify-full, ...); the driver default applies when empty.
	SSLMode string `yaml:"ssl_mode,omitempty" json:"ssl_mode,omitempty"`
}

// DSN renders the parameters as a postgres connection URL.
func (p Params) DSN() (string, error) {
	if p.Host == "" {
		return "", &xerrors.ConfigurationError{Reason: "database host is required"}
	}
	if p.Database == "" {
		return "", &xerrors.ConfigurationError{Reason: "database name is required"}
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   p.Host,
		Path:   "/" + strings.TrimPrefix(p.Database, "/"),
	}
	if p.Port > 0 {
		u.Host = fmt.Sprintf("%s:%d", p.Host, p.Port)
	}
	if p.Username != "" {
		if p.Password != "" {
			u.User = url.UserPassword(p.Username, p.Password)
		} else {
			u.User = url.User(p.Username)
		}
	}
	if p.SSLMode != "" {
		query := u.Query()
		query.Set("sslmode", p.SSLMode)
		u.RawQuery = query.Encode()
	}
	return u.String(), nil
}

// Connect opens a connection pool and verifies it with a ping.
func Connect(ctx context.Context, params Params) (*sql.DB, error) {
	dsn, err := params.DSN()
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}
	return db, nil
}

// WaitUntilReady pings the server every interval until it answers, the
// context expires, or the deadline passes. It covers the gap where a newly
// started PostgreSQL accepts TCP connections but is still recovering.
func WaitUntilReady(ctx context.Context, params Params, timeout, interval time.Duration, logger zerolog.Logger) (*sql.DB, error) {
	if interval <= 0 {
		interval = time.Second
	}
	deadline := time.Now().Add(timeout)

	var lastErr error
	for attempt := 1; ; attempt++ {
		db, err := Connect(ctx, params)
		if err == nil {
			return db, nil
		}
		lastErr = err
		if time.Now().After(deadline) {
			break
		}
		logger.Warn().
			Int("attempt", attempt).
			Str("host", logging.TruncateURL(params.Host)).
			Err(err).
			Msg("database not ready, waiting")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}
	}
	return nil, fmt.Errorf("database not ready within %s: %w", timeout, lastErr)
}
