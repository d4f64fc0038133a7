package db

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"time"

	"todo_api/internal/config"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/sirupsen/logrus"
)

const (
	connectAttempts = 5
	pingTimeout     = 5 * time.Second
)

// DSN renders cfg as a postgres:// URL. Credentials are escaped.
func DSN(cfg *config.DBConfig) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   net.JoinHostPort(cfg.Host, cfg.Port),
		Path:   "/" + cfg.Name,
	}
	if cfg.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {cfg.SSLMode}}.Encode()
	}
	return u.String()
}

// Open builds a pgx-backed pool without connecting
func Open(cfg *config.DBConfig) (*sql.DB, error) {
	connCfg, err := pgx.ParseConfig(DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}

	db := stdlib.OpenDB(*connCfg)
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	db.SetConnMaxIdleTime(5 * time.Minute)

	return db, nil
}

// Init opens the pool and waits for Postgres to answer, backing off between
// attempts. The process exits if it never does.
func Init(cfg *config.DBConfig) *sql.DB {
	db, err := Open(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("Invalid database configuration")
	}

	for attempt := 1; ; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
		err = db.PingContext(ctx)
		cancel()
		if err == nil {
			break
		}

		if attempt == connectAttempts {
			logrus.WithError(err).Fatalf("Failed to connect to database after %d attempts", connectAttempts)
		}
		logrus.WithError(err).WithFields(logrus.Fields{
			"host":    cfg.Host,
			"attempt": attempt,
		}).Warn("Database not ready, retrying")
		time.Sleep(time.Duration(attempt) * time.Second)
	}

	logrus.WithFields(logrus.Fields{
		"host":     cfg.Host,
		"database": cfg.Name,
	}).Info("Database connection established successfully")
	return db
}

// DBTX is satisfied by both *sql.DB and *sql.Tx
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}
