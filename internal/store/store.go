/*
Copyright © 2024 the BinMap authors.
This file is part of BinMap.

BinMap is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

BinMap is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with BinMap.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package store keeps layers, their pixels and their legends in
// an SQLite database.
package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/sirupsen/logrus"
	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/spatialmodel/binmap"
)

//go:embed migrations/*.sql
var migrations embed.FS

const timeFormat = time.RFC3339Nano

// Store is a database of layers.
type Store struct {
	db  *sql.DB
	inv binmap.Invalidator

	// Log receives retry and migration messages.
	Log logrus.FieldLogger

	newBackOff func() backoff.BackOff
}

// Option configures a Store.
type Option func(*Store)

// WithInvalidator specifies a receiver for notifications about
// changes that make rendered tiles stale.
func WithInvalidator(inv binmap.Invalidator) Option {
	return func(s *Store) { s.inv = inv }
}

// WithLogger specifies the logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Store) { s.Log = log }
}

// WithBackOff specifies the retry policy for writes that fail because
// the database is busy.
func WithBackOff(f func() backoff.BackOff) Option {
	return func(s *Store) { s.newBackOff = f }
}

// Open opens the database at path, creating it and bringing its
// schema up to date as necessary.
func Open(path string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("store: opening %s: %v", path, err)
	}
	// There is only ever one writer.
	db.SetMaxOpenConns(1)

	s := &Store{
		db:  db,
		Log: logrus.StandardLogger(),
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.MaxElapsedTime = 30 * time.Second
			return b
		},
	}
	for _, o := range opts {
		o(s)
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("store: loading migrations: %v", err)
	}
	driver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("store: creating migration driver: %v", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("store: creating migration: %v", err)
	}
	m.Log = migrateLogger{s.Log}
	// m is not closed because that would close s.db.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("store: migrating database: %v", err)
	}
	return nil
}

type migrateLogger struct {
	log logrus.FieldLogger
}

func (l migrateLogger) Printf(format string, v ...interface{}) {
	l.log.WithField("component", "migrate").Infof(format, v...)
}

func (l migrateLogger) Verbose() bool { return false }

// retry runs op until it succeeds, it fails with an error other than the
// database being busy, or the retry policy gives up.
func (s *Store) retry(ctx context.Context, op func() error) error {
	b := backoff.WithContext(s.newBackOff(), ctx)
	return backoff.RetryNotify(func() error {
		err := op()
		if err != nil && !isBusy(err) {
			return backoff.Permanent(err)
		}
		return err
	}, b, func(err error, d time.Duration) {
		s.Log.WithError(err).WithField("wait", d).Warn("database busy, retrying")
	})
}

func isBusy(err error) bool {
	var e *msqlite.Error
	if !errors.As(err, &e) {
		return false
	}
	code := e.Code() & 0xff
	return code == sqlite3.SQLITE_BUSY || code == sqlite3.SQLITE_LOCKED
}

func (s *Store) emit(e binmap.Event) {
	s.Log.WithFields(logrus.Fields{
		"event":  e.Kind,
		"layer":  e.LayerID,
		"legend": e.LegendID,
	}).Debug("invalidating")
	if s.inv != nil {
		s.inv.Invalidate(e)
	}
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func formatTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(timeFormat)
}

func parseTime(s sql.NullString) (time.Time, error) {
	if !s.Valid || s.String == "" {
		return time.Time{}, nil
	}
	return time.Parse(timeFormat, s.String)
}
