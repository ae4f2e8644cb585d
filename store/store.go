// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package store archives benchmark runs in a SQL database.
//
// Each run is written once, in a single transaction, under a fresh
// UUID. Runs never share rows, so an archive can accumulate runs from
// many invocations and machines. SQLite (driver "sqlite3") and MySQL
// (driver "mysql") are supported.
package store

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/zchee/sortperf/series"
	"github.com/zchee/sortperf/timing"
)

// A DB is an open result archive.
type DB struct {
	sql    *sql.DB
	driver string
}

// Drivers lists the supported database drivers.
var Drivers = []string{"sqlite3", "mysql"}

// Open opens the archive at dsn using driver. It does not create
// tables; call Migrate for that.
func Open(driver, dsn string) (*DB, error) {
	switch driver {
	case "sqlite3", "mysql":
	default:
		return nil, errors.Errorf("store: unsupported driver %q (want %s)", driver, strings.Join(Drivers, " or "))
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "store: opening %s database", driver)
	}
	if driver == "sqlite3" {
		// A second connection to ":memory:" would see an empty
		// database, and SQLite serializes writers anyway.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "store: connecting to %s database", driver)
	}
	return &DB{sql: db, driver: driver}, nil
}

// ParseTarget splits a "driver:dsn" string such as
// "sqlite3:results.db" or "mysql:user@tcp(host)/perf".
func ParseTarget(target string) (driver, dsn string, err error) {
	driver, dsn, ok := strings.Cut(target, ":")
	if !ok || driver == "" || dsn == "" {
		return "", "", errors.Errorf("store: invalid target %q (want driver:dsn)", target)
	}
	return driver, dsn, nil
}

// Close closes the database.
func (db *DB) Close() error {
	return db.sql.Close()
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id VARCHAR(36) NOT NULL PRIMARY KEY,
		title VARCHAR(255) NOT NULL,
		started BIGINT NOT NULL,
		trials BIGINT NOT NULL,
		warmup BIGINT NOT NULL,
		seed VARCHAR(20) NOT NULL,
		sizes TEXT NOT NULL,
		algorithms TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS measurements (
		run_id VARCHAR(36) NOT NULL,
		algorithm VARCHAR(255) NOT NULL,
		size BIGINT NOT NULL,
		trial BIGINT NOT NULL,
		micros DOUBLE NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS series (
		run_id VARCHAR(36) NOT NULL,
		algorithm VARCHAR(255) NOT NULL,
		ord BIGINT NOT NULL,
		size BIGINT NOT NULL,
		mean DOUBLE NOT NULL,
		stddev DOUBLE NOT NULL,
		n BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS skips (
		run_id VARCHAR(36) NOT NULL,
		algorithm VARCHAR(255) NOT NULL,
		size BIGINT NOT NULL,
		reason TEXT NOT NULL
	)`,
}

// Migrate creates any missing tables.
func (db *DB) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := db.sql.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "store: creating schema")
		}
	}
	return nil
}

// A RunRecord is one run as archived.
type RunRecord struct {
	// ID is assigned by SaveRun if empty.
	ID      string
	Title   string
	Started time.Time
	Trials  int
	Warmup  int
	Seed    uint64
	Sizes   []int
	// Names orders the algorithms.
	Names        []string
	Measurements []timing.Measurement
	Series       map[string]*series.Series
	Skips        []SkipRecord
}

// A SkipRecord is a cell that produced no measurement.
type SkipRecord struct {
	Algorithm string
	Size      int
	Reason    string
}

// SaveRun writes rec and returns its ID.
func (db *DB) SaveRun(ctx context.Context, rec RunRecord) (id string, err error) {
	id = rec.ID
	if id == "" {
		id = uuid.NewString()
	}
	tx, err := db.sql.BeginTx(ctx, nil)
	if err != nil {
		return "", errors.Wrap(err, "store: beginning transaction")
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	sizes := make([]string, len(rec.Sizes))
	for i, n := range rec.Sizes {
		sizes[i] = strconv.Itoa(n)
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, title, started, trials, warmup, seed, sizes, algorithms) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, rec.Title, rec.Started.UnixNano(), rec.Trials, rec.Warmup,
		strconv.FormatUint(rec.Seed, 10), strings.Join(sizes, ","), strings.Join(rec.Names, "\n"),
	); err != nil {
		return "", errors.Wrapf(err, "store: saving run %s", id)
	}

	if err = insertAll(ctx, tx, `INSERT INTO measurements (run_id, algorithm, size, trial, micros) VALUES (?, ?, ?, ?, ?)`,
		len(rec.Measurements), func(i int) []any {
			m := rec.Measurements[i]
			return []any{id, m.Algorithm, m.Size, m.Trial, m.Micros}
		}); err != nil {
		return "", errors.Wrap(err, "store: saving measurements")
	}

	var rows [][]any
	for ord, name := range rec.Names {
		s := rec.Series[name]
		if s == nil {
			continue
		}
		for _, p := range s.Points {
			rows = append(rows, []any{id, name, ord, p.Size, p.Mean, p.StdDev, p.N})
		}
	}
	if err = insertAll(ctx, tx, `INSERT INTO series (run_id, algorithm, ord, size, mean, stddev, n) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		len(rows), func(i int) []any { return rows[i] }); err != nil {
		return "", errors.Wrap(err, "store: saving series")
	}

	if err = insertAll(ctx, tx, `INSERT INTO skips (run_id, algorithm, size, reason) VALUES (?, ?, ?, ?)`,
		len(rec.Skips), func(i int) []any {
			s := rec.Skips[i]
			return []any{id, s.Algorithm, s.Size, s.Reason}
		}); err != nil {
		return "", errors.Wrap(err, "store: saving skips")
	}

	if err = tx.Commit(); err != nil {
		return "", errors.Wrapf(err, "store: committing run %s", id)
	}
	return id, nil
}

func insertAll(ctx context.Context, tx *sql.Tx, query string, n int, row func(i int) []any) error {
	if n == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i := 0; i < n; i++ {
		if _, err := stmt.ExecContext(ctx, row(i)...); err != nil {
			return err
		}
	}
	return nil
}

// ErrNoRun is returned when a run ID is not in the archive.
var ErrNoRun = errors.New("store: no such run")

// LoadRun reads back the run header, series and skips of runID. Raw
// measurements are not loaded.
func (db *DB) LoadRun(ctx context.Context, runID string) (*RunRecord, error) {
	rec := &RunRecord{ID: runID}
	var started int64
	var seed, sizes, names string
	err := db.sql.QueryRowContext(ctx,
		`SELECT title, started, trials, warmup, seed, sizes, algorithms FROM runs WHERE id = ?`, runID,
	).Scan(&rec.Title, &started, &rec.Trials, &rec.Warmup, &seed, &sizes, &names)
	if err == sql.ErrNoRows {
		return nil, errors.Wrap(ErrNoRun, runID)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "store: loading run %s", runID)
	}
	rec.Started = time.Unix(0, started)
	if rec.Seed, err = strconv.ParseUint(seed, 10, 64); err != nil {
		return nil, errors.Wrapf(err, "store: run %s: bad seed", runID)
	}
	if sizes != "" {
		for _, f := range strings.Split(sizes, ",") {
			n, err := strconv.Atoi(f)
			if err != nil {
				return nil, errors.Wrapf(err, "store: run %s: bad sizes", runID)
			}
			rec.Sizes = append(rec.Sizes, n)
		}
	}
	if names != "" {
		rec.Names = strings.Split(names, "\n")
	}

	if rec.Series, err = db.LoadSeries(ctx, runID); err != nil {
		return nil, err
	}
	for _, name := range rec.Names {
		if rec.Series[name] == nil {
			rec.Series[name] = &series.Series{Name: name}
		}
	}
	if rec.Skips, err = db.loadSkips(ctx, runID); err != nil {
		return nil, err
	}
	return rec, nil
}

// LoadSeries reads the series of runID, keyed by algorithm.
func (db *DB) LoadSeries(ctx context.Context, runID string) (map[string]*series.Series, error) {
	rows, err := db.sql.QueryContext(ctx,
		`SELECT algorithm, size, mean, stddev, n FROM series WHERE run_id = ? ORDER BY ord, size`, runID)
	if err != nil {
		return nil, errors.Wrapf(err, "store: loading series of %s", runID)
	}
	defer rows.Close()
	out := make(map[string]*series.Series)
	for rows.Next() {
		var name string
		var p series.Point
		if err := rows.Scan(&name, &p.Size, &p.Mean, &p.StdDev, &p.N); err != nil {
			return nil, errors.Wrapf(err, "store: loading series of %s", runID)
		}
		s := out[name]
		if s == nil {
			s = &series.Series{Name: name}
			out[name] = s
		}
		s.Points = append(s.Points, p)
	}
	return out, errors.Wrapf(rows.Err(), "store: loading series of %s", runID)
}

func (db *DB) loadSkips(ctx context.Context, runID string) ([]SkipRecord, error) {
	rows, err := db.sql.QueryContext(ctx,
		`SELECT algorithm, size, reason FROM skips WHERE run_id = ? ORDER BY size`, runID)
	if err != nil {
		return nil, errors.Wrapf(err, "store: loading skips of %s", runID)
	}
	defer rows.Close()
	var skips []SkipRecord
	for rows.Next() {
		var s SkipRecord
		if err := rows.Scan(&s.Algorithm, &s.Size, &s.Reason); err != nil {
			return nil, errors.Wrapf(err, "store: loading skips of %s", runID)
		}
		skips = append(skips, s)
	}
	return skips, errors.Wrapf(rows.Err(), "store: loading skips of %s", runID)
}
