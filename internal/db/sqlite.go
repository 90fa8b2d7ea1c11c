// Package db opens and migrates the SQLite database that holds both user
// tables and the engine's own registry tables (_policies, _users).
package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	// Registers the sqlite3 driver for every importer of this package.
	_ "github.com/mattn/go-sqlite3"
)

// DSN parameters applied to every connection.
const (
	busyTimeoutMillis = "5000"
	synchronousMode   = "NORMAL"
	journalMode       = "WAL"
)

// Open opens a *sql.DB for the given SQLite file path.
//
// mode selects pool sizing and write safety:
//   - "write": single connection (MaxOpenConns=1) with _txlock=immediate,
//     so write transactions take the lock up front
//   - "read":  pool of maxOpen connections (0 defaults to 4)
//
// Both modes run WAL with busy_timeout and foreign_keys=on. Foreign keys
// must be on for pragma_foreign_key_list to reflect live constraints.
func Open(path, mode string, maxOpen int) (*sql.DB, error) {
	if mode != "read" && mode != "write" {
		return nil, fmt.Errorf("invalid sqlite mode %q: must be \"read\" or \"write\"", mode)
	}

	conn, err := sql.Open("sqlite3", dsn(path, mode))
	if err != nil {
		return nil, fmt.Errorf("open sqlite (%s): %w", mode, err)
	}

	if mode == "write" {
		conn.SetMaxOpenConns(1)
		conn.SetMaxIdleConns(1)
	} else {
		if maxOpen <= 0 {
			maxOpen = 4
		}
		conn.SetMaxOpenConns(maxOpen)
		conn.SetMaxIdleConns(maxOpen)
	}
	conn.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping sqlite (%s): %w", mode, err)
	}

	return conn, nil
}

// OpenPair opens a write pool and a read pool for the same file. The split
// keeps long reads from starving writers under WAL.
func OpenPair(path string, readMaxOpen int) (writeDB, readDB *sql.DB, err error) {
	writeDB, err = Open(path, "write", 0)
	if err != nil {
		return nil, nil, err
	}

	readDB, err = Open(path, "read", readMaxOpen)
	if err != nil {
		_ = writeDB.Close()
		return nil, nil, err
	}

	return writeDB, readDB, nil
}

func dsn(path, mode string) string {
	params := url.Values{}
	params.Set("_journal_mode", journalMode)
	params.Set("_busy_timeout", busyTimeoutMillis)
	params.Set("_synchronous", synchronousMode)
	params.Set("_foreign_keys", "on")
	if mode == "write" {
		params.Set("_txlock", "immediate")
	}
	return path + "?" + params.Encode()
}
