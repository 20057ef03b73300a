// Package badgerkv is the key-value backend. Every table is a key range,
// secondary indexes are empty-valued keys beside the rows, and committed
// writes are pushed to in-process subscribers.
//
// Key layout:
//
//	t/<table>/<id>                     JSON row
//	i/<table>/<index>/<value>\x00<id>  index entry
//	s/<key>                            setting value
package badgerkv

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/dgraph-io/badger/v4"

	"github.com/evanschultz/issuedeck/internal/app"
)

// maxConflictRetries bounds how often a write transaction is retried after
// losing a serializable conflict.
const maxConflictRetries = 3

// Config holds badger open options.
type Config struct {
	// Dir is the data directory. Ignored when InMemory is set.
	Dir        string
	InMemory   bool
	SyncWrites bool
	// Logger receives badger's own log lines. Nil silences them.
	Logger *log.Logger
}

// Repository implements app.Repository on badger.
type Repository struct {
	db  *badger.DB
	hub *hub
}

// Open opens the store described by cfg.
func Open(cfg Config) (*Repository, error) {
	if !cfg.InMemory && cfg.Dir == "" {
		return nil, errors.New("badger dir is required")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
			return nil, fmt.Errorf("create badger dir %s: %w", cfg.Dir, err)
		}
		opts = badger.DefaultOptions(cfg.Dir)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &Repository{db: db, hub: newHub()}, nil
}

// OpenInMemory opens a throwaway store, mostly for tests.
func OpenInMemory() (*Repository, error) {
	return Open(Config{InMemory: true})
}

// Close closes the store.
func (r *Repository) Close() error {
	return r.db.Close()
}

// SupportsPush reports true: subscribers hear about every commit.
func (r *Repository) SupportsPush() bool { return true }

// Subscribe registers fn for committed changes to table.
func (r *Repository) Subscribe(table app.Table, fn func()) func() {
	return r.hub.subscribe(table, fn)
}

// update runs fn in a read-write transaction, retrying serializable
// conflicts, and notifies subscribers of tables once it commits.
func (r *Repository) update(ctx context.Context, tables []app.Table, fn func(*badger.Txn) error) error {
	var err error
	for range maxConflictRetries {
		if err = ctx.Err(); err != nil {
			return err
		}
		err = r.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			break
		}
	}
	if err != nil {
		return err
	}
	r.hub.publish(tables...)
	return nil
}

// view runs fn in a read-only transaction.
func (r *Repository) view(ctx context.Context, fn func(*badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.db.View(fn)
}

// badgerLogger forwards badger log lines to a charm logger. Info lines are
// demoted to debug; badger is chatty on open and compaction.
type badgerLogger struct {
	logger *log.Logger
}

func (l *badgerLogger) Errorf(format string, args ...any) {
	l.logger.Errorf("badger: "+format, args...)
}

func (l *badgerLogger) Warningf(format string, args ...any) {
	l.logger.Warnf("badger: "+format, args...)
}

func (l *badgerLogger) Infof(format string, args ...any) {
	l.logger.Debugf("badger: "+format, args...)
}

func (l *badgerLogger) Debugf(format string, args ...any) {
	l.logger.Debugf("badger: "+format, args...)
}
