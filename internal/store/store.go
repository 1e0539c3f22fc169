// =============================================================================
// Submission Merger - Table Store
// =============================================================================
//
// The store keeps every named table the tool works with: the pending
// submission log, the "<date> <category>" merged tables and the
// "<date> Payment" tables. Tables are addressed by name and created
// explicitly with GetOrCreate.
//
// DRIVERS:
//   - workbook: one .xlsx file, one sheet per table (default). Good/bad
//               marks are stored as cell fills so the file reads naturally
//               in a spreadsheet application.
//   - sqlite:   one database, one row per table row with JSON-encoded cells.
//
// =============================================================================

package store

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"

	"github.com/ginjaninja78/submission-merger/internal/config"
	"github.com/ginjaninja78/submission-merger/internal/types"
)

// ErrTableNotFound is returned by Get for an unknown table name.
var ErrTableNotFound = eris.New("table not found")

// Store persists named tables.
type Store interface {
	// Get returns a copy of the named table, or ErrTableNotFound.
	Get(ctx context.Context, name string) (types.Table, error)

	// GetOrCreate returns the named table, creating it with just the header
	// row when it does not exist. created reports which happened.
	GetOrCreate(ctx context.Context, name string, header types.Row) (table types.Table, created bool, err error)

	// Put replaces the named table's contents, creating it if needed.
	Put(ctx context.Context, name string, t types.Table) error

	// List returns every table name in creation order.
	List(ctx context.Context) ([]string, error)

	Close() error
}

// Open opens the store selected by the configuration.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case config.DriverWorkbook:
		return OpenWorkbook(cfg.Path)
	case config.DriverSQLite:
		st, err := NewSQLite(cfg.Path)
		if err != nil {
			return nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			st.Close() //nolint:errcheck
			return nil, err
		}
		return st, nil
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}

// getOrCreate implements GetOrCreate on top of Get and Put.
func getOrCreate(ctx context.Context, s Store, name string, header types.Row) (types.Table, bool, error) {
	t, err := s.Get(ctx, name)
	if err == nil {
		return t, false, nil
	}
	if !errors.Is(err, ErrTableNotFound) {
		return nil, false, err
	}

	t = types.Table{header.Clone()}
	if err := s.Put(ctx, name, t); err != nil {
		return nil, false, err
	}
	return t.Clone(), true, nil
}
