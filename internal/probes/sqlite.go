package probes

import (
	"context"
	"database/sql"

	_ "modernc.org/sqlite" // pure-Go sqlite driver

	"github.com/veggerby/ignition/internal/signal"
)

func init() {
	Register("sqlite", newSQLite)
}

func newSQLite(with map[string]string) (signal.Operation, error) {
	path, err := arg(with, "path")
	if err != nil {
		return nil, err
	}
	return SQLite(path), nil
}

// SQLite opens (or attaches to) an embedded store and pings it,
// grounded on the teacher's driver.SQLiteDriver.Open pragma-then-ping
// sequence, minus the pragma tuning that's out of scope for a
// readiness check.
func SQLite(path string) signal.Operation {
	return func(ctx context.Context) error {
		db, err := sql.Open("sqlite", path)
		if err != nil {
			return err
		}
		defer db.Close()
		return db.PingContext(ctx)
	}
}
