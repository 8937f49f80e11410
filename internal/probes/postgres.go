package probes

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/veggerby/ignition/internal/signal"
)

func init() {
	Register("postgres", newPostgres)
}

// newPostgres builds a probe that opens a pool and pings it on every
// invocation; the pool is created inside the operation and closed after
// the ping, so
// construction (at registration time) never blocks or fails on a
// database that isn't reachable yet — that's the whole point of the
// readiness check.
func newPostgres(with map[string]string) (signal.Operation, error) {
	dsn, err := arg(with, "dsn")
	if err != nil {
		return nil, err
	}
	return Postgres(dsn), nil
}

// Postgres pings a Postgres instance via pgxpool, grounded on the
// teacher's driver.PostgresDriver.Open ping-on-connect check, adapted
// from database/sql+lib/pq to pgx/v5/pgxpool.
func Postgres(dsn string) signal.Operation {
	return func(ctx context.Context) error {
		pool, err := pgxpool.New(ctx, dsn)
		if err != nil {
			return err
		}
		defer pool.Close()
		return pool.Ping(ctx)
	}
}
