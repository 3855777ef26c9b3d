// Package pg connects to Postgres through a pgx connection pool and applies
// goose migrations.
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, notifications.Migrations, "migrations", cfg, log); err != nil {
//	    return err
//	}
//
// Storage adapters accept the DB interface rather than *pgxpool.Pool so a
// transaction (pgx.Tx) can be passed in its place. IsDuplicateKeyError and
// IsNotFoundError translate driver errors for those adapters.
package pg
