// Package pgstore persists notifications in PostgreSQL through pgx.
//
//	pool, err := pgstore.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	if err := pgstore.Migrate(ctx, pool, cfg, log); err != nil {
//	    return err
//	}
//	storage := pgstore.NewStorage(pool)
//
// Compute-once presentation fields are written with COALESCE so that the
// first committed value wins when several processes resolve concurrently.
package pgstore
