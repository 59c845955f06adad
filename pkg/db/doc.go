// Package db manages the PostgreSQL connection pool backing the job store
// and the queue.
//
// The bulk orchestration core deliberately keeps both its own tables and the
// queue's tables in one database so that enqueueing and row mutation can
// share a transaction. This package provides the pooled connection with
// startup retry, a WithTx helper for those shared transactions, and a
// goose-based migrator for embedded schema files.
//
// Typical worker startup:
//
//	cfg, _ := env.ParseAs[db.Config]()
//	pool, err := db.Connect(ctx, cfg)
//	if err != nil { ... }
//	defer pool.Close()
//
//	if err := db.Migrate(ctx, pool, bulk.Migrations, cfg.MigrationsTable, log); err != nil { ... }
package db
