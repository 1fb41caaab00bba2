// Package lecture persists pipeline lectures in SQLite and exposes helpers
// for driving their lifecycle.
//
// The Store manages database connections, schema initialization, stats
// queries, stuck-item recovery, and the status transitions that mirror the
// pipeline stage order. Lecture rows capture progress, error classification,
// and the synchronized timeline; slides and transcription segments live in
// child tables keyed by lecture id.
//
// The database is treated as durable job state rather than a long-term
// archive. Schema changes bump the version in schema.go; users clear the
// database to adopt the new schema.
//
// Treat this package as the single source of truth for lifecycle semantics;
// when you add new statuses or columns, update schema.sql and bump
// schemaVersion.
package lecture
