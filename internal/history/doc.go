// Package history persists verification runs in a SQLite ledger.
//
// Every verify pass records one row per chapter run plus one row per scene,
// so operators can see when a chapter last passed and which scenes were
// missing at the time. The database lives at <log_dir>/history.db and uses
// WAL mode with busy retries so concurrent CLI invocations do not trip over
// each other.
package history
