package testsupport

import (
	"testing"

	"planreel/internal/config"
	"planreel/internal/history"
)

// MustOpenHistory opens the verification ledger for tests and registers
// cleanup.
func MustOpenHistory(t testing.TB, cfg *config.Config) *history.Store {
	t.Helper()

	store, err := history.Open(cfg)
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
