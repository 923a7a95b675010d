package testsupport

import (
	"testing"

	"feedcurator/internal/config"
	"feedcurator/internal/resultstore"
)

// MustOpenStore opens a resultstore.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *resultstore.Store {
	t.Helper()

	store, err := resultstore.Open(cfg)
	if err != nil {
		t.Fatalf("resultstore.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
