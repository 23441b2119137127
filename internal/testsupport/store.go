package testsupport

import (
	"testing"

	"marclink/internal/config"
	"marclink/internal/kvstore"
)

// MustOpenStore opens the guesser store named by cfg and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *kvstore.Store {
	t.Helper()

	store, err := kvstore.Open(cfg.GuesserStorePath(), kvstore.Options{})
	if err != nil {
		t.Fatalf("kvstore.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
