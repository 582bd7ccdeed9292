package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gotest.tools/v3/assert"
)

func writeConfig(t *testing.T, dir, contents string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	assert.NilError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestNewStoreLoadsInitialDocument(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "thanos:\n  user-label-constraints:\n    alice:\n      namespace: [\"a\"]\n")

	st, err := NewStore(path)
	assert.NilError(t, err)
	assert.Assert(t, st.Healthy())
	assert.Equal(t, st.Generation(), uint64(1))

	_, _, ok := st.Current().Resolve(Principal{Username: "alice"}, "thanos")
	assert.Assert(t, ok)
}

func TestNewStoreFailsOnMissingFile(t *testing.T) {
	_, err := NewStore(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Assert(t, err != nil)
}

func TestNewStoreInvokesReloadObserverOnSuccess(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "thanos:\n  user-label-constraints:\n    alice:\n      namespace: [\"a\"]\n")

	var gotOK bool
	var gotGen uint64
	_, err := NewStore(path, WithReloadObserver(func(ok bool, gen uint64) {
		gotOK, gotGen = ok, gen
	}))
	assert.NilError(t, err)
	assert.Assert(t, gotOK)
	assert.Equal(t, gotGen, uint64(1))
}

func TestNewStoreInvokesReloadObserverOnFailure(t *testing.T) {
	var gotOK = true
	_, err := NewStore(filepath.Join(t.TempDir(), "missing.yaml"), WithReloadObserver(func(ok bool, gen uint64) {
		gotOK = ok
	}))
	assert.Assert(t, err != nil)
	assert.Assert(t, !gotOK)
}

func TestRunReloadsOnFileChange(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "thanos:\n  user-label-constraints:\n    alice:\n      namespace: [\"a\"]\n")

	st, err := NewStore(path, WithReloadInterval(10*time.Millisecond))
	assert.NilError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		st.Run(ctx)
		close(done)
	}()

	future := time.Now().Add(time.Second)
	assert.NilError(t, os.Chtimes(path, future, future))
	assert.NilError(t, os.WriteFile(path, []byte("thanos:\n  user-label-constraints:\n    alice:\n      namespace: [\"a\", \"b\"]\n"), 0o644))
	assert.NilError(t, os.Chtimes(path, future, future))

	deadline := time.Now().Add(2 * time.Second)
	for st.Generation() < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	assert.Equal(t, st.Generation(), uint64(2))

	cancel()
	<-done
}

func TestAuditIDProducesDistinctValues(t *testing.T) {
	a := AuditID()
	b := AuditID()
	assert.Assert(t, a != b)
}
