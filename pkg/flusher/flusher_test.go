package flusher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestFlusher(t *testing.T, cfg Config) *Flusher {
	t.Helper()
	dir := t.TempDir()
	f, err := New(filepath.Join(dir, "wal.db"), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	return f
}

func TestFlusher_BatchesAndSignalsAllCommits(t *testing.T) {
	f := newTestFlusher(t, Config{BatchMS: 5})
	f.Start()
	defer f.Stop()

	n := 20
	dones := make([]chan error, n)
	for i := 0; i < n; i++ {
		dones[i] = make(chan error, 1)
		f.Submit(context.Background(), &Commit{TxID: "t", Data: []byte("x"), Done: dones[i]})
	}

	for i, d := range dones {
		select {
		case err := <-d:
			require.NoError(t, err, "commit %d", i)
		case <-time.After(2 * time.Second):
			t.Fatalf("commit %d never signalled", i)
		}
	}
}

func TestFlusher_BatchBytesTriggersEarlyFlush(t *testing.T) {
	f := newTestFlusher(t, Config{BatchMS: 1000, BatchBytes: 4})
	f.Start()
	defer f.Stop()

	done := make(chan error, 1)
	f.Submit(context.Background(), &Commit{TxID: "t1", Data: []byte("abcd"), Done: done})

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("byte-threshold flush never fired despite 1s ticker period")
	}
}
