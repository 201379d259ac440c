package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paydo/internal/amqp"
	"paydo/internal/core"
	"paydo/internal/snapshot"
)

type fakeExporter struct {
	state snapshot.State
	err   error
}

func (f *fakeExporter) ExportState(context.Context) (snapshot.State, error) {
	return f.state, f.err
}

type recordingSaver struct {
	mu    sync.Mutex
	saves []snapshot.State
	err   error
	saved chan struct{}
}

func newRecordingSaver() *recordingSaver {
	return &recordingSaver{saved: make(chan struct{}, 16)}
}

func (r *recordingSaver) Save(s snapshot.State) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.saves = append(r.saves, s)
	r.saved <- struct{}{}
	return nil
}

func (r *recordingSaver) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.saves)
}

func waitSaved(t *testing.T, saver *recordingSaver) {
	t.Helper()
	select {
	case <-saver.saved:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a snapshot write")
	}
}

func TestSnapshotWorker_DebouncesBurst(t *testing.T) {
	exporter := &fakeExporter{state: snapshot.State{
		Accounts: []core.Account{{ID: 1, Name: "x", Kind: core.Cash}},
	}}
	saver := newRecordingSaver()
	w := NewSnapshotWorker(exporter, saver, 20*time.Millisecond, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	for i := 0; i < 10; i++ {
		require.NoError(t, w.HandleChange(amqp.NewChangeMessage(amqp.EntityTransaction, "create", int64(i))))
	}
	waitSaved(t, saver)

	// The burst collapsed into one write.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, saver.count())

	cancel()
	<-done
}

func TestSnapshotWorker_FinalFlushOnShutdown(t *testing.T) {
	saver := newRecordingSaver()
	// Debounce far longer than the test runs: only the shutdown flush
	// can write.
	w := NewSnapshotWorker(&fakeExporter{}, saver, time.Hour, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	require.NoError(t, w.HandleChange(amqp.NewChangeMessage(amqp.EntityState, "reset", 0)))
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, saver.count())

	cancel()
	<-done
	assert.Equal(t, 1, saver.count())
}

func TestSnapshotWorker_RetriesAfterFailedFlush(t *testing.T) {
	saver := newRecordingSaver()
	saver.err = errors.New("disk full")
	w := NewSnapshotWorker(&fakeExporter{}, saver, 10*time.Millisecond, 30*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	require.NoError(t, w.HandleChange(amqp.NewChangeMessage(amqp.EntityAsset, "update", 1)))
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, saver.count())

	// Heal the saver; the interval ticker retries the dirty state.
	saver.mu.Lock()
	saver.err = nil
	saver.mu.Unlock()
	waitSaved(t, saver)

	cancel()
	<-done
}

func TestSnapshotWorker_NoWriteWithoutChanges(t *testing.T) {
	saver := newRecordingSaver()
	w := NewSnapshotWorker(&fakeExporter{}, saver, 5*time.Millisecond, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	err := w.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 0, saver.count())
}
