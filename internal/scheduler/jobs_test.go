package scheduler

import (
	"database/sql"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodianhq/custodian/internal/work"

	_ "github.com/mattn/go-sqlite3"
)

func setupWorkStore(t *testing.T) *work.Store {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE work_items (
			id          TEXT PRIMARY KEY,
			type        TEXT NOT NULL,
			subject     TEXT NOT NULL DEFAULT '',
			payload     BLOB,
			status      TEXT NOT NULL DEFAULT 'pending'
			            CHECK (status IN ('pending', 'running', 'done', 'failed')),
			retries     INTEGER NOT NULL DEFAULT 0,
			enqueued_at INTEGER NOT NULL,
			started_at  INTEGER
		)
	`)
	require.NoError(t, err)

	return work.NewStore(db, zerolog.Nop())
}

type fakeWaker struct {
	triggered int
}

func (w *fakeWaker) Trigger() { w.triggered++ }

func TestRequeueStaleWorkJob(t *testing.T) {
	store := setupWorkStore(t)
	waker := &fakeWaker{}

	require.NoError(t, store.Enqueue("deposit:verify", "acc-1", nil))
	require.NoError(t, store.MarkRunning("deposit:verify:acc-1"))

	// Zero staleness window: the running item is immediately stale.
	job := NewRequeueStaleWorkJob(store, waker, -time.Second, zerolog.Nop())
	require.NoError(t, job.Run())

	subjects, err := store.PendingSubjects("deposit:verify")
	require.NoError(t, err)
	assert.Equal(t, []string{"acc-1"}, subjects)
	assert.Equal(t, 1, waker.triggered)
}

func TestRequeueStaleWorkJobLeavesFreshWork(t *testing.T) {
	store := setupWorkStore(t)
	waker := &fakeWaker{}

	require.NoError(t, store.Enqueue("deposit:verify", "acc-1", nil))
	require.NoError(t, store.MarkRunning("deposit:verify:acc-1"))

	job := NewRequeueStaleWorkJob(store, waker, time.Hour, zerolog.Nop())
	require.NoError(t, job.Run())

	subjects, err := store.PendingSubjects("deposit:verify")
	require.NoError(t, err)
	assert.Empty(t, subjects)
	assert.Equal(t, 0, waker.triggered)
}

type fakePendingLister struct {
	ids []string
}

func (f *fakePendingLister) ListPendingOlderThan(time.Time) ([]string, error) {
	return f.ids, nil
}

type fakeEnqueuer struct {
	enqueued []string
}

func (f *fakeEnqueuer) EnqueueVerification(accountID string) error {
	f.enqueued = append(f.enqueued, accountID)
	return nil
}

func TestReconcilePendingDepositsJob(t *testing.T) {
	lister := &fakePendingLister{ids: []string{"acc-1", "acc-2"}}
	queue := &fakeEnqueuer{}

	job := NewReconcilePendingDepositsJob(lister, queue, time.Hour, zerolog.Nop())
	require.NoError(t, job.Run())

	assert.Equal(t, []string{"acc-1", "acc-2"}, queue.enqueued)
}
