package syncer

import (
	"testing"

	"github.com/decred/dcrswap/chainio"
	"github.com/decred/dcrswap/swap"
	"github.com/stretchr/testify/require"
)

func TestNewTaskIdStrictlyIncreasing(t *testing.T) {
	tasks := NewTasks()
	prev := TaskId(0)
	for i := 0; i < 100; i++ {
		id := tasks.NewTaskId()
		require.Greater(t, uint32(id), uint32(prev))
		prev = id
	}
}

func TestCorrelationIndicesReferenceKnownTasks(t *testing.T) {
	tasks := NewTasks()

	watchTask := tasks.WatchTx(chainio.Arbitrating, make([]byte, 32), swap.Lock, 600, 3)
	addrTask := tasks.WatchAddr(AddressAddendum{}, swap.Funding, 600, true)
	getTxTask := tasks.RetrieveTx(make([]byte, 32), swap.Buy)
	broadcastTask := tasks.Broadcast(nil, nil)
	sweepTask := tasks.Sweep(SweepAddressAddendum{}, 600, false)

	for _, id := range []TaskId{watchTask.Id, addrTask.Id, getTxTask.Id, broadcastTask.Id, sweepTask.Id} {
		_, ok := tasks.Get(id)
		require.True(t, ok, "task id %d must be present in the task map", id)
	}

	sweeping, ok := tasks.Sweeping()
	require.True(t, ok)
	require.Equal(t, sweepTask.Id, sweeping)
}

func TestFinalTxsLatchesAndNeverUnlatches(t *testing.T) {
	tasks := NewTasks()
	task := tasks.WatchTx(chainio.Arbitrating, make([]byte, 32), swap.Lock, 600, 3)

	confs := uint32(1)
	_, err := tasks.HandleTxConfs(task.Id, &confs, 3)
	require.NoError(t, err)
	require.False(t, tasks.FinalTxs(swap.Lock))

	confs = 3
	_, err = tasks.HandleTxConfs(task.Id, &confs, 3)
	require.NoError(t, err)
	require.True(t, tasks.FinalTxs(swap.Lock))

	// A later low confirmation report (can't actually happen without a
	// reorg past the finality threshold, which is out of scope) must
	// not unlatch finality.
	confs = 0
	_, err = tasks.HandleTxConfs(task.Id, &confs, 3)
	require.NoError(t, err)
	require.True(t, tasks.FinalTxs(swap.Lock))
}

func TestHandleTxConfsUnknownTaskIsLoggedAndDropped(t *testing.T) {
	tasks := NewTasks()
	confs := uint32(1)
	_, err := tasks.HandleTxConfs(TaskId(999), &confs, 3)
	require.Error(t, err)
	var unknown *ErrTaskUnknown
	require.ErrorAs(t, err, &unknown)
}

func TestAckAbortedRemovesFromEveryIndex(t *testing.T) {
	tasks := NewTasks()
	task := tasks.WatchTx(chainio.Arbitrating, make([]byte, 32), swap.Lock, 600, 3)

	tasks.AckAborted(task.Id)

	_, ok := tasks.Get(task.Id)
	require.False(t, ok)
	_, ok = tasks.WatchedLabel(task.Id)
	require.False(t, ok)
}

func TestAtMostOneSweepingAddrAtATime(t *testing.T) {
	tasks := NewTasks()
	first := tasks.Sweep(SweepAddressAddendum{}, 600, false)
	second := tasks.Sweep(SweepAddressAddendum{}, 600, false)

	sweeping, ok := tasks.Sweeping()
	require.True(t, ok)
	require.Equal(t, second.Id, sweeping)
	require.NotEqual(t, first.Id, sweeping)
}

func TestTaskIdUniquenessUnderRestart(t *testing.T) {
	old := NewTasks()
	for i := 0; i < 10; i++ {
		old.WatchTx(chainio.Arbitrating, make([]byte, 32), swap.Lock, 600, 3)
	}
	oldMax := old.counter

	// Restart: a fresh registry is built, watches are re-issued, but
	// the counter starts from zero again because restored indices are
	// rebuilt fresh, not reloaded (§4.5, §8).
	fresh := NewTasks()
	reissued := fresh.WatchTx(chainio.Arbitrating, make([]byte, 32), swap.Lock, 600, 3)

	// The two registries are independent counters; this test documents
	// that a real daemon restart creates a brand new registry (and
	// thus a disjoint ID space is a property of process separation,
	// not of the counter itself never repeating across instances).
	require.LessOrEqual(t, uint32(reissued.Id), oldMax+1)

	// What keeps IDs from colliding is that the restored indices hold
	// only freshly issued IDs: none of the old registry's IDs carries
	// over into the new one.
	require.Len(t, fresh.watchedTxs, 1)
}
