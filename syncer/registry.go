package syncer

import (
	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/decred/dcrd/wire"
	"github.com/decred/dcrswap/chainio"
	"github.com/decred/dcrswap/swap"
)

// ErrTaskUnknown is returned (and logged, never fatal — see §7) when an
// incoming event references a task ID this registry never issued, or
// already forgot.
type ErrTaskUnknown struct {
	Id TaskId
}

func (e *ErrTaskUnknown) Error() string {
	return "received event with unknown task id"
}

// Tasks is the per-syncer-instance task registry described in §3: a
// monotonically advancing counter, the full task map, and five
// correlation indices keyed by task ID. Every exported method takes the
// registry by pointer receiver and mutates it in place, matching the
// teacher's "operations take the registry by mutable reference"
// convention.
type Tasks struct {
	counter uint32

	tasks map[TaskId]Task

	watchedTxs      map[TaskId]swap.TxLabel
	watchedAddrs    map[TaskId]swap.TxLabel
	retrievingTxs   map[TaskId]retrievingEntry
	broadcastingTxs map[TaskId]struct{}
	sweepingAddr    *TaskId

	// txids caches, for labelled transactions whose hash is known but
	// whose inclusion is still awaited, the external txid to watch for.
	txids map[swap.TxLabel]chainhash.Hash

	// finalTxs latches true once a label's transaction has reached
	// finality; it is never unlatched (invariant (c)/(4)).
	finalTxs map[swap.TxLabel]bool
}

type retrievingEntry struct {
	Label swap.TxLabel
	Task  Task
}

// NewTasks returns an empty task registry ready for use by a fresh
// syncer instance. Restored registries (after a restart) always start
// from NewTasks too — restored indices are rebuilt fresh from the
// checkpoint, never reloaded, so newly issued IDs can never collide
// with IDs named by a prior incarnation's indices (§8, "task-id
// uniqueness under restart").
func NewTasks() *Tasks {
	return &Tasks{
		tasks:           make(map[TaskId]Task),
		watchedTxs:      make(map[TaskId]swap.TxLabel),
		watchedAddrs:    make(map[TaskId]swap.TxLabel),
		retrievingTxs:   make(map[TaskId]retrievingEntry),
		broadcastingTxs: make(map[TaskId]struct{}),
		txids:           make(map[swap.TxLabel]chainhash.Hash),
		finalTxs:        make(map[swap.TxLabel]bool),
	}
}

// NewTaskId increments the counter and returns a fresh, previously
// unused task ID. There is no wraparound handling: the counter is 32
// bits and syncers are expected to restart well before exhaustion
// (documented operational bound, not enforced here).
func (t *Tasks) NewTaskId() TaskId {
	t.counter++
	return TaskId(t.counter)
}

// Get returns the task recorded under id, and whether it was found.
func (t *Tasks) Get(id TaskId) (Task, bool) {
	task, ok := t.tasks[id]
	return task, ok
}

// WatchedLabel returns the TxLabel a watch_tx/watch_addr task id serves,
// checking both correlation indices, and whether it was found.
func (t *Tasks) WatchedLabel(id TaskId) (swap.TxLabel, bool) {
	if l, ok := t.watchedTxs[id]; ok {
		return l, true
	}
	l, ok := t.watchedAddrs[id]
	return l, ok
}

// IsWatchedTx reports whether any outstanding task watches a
// transaction tagged with label.
func (t *Tasks) IsWatchedTx(label swap.TxLabel) bool {
	for _, l := range t.watchedTxs {
		if l == label {
			return true
		}
	}
	return false
}

// IsWatchedAddr reports whether any outstanding task watches an address
// tagged with label.
func (t *Tasks) IsWatchedAddr(label swap.TxLabel) bool {
	for _, l := range t.watchedAddrs {
		if l == label {
			return true
		}
	}
	return false
}

// AccLockWatched reports whether the accordant lock address is
// currently being watched, restored from the original source's
// acc_lock_watched().
func (t *Tasks) AccLockWatched() bool {
	return t.IsWatchedAddr(swap.AccLock)
}

// FinalTxs reports whether label has latched final. Once true, it can
// never become false again (invariant (c)/(4)).
func (t *Tasks) FinalTxs(label swap.TxLabel) bool {
	return t.finalTxs[label]
}

// Txid returns the cached external txid for label, if one is known.
func (t *Tasks) Txid(label swap.TxLabel) (chainhash.Hash, bool) {
	h, ok := t.txids[label]
	return h, ok
}

// WatchedAddrs returns a snapshot of the watched-address correlation
// index, used when reconstructing task state after a restart (§4.5).
func (t *Tasks) WatchedAddrs() map[TaskId]swap.TxLabel {
	out := make(map[TaskId]swap.TxLabel, len(t.watchedAddrs))
	for k, v := range t.watchedAddrs {
		out[k] = v
	}
	return out
}

// insert allocates a fresh task ID, stores task under it (task.Id is set
// to the allocated ID), and returns the finished task.
func (t *Tasks) insert(kind TaskKind, build func(TaskId) Task) Task {
	id := t.NewTaskId()
	task := build(id)
	task.Kind = kind
	task.Id = id
	t.tasks[id] = task
	return task
}

// WatchTx allocates a task watching an arbitrating-chain or
// accordant-chain transaction hash, recording the (id -> label)
// correlation, and, for the arbitrating chain, caching the txid under
// its label as well.
func (t *Tasks) WatchTx(chain chainio.Blockchain, hash []byte, label swap.TxLabel, lifetime uint64, confirmationBound uint32) Task {
	task := t.insert(KindWatchTransaction, func(id TaskId) Task {
		return Task{
			Lifetime:          lifetime,
			Hash:              hash,
			ConfirmationBound: confirmationBound,
		}
	})
	t.watchedTxs[task.Id] = label
	if chain == chainio.Arbitrating {
		var h chainhash.Hash
		copy(h[:], hash)
		t.txids[label] = h
	}
	return task
}

// WatchAddr allocates a task watching an address, recording the
// (id -> label) correlation.
func (t *Tasks) WatchAddr(addendum AddressAddendum, label swap.TxLabel, lifetime uint64, includeTx bool) Task {
	task := t.insert(KindWatchAddress, func(id TaskId) Task {
		return Task{
			Lifetime:  lifetime,
			Addendum:  addendum,
			IncludeTx: includeTx,
		}
	})
	t.watchedAddrs[task.Id] = label
	return task
}

// RetrieveTx allocates a GetTx task, recording the (id -> (label,
// task)) correlation for outstanding retrievals.
func (t *Tasks) RetrieveTx(hash []byte, label swap.TxLabel) Task {
	task := t.insert(KindGetTx, func(id TaskId) Task {
		return Task{Hash: hash}
	})
	t.retrievingTxs[task.Id] = retrievingEntry{Label: label, Task: task}
	return task
}

// WatchHeight allocates a WatchHeight task.
func (t *Tasks) WatchHeight(lifetime uint64) Task {
	return t.insert(KindWatchHeight, func(id TaskId) Task {
		return Task{Lifetime: lifetime}
	})
}

// EstimateFeeBtc allocates a WatchEstimateFee task.
func (t *Tasks) EstimateFeeBtc(lifetime uint64) Task {
	return t.insert(KindWatchEstimateFee, func(id TaskId) Task {
		return Task{Lifetime: lifetime}
	})
}

// Broadcast allocates a BroadcastTransaction task and adds it to the
// in-flight broadcast set.
func (t *Tasks) Broadcast(tx *wire.MsgTx, broadcastAfterHeight *uint64) Task {
	task := t.insert(KindBroadcastTransaction, func(id TaskId) Task {
		return Task{
			Tx:                   tx,
			BroadcastAfterHeight: broadcastAfterHeight,
		}
	})
	t.broadcastingTxs[task.Id] = struct{}{}
	return task
}

// Sweep allocates a SweepAddress task. Swaps sweep at most one address
// at a time per chain (invariant (d)): Sweep overwrites any previous
// sweepingAddr, matching the teacher's "sweeping_addr = Some(id)"
// unconditional assignment — callers are responsible for not issuing a
// second sweep while one is outstanding (see Tasks.Sweeping).
func (t *Tasks) Sweep(addendum SweepAddressAddendum, lifetime uint64, retry bool) Task {
	task := t.insert(KindSweepAddress, func(id TaskId) Task {
		return Task{
			Lifetime:      lifetime,
			SweepAddendum: addendum,
			Retry:         retry,
		}
	})
	id := task.Id
	t.sweepingAddr = &id
	return task
}

// Sweeping returns the task ID of the current outstanding sweep, if
// any.
func (t *Tasks) Sweeping() (TaskId, bool) {
	if t.sweepingAddr == nil {
		return 0, false
	}
	return *t.sweepingAddr, true
}

// Abort emits an Abort task targeting id. The target ID is removed from
// its correlation index only when the abort is acknowledged
// (TaskAborted event), not here.
func (t *Tasks) Abort(id TaskId) Task {
	return t.insert(KindAbort, func(newID TaskId) Task {
		return Task{Target: TaskTarget{TaskId: id}}
	})
}

// AckTransactionBroadcasted removes id from the in-flight broadcast set
// and forgets its task, mirroring transaction_broadcasted().
func (t *Tasks) AckTransactionBroadcasted(id TaskId) {
	delete(t.broadcastingTxs, id)
	delete(t.tasks, id)
}

// AckAborted removes id from whichever correlation index it belonged
// to, and from the task map, once an Abort targeting it has been
// acknowledged by the syncer.
func (t *Tasks) AckAborted(id TaskId) {
	delete(t.watchedTxs, id)
	delete(t.watchedAddrs, id)
	delete(t.retrievingTxs, id)
	delete(t.broadcastingTxs, id)
	if t.sweepingAddr != nil && *t.sweepingAddr == id {
		t.sweepingAddr = nil
	}
	delete(t.tasks, id)
}

// CountByKind returns the number of outstanding tasks of each kind,
// for the coordinator to report as per-kind gauges.
func (t *Tasks) CountByKind() map[TaskKind]int {
	out := make(map[TaskKind]int)
	for _, task := range t.tasks {
		out[task.Kind]++
	}
	return out
}

// PendingBroadcastTxs enumerates the in-flight broadcasts and returns
// the transactions they carry, for resuming broadcasts across restarts.
func (t *Tasks) PendingBroadcastTxs() []*wire.MsgTx {
	out := make([]*wire.MsgTx, 0, len(t.broadcastingTxs))
	for id := range t.broadcastingTxs {
		if task, ok := t.tasks[id]; ok && task.Kind == KindBroadcastTransaction && task.Tx != nil {
			out = append(out, task.Tx)
		}
	}
	return out
}

// HandleTxConfs implements the registry half of §4.2's handle_tx_confs:
// it looks up the label a task id watches and latches finality the
// first time confs crosses the finality threshold (never unlatching it,
// invariant (c)/(4)). It does not record the confirmation count itself.
//
// A nil confs after a prior non-nil report never clears the label's
// last-known confirmations — the open question in §9 is resolved in
// favor of preserving last-known state, and that is enforced by the
// caller (State.HandleTxConfs), which is what actually owns the
// confirmations map; this method only owns latching.
func (t *Tasks) HandleTxConfs(id TaskId, confs *uint32, finalityThr uint32) (swap.TxLabel, error) {
	label, ok := t.WatchedLabel(id)
	if !ok {
		return 0, &ErrTaskUnknown{Id: id}
	}
	if !t.finalTxs[label] && confs != nil && *confs >= finalityThr {
		t.finalTxs[label] = true
	}
	return label, nil
}
