// Package coordinator implements the per-swap finite state machine
// described in §4.4: the ~55% core of the daemon. One Coordinator runs
// per active swap, reacting to peer protocol messages, syncer events,
// and wallet completions, checkpointing its state after every
// transition.
package coordinator

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/decred/dcrd/wire"
	"github.com/decred/dcrswap/chainio"
	"github.com/decred/dcrswap/checkpoint"
	"github.com/decred/dcrswap/feepolicy"
	"github.com/decred/dcrswap/metrics"
	"github.com/decred/dcrswap/swap"
	"github.com/decred/dcrswap/swapindex"
	"github.com/decred/dcrswap/syncer"
	"github.com/decred/dcrswap/temporalsafety"
	"github.com/decred/dcrswap/wallet"
)

// Checkpointer is the persistence collaborator a Coordinator writes
// to after every transition, matching §4.5's "exactly one checkpoint
// per state transition" invariant. It is an interface so tests can
// substitute an in-memory recorder instead of touching the
// filesystem.
type Checkpointer interface {
	Save(dir string, c *checkpoint.Checkpoint) error
}

// FilesystemCheckpointer is the production Checkpointer, a thin
// adapter over the checkpoint package's free functions.
type FilesystemCheckpointer struct{}

func (FilesystemCheckpointer) Save(dir string, c *checkpoint.Checkpoint) error {
	return checkpoint.Save(dir, c)
}

// Coordinator is the per-swap state machine. It owns no network or
// disk resources directly: task issuance is recorded by appending to
// PendingTasks for the owning syncer goroutine to drain, and messages
// to the counterparty are recorded in PendingMessages, following the
// "handlers run to completion, no suspension points" model of §5.
type Coordinator struct {
	SwapId swap.Id
	Role   swap.Role
	Deal   swap.Deal
	Safety temporalsafety.Params

	State State

	Arbitrating *syncer.State
	Accordant   *syncer.State

	Wallet       wallet.Wallet
	Checkpointer Checkpointer
	CheckpointDir string

	// FeePolicy gates every swap-completing transaction the coordinator
	// asks the wallet to build (§4.6): Buy, Cancel, Refund, and Punish
	// all size their payout through it before signing.
	FeePolicy feepolicy.Policy

	// Index is the swap-index collaborator upserted on every checkpoint
	// write (§4.7), letting a restarted daemon enumerate active swaps
	// without opening every checkpoint file. Nil disables indexing,
	// for tests that don't need it.
	Index *swapindex.Index

	PendingTasks    []syncer.Task
	PendingMessages []Message

	lockTxid  chainhash32
	metricTag *StateTag
}

// chainhash32 avoids importing chainhash just for a zero value; it is
// the same underlying representation as chainhash.Hash.
type chainhash32 = [32]byte

// New constructs a fresh Coordinator at StateInit for a validated
// deal. It refuses deals whose temporal-safety parameters are unsafe,
// matching §7's TemporalUnsafe: "fatal at startup; refuses to
// initiate or restore".
func New(swapId swap.Id, role swap.Role, deal swap.Deal, safety temporalsafety.Params, w wallet.Wallet, checkpointDir string, feePolicy feepolicy.Policy, index *swapindex.Index) (*Coordinator, error) {
	if err := deal.Validate(); err != nil {
		return nil, fmt.Errorf("coordinator: %w", err)
	}
	if err := safety.Validate(); err != nil {
		return nil, &TemporalUnsafe{cause: err}
	}

	return &Coordinator{
		SwapId:        swapId,
		Role:          role,
		Deal:          deal,
		Safety:        safety,
		State:         State{Tag: StateInit},
		Arbitrating:   syncer.NewState(swapId, deal.Network, uint32(safety.BtcFinalityThr)),
		Accordant:     syncer.NewState(swapId, deal.Network, uint32(safety.XmrFinalityThr)),
		Wallet:        w,
		Checkpointer:  FilesystemCheckpointer{},
		CheckpointDir: checkpointDir,
		FeePolicy:     feePolicy,
		Index:         index,
	}, nil
}

// checkpointNow serializes the coordinator's current position and
// writes it, per §4.4's "after state transition, checkpoint state"
// rule. A write failure is fatal (§7 CheckpointIoError).
func (c *Coordinator) checkpointNow() error {
	ck := &checkpoint.Checkpoint{
		StateTag:         uint8(c.State.Tag),
		SwapId:           checkpoint32(c.SwapId),
		Confirmations:    mergeConfirmations(c.Arbitrating, c.Accordant),
		FinalTxs:         mergeFinalTxs(c.Arbitrating, c.Accordant),
		PendingBroadcast: serializePending(c.Arbitrating.PendingBroadcastTxs()),
	}
	if addendum := c.Accordant.AccordantAddendum; addendum != nil {
		ck.AccordantSet = true
		ck.AccordantSpendKey = addendum.SpendKey
		ck.AccordantViewKey = addendum.ViewKey
		ck.AccordantFromHeight = addendum.FromHeight
	}

	if err := c.Checkpointer.Save(c.CheckpointDir, ck); err != nil {
		metrics.CheckpointWriteErrors.Inc()
		return &CheckpointIoError{cause: err}
	}

	c.updateMetrics()

	if c.Index != nil {
		deal := c.Deal
		entry := swapindex.Entry{
			SwapId:     c.SwapId,
			StateTag:   uint8(c.State.Tag),
			Role:       uint8(c.Role),
			DealDigest: deal.Digest(),
			Terminal:   c.State.Tag == StateSwapEnd,
		}
		var idxErr error
		if c.State.Tag == StateSwapEnd && c.State.Outcome == OutcomeAbort {
			idxErr = c.Index.Delete(c.SwapId)
		} else {
			idxErr = c.Index.Put(entry)
		}
		if idxErr != nil {
			log.Warnf("swap %s: swap index write failed: %v", c.SwapId, idxErr)
		}
	}

	return nil
}

// updateMetrics reports this swap's current coordinator state and, on
// first reaching SwapEnd, its terminal outcome, and the outstanding
// task population by kind, summed over both chains' syncers.
func (c *Coordinator) updateMetrics() {
	if c.metricTag != nil && *c.metricTag != c.State.Tag {
		metrics.SwapsByState.WithLabelValues(c.metricTag.String()).Dec()
	}
	if c.metricTag == nil || *c.metricTag != c.State.Tag {
		metrics.SwapsByState.WithLabelValues(c.State.Tag.String()).Inc()
		tag := c.State.Tag
		c.metricTag = &tag
		if c.State.Tag == StateSwapEnd {
			metrics.SwapsTerminated.WithLabelValues(c.State.Outcome.String()).Inc()
		}
	}

	counts := make(map[syncer.TaskKind]int)
	for _, s := range []*syncer.State{c.Arbitrating, c.Accordant} {
		for kind, count := range s.Tasks.CountByKind() {
			counts[kind] += count
		}
	}
	for kind, count := range counts {
		metrics.SyncerTasksOutstanding.WithLabelValues(kind.String()).Set(float64(count))
	}
}

func checkpoint32(id swap.Id) [32]byte { return [32]byte(id) }

func mergeConfirmations(chains ...*syncer.State) map[swap.TxLabel]*uint32 {
	out := make(map[swap.TxLabel]*uint32)
	for _, s := range chains {
		for _, label := range allLabels {
			if confs := s.GetConfs(label); confs != nil {
				out[label] = confs
			}
		}
	}
	return out
}

func mergeFinalTxs(chains ...*syncer.State) map[swap.TxLabel]bool {
	out := make(map[swap.TxLabel]bool)
	for _, s := range chains {
		for _, label := range allLabels {
			if s.FinalTxs(label) {
				out[label] = true
			}
		}
	}
	return out
}

var allLabels = []swap.TxLabel{
	swap.Funding, swap.Lock, swap.Cancel, swap.Refund, swap.Buy, swap.Punish, swap.AccLock,
}

func serializePending(txs []*wire.MsgTx) [][]byte {
	out := make([][]byte, 0, len(txs))
	for _, tx := range txs {
		if tx == nil {
			continue
		}
		var buf bytes.Buffer
		if err := tx.Serialize(&buf); err != nil {
			continue
		}
		out = append(out, buf.Bytes())
	}
	return out
}

// expect validates an incoming peer message against the message kind
// the current state requires, per §4.4 decision-procedure step 3.
func (c *Coordinator) expect(msg Message, want MessageKind) error {
	if msg.Kind() != want {
		return &ProtocolViolation{Got: msg.Kind(), Expected: want}
	}
	return nil
}

// HandleMessage processes one peer protocol message. Mismatches are
// protocol violations (§7): pre-funding they abort the swap, otherwise
// they are logged and ignored, trusting timelocks to drive recovery.
func (c *Coordinator) HandleMessage(ctx context.Context, msg Message) error {
	var err error
	switch c.State.Tag {
	case StateInit:
		err = c.handleCommitAB(ctx, msg)
	case StateCommitAB:
		err = c.handleRevealAB(ctx, msg)
	case StateFunding, StateLocked:
		if c.Role == swap.Bob {
			err = c.handleRefundProcedureSignatures(ctx, msg)
		} else {
			err = c.handleCoreArbitratingSetup(ctx, msg)
		}
	case StateAccLocked:
		if c.Role == swap.Alice {
			err = c.handleBuyProcedureSignature(ctx, msg)
		}
	default:
		log.Debugf("swap %s: ignoring message %s in terminal-adjacent state %s", c.SwapId, msg.Kind(), c.State.Tag)
		return nil
	}

	if pv, ok := err.(*ProtocolViolation); ok {
		if c.State.Tag == StateInit || c.State.Tag == StateCommitAB {
			c.State.end(OutcomeAbort)
			return c.checkpointNow()
		}
		log.Warnf("swap %s: %v, ignoring post-funding", c.SwapId, pv)
		return nil
	}
	if err != nil {
		return wrap(err)
	}
	return c.checkpointNow()
}

func (c *Coordinator) handleCommitAB(ctx context.Context, msg Message) error {
	if err := c.expect(msg, KindCommitAB); err != nil {
		return err
	}
	return c.State.advance(StateCommitAB)
}

func (c *Coordinator) handleRevealAB(ctx context.Context, msg Message) error {
	if err := c.expect(msg, KindRevealAB); err != nil {
		return err
	}
	if err := c.State.advance(StateRevealAB); err != nil {
		return err
	}
	if err := c.State.advance(StateCoreArb); err != nil {
		return err
	}
	if err := c.State.advance(StateFunding); err != nil {
		return err
	}

	fundingAddr, err := c.Wallet.NewAddress(ctx)
	if err != nil {
		return &WalletError{cause: err}
	}
	task := c.Arbitrating.WatchAddrBtc(fundingAddr, swap.Funding)
	c.PendingTasks = append(c.PendingTasks, task)
	return nil
}

// HandleSyncerEvent processes one syncer observation, following the
// per-event decision procedure of §4.4: height updates recompute
// temporal predicates for the current state's gate transactions; tx
// confirmation events are routed by label; address-transaction events
// (Bob watching his funding address) trigger Lock construction.
//
// A TaskUnknown condition is logged and the event dropped, per §7: it
// is not fatal, since abort-in-flight and restart races can produce
// stale task IDs.
func (c *Coordinator) HandleSyncerEvent(ctx context.Context, chain chainio.Blockchain, ev syncer.Event) error {
	s := c.Arbitrating
	if chain == chainio.Accordant {
		s = c.Accordant
	}

	var err error
	switch ev.Kind {
	case syncer.EventHeightChanged:
		s.HandleHeightChange(ev.Height, chain)
		err = c.recomputeGates(ctx)

	case syncer.EventTransactionConfirmations:
		label, ok := s.Tasks.WatchedLabel(ev.TaskId)
		if !ok {
			log.Debugf("swap %s: dropping confirmation event for unknown task %d", c.SwapId, ev.TaskId)
			return nil
		}
		finalityThr := c.Safety.FinalityThreshold(chain)
		if handleErr := s.HandleTxConfs(ev.TaskId, ev.Confirmations, uint32(finalityThr)); handleErr != nil {
			var unknown *syncer.ErrTaskUnknown
			if errors.As(handleErr, &unknown) {
				log.Debugf("swap %s: %v", c.SwapId, handleErr)
				return nil
			}
			return handleErr
		}
		err = c.onLabelConfirmation(ctx, label)

	case syncer.EventAddressTransaction:
		err = c.onFundingAddressTransaction(ctx, ev)

	case syncer.EventTransactionBroadcasted:
		s.TransactionBroadcasted(ev.TaskId)

	case syncer.EventFeeEstimation:
		s.FeeEstimateSatPerKvb = &ev.FeeSatPerKvb

	default:
		log.Debugf("swap %s: ignoring syncer event kind %d", c.SwapId, ev.Kind)
		return nil
	}

	if err != nil {
		return wrap(err)
	}
	return c.checkpointNow()
}

// onLabelConfirmation routes a newly-updated confirmation count to the
// appropriate terminal-direction reaction, per §4.4 step 2.
func (c *Coordinator) onLabelConfirmation(ctx context.Context, label swap.TxLabel) error {
	switch label {
	case swap.Lock:
		if c.Arbitrating.FinalTxs(swap.Lock) && c.State.Tag < StateLocked {
			return c.onLockFinal(ctx)
		}
	case swap.Cancel:
		if c.Arbitrating.FinalTxs(swap.Cancel) {
			return c.onCancelValid(ctx)
		}
	case swap.Buy:
		if c.Arbitrating.FinalTxs(swap.Buy) {
			return c.onBuySeenOnArbitrating(ctx)
		}
	case swap.Refund:
		if c.Arbitrating.FinalTxs(swap.Refund) {
			c.State.end(OutcomeRefund)
		}
	case swap.Punish:
		if c.Arbitrating.FinalTxs(swap.Punish) {
			c.State.end(OutcomePunish)
		}
	case swap.AccLock:
		if c.Accordant.FinalTxs(swap.AccLock) {
			return c.onBuySeenOnArbitrating(ctx)
		}
	}
	return nil
}

// recomputeGates re-evaluates every height-gated predicate relevant to
// the current state, per §4.4 decision-procedure step 1.
func (c *Coordinator) recomputeGates(ctx context.Context) error {
	if err := c.onCancelValid(ctx); err != nil {
		return err
	}
	if err := c.onSafeRefund(ctx); err != nil {
		return err
	}
	return c.onValidPunish(ctx)
}
