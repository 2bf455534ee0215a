package syncer

import (
	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/decred/dcrd/dcrutil/v4"
	"github.com/decred/dcrd/txscript/v4/stdaddr"
	"github.com/decred/dcrd/wire"
	"github.com/decred/dcrswap/chainio"
	"github.com/decred/dcrswap/swap"
)

// taskLifetimeHorizon is the number of blocks past the syncer's current
// height a freshly issued task is allowed to live. Five hundred blocks
// is an ample horizon on both chains relative to the longest credible
// timelock configuration; it bounds syncer memory for orphaned tasks.
const taskLifetimeHorizon = 500

// noHeightLifetime is used as a task lifetime while a chain's height is
// still unknown: effectively unbounded.
const noHeightLifetime = ^uint64(0)

// State is the per-swap syncer-facing state described in §3: the swap
// id, the task registry, per-chain height, the confirmation bound, the
// latched lock/cancel confirmation flags, the network, syncer
// identities, the swap amounts, the cached accordant address addendum,
// the running confirmation map, the funding-awaited flag, and the
// cached fee estimate.
type State struct {
	SwapId swap.Id
	Tasks  *Tasks

	arbitratingHeight uint64
	accordantHeight   uint64

	ConfirmationBound uint32

	LockConfirmed   bool
	CancelConfirmed bool

	Network chainio.Network

	ArbitratingAmount dcrutil.Amount
	AccordantAmount   uint64

	AccordantAddendum *XmrAddressAddendum

	confirmations map[swap.TxLabel]*uint32

	AwaitingFunding bool

	FeeEstimateSatPerKvb *uint64
}

// NewState returns a fresh syncer-facing state for swapId, with a new,
// empty task registry.
func NewState(swapId swap.Id, network chainio.Network, confirmationBound uint32) *State {
	return &State{
		SwapId:            swapId,
		Tasks:             NewTasks(),
		Network:           network,
		ConfirmationBound: confirmationBound,
		confirmations:     make(map[swap.TxLabel]*uint32),
	}
}

// Height returns the last-known height for chain.
func (s *State) Height(chain chainio.Blockchain) uint64 {
	if chain == chainio.Accordant {
		return s.accordantHeight
	}
	return s.arbitratingHeight
}

// TaskLifetime returns the block height past which a freshly issued
// task for chain should be discarded, matching task_lifetime(chain):
// current_height + 500 when the height is known, unbounded otherwise.
func (s *State) TaskLifetime(chain chainio.Blockchain) uint64 {
	height := s.Height(chain)
	if height > 0 {
		return height + taskLifetimeHorizon
	}
	return noHeightLifetime
}

// FromHeight returns height-delta, floored at zero, used to pick a safe
// starting height for a new address watch (so a handful of blocks of
// slack absorb a shallow reorg at registration time).
func (s *State) FromHeight(chain chainio.Blockchain, delta uint64) uint64 {
	height := s.Height(chain)
	if height <= delta {
		return 0
	}
	return height - delta
}

// HandleHeightChange updates the per-chain height monotonically: if
// newHeight exceeds the current height it is adopted; otherwise it is
// ignored (the syncer is allowed to re-emit heights, but never to
// regress the coordinator's view of them).
func (s *State) HandleHeightChange(newHeight uint64, chain chainio.Blockchain) {
	current := s.Height(chain)
	if newHeight <= current {
		swapLog.Warnf("%s | block height did not increment on %s, "+
			"maybe syncer re-sent an event", s.SwapId, chain)
		return
	}
	if chain == chainio.Accordant {
		s.accordantHeight = newHeight
	} else {
		s.arbitratingHeight = newHeight
	}
}

// WatchTxBtc allocates a watch task for an arbitrating-chain
// transaction, matching watch_tx_btc.
func (s *State) WatchTxBtc(txid chainhash.Hash, label swap.TxLabel) Task {
	return s.Tasks.WatchTx(chainio.Arbitrating, txid[:], label,
		s.TaskLifetime(chainio.Arbitrating), s.ConfirmationBound)
}

// WatchTxXmr allocates a watch task for an accordant-chain transaction,
// matching watch_tx_xmr.
func (s *State) WatchTxXmr(hash []byte, label swap.TxLabel) Task {
	return s.Tasks.WatchTx(chainio.Accordant, hash, label,
		s.TaskLifetime(chainio.Accordant), s.ConfirmationBound)
}

// RetrieveTxBtc allocates a GetTx task for an arbitrating-chain
// transaction, matching retrieve_tx_btc.
func (s *State) RetrieveTxBtc(txid chainhash.Hash, label swap.TxLabel) Task {
	return s.Tasks.RetrieveTx(txid[:], label)
}

// WatchAddrBtc allocates a watch task for an arbitrating-chain address,
// matching watch_addr_btc. The watch starts six blocks behind the
// current tip, absorbing a shallow reorg.
func (s *State) WatchAddrBtc(address stdaddr.Address, label swap.TxLabel) Task {
	addendum := AddressAddendum{Bitcoin: &BtcAddressAddendum{
		Address:    address,
		FromHeight: s.FromHeight(chainio.Arbitrating, 6),
	}}
	return s.Tasks.WatchAddr(addendum, label, s.TaskLifetime(chainio.Arbitrating), true)
}

// WatchAddrXmr allocates a watch task for the accordant shared address
// built from the given view/spend keys, matching watch_addr_xmr. If
// fromHeight is nil, the watch starts twenty blocks behind the current
// accordant tip.
func (s *State) WatchAddrXmr(spend, view [32]byte, label swap.TxLabel, fromHeight *uint64) Task {
	height := s.FromHeight(chainio.Accordant, 20)
	if fromHeight != nil {
		height = *fromHeight
	}
	addendum := XmrAddressAddendum{SpendKey: spend, ViewKey: view, FromHeight: height}
	s.AccordantAddendum = &addendum

	return s.Tasks.WatchAddr(AddressAddendum{Monero: &addendum}, label,
		s.TaskLifetime(chainio.Accordant), false)
}

// WatchHeight allocates a WatchHeight task on chain.
func (s *State) WatchHeight(chain chainio.Blockchain) Task {
	return s.Tasks.WatchHeight(s.TaskLifetime(chain))
}

// EstimateFeeBtc allocates a WatchEstimateFee task.
func (s *State) EstimateFeeBtc() Task {
	return s.Tasks.EstimateFeeBtc(s.TaskLifetime(chainio.Arbitrating))
}

// SweepBtc allocates a sweep task for the arbitrating chain.
func (s *State) SweepBtc(addendum SweepBitcoinAddress, retry bool) Task {
	return s.Tasks.Sweep(SweepAddressAddendum{Bitcoin: &addendum},
		s.TaskLifetime(chainio.Arbitrating), retry)
}

// SweepXmr allocates a sweep task for the accordant chain.
func (s *State) SweepXmr(addendum SweepMoneroAddress, retry bool) Task {
	return s.Tasks.Sweep(SweepAddressAddendum{Monero: &addendum},
		s.TaskLifetime(chainio.Accordant), retry)
}

// Broadcast allocates a broadcast task for tx on the arbitrating chain.
func (s *State) Broadcast(tx *wire.MsgTx) Task {
	return s.Tasks.Broadcast(tx, nil)
}

// TransactionBroadcasted acknowledges a TransactionBroadcasted event,
// retiring its task from the in-flight broadcast set.
func (s *State) TransactionBroadcasted(taskId TaskId) {
	s.Tasks.AckTransactionBroadcasted(taskId)
}

// PendingBroadcastTxs returns the transactions for every in-flight
// broadcast, for resuming broadcasts across restarts.
func (s *State) PendingBroadcastTxs() []*wire.MsgTx {
	return s.Tasks.PendingBroadcastTxs()
}

// GetConfs returns the last-known confirmation count for label, if any
// is cached.
func (s *State) GetConfs(label swap.TxLabel) *uint32 {
	return s.confirmations[label]
}

// FinalTxs reports whether label has latched final.
func (s *State) FinalTxs(label swap.TxLabel) bool {
	return s.Tasks.FinalTxs(label)
}

// SetConfsForTest seeds the running confirmation map directly,
// letting coordinator-level tests exercise confirmation-gated
// transitions without fabricating a full watch task and event
// sequence.
func (s *State) SetConfsForTest(label swap.TxLabel, confs *uint32) {
	s.confirmations[label] = confs
}

// HandleTxConfs implements the coordinator-facing half of §4.2's
// handle_tx_confs: it delegates latching to the registry, then always
// updates the running confirmation map for the label — except that a
// nil report never overwrites a previously cached non-nil value,
// resolving §9's open question in favor of "preserve last-known
// confirmations".
func (s *State) HandleTxConfs(taskId TaskId, confs *uint32, finalityThr uint32) error {
	label, err := s.Tasks.HandleTxConfs(taskId, confs, finalityThr)
	if err != nil {
		return err
	}

	switch {
	case confs == nil:
		if s.confirmations[label] != nil {
			swapLog.Debugf("%s | tx %s not on the mempool, "+
				"keeping last known confirmations", s.SwapId, label)
			return nil
		}
		swapLog.Infof("%s | tx %s not on the mempool", s.SwapId, label)
	case s.Tasks.FinalTxs(label):
		swapLog.Infof("%s | tx %s final", s.SwapId, label)
	case *confs == 0:
		swapLog.Infof("%s | tx %s on mempool but hasn't been mined", s.SwapId, label)
	default:
		swapLog.Infof("%s | tx %s mined with %d confirmations", s.SwapId, label, *confs)
	}

	s.confirmations[label] = confs
	return nil
}
