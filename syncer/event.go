package syncer

import "github.com/decred/dcrd/wire"

// EventKind identifies which of the fixed event variants an Event value
// holds (§4.3).
type EventKind uint8

const (
	EventHeightChanged EventKind = iota
	EventTransactionConfirmations
	EventTransactionRetrieved
	EventAddressTransaction
	EventTransactionBroadcasted
	EventSweepSuccess
	EventFeeEstimation
	EventTaskAborted
)

// BroadcastOutcome reports whether a BroadcastTransaction task's
// transaction was accepted by the network.
type BroadcastOutcome struct {
	Accepted bool
	Error    string
}

// AddressTx is one transaction observed against a watched address.
type AddressTx struct {
	Hash []byte
	Tx   *wire.MsgTx
}

// Event is a syncer observation delivered back to the coordinator over
// the Sync bus channel. Exactly one of the payload fields is populated,
// selected by Kind.
type Event struct {
	Kind EventKind

	// Common to most event kinds.
	TaskId TaskId

	// EventHeightChanged.
	Height uint64

	// EventTransactionConfirmations. Confirmations is nil when the
	// transaction has not been seen at all, and Some(0) when it has
	// been seen in the mempool but not yet mined — the two are kept
	// distinct per §9's open question, and a nil report after a
	// non-nil one never clears the last-known value (see
	// State.HandleTxConfs).
	Confirmations *uint32

	// EventTransactionRetrieved.
	RawTx *wire.MsgTx

	// EventAddressTransaction.
	AddressTx AddressTx

	// EventTransactionBroadcasted.
	Outcome BroadcastOutcome

	// EventFeeEstimation.
	FeeSatPerKvb uint64
}
