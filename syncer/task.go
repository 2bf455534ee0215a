// Package syncer implements the per-chain task registry: allocation of
// unique task IDs, the correlation indices that map a task back to the
// swap role it serves, and the SyncerState that a swap coordinator
// keeps per chain to track heights, confirmations, and pending watches.
//
// This package never talks to a node directly — that is the syncer
// driver's job, an external collaborator (§1). It only tracks what was
// asked for and reconciles what comes back.
package syncer

import (
	"fmt"

	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/decred/dcrd/txscript/v4/stdaddr"
	"github.com/decred/dcrd/wire"
)

// TaskId is a monotonic counter, unique within a single syncer
// instance's lifetime. It carries no ordering semantics beyond
// uniqueness: the coordinator may reorder its own outbound tasks
// freely.
type TaskId uint32

// TaskKind identifies which of the fixed task variants a Task value
// holds.
type TaskKind uint8

const (
	KindWatchHeight TaskKind = iota
	KindWatchTransaction
	KindWatchAddress
	KindWatchEstimateFee
	KindGetTx
	KindBroadcastTransaction
	KindSweepAddress
	KindAbort
)

// String implements fmt.Stringer, used as the metrics label value for
// a task kind.
func (k TaskKind) String() string {
	switch k {
	case KindWatchHeight:
		return "watch_height"
	case KindWatchTransaction:
		return "watch_transaction"
	case KindWatchAddress:
		return "watch_address"
	case KindWatchEstimateFee:
		return "watch_estimate_fee"
	case KindGetTx:
		return "get_tx"
	case KindBroadcastTransaction:
		return "broadcast_transaction"
	case KindSweepAddress:
		return "sweep_address"
	case KindAbort:
		return "abort"
	default:
		return fmt.Sprintf("unknown-kind(%d)", uint8(k))
	}
}

// TaskTarget names what an Abort task targets — presently always a
// TaskId, but kept as its own type so the wire encoding (§6) can be
// extended without reshaping Abort.
type TaskTarget struct {
	TaskId TaskId
}

// AddressAddendum carries the chain-specific data needed to watch an
// address: a Bitcoin-style output script address and a starting
// height, or a Monero-style view/spend keypair and a starting height.
// Exactly one of the two fields is populated, selected by the Task's
// implicit chain (arbitrating tasks always use Bitcoin, accordant tasks
// always use Monero).
type AddressAddendum struct {
	Bitcoin *BtcAddressAddendum
	Monero  *XmrAddressAddendum
}

// BtcAddressAddendum watches an arbitrating-chain address from a given
// height.
type BtcAddressAddendum struct {
	Address    stdaddr.Address
	FromHeight uint64
}

// XmrAddressAddendum watches an accordant-chain stealth address built
// from a view/spend keypair, from a given height.
type XmrAddressAddendum struct {
	SpendKey   [32]byte
	ViewKey    [32]byte
	FromHeight uint64
}

// SweepAddressAddendum carries the chain-specific sweep destination
// data for a SweepAddress task.
type SweepAddressAddendum struct {
	Bitcoin *SweepBitcoinAddress
	Monero  *SweepMoneroAddress
}

// SweepBitcoinAddress sweeps the shared arbitrating output to a
// destination address.
type SweepBitcoinAddress struct {
	Address stdaddr.Address
}

// SweepMoneroAddress sweeps the shared accordant output, spendable by
// combining both parties' spend-key shares, to a destination address.
type SweepMoneroAddress struct {
	SpendKey [32]byte
	ViewKey  [32]byte
	Address  string
}

// Task is the unit of work issued by the coordinator to a syncer. Every
// task carries a fresh TaskId, recorded in the registry that issued it,
// and (except for GetTx, BroadcastTransaction and Abort tasks, which are
// issued without one) a Lifetime past which the syncer discards it even
// if it never received a matching event.
type Task struct {
	Kind TaskKind
	Id   TaskId

	// Lifetime is the block height past which the syncer discards this
	// task. It is zero for the kinds issued without a lifetime (GetTx,
	// BroadcastTransaction, Abort).
	Lifetime uint64

	// WatchTransaction / GetTx fields.
	Hash               []byte
	ConfirmationBound  uint32

	// WatchAddress / SweepAddress fields.
	Addendum   AddressAddendum
	IncludeTx  bool
	SweepAddendum SweepAddressAddendum
	Retry      bool

	// BroadcastTransaction fields.
	Tx                  *wire.MsgTx
	BroadcastAfterHeight *uint64

	// Abort fields.
	Target TaskTarget
}

// TxidFromHash decodes Hash as an arbitrating-chain chainhash.Hash, for
// tasks whose Hash field was populated by watch_tx_btc/retrieve_tx_btc.
func (t Task) TxidFromHash() (chainhash.Hash, error) {
	var h chainhash.Hash
	err := h.SetBytes(t.Hash)
	return h, err
}
