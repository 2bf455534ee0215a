// Package swap defines the data model shared by every swap-aware
// subsystem: the swap identifier, the two roles a counterparty can
// play, the immutable deal parameters a maker publishes and a taker
// accepts, and the label vocabulary used to tag transactions by their
// purpose in the protocol rather than by their on-chain identity.
package swap

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/decred/dcrd/dcrutil/v4"
	"github.com/decred/dcrswap/chainio"
	"golang.org/x/crypto/blake2b"
)

// Id is an opaque 32-byte identifier, unique per swap, used to route
// every message and task that belongs to that swap. It is created at
// deal-take time and is immutable for the swap's lifetime.
type Id [32]byte

// String renders the swap id as a hex string for logs and CLI output.
func (s Id) String() string {
	return hex.EncodeToString(s[:])
}

// Role is one of {Alice, Bob}. Alice sells accordant for arbitrating;
// Bob sells arbitrating for accordant. The role determines which branch
// of the protocol the coordinator drives.
type Role uint8

const (
	// Bob sells the arbitrating asset and buys the accordant asset.
	Bob Role = iota

	// Alice sells the accordant asset and buys the arbitrating asset.
	Alice
)

// String implements fmt.Stringer.
func (r Role) String() string {
	switch r {
	case Bob:
		return "Bob"
	case Alice:
		return "Alice"
	default:
		return fmt.Sprintf("unknown-role(%d)", uint8(r))
	}
}

// Other returns the counterparty's role.
func (r Role) Other() Role {
	if r == Bob {
		return Alice
	}
	return Bob
}

// TxLabel is the role tag on a transaction: its purpose in the swap,
// independent of its blockchain identity.
type TxLabel uint8

const (
	// Funding is the counterparty-supplied input to the arbitrating
	// Lock transaction.
	Funding TxLabel = iota
	// Lock places the arbitrating asset under the shared script.
	Lock
	// Cancel returns the arbitrating asset to the pre-swap split after
	// the cancel timelock, enabling Refund or Punish.
	Cancel
	// Refund returns the arbitrating asset to Bob after Cancel.
	Refund
	// Buy releases the arbitrating asset to Alice, revealing the
	// secret that lets Bob claim the accordant asset.
	Buy
	// Punish lets Bob claim the entire arbitrating output if Alice
	// never refunds after Cancel.
	Punish
	// AccLock places the accordant asset under the shared view/spend
	// key pair.
	AccLock
)

// String implements fmt.Stringer.
func (l TxLabel) String() string {
	switch l {
	case Funding:
		return "Funding"
	case Lock:
		return "Lock"
	case Cancel:
		return "Cancel"
	case Refund:
		return "Refund"
	case Buy:
		return "Buy"
	case Punish:
		return "Punish"
	case AccLock:
		return "AccLock"
	default:
		return fmt.Sprintf("unknown-label(%d)", uint8(l))
	}
}

// Label returns a human-friendly capitalized description for logs,
// mirroring the teacher's TxLabel.label() convention.
func (l TxLabel) Label() string {
	return l.String() + " transaction"
}

// FeeStrategy describes how the arbitrating-chain fee for the swap's
// transactions is determined; feepolicy.Policy applies it. This only
// names the strategy the deal commits both parties to. The syncer's
// fee estimate (WatchEstimateFee/FeeEstimation) is cached but not
// consulted by either strategy.
type FeeStrategy uint8

const (
	// FixedFee charges the policy's fixed fee amount, whatever the
	// transaction size.
	FixedFee FeeStrategy = iota
	// MarketFee charges the policy's per-kilobyte rate times the
	// transaction size.
	MarketFee
)

// Deal carries the immutable parameters a maker publishes and a taker
// accepts bit-identically. Every field here is set once, at deal
// creation, and never changes for the swap's lifetime.
type Deal struct {
	// Id uniquely identifies this deal offer prior to being taken.
	Id [32]byte

	// Network is the deployment network both chains run on.
	Network chainio.Network

	// ArbitratingAmount is the amount of the arbitrating asset changing
	// hands.
	ArbitratingAmount dcrutil.Amount

	// AccordantAmount is the amount of the accordant asset changing
	// hands, denominated in its smallest unit (e.g. piconero).
	AccordantAmount uint64

	// MakerRole is the role the deal's publisher will play.
	MakerRole Role

	// CancelTimelock is the number of arbitrating-chain blocks, counted
	// from Lock inclusion, after which Cancel becomes valid.
	CancelTimelock uint32

	// PunishTimelock is the number of arbitrating-chain blocks, counted
	// from Cancel inclusion, after which Punish becomes valid.
	PunishTimelock uint32

	// FeeStrategy names how the arbitrating-chain fee is determined.
	FeeStrategy FeeStrategy

	// MakerAddress is the maker's advertised peer-connection address.
	MakerAddress string
}

// ErrInvalidDeal is returned by Validate when a deal's parameters
// cannot produce a valid TemporalSafety instance, independent of the
// actual finality/race thresholds layered on top by the node's local
// configuration.
var ErrInvalidDeal = errors.New("invalid deal parameters")

// Validate performs the structural checks a deal must pass before it is
// usable for a swap, independent of the thresholds an individual node
// configures locally (those are checked by temporalsafety.Params.Validate).
func (d *Deal) Validate() error {
	if d.CancelTimelock == 0 || d.PunishTimelock == 0 {
		return fmt.Errorf("%w: zero timelock", ErrInvalidDeal)
	}
	if d.PunishTimelock <= d.CancelTimelock {
		return fmt.Errorf("%w: punish timelock must exceed cancel timelock", ErrInvalidDeal)
	}
	if d.ArbitratingAmount <= 0 {
		return fmt.Errorf("%w: non-positive arbitrating amount", ErrInvalidDeal)
	}
	if d.AccordantAmount == 0 {
		return fmt.Errorf("%w: zero accordant amount", ErrInvalidDeal)
	}
	return nil
}

// Digest returns a blake2b commitment to every immutable field of the
// deal, used by the swap index (§4.7) to detect a checkpoint that no
// longer matches the deal a restarted daemon thinks it is resuming.
func (d *Deal) Digest() [32]byte {
	var buf [1 + 8 + 8 + 1 + 4 + 4 + 1]byte
	off := 0
	buf[off] = uint8(d.Network)
	off++
	binary.BigEndian.PutUint64(buf[off:], uint64(d.ArbitratingAmount))
	off += 8
	binary.BigEndian.PutUint64(buf[off:], d.AccordantAmount)
	off += 8
	buf[off] = uint8(d.MakerRole)
	off++
	binary.BigEndian.PutUint32(buf[off:], d.CancelTimelock)
	off += 4
	binary.BigEndian.PutUint32(buf[off:], d.PunishTimelock)
	off += 4
	buf[off] = uint8(d.FeeStrategy)
	off++

	h, _ := blake2b.New256(nil)
	h.Write(d.Id[:])
	h.Write(buf[:off])
	h.Write([]byte(d.MakerAddress))
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
