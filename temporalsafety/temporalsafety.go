// Package temporalsafety implements the pure, side-effect-free
// predicates the swap coordinator consults to decide whether it is
// safe, valid, or too late to act on a given lock/cancel/refund/buy/
// punish transaction. Every predicate here is total: given any Params
// and any confirmation count it returns an answer, never an error; the
// one fallible operation is Params validation itself, performed once at
// construction and again on every restore from a checkpoint.
package temporalsafety

import (
	"errors"

	"github.com/decred/dcrswap/chainio"
)

// BlockHeight is a block height or a block-height delta, depending on
// context. It is unsigned; deltas that may be negative are returned as
// int64 instead (see BlocksUntilStopFunding).
type BlockHeight = uint32

// ErrUnsafeParams is returned by Validate when a Params value does not
// satisfy the ordering invariant required to reason safely about the
// swap's timelocks.
var ErrUnsafeParams = errors.New("unsafe and invalid temporal parameters, timelocks, race and tx finality params")

// Params is the value-typed collection of block-height thresholds that
// parameterizes every predicate in this package. Two instances with the
// same field values are interchangeable; Params carries no identity and
// no mutable state.
type Params struct {
	// CancelTimelock is blocks from Lock inclusion after which Cancel
	// becomes valid on-chain.
	CancelTimelock BlockHeight

	// PunishTimelock is blocks from Cancel inclusion after which Punish
	// becomes valid.
	PunishTimelock BlockHeight

	// RaceThr is the safety margin, in blocks, inside which no action
	// is taken.
	RaceThr BlockHeight

	// BtcFinalityThr is the confirmations required before treating an
	// arbitrating-chain transaction as final.
	BtcFinalityThr BlockHeight

	// XmrFinalityThr is the confirmations required before treating an
	// accordant-chain transaction as final.
	XmrFinalityThr BlockHeight

	// SweepMoneroThr is the confirmations required before sweeping the
	// shared accordant output.
	SweepMoneroThr BlockHeight
}

// Validate checks that the temporal parameters are in a safe, internally
// consistent order:
//
//	btc_finality < cancel < punish
//	btc_finality < race
//	cancel > race
//	punish > race
//
// It must be checked at construction and on every load from persisted
// state; a failing check must abort before any on-chain action is taken
// (this is the TemporalUnsafe error of the error taxonomy, and it is
// fatal).
func (p Params) Validate() error {
	btcFinality := p.BtcFinalityThr
	cancel := p.CancelTimelock
	punish := p.PunishTimelock
	race := p.RaceThr

	if btcFinality < cancel &&
		cancel < punish &&
		btcFinality < race &&
		punish > race &&
		cancel > race {
		return nil
	}
	return ErrUnsafeParams
}

// FinalityThreshold returns the confirmation threshold applied to the
// given chain.
func (p Params) FinalityThreshold(chain chainio.Blockchain) BlockHeight {
	switch chain {
	case chainio.Accordant:
		return p.XmrFinalityThr
	default:
		return p.BtcFinalityThr
	}
}

// FinalTx reports whether confs confirmations make a transaction on the
// given chain final.
func (p Params) FinalTx(confs uint32, chain chainio.Blockchain) bool {
	return confs >= p.FinalityThreshold(chain)
}

// StopFundingBeforeCancel reports whether the coordinator must stop
// acknowledging incoming funding: the Lock is final, and close enough to
// Cancel that a slow counterparty could otherwise force a race. The +1
// offsets the initial lock confirmation.
func (p Params) StopFundingBeforeCancel(lockConfirmations uint32) bool {
	return p.FinalTx(lockConfirmations, chainio.Arbitrating) &&
		lockConfirmations > (p.CancelTimelock-p.RaceThr+1)
}

// BlocksUntilStopFunding returns the signed number of blocks remaining
// until funding acknowledgement must stop; it may be negative once
// stopped. Adds the same +1 offset as StopFundingBeforeCancel.
func (p Params) BlocksUntilStopFunding(lockConfirmations uint32) int64 {
	return int64(p.CancelTimelock) - (int64(p.RaceThr) + 1 + int64(lockConfirmations))
}

// ValidCancel reports whether Cancel is valid on-chain: Lock is final
// and has accumulated at least CancelTimelock confirmations.
func (p Params) ValidCancel(lockConfirmations uint32) bool {
	return p.FinalTx(lockConfirmations, chainio.Arbitrating) &&
		lockConfirmations >= p.CancelTimelock
}

// BlocksUntilCancel returns the number of blocks remaining until Cancel
// becomes valid. Restored from the original source; not itself a safety
// gate, used for progress reporting.
func (p Params) BlocksUntilCancel(lockConfirmations uint32) int64 {
	return int64(p.CancelTimelock) - int64(lockConfirmations)
}

// SafeBuy reports whether Buy may be released without risking a race
// against Cancel: Lock is final and not yet within RaceThr blocks of
// CancelTimelock.
func (p Params) SafeBuy(lockConfirmations uint32) bool {
	return p.FinalTx(lockConfirmations, chainio.Arbitrating) &&
		lockConfirmations <= (p.CancelTimelock-p.RaceThr)
}

// SafeRefund reports whether Refund may be broadcast without risking a
// race against Punish: Cancel is final and not yet within RaceThr
// blocks of PunishTimelock.
func (p Params) SafeRefund(cancelConfirmations uint32) bool {
	return p.FinalTx(cancelConfirmations, chainio.Arbitrating) &&
		cancelConfirmations <= (p.PunishTimelock-p.RaceThr)
}

// ValidPunish reports whether Punish is valid on-chain: Cancel is final
// and has accumulated at least PunishTimelock confirmations.
func (p Params) ValidPunish(cancelConfirmations uint32) bool {
	return p.FinalTx(cancelConfirmations, chainio.Arbitrating) &&
		cancelConfirmations >= p.PunishTimelock
}

// BlocksUntilPunishAfterCancel returns the number of blocks remaining
// until Punish becomes valid, counted from Cancel confirmations.
// Restored from the original source for progress reporting.
func (p Params) BlocksUntilPunishAfterCancel(cancelConfirmations uint32) int64 {
	return int64(p.PunishTimelock) - int64(cancelConfirmations)
}
