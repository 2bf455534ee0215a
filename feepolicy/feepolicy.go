// Package feepolicy computes dust-safe transaction fee and output
// sizing for the arbitrating-chain transactions a swap builds (§4.6),
// adapted from the watchtower package's justice-transaction sizing
// policy.
package feepolicy

import (
	"errors"
	"fmt"

	"github.com/decred/dcrd/dcrutil/v4"
	"github.com/decred/dcrswap/swap"
)

// DefaultDustLimit matches the network's standard relay dust
// threshold for a P2PKH output.
const DefaultDustLimit = dcrutil.Amount(1e4)

// FeeRateScale is the denominator used when a fee strategy specifies
// a rate rather than a fixed fee, expressed in atoms per kilobyte.
const FeeRateScale = 1000

var (
	// ErrFeeExceedsAmount signals that the requested fee would consume
	// the entire locked amount, leaving nothing for the payout output.
	ErrFeeExceedsAmount = errors.New("feepolicy: fee exceeds locked amount")

	// ErrCreatesDust signals that after deducting the fee the payout
	// output would fall below the dust threshold.
	ErrCreatesDust = errors.New("feepolicy: output would be dust")
)

// Policy is the negotiated fee policy for a single swap, derived from
// the deal's FeeStrategy (§3).
type Policy struct {
	Strategy swap.FeeStrategy

	// FixedFee is used when Strategy is FixedFee.
	FixedFee dcrutil.Amount

	// RatePerKB is used when Strategy is MarketFee, expressed in
	// atoms per kilobyte.
	RatePerKB dcrutil.Amount
}

// EstimateFee returns the fee this policy charges for a transaction of
// the given serialized size in bytes.
func (p Policy) EstimateFee(sizeBytes int) dcrutil.Amount {
	switch p.Strategy {
	case swap.FixedFee:
		return p.FixedFee
	case swap.MarketFee:
		return p.RatePerKB * dcrutil.Amount(sizeBytes) / FeeRateScale
	default:
		return p.FixedFee
	}
}

// ComputePayoutOutput returns the output value left after deducting
// this policy's fee from totalAmt, refusing to produce a dust or
// negative output. This mirrors the watchtower policy's altruist
// output computation, generalized from a single fixed reward
// deduction to either of the two fee strategies named in §3.
func (p Policy) ComputePayoutOutput(totalAmt dcrutil.Amount, sizeBytes int) (dcrutil.Amount, error) {
	fee := p.EstimateFee(sizeBytes)
	if fee >= totalAmt {
		return 0, fmt.Errorf("%w: fee %v >= amount %v", ErrFeeExceedsAmount, fee, totalAmt)
	}

	payout := totalAmt - fee
	if payout < DefaultDustLimit {
		return 0, fmt.Errorf("%w: %v after fee %v", ErrCreatesDust, payout, fee)
	}

	return payout, nil
}
