package coordinator

import (
	"context"

	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/decred/dcrd/wire"
	"github.com/decred/dcrswap/input"
	"github.com/decred/dcrswap/swap"
)

// buildPayoutTx asks the wallet to construct and sign a transaction
// spending the Lock output to a fresh wallet address, the mechanism
// shared by the three ways the arbitrating side of a swap can end
// after Lock: Cancel, Refund, and Punish (§4.4/§4.6). The payout
// amount is sized by the coordinator's fee policy, which refuses to
// build a transaction whose fee would exceed the locked amount or
// leave a dust output.
func (c *Coordinator) buildPayoutTx(ctx context.Context, label swap.TxLabel) (*wire.MsgTx, error) {
	lockTxid := chainhash.Hash(c.lockTxid)
	skeleton, err := c.buildSpendingSkeleton(lockTxid)
	if err != nil {
		return nil, err
	}

	payout, err := c.FeePolicy.ComputePayoutOutput(c.Deal.ArbitratingAmount, len(skeleton))
	if err != nil {
		return nil, err
	}

	payoutAddr, err := c.Wallet.NewAddress(ctx)
	if err != nil {
		return nil, err
	}
	payoutScript, err := input.PayToAddrScript(payoutAddr)
	if err != nil {
		return nil, err
	}

	tx := wire.NewMsgTx()
	tx.AddTxIn(&wire.TxIn{PreviousOutPoint: wire.OutPoint{Hash: lockTxid, Index: 0}})
	tx.AddTxOut(&wire.TxOut{Value: int64(payout), PkScript: payoutScript})

	sig, err := c.Wallet.SignInput(ctx, tx, 0, skeleton, c.Deal.ArbitratingAmount)
	if err != nil {
		return nil, err
	}
	tx.TxIn[0].SignatureScript = sig

	return tx, nil
}
