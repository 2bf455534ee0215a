package coordinator

import (
	"bytes"
	"context"

	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/decred/dcrd/wire"
	"github.com/decred/dcrswap/input"
	"github.com/decred/dcrswap/swap"
	"github.com/decred/dcrswap/syncer"
	"github.com/decred/dcrswap/wallet"
)

// handleCoreArbitratingSetup is Alice's reaction to Bob's
// CoreArbitratingSetup (§4.4): she is now able to prepare her refund
// procedure signatures.
func (c *Coordinator) handleCoreArbitratingSetup(ctx context.Context, msg Message) error {
	if err := c.expect(msg, KindCoreArbitratingSetup); err != nil {
		return err
	}
	setup := msg.(CoreArbitratingSetup)
	c.lockTxid = setup.LockTxid

	refundAdaptor, err := c.Wallet.AdaptorSign(ctx, nil, 0, setup.RefundTx, 0, nil)
	if err != nil {
		return &WalletError{cause: err}
	}
	c.PendingMessages = append(c.PendingMessages, RefundProcedureSignatures{
		SwapId:        c.SwapId,
		RefundAdaptor: refundAdaptor,
	})
	return c.State.advance(StateCoreArb)
}

// handleRefundProcedureSignatures is Bob's reaction to Alice's reply:
// once safe_buy holds over the current lock confirmation count, he
// releases his own adaptor signature (§4.4's core atomicity step).
func (c *Coordinator) handleRefundProcedureSignatures(ctx context.Context, msg Message) error {
	if err := c.expect(msg, KindRefundProcedureSignatures); err != nil {
		return err
	}

	lockConfs := c.Arbitrating.GetConfs(swap.Lock)
	if lockConfs == nil || !c.Safety.SafeBuy(*lockConfs) {
		log.Debugf("swap %s: refund procedure signatures received, buy not yet safe", c.SwapId)
		return nil
	}
	if !c.Arbitrating.FinalTxs(swap.Lock) {
		return nil
	}

	skeleton, err := c.buildSpendingSkeleton(chainhash.Hash(c.lockTxid))
	if err != nil {
		return &WalletError{cause: err}
	}
	if _, err := c.FeePolicy.ComputePayoutOutput(c.Deal.ArbitratingAmount, len(skeleton)); err != nil {
		return &WalletError{cause: err}
	}

	buyAdaptor, err := c.Wallet.AdaptorSign(ctx, nil, 0, nil, 0, nil)
	if err != nil {
		return &WalletError{cause: err}
	}
	c.PendingMessages = append(c.PendingMessages, BuyProcedureSignature{
		SwapId:     c.SwapId,
		BuyAdaptor: buyAdaptor,
	})
	return c.State.advance(StateBuyProcedureSignature)
}

// onFundingAddressTransaction is Bob's reaction, while in StateFunding,
// to seeing a transaction pay the watched funding address (§4.4): he
// constructs and broadcasts the Lock transaction.
func (c *Coordinator) onFundingAddressTransaction(ctx context.Context, ev syncer.Event) error {
	if c.Role != swap.Bob || c.State.Tag != StateFunding {
		return nil
	}
	if c.Safety.StopFundingBeforeCancel(valueOr(c.Arbitrating.GetConfs(swap.Lock))) {
		log.Warnf("swap %s: withholding funding acknowledgement, cancel window closing", c.SwapId)
		return nil
	}

	lockAddr, err := c.Wallet.NewAddress(ctx)
	if err != nil {
		return &WalletError{cause: err}
	}
	lockScript, err := input.PayToAddrScript(lockAddr)
	if err != nil {
		return &WalletError{cause: err}
	}

	lockTx, err := c.Wallet.FundTransaction(ctx, wallet.FundingTemplate{
		Amount:     c.Deal.ArbitratingAmount,
		LockScript: lockScript,
	})
	if err != nil {
		return &WalletError{cause: err}
	}
	c.lockTxid = chainhashToArray(lockTx.Tx.TxHash())

	task := c.Arbitrating.Broadcast(lockTx.Tx)
	c.PendingTasks = append(c.PendingTasks, task)
	watch := c.Arbitrating.WatchTxBtc(lockTx.Tx.TxHash(), swap.Lock)
	c.PendingTasks = append(c.PendingTasks, watch)
	return nil
}

// onLockFinal is the shared reaction, for both roles, to the Lock
// transaction reaching finality (§4.4 decision procedure step 2): the
// coordinator proceeds to Locked and, if Bob, notifies Alice.
func (c *Coordinator) onLockFinal(ctx context.Context) error {
	if err := c.State.advance(StateLocked); err != nil {
		return err
	}
	if c.Role == swap.Bob {
		txid := chainhash.Hash(c.lockTxid)
		cancelTx, err := c.buildSpendingSkeleton(txid)
		if err != nil {
			return &WalletError{cause: err}
		}
		refundTx, err := c.buildSpendingSkeleton(txid)
		if err != nil {
			return &WalletError{cause: err}
		}
		c.PendingMessages = append(c.PendingMessages, CoreArbitratingSetup{
			SwapId:   c.SwapId,
			LockTxid: chainhashToArray(txid),
			CancelTx: cancelTx,
			RefundTx: refundTx,
		})
	}
	return nil
}

// buildSpendingSkeleton constructs the unsigned outline of a
// transaction spending the Lock output, serving as the wire payload
// Bob attaches to CoreArbitratingSetup for Cancel and Refund: the
// actual witness is produced later by each party's AdaptorSign call,
// per §4.4's "Bob constructs Cancel and Refund transaction templates"
// step.
func (c *Coordinator) buildSpendingSkeleton(lockTxid chainhash.Hash) ([]byte, error) {
	tx := wire.NewMsgTx()
	tx.AddTxIn(&wire.TxIn{
		PreviousOutPoint: wire.OutPoint{Hash: lockTxid, Index: 0},
	})
	tx.AddTxOut(&wire.TxOut{Value: int64(c.Deal.ArbitratingAmount)})

	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func chainhashToArray(h chainhash.Hash) [32]byte {
	var out [32]byte
	copy(out[:], h[:])
	return out
}

func valueOr(v *uint32) uint32 {
	if v == nil {
		return 0
	}
	return *v
}
