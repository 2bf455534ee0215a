package coordinator

import (
	"context"

	"github.com/decred/dcrswap/swap"
	"github.com/decred/dcrswap/syncer"
)

// handleBuyProcedureSignature is Alice's reaction to Bob's adaptor
// signature: she locks the accordant side, the second half of the
// atomic pair (§4.4 "On Bob's CoreArbitratingSetup and safe_buy she
// locks the accordant side").
func (c *Coordinator) handleBuyProcedureSignature(ctx context.Context, msg Message) error {
	if err := c.expect(msg, KindBuyProcedureSignature); err != nil {
		return err
	}

	lockConfs := c.Arbitrating.GetConfs(swap.Lock)
	if lockConfs == nil || !c.Safety.SafeBuy(*lockConfs) {
		log.Debugf("swap %s: buy procedure signature received, buy not yet safe", c.SwapId)
		return nil
	}

	task := c.Accordant.WatchAddrXmr([32]byte{}, [32]byte{}, swap.AccLock, nil)
	c.PendingTasks = append(c.PendingTasks, task)
	return c.State.advance(StateAccLocked)
}

// onBuySeenOnArbitrating is Alice's reaction to observing the Buy
// transaction final on the arbitrating chain: she issues a sweep of the
// accordant shared output once sweep_monero_thr confirmations have
// accumulated on her own lock (§4.4 "once sweep_monero_thr
// confirmations have accumulated"). It runs on either of the two
// events, Buy final or AccLock final, and acts only once both hold.
// The sweep task carries an empty SweepMoneroAddress; no key is
// derived from the Buy transaction here.
func (c *Coordinator) onBuySeenOnArbitrating(ctx context.Context) error {
	if c.Role != swap.Alice {
		return nil
	}
	if !c.Arbitrating.FinalTxs(swap.Buy) {
		return nil
	}
	accConfs := c.Accordant.GetConfs(swap.AccLock)
	if accConfs == nil || *accConfs < c.Safety.SweepMoneroThr {
		return nil
	}

	task := c.Accordant.SweepXmr(syncer.SweepMoneroAddress{}, false)
	c.PendingTasks = append(c.PendingTasks, task)
	c.State.end(OutcomeSuccess)
	return nil
}

// onCancelValid is the reaction to valid_cancel holding over the
// current lock confirmation count (§4.4: "On valid_cancel(lock_confs)
// he broadcasts Cancel"). Only Bob acts here; for Alice it does
// nothing, and her Refund is built and broadcast by onSafeRefund.
func (c *Coordinator) onCancelValid(ctx context.Context) error {
	lockConfs := c.Arbitrating.GetConfs(swap.Lock)
	if lockConfs == nil || !c.Safety.ValidCancel(*lockConfs) {
		return nil
	}
	if c.Arbitrating.FinalTxs(swap.Cancel) {
		return nil
	}

	if c.Role == swap.Bob {
		tx, err := c.buildPayoutTx(ctx, swap.Cancel)
		if err != nil {
			return &WalletError{cause: err}
		}
		task := c.Arbitrating.Broadcast(tx)
		c.PendingTasks = append(c.PendingTasks, task)
		watch := c.Arbitrating.WatchTxBtc(tx.TxHash(), swap.Cancel)
		c.PendingTasks = append(c.PendingTasks, watch)
	}
	return nil
}

// onSafeRefund is Alice's reaction, once safe_refund(cancel_confs)
// holds, to broadcast her prepared refund transaction.
func (c *Coordinator) onSafeRefund(ctx context.Context) error {
	if c.Role != swap.Alice {
		return nil
	}
	cancelConfs := c.Arbitrating.GetConfs(swap.Cancel)
	if cancelConfs == nil || !c.Safety.SafeRefund(*cancelConfs) {
		return nil
	}

	tx, err := c.buildPayoutTx(ctx, swap.Refund)
	if err != nil {
		return &WalletError{cause: err}
	}
	task := c.Arbitrating.Broadcast(tx)
	c.PendingTasks = append(c.PendingTasks, task)
	c.State.end(OutcomeRefund)
	return nil
}

// onValidPunish is Bob's reaction, once valid_punish(cancel_confs)
// holds and Alice never refunded, to broadcast the punish
// transaction, the wronged party's recovery path named in §4.4.
func (c *Coordinator) onValidPunish(ctx context.Context) error {
	if c.Role != swap.Bob {
		return nil
	}
	cancelConfs := c.Arbitrating.GetConfs(swap.Cancel)
	if cancelConfs == nil || !c.Safety.ValidPunish(*cancelConfs) {
		return nil
	}
	if c.Arbitrating.FinalTxs(swap.Refund) {
		return nil
	}

	tx, err := c.buildPayoutTx(ctx, swap.Punish)
	if err != nil {
		return &WalletError{cause: err}
	}
	task := c.Arbitrating.Broadcast(tx)
	c.PendingTasks = append(c.PendingTasks, task)
	c.State.end(OutcomePunish)
	return nil
}
