package coordinator

import (
	"context"
	"testing"

	"github.com/decred/dcrd/dcrutil/v4"
	"github.com/decred/dcrswap/chainio"
	"github.com/decred/dcrswap/checkpoint"
	"github.com/decred/dcrswap/feepolicy"
	"github.com/decred/dcrswap/swap"
	"github.com/decred/dcrswap/temporalsafety"
	"github.com/decred/dcrswap/wallet/fake"
	"github.com/stretchr/testify/require"
)

func testFeePolicy() feepolicy.Policy {
	return feepolicy.Policy{Strategy: swap.FixedFee, FixedFee: dcrutil.Amount(500)}
}

// recordingCheckpointer lets a test assert exactly one checkpoint is
// written per transition (§4.4's last invariant) without touching the
// filesystem.
type recordingCheckpointer struct {
	writes  int
	lastTag uint8
}

func (r *recordingCheckpointer) Save(dir string, c *checkpoint.Checkpoint) error {
	r.writes++
	r.lastTag = c.StateTag
	return nil
}

func happySafety() temporalsafety.Params {
	return temporalsafety.Params{
		CancelTimelock:  20,
		PunishTimelock:  40,
		RaceThr:         6,
		BtcFinalityThr:  3,
		XmrFinalityThr:  10,
		SweepMoneroThr:  10,
	}
}

func happyDeal() swap.Deal {
	return swap.Deal{
		Network:           chainio.Local,
		ArbitratingAmount: dcrutil.Amount(100000),
		AccordantAmount:   1000000,
		MakerRole:         swap.Bob,
		CancelTimelock:    20,
		PunishTimelock:    40,
	}
}

func newTestCoordinator(t *testing.T, role swap.Role) *Coordinator {
	t.Helper()
	w := fake.New([]fake.Coin{{Value: dcrutil.Amount(200000)}})
	c, err := New(swap.Id{1}, role, happyDeal(), happySafety(), w, t.TempDir(), testFeePolicy(), nil)
	require.NoError(t, err)
	return c
}

func TestNewRejectsUnsafeParams(t *testing.T) {
	unsafe := temporalsafety.Params{
		CancelTimelock: 5,
		PunishTimelock: 10,
		RaceThr:        6,
		BtcFinalityThr: 3,
	}
	w := fake.New(nil)
	_, err := New(swap.Id{1}, swap.Bob, happyDeal(), unsafe, w, t.TempDir(), testFeePolicy(), nil)
	require.Error(t, err)
	var unsafeErr *TemporalUnsafe
	require.ErrorAs(t, err, &unsafeErr)
}

func TestHandleMessageRejectsWrongKindPreFunding(t *testing.T) {
	c := newTestCoordinator(t, swap.Bob)
	err := c.HandleMessage(context.Background(), RevealAB{SwapId: c.SwapId})
	require.NoError(t, err)
	require.Equal(t, StateSwapEnd, c.State.Tag)
	require.Equal(t, OutcomeAbort, c.State.Outcome)
}

func TestHappyPathReachesFunding(t *testing.T) {
	c := newTestCoordinator(t, swap.Bob)
	ctx := context.Background()

	require.NoError(t, c.HandleMessage(ctx, CommitAB{SwapId: c.SwapId}))
	require.Equal(t, StateCommitAB, c.State.Tag)

	require.NoError(t, c.HandleMessage(ctx, RevealAB{SwapId: c.SwapId, Deal: happyDeal()}))
	require.Equal(t, StateFunding, c.State.Tag)
	require.Len(t, c.PendingTasks, 1)
}

// TestExactlyOneCheckpointPerTransition is property 4/invariant-style
// coverage for §4.4's "exactly one checkpoint is written per state
// transition" rule.
func TestExactlyOneCheckpointPerTransition(t *testing.T) {
	c := newTestCoordinator(t, swap.Bob)
	rec := &recordingCheckpointer{}
	c.Checkpointer = rec
	ctx := context.Background()

	require.NoError(t, c.HandleMessage(ctx, CommitAB{SwapId: c.SwapId}))
	require.Equal(t, 1, rec.writes)
	require.Equal(t, uint8(StateCommitAB), rec.lastTag)

	require.NoError(t, c.HandleMessage(ctx, RevealAB{SwapId: c.SwapId, Deal: happyDeal()}))
	require.Equal(t, 2, rec.writes)
	require.Equal(t, uint8(StateFunding), rec.lastTag)
}

func TestSafeBuyAndValidCancelAreDisjointAtLockConfs14(t *testing.T) {
	safety := happySafety()
	require.True(t, safety.SafeBuy(14))
	require.False(t, safety.ValidCancel(14))
}

// TestOnSafeRefundEndsInRefund covers the §8 "cancel confirmed, Alice
// refunds" scenario: once safe_refund holds over the cancel
// confirmation count, Alice ends in OutcomeRefund.
func TestOnSafeRefundEndsInRefund(t *testing.T) {
	c := newTestCoordinator(t, swap.Alice)
	cancelConfs := uint32(30)
	c.Arbitrating.SetConfsForTest(swap.Cancel, &cancelConfs)

	require.NoError(t, c.onSafeRefund(context.Background()))
	require.Equal(t, StateSwapEnd, c.State.Tag)
	require.Equal(t, OutcomeRefund, c.State.Outcome)
	require.Len(t, c.PendingTasks, 1)
}

// TestOnValidPunishEndsInPunish covers the §8 "Alice never refunds,
// Bob punishes" scenario.
func TestOnValidPunishEndsInPunish(t *testing.T) {
	c := newTestCoordinator(t, swap.Bob)
	cancelConfs := uint32(50)
	c.Arbitrating.SetConfsForTest(swap.Cancel, &cancelConfs)

	require.NoError(t, c.onValidPunish(context.Background()))
	require.Equal(t, StateSwapEnd, c.State.Tag)
	require.Equal(t, OutcomePunish, c.State.Outcome)
}

// TestOnCancelValidAvoidedBelowThreshold documents the §8 "cancel race
// avoided" property: below the cancel timelock, Bob does not broadcast
// Cancel even though he is watching lock confirmations.
func TestOnCancelValidAvoidedBelowThreshold(t *testing.T) {
	c := newTestCoordinator(t, swap.Bob)
	lockConfs := uint32(5)
	c.Arbitrating.SetConfsForTest(swap.Lock, &lockConfs)

	require.NoError(t, c.onCancelValid(context.Background()))
	require.Empty(t, c.PendingTasks)
	require.Equal(t, StateInit, c.State.Tag)
}

func TestCoordinatorEndsInExactlyOneOutcome(t *testing.T) {
	c := newTestCoordinator(t, swap.Bob)
	c.State.end(OutcomeRefund)
	require.Equal(t, StateSwapEnd, c.State.Tag)

	// A later attempt to end with a different outcome in the same run
	// would be a coordinator bug; this test documents that State.end
	// simply overwrites, so callers must only ever call it once per
	// run (enforced by the state machine reaching SwapEnd and no
	// longer dispatching events afterward).
	require.Equal(t, OutcomeRefund, c.State.Outcome)
}
