// Package swaptest provides a small two-party test harness for
// driving a Bob and an Alice coordinator through a shared protocol
// transcript in-process, adapted from the polling-helper idiom of the
// teacher's lntest harness and the hardcoded-party setup idiom of its
// funding manager tests.
package swaptest

import (
	"context"
	"testing"
	"time"

	"github.com/decred/dcrd/dcrutil/v4"
	"github.com/decred/dcrswap/chainio"
	"github.com/decred/dcrswap/coordinator"
	"github.com/decred/dcrswap/feepolicy"
	"github.com/decred/dcrswap/swap"
	"github.com/decred/dcrswap/swapindex"
	"github.com/decred/dcrswap/temporalsafety"
	"github.com/decred/dcrswap/wallet/fake"
	"github.com/stretchr/testify/require"
)

// Pair is a maker/taker pair of coordinators sharing one deal,
// suitable for driving a full swap transcript in a single test.
type Pair struct {
	T    *testing.T
	Ctx  context.Context
	Bob  *coordinator.Coordinator
	Alice *coordinator.Coordinator
}

// NewPair builds a fresh Bob/Alice pair against the given deal and
// safety parameters, each with its own fake wallet and checkpoint
// directory.
func NewPair(t *testing.T, deal swap.Deal, safety temporalsafety.Params) *Pair {
	t.Helper()

	swapId := swap.Id{0xaa}
	bobWallet := fake.New([]fake.Coin{{Value: deal.ArbitratingAmount * 2}})
	aliceWallet := fake.New(nil)

	feePolicy := feepolicy.Policy{
		Strategy: swap.FixedFee,
		FixedFee: dcrutil.Amount(500),
	}

	bobIndex, err := swapindex.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, bobIndex.Close()) })
	aliceIndex, err := swapindex.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, aliceIndex.Close()) })

	bob, err := coordinator.New(swapId, swap.Bob, deal, safety, bobWallet, t.TempDir(), feePolicy, bobIndex)
	require.NoError(t, err)
	alice, err := coordinator.New(swapId, swap.Alice, deal, safety, aliceWallet, t.TempDir(), feePolicy, aliceIndex)
	require.NoError(t, err)

	return &Pair{T: t, Ctx: context.Background(), Bob: bob, Alice: alice}
}

// DefaultDeal returns the §8 "Happy path" deal and safety parameters,
// for scenario tests that don't need to vary them.
func DefaultDeal() (swap.Deal, temporalsafety.Params) {
	deal := swap.Deal{
		Network:           chainio.Local,
		ArbitratingAmount: dcrutil.Amount(100000),
		AccordantAmount:   1000000,
		MakerRole:         swap.Bob,
		CancelTimelock:    20,
		PunishTimelock:    40,
	}
	safety := temporalsafety.Params{
		CancelTimelock: 20,
		PunishTimelock: 40,
		RaceThr:        6,
		BtcFinalityThr: 3,
		XmrFinalityThr: 10,
		SweepMoneroThr: 10,
	}
	return deal, safety
}

// RelayBobToAlice delivers every message Bob has queued to Alice and
// clears Bob's queue, the in-process stand-in for the peer connection
// daemon named in §6.
func (p *Pair) RelayBobToAlice() {
	p.T.Helper()
	for _, msg := range p.Bob.PendingMessages {
		require.NoError(p.T, p.Alice.HandleMessage(p.Ctx, msg))
	}
	p.Bob.PendingMessages = nil
}

// RelayAliceToBob is RelayBobToAlice's mirror.
func (p *Pair) RelayAliceToBob() {
	p.T.Helper()
	for _, msg := range p.Alice.PendingMessages {
		require.NoError(p.T, p.Bob.HandleMessage(p.Ctx, msg))
	}
	p.Alice.PendingMessages = nil
}

// WaitForState polls c's state tag until it matches want or the
// timeout elapses, following the teacher harness's
// assertion-with-timeout idiom rather than a fixed sleep.
func WaitForState(t *testing.T, c *coordinator.Coordinator, want coordinator.StateTag, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if c.State.Tag == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	require.Equal(t, want, c.State.Tag, "timed out waiting for state")
}
