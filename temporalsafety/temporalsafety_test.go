package temporalsafety

import (
	"testing"
	"testing/quick"

	"github.com/decred/dcrswap/chainio"
	"github.com/stretchr/testify/require"
)

// happyParams mirrors the "Happy path" scenario parameters from §8.
func happyParams() Params {
	return Params{
		CancelTimelock: 20,
		PunishTimelock: 40,
		RaceThr:        6,
		BtcFinalityThr: 3,
		XmrFinalityThr: 10,
		SweepMoneroThr: 10,
	}
}

func TestValidateRejectsUnsafeParams(t *testing.T) {
	// cancel=5, punish=10, race=6, btc_final=3: cancel > race fails.
	p := Params{
		CancelTimelock: 5,
		PunishTimelock: 10,
		RaceThr:        6,
		BtcFinalityThr: 3,
	}
	require.ErrorIs(t, p.Validate(), ErrUnsafeParams)
}

func TestValidateAcceptsHappyParams(t *testing.T) {
	require.NoError(t, happyParams().Validate())
}

func TestHappyPathBuySafeAtFiveConfs(t *testing.T) {
	p := happyParams()
	require.True(t, p.SafeBuy(5))
	require.False(t, p.ValidCancel(5))
}

func TestCancelRaceAvoidedScenario(t *testing.T) {
	p := happyParams()

	// At lock_confs=14 (= cancel - race) buy is still safe; from 15 on
	// Bob ceases buying. Funding stops once lock_confs > cancel-race+1.
	require.True(t, p.SafeBuy(14))
	require.False(t, p.SafeBuy(15))
	require.True(t, p.StopFundingBeforeCancel(16))

	// At lock_confs=20, Cancel becomes valid.
	require.True(t, p.ValidCancel(20))

	// At cancel_confs=34 (<= 40-6), Refund is safe.
	require.True(t, p.SafeRefund(34))
	require.False(t, p.ValidPunish(34))
}

func TestPunishScenario(t *testing.T) {
	p := happyParams()

	require.False(t, p.SafeRefund(40))
	require.True(t, p.ValidPunish(40))
}

func TestBlocksUntilHelpersMatchGates(t *testing.T) {
	p := happyParams()

	require.Equal(t, int64(0), p.BlocksUntilCancel(20))
	require.Equal(t, int64(-1), p.BlocksUntilCancel(21))

	require.Equal(t, int64(0), p.BlocksUntilPunishAfterCancel(40))
	require.Equal(t, int64(1), p.BlocksUntilPunishAfterCancel(39))

	// blocks_until_stop_funding uses the same +1 offset as
	// stop_funding_before_cancel.
	require.Equal(t, int64(0), p.BlocksUntilStopFunding(13))
	require.True(t, p.StopFundingBeforeCancel(16))
	require.Negative(t, p.BlocksUntilStopFunding(16))
}

// TestInvariantBuyCancelDisjoint is property 1 from §8: if SafeBuy holds,
// ValidCancel must not.
func TestInvariantBuyCancelDisjoint(t *testing.T) {
	f := func(cancel, punish, race, btcFinal, lockConfs uint16) bool {
		p := Params{
			CancelTimelock: uint32(cancel),
			PunishTimelock: uint32(punish),
			RaceThr:        uint32(race),
			BtcFinalityThr: uint32(btcFinal),
			XmrFinalityThr: uint32(btcFinal),
		}
		if p.Validate() != nil {
			return true
		}
		confs := uint32(lockConfs)
		if p.SafeBuy(confs) {
			return !p.ValidCancel(confs)
		}
		return true
	}
	require.NoError(t, quick.Check(f, &quick.Config{MaxCount: 5000}))
}

// TestInvariantFinalityMonotonic is property 2 from §8: finality is
// monotonic in confirmations.
func TestInvariantFinalityMonotonic(t *testing.T) {
	f := func(thr, n, extra uint16) bool {
		p := Params{BtcFinalityThr: uint32(thr), XmrFinalityThr: uint32(thr)}
		m := uint32(n) + uint32(extra)
		if p.FinalTx(uint32(n), chainio.Arbitrating) {
			return p.FinalTx(m, chainio.Arbitrating)
		}
		return true
	}
	require.NoError(t, quick.Check(f, &quick.Config{MaxCount: 5000}))
}
