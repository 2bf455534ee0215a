package swaptest

import (
	"testing"

	"github.com/decred/dcrswap/chainio"
	"github.com/decred/dcrswap/coordinator"
	"github.com/decred/dcrswap/swap"
	"github.com/decred/dcrswap/syncer"
	"github.com/stretchr/testify/require"
)

// TestFundingThroughCoreArbitratingSetup drives a Bob/Alice pair from
// the initial handshake through Bob constructing and broadcasting a
// real Lock transaction, reaching finality, and handing Alice a
// non-empty Cancel/Refund transaction template — the transcript the
// review's swap-index and fee-policy wiring depends on actually
// producing.
func TestFundingThroughCoreArbitratingSetup(t *testing.T) {
	deal, safety := DefaultDeal()
	p := NewPair(t, deal, safety)

	require.NoError(t, p.Bob.HandleMessage(p.Ctx, coordinator.CommitAB{SwapId: p.Bob.SwapId}))
	require.NoError(t, p.Bob.HandleMessage(p.Ctx, coordinator.RevealAB{SwapId: p.Bob.SwapId, Deal: deal}))
	require.Equal(t, coordinator.StateFunding, p.Bob.State.Tag)
	require.Len(t, p.Bob.PendingTasks, 1)
	p.Bob.PendingTasks = nil

	require.NoError(t, p.Alice.HandleMessage(p.Ctx, coordinator.CommitAB{SwapId: p.Alice.SwapId}))
	require.NoError(t, p.Alice.HandleMessage(p.Ctx, coordinator.RevealAB{SwapId: p.Alice.SwapId, Deal: deal}))
	require.Equal(t, coordinator.StateFunding, p.Alice.State.Tag)
	p.Alice.PendingTasks = nil

	require.NoError(t, p.Bob.HandleSyncerEvent(p.Ctx, chainio.Arbitrating, syncer.Event{
		Kind: syncer.EventAddressTransaction,
	}))
	require.Len(t, p.Bob.PendingTasks, 2, "expected a broadcast task and a watch task")

	broadcastTask := p.Bob.PendingTasks[0]
	require.Equal(t, syncer.KindBroadcastTransaction, broadcastTask.Kind)
	require.NotNil(t, broadcastTask.Tx, "Lock broadcast must carry a real transaction, not a nil stub")

	watchTask := p.Bob.PendingTasks[1]
	require.Equal(t, syncer.KindWatchTransaction, watchTask.Kind)
	p.Bob.PendingTasks = nil

	confs := uint32(5)
	require.NoError(t, p.Bob.HandleSyncerEvent(p.Ctx, chainio.Arbitrating, syncer.Event{
		Kind:          syncer.EventTransactionConfirmations,
		TaskId:        watchTask.Id,
		Confirmations: &confs,
	}))
	require.Equal(t, coordinator.StateLocked, p.Bob.State.Tag)
	require.Len(t, p.Bob.PendingMessages, 1)

	setup, ok := p.Bob.PendingMessages[0].(coordinator.CoreArbitratingSetup)
	require.True(t, ok)
	require.NotEmpty(t, setup.CancelTx)
	require.NotEmpty(t, setup.RefundTx)

	p.RelayBobToAlice()
	require.Equal(t, coordinator.StateCoreArb, p.Alice.State.Tag)
}

// TestCancelBroadcastsRealTransaction covers the §8 cancel-race-avoided
// scenario on the other side: once ValidCancel holds, Bob must build
// and broadcast an actual Cancel transaction rather than a nil stub.
func TestCancelBroadcastsRealTransaction(t *testing.T) {
	deal, safety := DefaultDeal()
	p := NewPair(t, deal, safety)

	lockConfs := uint32(25)
	p.Bob.Arbitrating.SetConfsForTest(swap.Lock, &lockConfs)

	tasksBefore := len(p.Bob.PendingTasks)
	require.NoError(t, p.Bob.HandleSyncerEvent(p.Ctx, chainio.Arbitrating, syncer.Event{
		Kind:   syncer.EventHeightChanged,
		Height: 1,
	}))
	require.Len(t, p.Bob.PendingTasks, tasksBefore+2)

	broadcast := p.Bob.PendingTasks[tasksBefore]
	require.Equal(t, syncer.KindBroadcastTransaction, broadcast.Kind)
	require.NotNil(t, broadcast.Tx)
}
