package syncer

import (
	"testing"
	"testing/quick"

	"github.com/decred/dcrswap/chainio"
	"github.com/decred/dcrswap/swap"
	"github.com/stretchr/testify/require"
)

func newTestState() *State {
	var id swap.Id
	return NewState(id, chainio.Local, 3)
}

func TestHeightRegressionIgnored(t *testing.T) {
	s := newTestState()
	for _, h := range []uint64{100, 101, 99, 102} {
		s.HandleHeightChange(h, chainio.Arbitrating)
	}
	require.Equal(t, uint64(102), s.Height(chainio.Arbitrating))
}

// TestInvariantHeightIsMaxOfReceived is property 5 from §8: after
// processing any sequence of height events on one chain, the recorded
// height equals the maximum of all received heights.
func TestInvariantHeightIsMaxOfReceived(t *testing.T) {
	f := func(heights []uint16) bool {
		s := newTestState()
		var max uint64
		for _, h16 := range heights {
			h := uint64(h16)
			s.HandleHeightChange(h, chainio.Arbitrating)
			if h > max {
				max = h
			}
		}
		return s.Height(chainio.Arbitrating) == max
	}
	require.NoError(t, quick.Check(f, &quick.Config{MaxCount: 2000}))
}

func TestTaskLifetimeUnboundedBeforeFirstHeight(t *testing.T) {
	s := newTestState()
	require.Equal(t, noHeightLifetime, s.TaskLifetime(chainio.Arbitrating))

	s.HandleHeightChange(1000, chainio.Arbitrating)
	require.Equal(t, uint64(1500), s.TaskLifetime(chainio.Arbitrating))
}

func TestHandleTxConfsPreservesLastKnownOnNilReport(t *testing.T) {
	s := newTestState()
	task := s.WatchTxBtc([32]byte{1}, swap.Lock)

	confs := uint32(2)
	require.NoError(t, s.HandleTxConfs(task.Id, &confs, 3))
	require.Equal(t, uint32(2), *s.GetConfs(swap.Lock))

	require.NoError(t, s.HandleTxConfs(task.Id, nil, 3))
	require.NotNil(t, s.GetConfs(swap.Lock))
	require.Equal(t, uint32(2), *s.GetConfs(swap.Lock))
}

func TestHandleTxConfsLatchesFinalityAtThreshold(t *testing.T) {
	s := newTestState()
	task := s.WatchTxBtc([32]byte{1}, swap.Lock)

	confs := uint32(3)
	require.NoError(t, s.HandleTxConfs(task.Id, &confs, 3))
	require.True(t, s.FinalTxs(swap.Lock))
}
