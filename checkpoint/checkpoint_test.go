package checkpoint

import (
	"os"
	"testing"

	"github.com/decred/dcrswap/swap"
	"github.com/stretchr/testify/require"
)

func sampleCheckpoint() *Checkpoint {
	confs := uint32(2)
	return &Checkpoint{
		StateTag: 3,
		SwapId:   swap.Id{1, 2, 3},
		Confirmations: map[swap.TxLabel]*uint32{
			swap.Lock:   &confs,
			swap.Cancel: nil,
		},
		FinalTxs: map[swap.TxLabel]bool{
			swap.Lock: false,
		},
		AccordantSet:        true,
		AccordantSpendKey:   [32]byte{4, 5, 6},
		AccordantViewKey:    [32]byte{7, 8, 9},
		AccordantFromHeight: 12345,
		PendingBroadcast:    [][]byte{{0xde, 0xad}, {}},
	}
}

// TestEncodeDecodeRoundTrip is property 7 from §8: a checkpoint
// decoded from its own encoding must re-encode to the identical bytes.
func TestEncodeDecodeRoundTrip(t *testing.T) {
	original := sampleCheckpoint()
	encoded := original.Encode()

	decoded, err := Decode(encoded)
	require.NoError(t, err)
	require.Equal(t, encoded, decoded.Encode())
	require.Equal(t, original.StateTag, decoded.StateTag)
	require.Equal(t, original.SwapId, decoded.SwapId)
	require.Equal(t, original.AccordantSpendKey, decoded.AccordantSpendKey)
	require.Equal(t, original.AccordantFromHeight, decoded.AccordantFromHeight)
	require.Equal(t, *original.Confirmations[swap.Lock], *decoded.Confirmations[swap.Lock])
	require.Nil(t, decoded.Confirmations[swap.Cancel])
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	original := sampleCheckpoint()

	require.NoError(t, Save(dir, original))

	loaded, err := Load(dir, original.SwapId)
	require.NoError(t, err)
	require.Equal(t, original.Encode(), loaded.Encode())
}

func TestLoadRejectsCorruptedContentHash(t *testing.T) {
	dir := t.TempDir()
	original := sampleCheckpoint()
	require.NoError(t, Save(dir, original))

	path := dir + "/" + original.SwapId.String() + ".ckpt"
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[10] ^= 0xff
	require.NoError(t, os.WriteFile(path, data, 0600))

	_, err = Load(dir, original.SwapId)
	require.Error(t, err)
}
