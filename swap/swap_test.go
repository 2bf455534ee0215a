package swap

import (
	"testing"

	"github.com/decred/dcrd/dcrutil/v4"
	"github.com/stretchr/testify/require"
)

func validDeal() Deal {
	return Deal{
		ArbitratingAmount: dcrutil.Amount(100000),
		AccordantAmount:   1000000,
		MakerRole:         Bob,
		CancelTimelock:    20,
		PunishTimelock:    40,
	}
}

func TestDealValidateAccepts(t *testing.T) {
	d := validDeal()
	require.NoError(t, d.Validate())
}

func TestDealValidateRejectsPunishNotAfterCancel(t *testing.T) {
	d := validDeal()
	d.PunishTimelock = d.CancelTimelock
	require.ErrorIs(t, d.Validate(), ErrInvalidDeal)
}

func TestRoleOther(t *testing.T) {
	require.Equal(t, Alice, Bob.Other())
	require.Equal(t, Bob, Alice.Other())
}

func TestTxLabelString(t *testing.T) {
	require.Equal(t, "Lock", Lock.String())
	require.Equal(t, "Lock transaction", Lock.Label())
}
