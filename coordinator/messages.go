package coordinator

import (
	"github.com/decred/dcrd/dcrec/secp256k1/v3"
	"github.com/decred/dcrswap/swap"
	"github.com/decred/dcrswap/wallet"
)

// MessageKind identifies the shape of a peer protocol message
// exchanged over the Msg channel (§6), named for the transitions of
// §4.4's state machine.
type MessageKind uint8

const (
	KindCommitAB MessageKind = iota
	KindRevealAB
	KindCoreArbitratingSetup
	KindRefundProcedureSignatures
	KindBuyProcedureSignature
)

func (k MessageKind) String() string {
	switch k {
	case KindCommitAB:
		return "CommitAB"
	case KindRevealAB:
		return "RevealAB"
	case KindCoreArbitratingSetup:
		return "CoreArbitratingSetup"
	case KindRefundProcedureSignatures:
		return "RefundProcedureSignatures"
	case KindBuyProcedureSignature:
		return "BuyProcedureSignature"
	default:
		return "unknown"
	}
}

// Message is a peer protocol message. Every concrete message type
// below implements it by returning its own MessageKind, letting the
// state machine validate an incoming message against the kind
// expected for its current state (§4.4, decision procedure step 3).
type Message interface {
	Kind() MessageKind
}

// CommitAB is the first message exchanged: each side commits to a
// hash of the reveal it will send next, before either has seen the
// other's actual parameters.
type CommitAB struct {
	SwapId       swap.Id
	CommitmentAB [32]byte
}

func (CommitAB) Kind() MessageKind { return KindCommitAB }

// RevealAB opens the commitment sent in CommitAB: the deal parameters
// and the public keys used for the remainder of the protocol.
type RevealAB struct {
	SwapId      swap.Id
	Deal        swap.Deal
	BuyKey      secp256k1.PublicKey
	CancelKey   secp256k1.PublicKey
	RefundKey   secp256k1.PublicKey
	PunishKey   secp256k1.PublicKey
}

func (RevealAB) Kind() MessageKind { return KindRevealAB }

// CoreArbitratingSetup is sent by Bob once the Lock transaction is
// final: it carries the Cancel and Refund transaction templates Alice
// needs to co-sign.
type CoreArbitratingSetup struct {
	SwapId   swap.Id
	LockTxid [32]byte
	CancelTx []byte
	RefundTx []byte
}

func (CoreArbitratingSetup) Kind() MessageKind { return KindCoreArbitratingSetup }

// RefundProcedureSignatures is Alice's reply to CoreArbitratingSetup:
// her adaptor signature over Bob's refund path, plus her signature
// over the cancel transaction.
type RefundProcedureSignatures struct {
	SwapId       swap.Id
	CancelSig    []byte
	RefundAdaptor wallet.AdaptorSignature
}

func (RefundProcedureSignatures) Kind() MessageKind { return KindRefundProcedureSignatures }

// BuyProcedureSignature is Bob's reply once safe_buy holds: his
// adaptor signature over the buy transaction, which Alice's
// publication of the real buy transaction lets Bob's counterpart
// recover (§4.4, the core atomicity mechanism).
type BuyProcedureSignature struct {
	SwapId     swap.Id
	BuyAdaptor wallet.AdaptorSignature
}

func (BuyProcedureSignature) Kind() MessageKind { return KindBuyProcedureSignature }
