// Package wallet defines the signing and funding collaborator used by
// the coordinator (§5): building and signing the arbitrating-chain
// transactions named in §3/§4 (funding, lock, cancel, refund, buy,
// punish), and producing/verifying the adaptor signatures the buy and
// refund procedures exchange.
package wallet

import (
	"context"
	"errors"

	"decred.org/dcrwallet/v2/wallet/txauthor"
	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/decred/dcrd/dcrec/secp256k1/v3"
	"github.com/decred/dcrd/dcrutil/v4"
	"github.com/decred/dcrd/txscript/v4/stdaddr"
	"github.com/decred/dcrd/wire"
)

// ErrNotMine mirrors the wallet-controller error of the same name: an
// output referenced by a swap script does not belong to this wallet.
var ErrNotMine = errors.New("wallet: output does not belong to this wallet")

// ErrDoubleSpend signals a transaction rejected because one of its
// inputs is already spent by a conflicting transaction, matching §7's
// treatment of a race lost to a third-party spend.
var ErrDoubleSpend = errors.New("wallet: transaction rejected, output already spent")

// AdaptorSignature is the witness-scale signature produced against a
// public encryption key, the core cryptographic primitive the buy and
// refund procedures of §4.4 rely on: a full signature is only
// recoverable once the other party reveals the opposite chain's
// private data, which is what actually finalizes the swap.
type AdaptorSignature []byte

// Utxo is an unspent output controlled by this wallet, used as input
// to a funding transaction.
type Utxo struct {
	wire.OutPoint
	Value    dcrutil.Amount
	PkScript []byte
}

// FundingTemplate describes the arbitrating-side funding transaction a
// maker or taker must build and sign before a swap can proceed
// (§3 Funding, §4.2/§4.3).
type FundingTemplate struct {
	Amount        dcrutil.Amount
	LockScript    []byte
	ChangeAddress stdaddr.Address
}

// Wallet is the signing collaborator a coordinator calls into. It
// never talks to the network directly — the coordinator hands signed
// transactions to the syncer's BroadcastTransaction task instead,
// keeping the wallet free of transport and retry concerns.
type Wallet interface {
	// FundTransaction selects UTXOs and builds an unsigned transaction
	// paying tmpl.Amount to tmpl.LockScript. Input selection and the
	// handling of change are left to the implementation.
	FundTransaction(ctx context.Context, tmpl FundingTemplate) (*txauthor.AuthoredTx, error)

	// SignInput produces a full, standard signature for input idx of
	// tx spending prevScript.
	SignInput(ctx context.Context, tx *wire.MsgTx, idx int, prevScript []byte, prevValue dcrutil.Amount) ([]byte, error)

	// AdaptorSign produces an adaptor signature for input idx of tx,
	// encrypted under encryptionKey. The counterparty cannot recover a
	// usable signature from this value alone (§4.4 buy/refund
	// procedures rely on exactly this property).
	AdaptorSign(ctx context.Context, tx *wire.MsgTx, idx int, prevScript []byte, prevValue dcrutil.Amount, encryptionKey *secp256k1.PublicKey) (AdaptorSignature, error)

	// AdaptorVerify checks that sig is a validly formed adaptor
	// signature for tx's input idx under encryptionKey, without
	// decrypting it.
	AdaptorVerify(tx *wire.MsgTx, idx int, prevScript []byte, sig AdaptorSignature, encryptionKey *secp256k1.PublicKey) error

	// AdaptorDecrypt recovers a standard signature from sig once the
	// counterparty's decryption key (their half of the shared secret,
	// revealed by publishing the buy or refund transaction) is known.
	AdaptorDecrypt(sig AdaptorSignature, decryptionKey *secp256k1.PrivateKey) ([]byte, error)

	// AdaptorRecover extracts the counterparty's decryption key by
	// comparing an adaptor signature against the full signature that
	// was ultimately published on-chain — the mechanism that lets the
	// losing side of a race still complete its own leg (§1 "Purpose").
	AdaptorRecover(encryptedSig AdaptorSignature, fullSig []byte, encryptionKey *secp256k1.PublicKey) (*secp256k1.PrivateKey, error)

	// NewAddress returns a fresh address of the wallet's default type,
	// used for change outputs and the maker/taker's final payout.
	NewAddress(ctx context.Context) (stdaddr.Address, error)

	// TxConfirmations reports the confirmation count the wallet itself
	// has observed for a transaction it created.
	TxConfirmations(ctx context.Context, txid chainhash.Hash) (int32, error)
}
