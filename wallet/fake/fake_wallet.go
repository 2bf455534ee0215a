// Package fake implements a deterministic wallet.Wallet test double,
// adapted from the funding/coin-selection and signing idioms of the
// teacher's lnwallet packages, for use by coordinator tests that need
// a wallet collaborator without a live dcrwallet/syncer stack.
package fake

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"sync"

	"decred.org/dcrwallet/v2/wallet/txauthor"
	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/decred/dcrd/dcrec/secp256k1/v3"
	"github.com/decred/dcrd/dcrutil/v4"
	"github.com/decred/dcrd/txscript/v4/stdaddr"
	"github.com/decred/dcrd/wire"
	"github.com/decred/dcrswap/wallet"
)

// Coin is a spendable UTXO in the fake wallet's fixed balance sheet,
// named after the teacher's chanfunding.Coin.
type Coin struct {
	wire.OutPoint
	Value dcrutil.Amount
}

// ErrInsufficientFunds mirrors the teacher's chanfunding error of the
// same name, for tests exercising an underfunded maker/taker.
type ErrInsufficientFunds struct {
	Available dcrutil.Amount
	Requested dcrutil.Amount
}

func (e *ErrInsufficientFunds) Error() string {
	return fmt.Sprintf("fake wallet: insufficient funds, have %v want %v", e.Available, e.Requested)
}

// Wallet is a deterministic, in-memory wallet.Wallet. Addresses and
// adaptor signatures are derived from sha256 rather than real
// elliptic-curve key material, so the fake is only suitable for
// coordinator transition tests, never for a production signer.
type Wallet struct {
	mu            sync.Mutex
	coins         []Coin
	confirmations map[chainhash.Hash]int32
	addrCounter   int
}

var _ wallet.Wallet = (*Wallet)(nil)

// New returns a fake wallet pre-funded with coins.
func New(coins []Coin) *Wallet {
	return &Wallet{
		coins:         coins,
		confirmations: make(map[chainhash.Hash]int32),
	}
}

func (w *Wallet) selectInputs(amt dcrutil.Amount) (dcrutil.Amount, []Coin, error) {
	var selected dcrutil.Amount
	for i, c := range w.coins {
		selected += c.Value
		if selected >= amt {
			return selected, w.coins[:i+1], nil
		}
	}
	return 0, nil, &ErrInsufficientFunds{Available: selected, Requested: amt}
}

func (w *Wallet) FundTransaction(ctx context.Context, tmpl wallet.FundingTemplate) (*txauthor.AuthoredTx, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	total, spent, err := w.selectInputs(tmpl.Amount)
	if err != nil {
		return nil, err
	}

	tx := wire.NewMsgTx()
	for _, c := range spent {
		tx.AddTxIn(wire.NewTxIn(&c.OutPoint, nil, nil))
	}
	tx.AddTxOut(wire.NewTxOut(int64(tmpl.Amount), tmpl.LockScript))
	if change := total - tmpl.Amount; change > 0 {
		tx.AddTxOut(wire.NewTxOut(int64(change), nil))
	}

	w.coins = w.coins[len(spent):]
	return &txauthor.AuthoredTx{Tx: tx, TotalInput: total}, nil
}

func (w *Wallet) SignInput(ctx context.Context, tx *wire.MsgTx, idx int, prevScript []byte, prevValue dcrutil.Amount) ([]byte, error) {
	return deterministicDigest("sig", tx, idx, prevScript), nil
}

func (w *Wallet) AdaptorSign(ctx context.Context, tx *wire.MsgTx, idx int, prevScript []byte, prevValue dcrutil.Amount, encryptionKey *secp256k1.PublicKey) (wallet.AdaptorSignature, error) {
	return deterministicDigest("adaptor", tx, idx, encryptionKey.SerializeCompressed()), nil
}

func (w *Wallet) AdaptorVerify(tx *wire.MsgTx, idx int, prevScript []byte, sig wallet.AdaptorSignature, encryptionKey *secp256k1.PublicKey) error {
	want := deterministicDigest("adaptor", tx, idx, encryptionKey.SerializeCompressed())
	if string(want) != string(sig) {
		return fmt.Errorf("fake wallet: adaptor signature mismatch")
	}
	return nil
}

func (w *Wallet) AdaptorDecrypt(sig wallet.AdaptorSignature, decryptionKey *secp256k1.PrivateKey) ([]byte, error) {
	return deterministicDigest("decrypted", sig, decryptionKey.Serialize()), nil
}

func (w *Wallet) AdaptorRecover(encryptedSig wallet.AdaptorSignature, fullSig []byte, encryptionKey *secp256k1.PublicKey) (*secp256k1.PrivateKey, error) {
	seed := deterministicDigest("recovered-key", encryptedSig, fullSig)
	priv := secp256k1.PrivKeyFromBytes(seed[:32])
	return priv, nil
}

func (w *Wallet) NewAddress(ctx context.Context) (stdaddr.Address, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.addrCounter++
	hash := sha256.Sum256([]byte(fmt.Sprintf("fake-address-%d", w.addrCounter)))
	addr, err := stdaddr.NewAddressPubKeyHashEcdsaSecp256k1V0(hash[:20], nil)
	if err != nil {
		return nil, err
	}
	return addr, nil
}

func (w *Wallet) TxConfirmations(ctx context.Context, txid chainhash.Hash) (int32, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.confirmations[txid], nil
}

// SetConfirmations lets a test pin the confirmation count TxConfirmations
// reports for a given transaction id.
func (w *Wallet) SetConfirmations(txid chainhash.Hash, confs int32) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.confirmations[txid] = confs
}

func deterministicDigest(domain string, parts ...interface{}) []byte {
	h := sha256.New()
	h.Write([]byte(domain))
	for _, p := range parts {
		switch v := p.(type) {
		case []byte:
			h.Write(v)
		case *wire.MsgTx:
			if v != nil {
				var buf bytes.Buffer
				_ = v.Serialize(&buf)
				h.Write(buf.Bytes())
			}
		case int:
			h.Write([]byte{byte(v)})
		default:
			h.Write([]byte(fmt.Sprintf("%v", v)))
		}
	}
	return h.Sum(nil)
}
