// Package chainio holds the small closed set of types every other
// dcrswap package dispatches on: which of the two chains an operation
// concerns, which network the swap runs on, and the service-bus
// addressing scheme tying the coordinator, syncers, the peer
// connection and the wallet together.
package chainio

import "fmt"

// Blockchain tags which side of a swap an operation concerns. The set is
// closed: a plugin-style open blockchain trait is explicitly not
// anticipated, so every decision point matches on this two-value enum
// instead.
type Blockchain uint8

const (
	// Arbitrating is the UTXO-based, script-capable chain that enforces
	// cancel/punish via timelocked scripts.
	Arbitrating Blockchain = iota

	// Accordant is the stealth-address chain secured indirectly, via
	// adaptor signatures anchored on the arbitrating chain.
	Accordant
)

// String implements fmt.Stringer.
func (b Blockchain) String() string {
	switch b {
	case Arbitrating:
		return "arbitrating"
	case Accordant:
		return "accordant"
	default:
		return fmt.Sprintf("unknown-blockchain(%d)", uint8(b))
	}
}

// Network identifies the deployment network a swap runs on.
type Network uint8

const (
	// Mainnet is the production network for both chains.
	Mainnet Network = iota

	// Testnet is a public test network.
	Testnet

	// Local is a local regtest-style network used for development and
	// integration tests.
	Local
)

// String implements fmt.Stringer.
func (n Network) String() string {
	switch n {
	case Mainnet:
		return "mainnet"
	case Testnet:
		return "testnet"
	case Local:
		return "local"
	default:
		return fmt.Sprintf("unknown-network(%d)", uint8(n))
	}
}
