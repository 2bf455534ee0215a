package chainio

import "fmt"

// ServiceId identifies the sender or recipient of a message on the
// internal service bus (§6). The set is closed by design: every
// participant in a swap is one of these six kinds, never a
// dynamically registered plugin.
type ServiceId struct {
	kind    serviceKind
	swapId  [32]byte
	chain   Blockchain
	network Network
	addr    string
	token   string
}

type serviceKind uint8

const (
	serviceFarcasterd serviceKind = iota
	serviceSwap
	serviceSyncer
	serviceWallet
	servicePeer
	serviceClient
)

// Farcasterd addresses the daemon's own top-level control service.
func Farcasterd() ServiceId { return ServiceId{kind: serviceFarcasterd} }

// Swap addresses a single swap's coordinator by swap id.
func Swap(id [32]byte) ServiceId { return ServiceId{kind: serviceSwap, swapId: id} }

// Syncer addresses the syncer instance responsible for one (chain,
// network) pair. A syncer is never shared across networks, so this
// pair fully identifies it.
func Syncer(chain Blockchain, network Network) ServiceId {
	return ServiceId{kind: serviceSyncer, chain: chain, network: network}
}

// Wallet addresses the signing collaborator.
func Wallet() ServiceId { return ServiceId{kind: serviceWallet} }

// Peer addresses the remote counterparty reachable at addr.
func Peer(addr string) ServiceId { return ServiceId{kind: servicePeer, addr: addr} }

// Client addresses a local control-plane caller authenticated by token.
func Client(token string) ServiceId { return ServiceId{kind: serviceClient, token: token} }

func (s ServiceId) String() string {
	switch s.kind {
	case serviceFarcasterd:
		return "farcasterd"
	case serviceSwap:
		return fmt.Sprintf("swap(%x)", s.swapId)
	case serviceSyncer:
		return fmt.Sprintf("syncer(%s,%s)", s.chain, s.network)
	case serviceWallet:
		return "wallet"
	case servicePeer:
		return fmt.Sprintf("peer(%s)", s.addr)
	case serviceClient:
		return "client"
	default:
		return "unknown"
	}
}

// Channel identifies one of the three logical buses a message travels
// on (§6): peer-to-peer protocol messages, local control commands, or
// syncer events.
type Channel uint8

const (
	ChannelMsg Channel = iota
	ChannelCtl
	ChannelSync
)

func (c Channel) String() string {
	switch c {
	case ChannelMsg:
		return "msg"
	case ChannelCtl:
		return "ctl"
	case ChannelSync:
		return "sync"
	default:
		return "unknown"
	}
}

// Envelope wraps a payload with its routing information. Payload is
// left as interface{} and type-switched by subscribers; this keeps the
// bus itself free of a dependency on every message type it routes,
// matching the way the packages that produce those types (syncer,
// coordinator) sit above chainio in the import graph.
type Envelope struct {
	Source  ServiceId
	Dest    ServiceId
	Channel Channel
	Payload interface{}
}

// Bus is a minimal in-process publish/subscribe router for Envelopes,
// standing in for the message-bus collaborator described in §6. It
// does not cross a process boundary; farcasterd, swap coordinators,
// syncers and the wallet all run as goroutines in the same process
// and communicate over Go channels registered here.
type Bus struct {
	subs map[ServiceId]chan Envelope
}

// NewBus constructs an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[ServiceId]chan Envelope)}
}

// Subscribe registers id to receive envelopes addressed to it and
// returns the channel it will receive them on. The channel is
// buffered so a slow subscriber does not block the sender of a
// time-sensitive syncer event.
func (b *Bus) Subscribe(id ServiceId) <-chan Envelope {
	ch := make(chan Envelope, 64)
	b.subs[id] = ch
	return ch
}

// Unsubscribe removes id's registration and closes its channel.
func (b *Bus) Unsubscribe(id ServiceId) {
	if ch, ok := b.subs[id]; ok {
		close(ch)
		delete(b.subs, id)
	}
}

// ErrNoSuchService is returned by Send when Dest has no subscriber.
type ErrNoSuchService struct{ Dest ServiceId }

func (e *ErrNoSuchService) Error() string {
	return fmt.Sprintf("bus: no subscriber for %s", e.Dest)
}

// Send routes env to its Dest. It is non-blocking on a full channel:
// the caller gets a buffer-full error rather than stalling the sender,
// since a stalled syncer or coordinator goroutine can itself become a
// safety hazard (see §7 SyncerUnavailable).
func (b *Bus) Send(env Envelope) error {
	ch, ok := b.subs[env.Dest]
	if !ok {
		return &ErrNoSuchService{Dest: env.Dest}
	}
	select {
	case ch <- env:
		return nil
	default:
		return fmt.Errorf("bus: channel full for %s", env.Dest)
	}
}
