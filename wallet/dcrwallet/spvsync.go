package dcrwallet

import (
	"context"
	"net"
	"path/filepath"
	"sync"
	"time"

	"decred.org/dcrwallet/v2/p2p"
	"decred.org/dcrwallet/v2/spv"
	"github.com/decred/dcrd/addrmgr/v2"
	"github.com/decred/dcrd/chaincfg/v3"
)

// SPVSyncerConfig configures an SPVSyncer.
type SPVSyncerConfig struct {
	Peers      []string
	Net        *chaincfg.Params
	AppDataDir string

	// OnTip is called with the new chain tip height every time the
	// syncer's backend reports one, the hook a Coordinator's syncer
	// goroutine uses to drive HandleSyncerEvent's EventHeightChanged
	// case.
	OnTip func(height int32)
}

// SPVSyncer synchronizes a Wallet's underlying base wallet against the
// arbitrating chain's P2P network, adapted unchanged in structure from
// the teacher's channel-funding SPV syncer: only the notification
// plumbing at the bottom differs; a swap coordinator has no channel
// state to rescan, just a wallet balance and a set of watched
// addresses.
type SPVSyncer struct {
	cfg *SPVSyncerConfig
	wg  sync.WaitGroup

	mtx    sync.Mutex
	cancel func()
}

// NewSPVSyncer initializes a new syncer backed by the arbitrating
// chain's network in SPV mode.
func NewSPVSyncer(cfg *SPVSyncerConfig) (*SPVSyncer, error) {
	return &SPVSyncer{cfg: cfg}, nil
}

// Start begins synchronizing w against the network.
func (s *SPVSyncer) Start(w *Wallet) error {
	lookup := net.LookupIP

	addr := &net.TCPAddr{IP: net.ParseIP("::1"), Port: 0}
	amgrDir := filepath.Join(s.cfg.AppDataDir, s.cfg.Net.Name)
	amgr := addrmgr.New(amgrDir, lookup)
	lp := p2p.NewLocalPeer(s.cfg.Net, addr, amgr)
	syncer := spv.NewSyncer(w.wallet, lp)
	if len(s.cfg.Peers) > 0 {
		syncer.SetPersistentPeers(s.cfg.Peers)
	}
	w.wallet.SetNetworkBackend(syncer)

	syncer.SetNotifications(&spv.Notifications{
		Synced: func(synced bool) {
			if !synced || s.cfg.OnTip == nil {
				return
			}
			_, height := w.wallet.MainChainTip(context.Background())
			s.cfg.OnTip(height)
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	s.mtx.Lock()
	s.cancel = cancel
	s.mtx.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		for {
			dcrwLog.Debugf("starting SPV syncer")
			if len(s.cfg.Peers) > 0 {
				dcrwLog.Debugf("forcing SPV to peers: %s", s.cfg.Peers)
			}

			err := syncer.Run(ctx)
			select {
			case <-ctx.Done():
				return
			default:
				dcrwLog.Errorf("SPV synchronization ended: %v", err)
			}

			select {
			case <-ctx.Done():
				dcrwLog.Debugf("SPV syncer shutting down")
				return
			case <-time.After(5 * time.Second):
			}
		}
	}()

	return nil
}

// Stop requests shutdown of the syncer's backend goroutine.
func (s *SPVSyncer) Stop() {
	dcrwLog.Debugf("SPV syncer requested shutdown")
	s.mtx.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.mtx.Unlock()
}

// WaitForShutdown blocks until the syncer's backend goroutine exits.
func (s *SPVSyncer) WaitForShutdown() {
	s.wg.Wait()
}
