// Package node composes the DHT Engine, the content Store, the Transport
// Adapter and the Email Worker into a single owned value, per spec.md
// §9's design note that callers hold an explicit Node rather than
// reaching for package-level singletons.
//
// Grounded on the teacher's p2p.Node / p2p.NodeConfig split
// (internal/p2p/node.go): a Config value naming every collaborator
// (network, bind address, bootstrap peers, logger) handed to a
// constructor that wires them together and exposes a lifecycle
// (Run/Close) over the result.
package node

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/polistern/pboted/internal/config"
	"github.com/polistern/pboted/internal/dht"
	"github.com/polistern/pboted/internal/email"
	"github.com/polistern/pboted/internal/emailmeta"
	"github.com/polistern/pboted/internal/identity"
	"github.com/polistern/pboted/internal/logging"
	"github.com/polistern/pboted/internal/paths"
	"github.com/polistern/pboted/internal/store"
	"github.com/polistern/pboted/internal/transport"
)

const (
	identitiesFileName = "identities.txt"
	outboxMetaFileName = "outbox-meta.db"
)

// Node is one running pboted peer: a DHT Engine reachable through a
// Transport Adapter, a content Store backing it, and an Email Worker
// driving the Check/Send rounds for every local identity.
type Node struct {
	cfg     *config.Config
	log     *logging.Backend
	dataDir string

	overlay   *transport.UDPOverlay
	Transport *transport.Adapter
	Store     *store.Store
	Engine    *dht.Engine
	Mailbox   *email.Mailbox
	meta      *emailmeta.Store
	Worker    *email.Worker

	identitiesPath string

	mu         sync.Mutex
	identities []email.LocalIdentity
}

// New builds a Node from cfg, opening its on-disk state (content store,
// outbox metadata database, mailbox directories, persisted identities
// and DHT node table) under cfg.Node.DataDir. It binds a UDP dev overlay
// as the Transport Adapter's collaborator — see transport.UDPOverlay's
// doc comment for why: the real overlay-network session is an external
// collaborator this system never implements.
func New(cfg *config.Config, log *logging.Backend) (*Node, error) {
	if err := cfg.FixupAndValidate(); err != nil {
		return nil, fmt.Errorf("node: invalid config: %w", err)
	}
	dataDir, err := paths.EnsureDir(cfg.Node.DataDir)
	if err != nil {
		return nil, fmt.Errorf("node: data dir: %w", err)
	}

	n := &Node{cfg: cfg, log: log, dataDir: dataDir}

	n.identitiesPath = filepath.Join(dataDir, "identities", identitiesFileName)
	identities, err := email.LoadIdentities(n.identitiesPath)
	if err != nil {
		return nil, fmt.Errorf("node: load identities: %w", err)
	}
	if len(identities) == 0 {
		fresh, err := email.GenerateLocalIdentity("default", identity.KeyTypePair{
			Crypto: identity.CryptoX25519,
			Sign:   identity.SignEdDSA25519,
			Symm:   identity.SymmAES256,
			Hash:   identity.HashSHA256,
		})
		if err != nil {
			return nil, fmt.Errorf("node: generate default identity: %w", err)
		}
		identities = []email.LocalIdentity{fresh}
		if err := email.SaveIdentities(n.identitiesPath, identities); err != nil {
			return nil, fmt.Errorf("node: persist default identity: %w", err)
		}
	}
	n.identities = identities

	n.Store = store.New(filepath.Join(dataDir, "store"))

	n.Mailbox, err = email.NewMailbox(dataDir)
	if err != nil {
		return nil, fmt.Errorf("node: mailbox: %w", err)
	}

	n.meta, err = emailmeta.Open(filepath.Join(dataDir, outboxMetaFileName))
	if err != nil {
		return nil, fmt.Errorf("node: outbox metadata store: %w", err)
	}

	bind := fmt.Sprintf("%s:%d", cfg.Node.Host, cfg.Node.Port)
	overlay, err := transport.ListenUDPOverlay(bind, func(from string, data []byte) bool {
		return n.Transport.Deliver(from, data)
	})
	if err != nil {
		return nil, fmt.Errorf("node: overlay listen: %w", err)
	}
	n.overlay = overlay
	n.Transport = transport.New(overlay, 0)

	self := dht.Hash(identities[0].Identity.Hash())
	n.Engine = dht.New(self, n.Transport, n.Store, n.log.GetLogger("dht"))

	if err := n.loadTable(cfg); err != nil {
		overlay.Close()
		return nil, err
	}

	book := email.NewStaticAddressBook(cfg.Addresses)
	sender := email.NewSender(n.Mailbox, n.meta, book, n.Engine, n.Store, n.log.GetLogger("email"), time.Now)
	checker := email.NewChecker(n.Mailbox, n.Engine, n.Store, n.log.GetLogger("email"))
	n.Worker = email.NewWorker(sender, checker, email.WorkerConfig{
		CheckInterval: time.Duration(cfg.Email.CheckIntervalSeconds) * time.Second,
		SendInterval:  time.Duration(cfg.Email.SendIntervalSeconds) * time.Second,
		Identities:    identities,
	}, n.log.GetLogger("email"))

	return n, nil
}

// loadTable seeds the DHT Engine's routing table from the persisted
// nodes file, falling back to cfg.Bootstrap.Address when it is absent
// or empty, per dht.Table.LoadNodesFile's own dual-source contract.
func (n *Node) loadTable(cfg *config.Config) error {
	bootstrap := make([]identity.Identity, 0, len(cfg.Bootstrap.Address))
	for _, addr := range cfg.Bootstrap.Address {
		id, err := identity.ParseAddress(addr)
		if err != nil {
			return fmt.Errorf("node: bootstrap address %q: %w", addr, err)
		}
		bootstrap = append(bootstrap, id)
	}

	nodesPath := filepath.Join(n.dataDir, paths.NodesFile)
	loaded, err := n.Engine.Table.LoadNodesFile(nodesPath, destinationOf, bootstrap)
	if err != nil {
		return fmt.Errorf("node: load nodes file: %w", err)
	}
	n.log.GetLogger("node").Infof("loaded %d nodes into routing table", loaded)
	return nil
}

// destinationOf derives a placeholder overlay destination for a peer
// identity: its v1 "b64." text address (the self-describing raw blob in
// unpadded base64). dht.Table.SaveNodesFile persists the same blob in
// padded base64 with no prefix. A real
// I2P deployment resolves destinations through the overlay collaborator
// instead; this is the stand-in used by the bundled UDP dev overlay.
func destinationOf(id identity.Identity) string {
	return identity.EncodeAddressV1(id, false)
}

// Run starts the packet dispatch loop and the Email Worker, blocking
// until ctx is cancelled.
func (n *Node) Run(ctx context.Context) {
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		n.dispatchLoop(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		n.Worker.Run(ctx)
	}()

	<-ctx.Done()
	wg.Wait()
}

func (n *Node) dispatchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case dg := <-n.Transport.RecvQueue:
			n.Engine.Dispatch(dg.From, dg.Data)
		}
	}
}

// Identities returns the node's local identities.
func (n *Node) Identities() []email.LocalIdentity {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]email.LocalIdentity, len(n.identities))
	copy(out, n.identities)
	return out
}

// Close persists the routing table and releases the node's open
// resources (overlay socket, outbox metadata database).
func (n *Node) Close() error {
	nodesPath := filepath.Join(n.dataDir, paths.NodesFile)
	if err := n.Engine.Table.SaveNodesFile(nodesPath); err != nil {
		n.log.GetLogger("node").Warningf("save nodes file: %v", err)
	}
	if err := n.meta.Close(); err != nil {
		n.log.GetLogger("node").Warningf("close outbox metadata store: %v", err)
	}
	return n.overlay.Close()
}
