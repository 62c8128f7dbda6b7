package dht

import (
	"time"

	"github.com/polistern/pboted/internal/batch"
	"github.com/polistern/pboted/internal/store"
	"github.com/polistern/pboted/internal/transport"
	"github.com/polistern/pboted/internal/wire"
)

// Kademlia verb constants, per spec.md §4.6 and the GLOSSARY. Reference
// behavior gives RESPONSE_TIMEOUT as "a small number of seconds" and
// CLOSEST_NODES_LOOKUP_TIMEOUT as "tens of seconds"; this implementation
// pins them at the reference values named in spec.md's prose.
const (
	MinClosestNodes           = 3
	ResponseTimeout           = 10 * time.Second
	ClosestNodesLookupTimeout = 30 * time.Second
	MaxSendAttempts           = 5

	// findClosePeersVersion is the fixed outgoing protocol version for
	// FindClosePeersRequest, per spec.md §6.
	findClosePeersVersion byte = 5
	defaultRequestVersion byte = 4
)

// Logger is the narrow logging boundary the engine needs; satisfied by
// *logging.Logger (see internal/logging) or a discard stub in tests.
type Logger interface {
	Warningf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Warningf(string, ...interface{}) {}
func (nopLogger) Infof(string, ...interface{})    {}
func (nopLogger) Debugf(string, ...interface{})   {}

// Engine is the DHT Engine: the client verbs (find/find_one/find_all/
// store/closest_nodes_lookup) and the server-side inbound handlers,
// composed over a Table, a batch.Registry, a transport.Adapter and a
// content store.Store. It holds no package-level state — per spec.md §9's
// "composed Node value" design note, callers own an *Engine and pass it
// by reference to workers rather than reaching for globals.
type Engine struct {
	Self  Hash
	Table *Table

	registry  *batch.Registry
	transport *transport.Adapter
	store     *store.Store
	limiter   *InboundLimiter
	log       Logger

	// ReturnAllOnFindClose selects how F (Find-Close-Peers) and A
	// (Peer-List Request) respond: false (the default) answers with the
	// closest-k known nodes, true with every unlocked node in the table,
	// mirroring the reference implementation's current (arguably
	// accidental) behavior. This field is the toggle between the two
	// policies.
	ReturnAllOnFindClose bool
}

// New builds an Engine for the local identity hash self.
func New(self Hash, tr *transport.Adapter, st *store.Store, log Logger) *Engine {
	if log == nil {
		log = nopLogger{}
	}
	return &Engine{
		Self:      self,
		Table:     NewTable(self),
		registry:  batch.NewRegistry(),
		transport: tr,
		store:     st,
		log:       log,
	}
}

// WithInboundLimiter attaches rate limiting to inbound handling.
func (e *Engine) WithInboundLimiter(l *InboundLimiter) *Engine {
	e.limiter = l
	return e
}

func classFromKey(k [32]byte) Hash { return Hash(k) }

// buildEnvelope wraps a sub-packet payload into a full wire-encoded
// communication packet for a fresh (or supplied) CID.
func buildEnvelope(t wire.PacketType, version byte, cid wire.CID, payload []byte) []byte {
	return wire.CommunicationPacket{Type: t, Version: version, CID: cid, Payload: payload}.Encode()
}
