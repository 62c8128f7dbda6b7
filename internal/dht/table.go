package dht

import (
	"bufio"
	"encoding/base64"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/polistern/pboted/internal/identity"
)

// NodeRecord is one entry in the Node Table: a peer's identity, the
// overlay destination string used to address it, and its liveness
// bookkeeping.
type NodeRecord struct {
	Identity identity.Identity
	Hash     Hash
	Dest     string // opaque overlay destination string
	Locked   bool
	Health   int
}

// DiversityLimit caps, when non-zero, the number of nodes sharing a
// destination-string prefix (a coarse stand-in for a network subnet,
// since overlay destinations carry no IP semantics) that the table
// will accept. Anti-eclipse hardening, off by default; spec.md leaves
// this unspecified for the Node Table's contract.
type DiversityLimit struct {
	MaxPerPrefix int
	PrefixLen    int
}

// Table is the Node Table: a concurrent map from identity hash to node
// record, with XOR-metric closeness queries relative to a rotating
// routing key. The local node's hash is always excluded.
type Table struct {
	self Hash

	mu    sync.RWMutex
	nodes map[Hash]*NodeRecord

	diversity DiversityLimit
}

// NewTable returns an empty Table for a node whose own identity hash is
// self; self is never inserted as a peer.
func NewTable(self Hash) *Table {
	return &Table{self: self, nodes: make(map[Hash]*NodeRecord)}
}

// SetDiversityLimit configures (or disables, with MaxPerPrefix == 0)
// anti-eclipse bucket diversity.
func (t *Table) SetDiversityLimit(d DiversityLimit) {
	t.mu.Lock()
	t.diversity = d
	t.mu.Unlock()
}

func destPrefix(dest string, n int) string {
	if n <= 0 || n > len(dest) {
		return dest
	}
	return dest[:n]
}

// Add inserts id at dest if its hash is absent and not the local
// identity. Returns whether insertion happened.
func (t *Table) Add(id identity.Identity, dest string) bool {
	hash := Hash(id.Hash())
	if hash == t.self {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.nodes[hash]; exists {
		return false
	}

	if t.diversity.MaxPerPrefix > 0 {
		prefix := destPrefix(dest, t.diversity.PrefixLen)
		count := 0
		for _, n := range t.nodes {
			if destPrefix(n.Dest, t.diversity.PrefixLen) == prefix {
				count++
			}
		}
		if count >= t.diversity.MaxPerPrefix {
			return false
		}
	}

	t.nodes[hash] = &NodeRecord{Identity: id, Hash: hash, Dest: dest}
	return true
}

// Find returns the node record for hash, if present.
func (t *Table) Find(hash Hash) (NodeRecord, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n, ok := t.nodes[hash]
	if !ok {
		return NodeRecord{}, false
	}
	return *n, true
}

// All returns a snapshot of every node in the table.
func (t *Table) All() []NodeRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]NodeRecord, 0, len(t.nodes))
	for _, n := range t.nodes {
		out = append(out, *n)
	}
	return out
}

// Unlocked returns a snapshot of every node not currently locked.
func (t *Table) Unlocked() []NodeRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]NodeRecord, 0, len(t.nodes))
	for _, n := range t.nodes {
		if !n.Locked {
			out = append(out, *n)
		}
	}
	return out
}

// ClosestTo returns up to n unlocked nodes sorted by
// RoutingKey(key) XOR node.hash ascending. When biasLocal is true,
// nodes strictly farther from key than the local node itself are
// pruned first.
func (t *Table) ClosestTo(key Hash, n int, biasLocal bool) []NodeRecord {
	routingKey := RoutingKey(key)

	nodes := t.Unlocked()
	if biasLocal {
		localDist := Xor(routingKey, t.self)
		filtered := nodes[:0:0]
		for _, node := range nodes {
			if !DistanceLess(localDist, Xor(routingKey, node.Hash)) {
				filtered = append(filtered, node)
			}
		}
		nodes = filtered
	}

	sort.Slice(nodes, func(i, j int) bool {
		return DistanceLess(Xor(routingKey, nodes[i].Hash), Xor(routingKey, nodes[j].Hash))
	})

	if n > 0 && len(nodes) > n {
		nodes = nodes[:n]
	}
	return nodes
}

// SetLocked marks (or unmarks) a node as excluded from selection.
func (t *Table) SetLocked(hash Hash, locked bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if n, ok := t.nodes[hash]; ok {
		n.Locked = locked
	}
}

// MarkResponse records a successful response from hash: increments its
// health counter and clears its lock.
func (t *Table) MarkResponse(hash Hash) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if n, ok := t.nodes[hash]; ok {
		n.Health++
		n.Locked = false
	}
}

// Size returns the number of nodes currently in the table.
func (t *Table) Size() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.nodes)
}

const nodesFileHeader = "# pboted node persistence file: one base64 identity per line"

// SaveNodesFile writes every known node's base64 identity to path, one
// per line, preceded by a header comment. It follows the teacher's
// write-to-tempfile-then-rename idiom for crash safety.
func (t *Table) SaveNodesFile(path string) error {
	nodes := t.All()

	var b strings.Builder
	b.WriteString(nodesFileHeader)
	b.WriteByte('\n')
	for _, n := range nodes {
		b.WriteString(base64.StdEncoding.EncodeToString(identity.EncodeRaw(n.Identity)))
		b.WriteByte('\n')
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(b.String()), 0o600); err != nil {
		return fmt.Errorf("dht: write nodes file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("dht: rename nodes file: %w", err)
	}
	return nil
}

// LoadNodesFile populates the table from path, tolerating blank lines
// and '#'-prefixed comments. dest, given a decoded identity,
// resolves the overlay destination to store alongside it (typically an
// identity-derived overlay address; tests can supply an identity
// function). If the file is absent or yields zero nodes, bootstrap
// seeds the table instead.
func (t *Table) LoadNodesFile(path string, dest func(id identity.Identity) string, bootstrap []identity.Identity) (int, error) {
	loaded := 0

	f, err := os.Open(path)
	if err == nil {
		defer f.Close()
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			raw, err := base64.StdEncoding.DecodeString(line)
			if err != nil {
				continue
			}
			id, _, err := identity.DecodeRaw(raw)
			if err != nil {
				continue
			}
			if t.Add(id, dest(id)) {
				loaded++
			}
		}
	} else if !os.IsNotExist(err) {
		return 0, fmt.Errorf("dht: read nodes file: %w", err)
	}

	if loaded == 0 {
		for _, id := range bootstrap {
			if t.Add(id, dest(id)) {
				loaded++
			}
		}
	}
	return loaded, nil
}
