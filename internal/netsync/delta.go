package netsync

import (
	"encoding/json"
	"sort"
	"sync"
)

// EntityChange is one entity's fresh payload inside a delta.
type EntityChange struct {
	Entity  EntityID        `json:"entity"`
	Version uint64          `json:"version"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// StateDelta carries everything a peer needs to move from BaseVersion to
// TargetVersion. A peer applying a delta whose BaseVersion is not its
// current version must discard it and request a full sync.
type StateDelta struct {
	BaseVersion   uint64         `json:"baseVersion"`
	TargetVersion uint64         `json:"targetVersion"`
	Changes       []EntityChange `json:"changes"`
	Deletions     []EntityID     `json:"deletions,omitempty"`
}

// EntitySource resolves the current payload of an entity. Returning nil
// data is allowed for entity kinds whose presence alone is the payload.
type EntitySource func(id EntityID) json.RawMessage

// DeltaSyncManager produces per-peer deltas from a DirtyTracker and
// remembers what each peer has acknowledged.
type DeltaSyncManager struct {
	mu      sync.Mutex
	tracker *DirtyTracker
	source  EntitySource
	peers   map[string]uint64
}

// NewDeltaSyncManager wires a manager over the tracker. The source may
// be nil, in which case deltas name entities without payloads.
func NewDeltaSyncManager(tracker *DirtyTracker, source EntitySource) *DeltaSyncManager {
	return &DeltaSyncManager{
		tracker: tracker,
		source:  source,
		peers:   make(map[string]uint64),
	}
}

// PeerVersion is the last version the peer acknowledged, 0 for unknown
// peers.
func (m *DeltaSyncManager) PeerVersion(peer string) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.peers[peer]
}

// CreateDeltaForPeer builds a delta bringing the peer to the current
// version. It returns nil when the peer is already current, and also
// when more than maxChanges entities changed: past that point a full
// snapshot is cheaper than a delta, and the caller falls back to one.
func (m *DeltaSyncManager) CreateDeltaForPeer(peer string, maxChanges int) *StateDelta {
	m.mu.Lock()
	base := m.peers[peer]
	m.mu.Unlock()

	target := m.tracker.Version()
	if target == base {
		return nil
	}
	changed, deleted := m.tracker.ChangedSince(base)
	if maxChanges > 0 && len(changed)+len(deleted) > maxChanges {
		return nil
	}

	sortEntities(changed)
	sortEntities(deleted)

	delta := &StateDelta{BaseVersion: base, TargetVersion: target, Deletions: deleted}
	for _, id := range changed {
		change := EntityChange{Entity: id, Version: target}
		if m.source != nil {
			change.Data = m.source(id)
		}
		delta.Changes = append(delta.Changes, change)
	}
	return delta
}

// AcknowledgeDelta records that the peer applied everything up to
// version. Acknowledgements never move a peer backwards.
func (m *DeltaSyncManager) AcknowledgeDelta(peer string, version uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if version > m.peers[peer] {
		m.peers[peer] = version
	}
}

// ForgetPeer drops a disconnected peer's bookkeeping.
func (m *DeltaSyncManager) ForgetPeer(peer string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.peers, peer)
}

func sortEntities(ids []EntityID) {
	sort.Slice(ids, func(i, j int) bool {
		if ids[i].Type != ids[j].Type {
			return ids[i].Type < ids[j].Type
		}
		return ids[i].ID < ids[j].ID
	})
}
