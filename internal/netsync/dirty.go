// Package netsync keeps peers converged on the same game state with as
// little traffic as possible: dirty tracking, version-bracketed deltas,
// prioritized delivery, batching, compression, and connection pooling.
package netsync

import "sync"

// EntityType classifies a synchronizable entity.
type EntityType uint8

const (
	EntityPlayer EntityType = iota
	EntityCity
	EntityUnit
	EntityTerritory
	EntityResource
	EntityTech
	EntityDiplomacy
	EntitySettings
)

func (t EntityType) String() string {
	switch t {
	case EntityPlayer:
		return "player"
	case EntityCity:
		return "city"
	case EntityUnit:
		return "unit"
	case EntityTerritory:
		return "territory"
	case EntityResource:
		return "resource"
	case EntityTech:
		return "tech"
	case EntityDiplomacy:
		return "diplomacy"
	case EntitySettings:
		return "settings"
	}
	return "unknown"
}

// EntityID names one synchronizable entity.
type EntityID struct {
	Type EntityType `json:"type"`
	ID   string     `json:"id"`
}

// DirtyTracker records which entities changed and stamps every change
// with a globally monotonic version. Versions only ever move forward;
// clearing the dirty set never rewinds them, so a peer's acknowledged
// version stays meaningful across clears.
type DirtyTracker struct {
	mu       sync.Mutex
	version  uint64
	dirty    map[EntityID]bool
	versions map[EntityID]uint64
	deleted  map[EntityID]uint64
}

// NewDirtyTracker returns an empty tracker at version 0.
func NewDirtyTracker() *DirtyTracker {
	return &DirtyTracker{
		dirty:    make(map[EntityID]bool),
		versions: make(map[EntityID]uint64),
		deleted:  make(map[EntityID]uint64),
	}
}

// MarkDirty records a change to the entity, bumping the global version
// and stamping the entity with it.
func (d *DirtyTracker) MarkDirty(id EntityID) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.version++
	d.dirty[id] = true
	d.versions[id] = d.version
	delete(d.deleted, id)
	return d.version
}

// MarkDeleted records that the entity no longer exists. Deletions move
// the version forward like any other change.
func (d *DirtyTracker) MarkDeleted(id EntityID) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.version++
	delete(d.dirty, id)
	delete(d.versions, id)
	d.deleted[id] = d.version
	return d.version
}

// Version is the current global version.
func (d *DirtyTracker) Version() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.version
}

// DirtyCount is the number of entities currently marked dirty.
func (d *DirtyTracker) DirtyCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.dirty)
}

// ChangedSince returns the entities whose last change is newer than the
// given version, and separately the deletions.
func (d *DirtyTracker) ChangedSince(version uint64) (changed, deleted []EntityID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for id, v := range d.versions {
		if v > version {
			changed = append(changed, id)
		}
	}
	for id, v := range d.deleted {
		if v > version {
			deleted = append(deleted, id)
		}
	}
	return changed, deleted
}

// ClearDirty removes one entity from the dirty set. Its version stamp is
// retained.
func (d *DirtyTracker) ClearDirty(id EntityID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.dirty, id)
}

// ClearAllDirty empties the dirty set without touching any version.
func (d *DirtyTracker) ClearAllDirty() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dirty = make(map[EntityID]bool)
}
