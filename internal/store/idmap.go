package store

import "github.com/google/uuid"

// idMap is the Uuid <-> u32 bijection the legacy v1 dialect needs to
// address entities by small integer. Allocation picks the lowest free
// integer, so repeated inserts/deletes don't let
// the alias space grow unboundedly.
type idMap struct {
	toInt map[uuid.UUID]uint32
	toUid map[uint32]uuid.UUID
}

func newIDMap() *idMap {
	return &idMap{toInt: map[uuid.UUID]uint32{}, toUid: map[uint32]uuid.UUID{}}
}

// alloc assigns the lowest unused integer to id if it doesn't already have
// one, and returns the assigned (or existing) integer.
func (m *idMap) alloc(id uuid.UUID) uint32 {
	if n, ok := m.toInt[id]; ok {
		return n
	}
	var n uint32
	for {
		if _, taken := m.toUid[n]; !taken {
			break
		}
		n++
	}
	m.toInt[id] = n
	m.toUid[n] = id
	return n
}

func (m *idMap) forget(id uuid.UUID) {
	if n, ok := m.toInt[id]; ok {
		delete(m.toInt, id)
		delete(m.toUid, n)
	}
}

func (m *idMap) byInt(n uint32) (uuid.UUID, bool) {
	id, ok := m.toUid[n]
	return id, ok
}
