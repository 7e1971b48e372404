// Package store implements C3: the owning map of bridge entities plus aux
// metadata, legacy-id alias, change signals, and versioned persistence.
//
// Grounded on the mutex-protected struct-with-methods shape in
// core/storage.go's diskLRU (lock, mutate, unlock; no network/disk I/O
// while the lock is held for anything but the final persistence snapshot)
// generalized from a content cache to the full resource graph.
package store

import (
	"sync"
	"time"

	"bifrost/internal/berr"
	"bifrost/internal/eventbus"
	"bifrost/internal/resource"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "store")

// AuxData is per-resource metadata outside the public resource graph:
// topic links a resource to its GW name, index is GW's numeric scene id
// (used for scene recall/remove).
type AuxData struct {
	Topic *string `yaml:"topic,omitempty"`
	Index *uint32 `yaml:"index,omitempty"`
}

// Store is the single in-memory resource graph, guarded by one mutex per
// every mutation path holds the lock for a bounded critical
// section and never awaits (does I/O) while holding it, except the final
// persistence snapshot which is a pure in-memory copy, not the write to
// disk itself (that happens in the persistence package, outside the lock).
type Store struct {
	mu    sync.Mutex
	res   map[uuid.UUID]resource.Resource
	rtype map[uuid.UUID]resource.RType
	aux   map[uuid.UUID]AuxData
	ids   *idMap

	HueUpdates  *eventbus.Broadcaster[eventbus.EventBlock]
	Z2MUpdates  *eventbus.Broadcaster[eventbus.ClientRequest]
	StateUpdates *eventbus.Notify
}

func New() *Store {
	return &Store{
		res:          map[uuid.UUID]resource.Resource{},
		rtype:        map[uuid.UUID]resource.RType{},
		aux:          map[uuid.UUID]AuxData{},
		ids:          newIDMap(),
		HueUpdates:   eventbus.NewBroadcaster[eventbus.EventBlock](),
		Z2MUpdates:   eventbus.NewBroadcaster[eventbus.ClientRequest](),
		StateUpdates: eventbus.NewNotify(),
	}
}

// Init is idempotent: it creates the four bootstrap resources (bridge
// Device, Bridge, bridge-home Device, BridgeHome) wired together with ids
// deterministically derived from bridgeID.
func (s *Store) Init(bridgeID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bridgeDeviceID := resource.ID(resource.RTypeDevice, "bridge:"+bridgeID)
	bridgeID_ := resource.ID(resource.RTypeBridge, bridgeID)
	homeDeviceID := resource.ID(resource.RTypeDevice, "bridge-home-device:"+bridgeID)
	homeID := resource.ID(resource.RTypeBridgeHome, bridgeID)

	if _, exists := s.res[bridgeDeviceID]; exists {
		return
	}

	bridgeLink := resource.NewLink(bridgeID_, resource.RTypeBridge)
	homeLink := resource.NewLink(homeID, resource.RTypeBridgeHome)

	s.insertLocked(resource.NewLink(bridgeDeviceID, resource.RTypeDevice), resource.Device{
		Services:    []resource.Link{bridgeLink},
		ProductName: "BSB002",
		ModelID:     "BSB002",
		Name:        "bifrost bridge",
	})
	s.insertLocked(bridgeLink, resource.Bridge{
		Owner:    resource.NewLink(bridgeDeviceID, resource.RTypeDevice),
		BridgeID: bridgeID,
		TimeZone: "Etc/UTC",
	})
	s.insertLocked(resource.NewLink(homeDeviceID, resource.RTypeDevice), resource.Device{
		Services: []resource.Link{homeLink},
		Name:     "bifrost bridge home",
	})
	s.insertLocked(homeLink, resource.BridgeHome{})

	log.WithField("bridge_id", bridgeID).Info("store initialized with bootstrap resources")
}

// insertLocked is Add's primitive without event/persistence side effects.
// Init calls it directly, with no event sent; Add calls it and then
// publishes its own event and persistence signal.
func (s *Store) insertLocked(link resource.Link, r resource.Resource) {
	s.res[link.Rid] = r
	s.rtype[link.Rid] = link.RType
	s.ids.alloc(link.Rid)
}

// Add inserts a new resource. A rid already present is a no-op (logged),
// matching idempotent GW inventory ingestion.
func (s *Store) Add(link resource.Link, r resource.Resource) error {
	if link.RType != r.RType() {
		return &berr.WrongType{Expected: string(link.RType), Got: string(r.RType())}
	}

	s.mu.Lock()
	if _, exists := s.res[link.Rid]; exists {
		s.mu.Unlock()
		log.WithField("rid", link.Rid).Debug("add: resource already present, ignoring")
		return nil
	}
	s.insertLocked(link, r)
	s.HueUpdates.Publish(eventbus.EventBlock{Kind: eventbus.EventAdd, Link: link, Resource: r, Timestamp: time.Now()})
	s.StateUpdates.NotifyOne()
	s.mu.Unlock()
	return nil
}

// Delete removes a resource from res, aux, and the legacy id map. Device
// resources are undeletable.
func (s *Store) Delete(link resource.Link) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.res[link.Rid]; !exists {
		return &berr.NotFound{Rid: link.Rid.String()}
	}
	if !resource.Deletable(link.RType) {
		return &berr.DeleteDenied{Rid: link.Rid.String()}
	}

	delete(s.res, link.Rid)
	delete(s.rtype, link.Rid)
	delete(s.aux, link.Rid)
	s.ids.forget(link.Rid)

	s.HueUpdates.Publish(eventbus.EventBlock{Kind: eventbus.EventDelete, Link: link, Timestamp: time.Now()})
	s.StateUpdates.NotifyOne()
	return nil
}

// Get fetches the resource at rid, type-checking it against T.
func Get[T resource.Resource](s *Store, rid uuid.UUID) (T, error) {
	var zero T
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.res[rid]
	if !ok {
		return zero, &berr.NotFound{Rid: rid.String()}
	}
	t, ok := r.(T)
	if !ok {
		return zero, &berr.WrongType{Expected: string(zero.RType()), Got: string(r.RType())}
	}
	return t, nil
}

// GetLink returns the generic resource.Resource for rid without a type
// assertion, used by HTTP handlers that serialize whatever is there.
func (s *Store) GetLink(rid uuid.UUID) (resource.Resource, resource.RType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.res[rid]
	if !ok {
		return nil, "", &berr.NotFound{Rid: rid.String()}
	}
	return r, s.rtype[rid], nil
}

// All returns every stored resource of the requested type, for list
// endpoints.
func (s *Store) All(rtype resource.RType) map[uuid.UUID]resource.Resource {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[uuid.UUID]resource.Resource{}
	for rid, t := range s.rtype {
		if t == rtype {
			out[rid] = s.res[rid]
		}
	}
	return out
}

// UpdateLight is the §4.3 update<T> primitive specialized for Light: fetch,
// snapshot, apply, diff, broadcast if non-empty, signal persistence — all
// under one lock acquisition with no suspension points in between.
func (s *Store) UpdateLight(rid uuid.UUID, f func(*resource.Light)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.res[rid]
	if !ok {
		return &berr.NotFound{Rid: rid.String()}
	}
	before, ok := r.(resource.Light)
	if !ok {
		return &berr.WrongType{Expected: string(resource.RTypeLight), Got: string(r.RType())}
	}

	after := before
	f(&after)
	u := resource.DiffLight(before, after)
	s.res[rid] = after

	if !u.IsEmpty() {
		link := resource.NewLink(rid, resource.RTypeLight)
		s.HueUpdates.Publish(eventbus.EventBlock{Kind: eventbus.EventUpdate, Link: link, Update: u, Timestamp: time.Now()})
	}
	s.StateUpdates.NotifyOne()
	return nil
}

// UpdateGroupedLight mirrors UpdateLight for GroupedLight.
func (s *Store) UpdateGroupedLight(rid uuid.UUID, f func(*resource.GroupedLight)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.res[rid]
	if !ok {
		return &berr.NotFound{Rid: rid.String()}
	}
	before, ok := r.(resource.GroupedLight)
	if !ok {
		return &berr.WrongType{Expected: string(resource.RTypeGroupedLight), Got: string(r.RType())}
	}

	after := before
	f(&after)
	u := resource.DiffGroupedLight(before, after)
	s.res[rid] = after

	if !u.IsEmpty() {
		link := resource.NewLink(rid, resource.RTypeGroupedLight)
		s.HueUpdates.Publish(eventbus.EventBlock{Kind: eventbus.EventUpdate, Link: link, Update: u, Timestamp: time.Now()})
	}
	s.StateUpdates.NotifyOne()
	return nil
}

// UpdateScene mirrors UpdateLight for Scene, including the at-most-one-
// active-scene-per-room invariant: if f sets Status to anything other than
// Inactive, every sibling scene in the same room is flipped to Inactive in
// the same critical section.
func (s *Store) UpdateScene(rid uuid.UUID, f func(*resource.Scene)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.res[rid]
	if !ok {
		return &berr.NotFound{Rid: rid.String()}
	}
	before, ok := r.(resource.Scene)
	if !ok {
		return &berr.WrongType{Expected: string(resource.RTypeScene), Got: string(r.RType())}
	}

	after := before
	f(&after)
	u := resource.DiffScene(before, after)
	s.res[rid] = after

	if !u.IsEmpty() {
		link := resource.NewLink(rid, resource.RTypeScene)
		s.HueUpdates.Publish(eventbus.EventBlock{Kind: eventbus.EventUpdate, Link: link, Update: u, Timestamp: time.Now()})
	}

	if after.Status != resource.SceneStatusInactive {
		s.deactivateSiblingsLocked(rid, after.Group.Rid)
	}

	s.StateUpdates.NotifyOne()
	return nil
}

func (s *Store) deactivateSiblingsLocked(except uuid.UUID, room uuid.UUID) {
	for rid, t := range s.rtype {
		if t != resource.RTypeScene || rid == except {
			continue
		}
		sc, ok := s.res[rid].(resource.Scene)
		if !ok || sc.Group.Rid != room || sc.Status == resource.SceneStatusInactive {
			continue
		}
		siblingBefore := sc
		sc.Status = resource.SceneStatusInactive
		s.res[rid] = sc
		u := resource.DiffScene(siblingBefore, sc)
		if !u.IsEmpty() {
			link := resource.NewLink(rid, resource.RTypeScene)
			s.HueUpdates.Publish(eventbus.EventBlock{Kind: eventbus.EventUpdate, Link: link, Update: u, Timestamp: time.Now()})
		}
	}
}

// AuxGet returns the aux data for rid.
func (s *Store) AuxGet(rid uuid.UUID) (AuxData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.aux[rid]
	if !ok {
		return AuxData{}, &berr.AuxNotFound{Rid: rid.String()}
	}
	return a, nil
}

// AuxSet overwrites the aux data for rid.
func (s *Store) AuxSet(rid uuid.UUID, a AuxData) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.aux[rid] = a
	s.StateUpdates.NotifyOne()
}

// IDv1 returns the legacy integer alias for a uuid, allocating one if it
// doesn't have one yet (new resources are assigned one at Add time, but
// this stays available for resources created before aliasing existed).
func (s *Store) IDv1(id uuid.UUID) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ids.alloc(id)
}

// FromIDv1 resolves a legacy integer alias back to a uuid.
func (s *Store) FromIDv1(n uint32) (uuid.UUID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ids.byInt(n)
}

// GetNextSceneID returns the smallest integer in [0, 100) not currently
// used as an aux.index by a scene whose group is room. Fails Full(Scene)
// once the room already has 100 scenes.
func (s *Store) GetNextSceneID(room uuid.UUID) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	used := map[uint32]bool{}
	for rid, t := range s.rtype {
		if t != resource.RTypeScene {
			continue
		}
		sc, ok := s.res[rid].(resource.Scene)
		if !ok || sc.Group.Rid != room {
			continue
		}
		if a, ok := s.aux[rid]; ok && a.Index != nil {
			used[*a.Index] = true
		}
	}
	for n := uint32(0); n < 100; n++ {
		if !used[n] {
			return n, nil
		}
	}
	return 0, &berr.Full{RType: string(resource.RTypeScene)}
}

// GetScenesForRoom enumerates scene rids whose group.rid == room.
func (s *Store) GetScenesForRoom(room uuid.UUID) []uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []uuid.UUID
	for rid, t := range s.rtype {
		if t != resource.RTypeScene {
			continue
		}
		if sc, ok := s.res[rid].(resource.Scene); ok && sc.Group.Rid == room {
			out = append(out, rid)
		}
	}
	return out
}

// DeviceIDFor returns the Device rid deterministically derived for an IEEE
// address, so callers need not call resource.ID themselves. It does not
// check that such a device is stored.
func DeviceIDFor(ieee string) uuid.UUID { return resource.ID(resource.RTypeDevice, ieee) }

// RoomLights enumerates the Light rids owned by every device in room's
// Children list, used by the scene learner to know which lights it must
// observe before a recalled scene's actions are fully known.
func (s *Store) RoomLights(room uuid.UUID) []uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()

	roomRes, ok := s.res[room].(resource.Room)
	if !ok {
		return nil
	}
	var lights []uuid.UUID
	for _, dev := range roomRes.Children {
		devRes, ok := s.res[dev.Rid].(resource.Device)
		if !ok {
			continue
		}
		for _, svc := range devRes.Services {
			if svc.RType == resource.RTypeLight {
				lights = append(lights, svc.Rid)
			}
		}
	}
	return lights
}

// Len reports the number of stored resources, for tests that need to
// assert on store size without
// reaching into unexported fields from _test.go files in other packages.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.res)
}
