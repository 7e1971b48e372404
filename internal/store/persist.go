package store

import (
	"fmt"

	"bifrost/internal/berr"
	"bifrost/internal/resource"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

const currentVersion = 1

// wireResource is the on-disk envelope for one resource: its type tag plus
// the raw mapping, since yaml.v3 can't unmarshal straight into the
// resource.Resource interface without knowing the concrete type first.
type wireResource struct {
	RType resource.RType `yaml:"rtype"`
	Body  yaml.Node      `yaml:"body"`
}

type wireStateV1 struct {
	Version int                        `yaml:"version"`
	Aux     map[string]AuxData         `yaml:"aux"`
	IDv1    map[string]uint32          `yaml:"id_v1"`
	Res     map[string]wireResource    `yaml:"res"`
}

// wireStateV0 is the legacy shape: a mapping with res and aux keys only,
// with no id_v1 map and no version tag at all.
type wireStateV0 struct {
	Res map[string]wireResource `yaml:"res"`
	Aux map[string]AuxData      `yaml:"aux"`
}

// Snapshot renders the Store's current content into the versioned wire
// format, used both for Write and for the persistence loop's before/after
// comparison.
func (s *Store) Snapshot() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() ([]byte, error) {
	w := wireStateV1{
		Version: currentVersion,
		Aux:     map[string]AuxData{},
		IDv1:    map[string]uint32{},
		Res:     map[string]wireResource{},
	}
	for rid, r := range s.res {
		var node yaml.Node
		if err := node.Encode(r); err != nil {
			return nil, fmt.Errorf("encode resource %s: %w", rid, err)
		}
		w.Res[rid.String()] = wireResource{RType: s.rtype[rid], Body: node}
	}
	for rid, a := range s.aux {
		w.Aux[rid.String()] = a
	}
	for rid, n := range s.ids.toInt {
		w.IDv1[rid.String()] = n
	}
	return yaml.Marshal(w)
}

// Write serializes the store and returns the bytes; callers (the
// persistence package) own the atomic rename to disk so Store itself has
// no file-path knowledge.
func (s *Store) Write() ([]byte, error) { return s.Snapshot() }

// Load replaces the store's content from a previously written snapshot,
// transparently upgrading a version-0 file to version 1 by synthesizing
// missing id_v1 allocations for every known rid.
func (s *Store) Load(data []byte) error {
	var probe struct {
		Version *int `yaml:"version"`
	}
	if err := yaml.Unmarshal(data, &probe); err != nil {
		return fmt.Errorf("parse state file: %w", err)
	}

	if probe.Version == nil {
		var v0 wireStateV0
		if err := yaml.Unmarshal(data, &v0); err != nil || v0.Res == nil {
			return &berr.StateVersionNotFound{}
		}
		return s.loadFromWire(wireStateV1{Version: 0, Aux: v0.Aux, Res: v0.Res, IDv1: nil})
	}

	var v1 wireStateV1
	if err := yaml.Unmarshal(data, &v1); err != nil {
		return fmt.Errorf("parse v1 state file: %w", err)
	}
	return s.loadFromWire(v1)
}

func (s *Store) loadFromWire(w wireStateV1) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.res = map[uuid.UUID]resource.Resource{}
	s.rtype = map[uuid.UUID]resource.RType{}
	s.aux = map[uuid.UUID]AuxData{}
	s.ids = newIDMap()

	for ridStr, wr := range w.Res {
		rid, err := uuid.Parse(ridStr)
		if err != nil {
			return fmt.Errorf("bad rid %q: %w", ridStr, err)
		}
		r, err := decodeResource(wr)
		if err != nil {
			return fmt.Errorf("decode resource %s: %w", ridStr, err)
		}
		s.res[rid] = r
		s.rtype[rid] = wr.RType
	}
	for ridStr, a := range w.Aux {
		rid, err := uuid.Parse(ridStr)
		if err != nil {
			return fmt.Errorf("bad aux rid %q: %w", ridStr, err)
		}
		s.aux[rid] = a
	}

	if w.IDv1 != nil {
		for ridStr, n := range w.IDv1 {
			rid, err := uuid.Parse(ridStr)
			if err != nil {
				return fmt.Errorf("bad id_v1 rid %q: %w", ridStr, err)
			}
			s.ids.toInt[rid] = n
			s.ids.toUid[n] = rid
		}
	}
	// v0→v1 upgrade: synthesize missing id_v1 allocations for every known
	// rid (also covers v1 files that are missing an entry for some reason).
	for rid := range s.res {
		s.ids.alloc(rid)
	}

	return nil
}

func decodeResource(wr wireResource) (resource.Resource, error) {
	switch wr.RType {
	case resource.RTypeBridge:
		var v resource.Bridge
		return v, wr.Body.Decode(&v)
	case resource.RTypeBridgeHome:
		var v resource.BridgeHome
		return v, wr.Body.Decode(&v)
	case resource.RTypeDevice:
		var v resource.Device
		return v, wr.Body.Decode(&v)
	case resource.RTypeLight:
		var v resource.Light
		return v, wr.Body.Decode(&v)
	case resource.RTypeGroupedLight:
		var v resource.GroupedLight
		return v, wr.Body.Decode(&v)
	case resource.RTypeRoom:
		var v resource.Room
		return v, wr.Body.Decode(&v)
	case resource.RTypeZone:
		var v resource.Zone
		return v, wr.Body.Decode(&v)
	case resource.RTypeScene:
		var v resource.Scene
		return v, wr.Body.Decode(&v)
	case resource.RTypeButton:
		var v resource.Button
		return v, wr.Body.Decode(&v)
	case resource.RTypeZigbeeConnectivity:
		var v resource.ZigbeeConnectivity
		return v, wr.Body.Decode(&v)
	default:
		var v resource.Stub
		v.Kind = wr.RType
		return v, wr.Body.Decode(&v)
	}
}
