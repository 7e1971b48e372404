// Package resource implements the bridge's tagged-union entity model: the
// Resource variants, ResourceLink handles, deterministic id derivation, and
// the per-type delta algebra (apply/diff) over it.
//
// Grounded on the domain-struct style in core/cross_chain.go and
// core/storage.go (plain exported structs, JSON tags, small pure functions)
// generalized from ledger/bridge records to a closed resource union.
package resource

import (
	"github.com/google/uuid"
)

// RType discriminates the 20 resource variants. Serialized in snake_case to
// match the v2 CLIP dialect's "type" field.
type RType string

const (
	RTypeBridge              RType = "bridge"
	RTypeBridgeHome          RType = "bridge_home"
	RTypeDevice              RType = "device"
	RTypeLight               RType = "light"
	RTypeGroupedLight        RType = "grouped_light"
	RTypeRoom                RType = "room"
	RTypeScene               RType = "scene"
	RTypeButton              RType = "button"
	RTypeZigbeeConnectivity  RType = "zigbee_connectivity"
	RTypeZone                RType = "zone"
	RTypeDeviceSoftwareUpd   RType = "device_software_update"
	RTypeEntertainment       RType = "entertainment"
	RTypeGeofenceClient      RType = "geofence_client"
	RTypeGeolocation         RType = "geolocation"
	RTypeHomekit             RType = "homekit"
	RTypeMatter              RType = "matter"
	RTypePublicImage         RType = "public_image"
	RTypeBehaviorScript      RType = "behavior_script"
	RTypeBehaviorInstance    RType = "behavior_instance"
	RTypeSmartScene          RType = "smart_scene"
)

// StubTypes is the set of ten variants the real API exposes that this
// daemon only echoes back (no translation to/from GW). Kept as a concrete
// list so ingestion and HTTP layers can agree on what "stub" means.
var StubTypes = map[RType]bool{
	RTypeDeviceSoftwareUpd: true,
	RTypeEntertainment:     true,
	RTypeGeofenceClient:    true,
	RTypeGeolocation:       true,
	RTypeHomekit:           true,
	RTypeMatter:            true,
	RTypePublicImage:       true,
	RTypeBehaviorScript:    true,
	RTypeBehaviorInstance:  true,
	RTypeSmartScene:        true,
}

// Link is the universal (rid, rtype) handle: a pointer-by-value, owned by
// no one, valid only while the referenced entity exists in the Store.
type Link struct {
	Rid   uuid.UUID `json:"rid" yaml:"rid"`
	RType RType     `json:"rtype" yaml:"rtype"`
}

func NewLink(rid uuid.UUID, rtype RType) Link { return Link{Rid: rid, RType: rtype} }
