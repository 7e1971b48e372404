// Package httpapi serves the two REST dialects (legacy v1, modern v2 CLIP)
// and the SSE event stream, translating HTTP requests into Store operations
// and outbound GW requests. This is the "thin wrapper" shell around the
// translation core: no resource semantics live here beyond request parsing
// and response shaping.
//
// Grounded on the chi-based handler style in walletserver/ and
// cmd/*/server.go (route groups, a small per-request logging middleware,
// JSON response helpers), generalized onto go-chi/chi (declared but unused
// in that original code) instead of gorilla/mux.
package httpapi

import (
	"encoding/json"

	"bifrost/internal/resource"
	"bifrost/internal/store"

	"github.com/google/uuid"
)

// Envelope is the v2 CLIP response shape every endpoint returns.
type Envelope struct {
	Data   []map[string]any `json:"data"`
	Errors []string         `json:"errors"`
}

func okEnvelope(items ...map[string]any) Envelope {
	return Envelope{Data: items, Errors: []string{}}
}

// linkWire renders a ResourceLink the way §6's PUT/POST/DELETE responses
// do: just rid and rtype, not the full resource body.
func linkWire(link resource.Link) map[string]any {
	return map[string]any{"rid": link.Rid.String(), "rtype": string(link.RType)}
}

// resourceWire flattens a stored resource's fields alongside its id/type for
// GET responses.
func resourceWire(rid uuid.UUID, rtype resource.RType, r resource.Resource) map[string]any {
	raw, err := json.Marshal(r)
	if err != nil {
		return map[string]any{"id": rid.String(), "type": string(rtype)}
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil || m == nil {
		m = map[string]any{}
	}
	m["id"] = rid.String()
	m["type"] = string(rtype)
	return m
}

// wireAll renders every stored resource of rtype, in no particular order.
func wireAll(s *store.Store, rtype resource.RType) []map[string]any {
	all := s.All(rtype)
	out := make([]map[string]any, 0, len(all))
	for rid, r := range all {
		out = append(out, resourceWire(rid, rtype, r))
	}
	return out
}

// allRTypes enumerates every variant the data model defines, used by the
// v2 "full resource list" endpoint.
var allRTypes = []resource.RType{
	resource.RTypeBridge, resource.RTypeBridgeHome, resource.RTypeDevice,
	resource.RTypeLight, resource.RTypeGroupedLight, resource.RTypeRoom,
	resource.RTypeScene, resource.RTypeButton, resource.RTypeZigbeeConnectivity,
	resource.RTypeZone, resource.RTypeDeviceSoftwareUpd, resource.RTypeEntertainment,
	resource.RTypeGeofenceClient, resource.RTypeGeolocation, resource.RTypeHomekit,
	resource.RTypeMatter, resource.RTypePublicImage, resource.RTypeBehaviorScript,
	resource.RTypeBehaviorInstance, resource.RTypeSmartScene,
}
