package httpapi

import (
	"crypto/rand"
	"fmt"
	"net/http"
	"strconv"

	"bifrost/internal/berr"
	"bifrost/internal/eventbus"
	"bifrost/internal/resource"
	"bifrost/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// LegacyConfig is the v1 dialect's config DTO. Fields beyond bridge id and
// mac aren't meaningfully derived from anything — they're fixed plausible
// firmware strings every legacy client expects to find.
type LegacyConfig struct {
	Name             string `json:"name"`
	BridgeID         string `json:"bridgeid"`
	Mac              string `json:"mac"`
	ModelID          string `json:"modelid"`
	SWVersion        string `json:"swversion"`
	APIVersion       string `json:"apiversion"`
	DataStoreVersion string `json:"datastoreversion"`
	ZigbeeChannel    int    `json:"zigbeechannel"`
	LinkButton       bool   `json:"linkbutton"`
	PortalServices   bool   `json:"portalservices"`
	FactoryNew       bool   `json:"factorynew"`
}

func (srv *Server) legacyConfig() LegacyConfig {
	return LegacyConfig{
		Name:             srv.Name,
		BridgeID:         srv.BridgeID,
		Mac:              srv.Mac,
		ModelID:          "BSB002",
		SWVersion:        "1968054010",
		APIVersion:       "1.68.0",
		DataStoreVersion: "165",
		ZigbeeChannel:    15,
		LinkButton:       false,
		PortalServices:   false,
		FactoryNew:       false,
	}
}

func randomUUIDHex() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return fmt.Sprintf("%x", b[:])
}

// createUser implements POST /api: any body, two fresh random tokens.
func (srv *Server) createUser(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, []map[string]any{
		{"success": map[string]any{
			"username":  randomUUIDHex(),
			"clientkey": randomUUIDHex(),
		}},
	})
}

func (srv *Server) legacyShortConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, srv.legacyConfig())
}

func (srv *Server) legacyFullConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"config":        srv.legacyConfig(),
		"lights":        srv.legacyLights(),
		"groups":        srv.legacyGroups(),
		"scenes":        srv.legacyScenes(),
		"resourcelinks": map[string]any{},
		"rules":         map[string]any{},
		"schedules":     map[string]any{},
		"sensors":       map[string]any{},
	})
}

func (srv *Server) legacyLights() map[string]map[string]any {
	out := map[string]map[string]any{}
	for rid, r := range srv.Store.All(resource.RTypeLight) {
		out[strconv.FormatUint(uint64(srv.Store.IDv1(rid)), 10)] = resourceWire(rid, resource.RTypeLight, r)
	}
	return out
}

func (srv *Server) legacyGroups() map[string]map[string]any {
	out := map[string]map[string]any{}
	for rid, r := range srv.Store.All(resource.RTypeRoom) {
		room := r.(resource.Room)
		entry := map[string]any{"name": room.Name, "type": "Room"}
		for _, svc := range room.Services {
			if svc.RType != resource.RTypeGroupedLight {
				continue
			}
			if gl, err := store.Get[resource.GroupedLight](srv.Store, svc.Rid); err == nil {
				entry["action"] = map[string]any{"on": gl.On.On}
			}
		}
		out[strconv.FormatUint(uint64(srv.Store.IDv1(rid)), 10)] = entry
	}
	return out
}

func (srv *Server) legacyScenes() map[string]map[string]any {
	out := map[string]map[string]any{}
	for rid, r := range srv.Store.All(resource.RTypeScene) {
		scene := r.(resource.Scene)
		out[strconv.FormatUint(uint64(srv.Store.IDv1(rid)), 10)] = map[string]any{
			"name":  scene.Name,
			"group": strconv.FormatUint(uint64(srv.Store.IDv1(scene.Group.Rid)), 10),
		}
	}
	return out
}

var legacyListable = map[string]resource.RType{
	"lights": resource.RTypeLight,
	"groups": resource.RTypeRoom,
	"scenes": resource.RTypeScene,
}

func (srv *Server) legacyList(w http.ResponseWriter, r *http.Request) {
	rtype := chi.URLParam(r, "rtype")
	switch rtype {
	case "config":
		writeJSON(w, http.StatusOK, srv.legacyConfig())
	case "lights":
		writeJSON(w, http.StatusOK, srv.legacyLights())
	case "groups":
		writeJSON(w, http.StatusOK, srv.legacyGroups())
	case "scenes":
		writeJSON(w, http.StatusOK, srv.legacyScenes())
	case "capabilities":
		writeJSON(w, http.StatusOK, map[string]any{
			"lights": map[string]any{"available": 63},
			"groups": map[string]any{"available": 60},
			"scenes": map[string]any{"available": 200, "lightstates": map[string]any{"available": 1500}},
		})
	case "resourcelinks", "rules", "schedules", "sensors":
		writeJSON(w, http.StatusOK, map[string]any{})
	default:
		writeV1Error(w, &berr.NotFound{Rid: rtype})
	}
}

func (srv *Server) legacyGet(w http.ResponseWriter, r *http.Request) {
	rtypeParam := chi.URLParam(r, "rtype")
	rtype, ok := legacyListable[rtypeParam]
	if !ok {
		writeV1Error(w, &berr.NotFound{Rid: rtypeParam})
		return
	}
	rid, err := srv.legacyRid(r)
	if err != nil {
		writeV1Error(w, err)
		return
	}
	res, gotType, err := srv.Store.GetLink(rid)
	if err != nil || gotType != rtype {
		writeV1Error(w, &berr.NotFound{Rid: chi.URLParam(r, "id")})
		return
	}
	writeJSON(w, http.StatusOK, resourceWire(rid, gotType, res))
}

// legacyRid resolves the "id" URL param, a legacy integer alias, to a uuid.
func (srv *Server) legacyRid(r *http.Request) (uuid.UUID, error) {
	idStr := chi.URLParam(r, "id")
	n, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		return uuid.UUID{}, &berr.NotFound{Rid: idStr}
	}
	rid, ok := srv.Store.FromIDv1(uint32(n))
	if !ok {
		return uuid.UUID{}, &berr.NotFound{Rid: idStr}
	}
	return rid, nil
}

// roomGroupedLightRid finds the GroupedLight service rid a Room carries.
func (srv *Server) roomGroupedLightRid(roomRid uuid.UUID) (uuid.UUID, error) {
	res, gotType, err := srv.Store.GetLink(roomRid)
	if err != nil {
		return uuid.UUID{}, err
	}
	if gotType != resource.RTypeRoom {
		return uuid.UUID{}, &berr.WrongType{Expected: string(resource.RTypeRoom), Got: string(gotType)}
	}
	room := res.(resource.Room)
	for _, svc := range room.Services {
		if svc.RType == resource.RTypeGroupedLight {
			return svc.Rid, nil
		}
	}
	return uuid.UUID{}, &berr.NotFound{Rid: roomRid.String()}
}

type legacyLightState struct {
	On  *bool       `json:"on"`
	Bri *float64    `json:"bri"`
	XY  *[2]float64 `json:"xy"`
	CT  *int        `json:"ct"`
}

func (s legacyLightState) toLightUpdate() resource.LightUpdate {
	var u resource.LightUpdate
	if s.On != nil {
		u.On = s.On
	}
	if s.Bri != nil {
		b := *s.Bri / 254 * 100
		u.Brightness = &b
	}
	if s.CT != nil {
		u.Mirek = s.CT
	}
	if s.XY != nil {
		xy := resource.ColorXY{X: s.XY[0], Y: s.XY[1]}
		u.XY = &xy
	}
	return u
}

func (srv *Server) legacyPutLightState(w http.ResponseWriter, r *http.Request) {
	rid, err := srv.legacyRid(r)
	if err != nil {
		writeV1Error(w, err)
		return
	}
	var body legacyLightState
	if err := decodeBody(r, &body); err != nil {
		writeV1Error(w, &berr.WrongType{Expected: "light", Got: "malformed body"})
		return
	}
	upd := body.toLightUpdate()
	if err := srv.Store.UpdateLight(rid, func(l *resource.Light) { resource.ApplyLight(l, upd) }); err != nil {
		writeV1Error(w, err)
		return
	}
	srv.enqueueOutbound(eventbus.ClientRequest{
		Kind:   eventbus.ReqLightUpdate,
		Device: resource.NewLink(rid, resource.RTypeLight),
		Update: upd,
	})
	writeJSON(w, http.StatusOK, []map[string]any{{"success": map[string]any{}}})
}

type legacyGroupAction struct {
	legacyLightState
	Scene *string `json:"scene"`
}

func (srv *Server) legacyPutGroupAction(w http.ResponseWriter, r *http.Request) {
	roomRid, err := srv.legacyRid(r)
	if err != nil {
		writeV1Error(w, err)
		return
	}

	var body legacyGroupAction
	if err := decodeBody(r, &body); err != nil {
		writeV1Error(w, &berr.WrongType{Expected: "group", Got: "malformed body"})
		return
	}

	if body.Scene != nil {
		sceneNum, err := strconv.ParseUint(*body.Scene, 10, 32)
		if err != nil {
			writeV1Error(w, &berr.NotFound{Rid: *body.Scene})
			return
		}
		sceneRid, ok := srv.Store.FromIDv1(uint32(sceneNum))
		if !ok {
			writeV1Error(w, &berr.NotFound{Rid: *body.Scene})
			return
		}
		if err := srv.Store.UpdateScene(sceneRid, func(s *resource.Scene) {
			s.Status = resource.SceneStatusStatic
		}); err != nil {
			writeV1Error(w, err)
			return
		}
		srv.enqueueOutbound(eventbus.ClientRequest{
			Kind:  eventbus.ReqSceneRecall,
			Scene: resource.NewLink(sceneRid, resource.RTypeScene),
		})
		writeJSON(w, http.StatusOK, []map[string]any{{"success": map[string]any{}}})
		return
	}

	glightRid, err := srv.roomGroupedLightRid(roomRid)
	if err != nil {
		writeV1Error(w, err)
		return
	}
	upd := body.legacyLightState.toLightUpdate()
	if err := srv.Store.UpdateGroupedLight(glightRid, func(g *resource.GroupedLight) { resource.ApplyGroupedLight(g, upd) }); err != nil {
		writeV1Error(w, err)
		return
	}
	srv.enqueueOutbound(eventbus.ClientRequest{
		Kind:   eventbus.ReqGroupUpdate,
		Device: resource.NewLink(glightRid, resource.RTypeGroupedLight),
		Update: upd,
	})
	writeJSON(w, http.StatusOK, []map[string]any{{"success": map[string]any{}}})
}

// legacyCreateUnsupported implements POST /api/:user/:rtype: the v1
// dialect never supported resource creation on this daemon.
func (srv *Server) legacyCreateUnsupported(w http.ResponseWriter, r *http.Request) {
	rtype := chi.URLParam(r, "rtype")
	writeV1Error(w, &berr.V1CreateUnsupported{RType: rtype})
}
