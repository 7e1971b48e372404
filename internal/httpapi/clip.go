package httpapi

import (
	"net/http"

	"bifrost/internal/berr"
	"bifrost/internal/eventbus"
	"bifrost/internal/resource"
	"bifrost/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// wireLightUpdate is the v2 CLIP PUT body shape for light/grouped_light.
type wireLightUpdate struct {
	On *struct {
		On bool `json:"on"`
	} `json:"on"`
	Dimming *struct {
		Brightness float64 `json:"brightness"`
	} `json:"dimming"`
	ColorTemperature *struct {
		Mirek int `json:"mirek"`
	} `json:"color_temperature"`
	Color *struct {
		XY struct {
			X float64 `json:"x"`
			Y float64 `json:"y"`
		} `json:"xy"`
	} `json:"color"`
}

func (w wireLightUpdate) toLightUpdate() resource.LightUpdate {
	var u resource.LightUpdate
	if w.On != nil {
		on := w.On.On
		u.On = &on
	}
	if w.Dimming != nil {
		b := w.Dimming.Brightness
		u.Brightness = &b
	}
	if w.ColorTemperature != nil {
		m := w.ColorTemperature.Mirek
		u.Mirek = &m
	}
	if w.Color != nil {
		xy := resource.ColorXY{X: w.Color.XY.X, Y: w.Color.XY.Y}
		u.XY = &xy
	}
	return u
}

func parseRid(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "id"))
}

func (srv *Server) clipListAll(w http.ResponseWriter, r *http.Request) {
	var items []map[string]any
	for _, rt := range allRTypes {
		items = append(items, wireAll(srv.Store, rt)...)
	}
	writeJSON(w, http.StatusOK, okEnvelope(items...))
}

func (srv *Server) clipList(w http.ResponseWriter, r *http.Request) {
	rtype := resource.RType(chi.URLParam(r, "rtype"))
	writeJSON(w, http.StatusOK, okEnvelope(wireAll(srv.Store, rtype)...))
}

func (srv *Server) clipGet(w http.ResponseWriter, r *http.Request) {
	rtype := resource.RType(chi.URLParam(r, "rtype"))
	rid, err := parseRid(r)
	if err != nil {
		writeV2Error(w, &berr.NotFound{Rid: chi.URLParam(r, "id")})
		return
	}
	res, gotType, err := srv.Store.GetLink(rid)
	if err != nil {
		writeV2Error(w, err)
		return
	}
	if gotType != rtype {
		writeV2Error(w, &berr.WrongType{Expected: string(rtype), Got: string(gotType)})
		return
	}
	writeJSON(w, http.StatusOK, okEnvelope(resourceWire(rid, gotType, res)))
}

// clipCreate handles POST for every resource type except scene, which has
// its own handler since it must allocate a legacy scene index and queue a
// SceneStore request. Room and Zone are created with their typed bodies;
// every other kind is stored as an opaque resource.Stub echo of the posted
// payload. That includes non-stub kinds such as light or device, which are
// not parsed into their typed structs here.
func (srv *Server) clipCreate(w http.ResponseWriter, r *http.Request) {
	rtype := resource.RType(chi.URLParam(r, "rtype"))
	rid := uuid.New()

	var res resource.Resource
	switch rtype {
	case resource.RTypeRoom:
		var body resource.Room
		if err := decodeBody(r, &body); err != nil {
			writeV2Error(w, &berr.WrongType{Expected: "room", Got: "malformed body"})
			return
		}
		res = body
	case resource.RTypeZone:
		var body resource.Zone
		if err := decodeBody(r, &body); err != nil {
			writeV2Error(w, &berr.WrongType{Expected: "zone", Got: "malformed body"})
			return
		}
		res = body
	default:
		var payload map[string]any
		_ = decodeBody(r, &payload)
		res = resource.Stub{Kind: rtype, Payload: payload}
	}

	link := resource.NewLink(rid, rtype)
	if err := srv.Store.Add(link, res); err != nil {
		writeV2Error(w, err)
		return
	}
	writeJSON(w, http.StatusOK, okEnvelope(linkWire(link)))
}

type createSceneRequest struct {
	Group    resource.Link `json:"group"`
	Metadata struct {
		Name string `json:"name"`
	} `json:"metadata"`
}

// clipCreateScene implements POST /scene's special-case allocation path:
// reserve a legacy scene index in the target room, queue SceneStore, and
// return the new link.
func (srv *Server) clipCreateScene(w http.ResponseWriter, r *http.Request) {
	var body createSceneRequest
	if err := decodeBody(r, &body); err != nil {
		writeV2Error(w, &berr.WrongType{Expected: "scene", Got: "malformed body"})
		return
	}

	sid, err := srv.Store.GetNextSceneID(body.Group.Rid)
	if err != nil {
		writeV2Error(w, err)
		return
	}

	sceneRid := uuid.New()
	link := resource.NewLink(sceneRid, resource.RTypeScene)
	if err := srv.Store.Add(link, resource.Scene{
		Group:  body.Group,
		Name:   body.Metadata.Name,
		Status: resource.SceneStatusInactive,
	}); err != nil {
		writeV2Error(w, err)
		return
	}
	srv.Store.AuxSet(sceneRid, store.AuxData{Index: &sid})
	srv.enqueueOutbound(eventbus.ClientRequest{
		Kind: eventbus.ReqSceneStore,
		Room: body.Group,
		ID:   sid,
		Name: body.Metadata.Name,
	})

	writeJSON(w, http.StatusOK, okEnvelope(linkWire(link)))
}

func (srv *Server) clipPutLight(w http.ResponseWriter, r *http.Request) {
	rid, err := parseRid(r)
	if err != nil {
		writeV2Error(w, &berr.NotFound{Rid: chi.URLParam(r, "id")})
		return
	}
	var body wireLightUpdate
	if err := decodeBody(r, &body); err != nil {
		writeV2Error(w, &berr.WrongType{Expected: "light", Got: "malformed body"})
		return
	}
	upd := body.toLightUpdate()
	if err := srv.Store.UpdateLight(rid, func(l *resource.Light) { resource.ApplyLight(l, upd) }); err != nil {
		writeV2Error(w, err)
		return
	}

	link := resource.NewLink(rid, resource.RTypeLight)
	srv.enqueueOutbound(eventbus.ClientRequest{Kind: eventbus.ReqLightUpdate, Device: link, Update: upd})
	writeJSON(w, http.StatusOK, okEnvelope(linkWire(link)))
}

func (srv *Server) clipPutGroupedLight(w http.ResponseWriter, r *http.Request) {
	rid, err := parseRid(r)
	if err != nil {
		writeV2Error(w, &berr.NotFound{Rid: chi.URLParam(r, "id")})
		return
	}
	var body wireLightUpdate
	if err := decodeBody(r, &body); err != nil {
		writeV2Error(w, &berr.WrongType{Expected: "grouped_light", Got: "malformed body"})
		return
	}
	upd := body.toLightUpdate()
	if err := srv.Store.UpdateGroupedLight(rid, func(g *resource.GroupedLight) { resource.ApplyGroupedLight(g, upd) }); err != nil {
		writeV2Error(w, err)
		return
	}

	link := resource.NewLink(rid, resource.RTypeGroupedLight)
	srv.enqueueOutbound(eventbus.ClientRequest{Kind: eventbus.ReqGroupUpdate, Device: link, Update: upd})
	writeJSON(w, http.StatusOK, okEnvelope(linkWire(link)))
}

type wireSceneUpdate struct {
	Metadata *struct {
		Name string `json:"name"`
	} `json:"metadata"`
	Recall *struct {
		Action string `json:"action"`
	} `json:"recall"`
}

func (srv *Server) clipPutScene(w http.ResponseWriter, r *http.Request) {
	rid, err := parseRid(r)
	if err != nil {
		writeV2Error(w, &berr.NotFound{Rid: chi.URLParam(r, "id")})
		return
	}
	var body wireSceneUpdate
	if err := decodeBody(r, &body); err != nil {
		writeV2Error(w, &berr.WrongType{Expected: "scene", Got: "malformed body"})
		return
	}

	recall := body.Recall != nil && body.Recall.Action == "active"
	if err := srv.Store.UpdateScene(rid, func(s *resource.Scene) {
		if body.Metadata != nil {
			s.Name = body.Metadata.Name
		}
		if recall {
			s.Status = resource.SceneStatusStatic
		}
	}); err != nil {
		writeV2Error(w, err)
		return
	}

	link := resource.NewLink(rid, resource.RTypeScene)
	if recall {
		srv.enqueueOutbound(eventbus.ClientRequest{Kind: eventbus.ReqSceneRecall, Scene: link})
	}
	writeJSON(w, http.StatusOK, okEnvelope(linkWire(link)))
}

// clipPutDevice exists only to report UpdateUnsupported: the data model
// carries no update semantics for Device.
func (srv *Server) clipPutDevice(w http.ResponseWriter, r *http.Request) {
	writeV2Error(w, &berr.UpdateUnsupported{RType: string(resource.RTypeDevice)})
}

func (srv *Server) clipDeleteScene(w http.ResponseWriter, r *http.Request) {
	rid, err := parseRid(r)
	if err != nil {
		writeV2Error(w, &berr.NotFound{Rid: chi.URLParam(r, "id")})
		return
	}
	link := resource.NewLink(rid, resource.RTypeScene)

	// Resolve the room topic and aux index before deleting: the GW client
	// drains the outbound queue on its own goroutine, so by the time it
	// translates this request the scene (and its aux) may already be gone
	// from the store. Carry what we resolve here so translation doesn't
	// depend on post-delete state.
	var roomTopic *string
	var sceneIndex *uint32
	if scene, err := store.Get[resource.Scene](srv.Store, rid); err == nil {
		if roomAux, err := srv.Store.AuxGet(scene.Group.Rid); err == nil {
			roomTopic = roomAux.Topic
		}
	}
	if aux, err := srv.Store.AuxGet(rid); err == nil {
		sceneIndex = aux.Index
	}

	if roomTopic != nil && sceneIndex != nil {
		srv.enqueueOutbound(eventbus.ClientRequest{
			Kind:       eventbus.ReqSceneRemove,
			Scene:      link,
			RoomTopic:  roomTopic,
			SceneIndex: sceneIndex,
		})
	}
	if err := srv.Store.Delete(link); err != nil {
		writeV2Error(w, err)
		return
	}
	writeJSON(w, http.StatusOK, okEnvelope(linkWire(link)))
}

func (srv *Server) clipDeleteDenied(w http.ResponseWriter, r *http.Request) {
	rtype := resource.RType(chi.URLParam(r, "rtype"))
	rid, err := parseRid(r)
	if err != nil {
		writeV2Error(w, &berr.NotFound{Rid: chi.URLParam(r, "id")})
		return
	}
	link := resource.NewLink(rid, rtype)
	if err := srv.Store.Delete(link); err != nil {
		writeV2Error(w, err)
		return
	}
	writeJSON(w, http.StatusOK, okEnvelope(linkWire(link)))
}
