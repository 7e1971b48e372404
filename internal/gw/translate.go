package gw

import (
	"encoding/json"

	"bifrost/internal/eventbus"
	"bifrost/internal/resource"
	"bifrost/internal/store"

	"github.com/gorilla/websocket"
)

// brightnessScale is the single authoritative rescale factor between GW's
// [0,254] brightness and the resource graph's [0,100] percentage, used in
// both directions for round-trip fidelity.
const brightnessScale = 254.0

type wireXY struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type wireColor struct {
	XY *wireXY `json:"xy,omitempty"`
}

// DeviceUpdate is the wire shape GW uses both for inbound state
// notifications and outbound light/group set commands.
type DeviceUpdate struct {
	State      *string    `json:"state,omitempty"`
	Brightness *float64   `json:"brightness,omitempty"`
	ColorTemp  *int       `json:"color_temp,omitempty"`
	Color      *wireColor `json:"color,omitempty"`
	ColorMode  *string    `json:"color_mode,omitempty"`
}

// toLightUpdate converts an inbound DeviceUpdate into a resource.LightUpdate.
func (u DeviceUpdate) toLightUpdate() resource.LightUpdate {
	var out resource.LightUpdate
	if u.State != nil {
		on := *u.State == "ON"
		out.On = &on
	}
	if u.Brightness != nil {
		b := *u.Brightness / brightnessScale * 100
		out.Brightness = &b
	}
	if u.ColorTemp != nil {
		m := *u.ColorTemp
		out.Mirek = &m
	}
	if u.Color != nil && u.Color.XY != nil {
		out.XY = &resource.ColorXY{X: u.Color.XY.X, Y: u.Color.XY.Y}
	}
	return out
}

// fromLightUpdate converts an outbound resource.LightUpdate into the wire
// DeviceUpdate GW expects.
func fromLightUpdate(u resource.LightUpdate) DeviceUpdate {
	var out DeviceUpdate
	if u.On != nil {
		s := "OFF"
		if *u.On {
			s = "ON"
		}
		out.State = &s
	}
	if u.Brightness != nil {
		b := *u.Brightness / 100 * brightnessScale
		out.Brightness = &b
	}
	if u.Mirek != nil {
		out.ColorTemp = u.Mirek
	}
	if u.XY != nil {
		out.Color = &wireColor{XY: &wireXY{X: u.XY.X, Y: u.XY.Y}}
	}
	return out
}

// handleStateUpdate applies an untagged topic's payload to whichever light
// or grouped_light owns that friendly name, then feeds the result to any
// active scene learner.
func (c *Client) handleStateUpdate(topic string, payload json.RawMessage) {
	rid, ok := c.topicToRid[topic]
	if !ok {
		log.WithField("topic", topic).Debug("state update for unknown topic, dropping")
		return
	}

	var du DeviceUpdate
	if err := json.Unmarshal(payload, &du); err != nil {
		log.WithError(err).WithField("topic", topic).Warn("malformed state update payload, dropping")
		return
	}
	upd := du.toLightUpdate()

	_, rtype, err := c.Store.GetLink(rid)
	if err != nil {
		log.WithError(err).WithField("rid", rid).Warn("state update target vanished")
		return
	}

	switch rtype {
	case resource.RTypeLight:
		err := c.Store.UpdateLight(rid, func(l *resource.Light) {
			resource.ApplyLight(l, upd)
			if du.ColorMode != nil {
				l.ColorMode = resource.ColorMode(*du.ColorMode)
			}
		})
		if err != nil {
			log.WithError(err).WithField("rid", rid).Warn("apply light update failed")
			return
		}
		if after, err := store.Get[resource.Light](c.Store, rid); err == nil {
			c.observeLightUpdate(rid, after)
		}

	case resource.RTypeGroupedLight:
		if err := c.Store.UpdateGroupedLight(rid, func(gl *resource.GroupedLight) {
			resource.ApplyGroupedLight(gl, upd)
		}); err != nil {
			log.WithError(err).WithField("rid", rid).Warn("apply group update failed")
		}

	default:
		log.WithField("rid", rid).WithField("rtype", rtype).Warn("state update target has unexpected type")
	}
}

// translateOutbound resolves a ClientRequest into the friendly-name topic it
// targets and the JSON-ready payload to send, per the outbound translation
// table. ok is false when the target's aux metadata isn't known yet (the
// request arrived before inventory ingestion completed).
func (c *Client) translateOutbound(req eventbus.ClientRequest) (topicName string, payload any, ok bool) {
	switch req.Kind {
	case eventbus.ReqLightUpdate:
		aux, err := c.Store.AuxGet(req.Device.Rid)
		if err != nil || aux.Topic == nil {
			return "", nil, false
		}
		return *aux.Topic, fromLightUpdate(req.Update), true

	case eventbus.ReqGroupUpdate:
		gl, err := store.Get[resource.GroupedLight](c.Store, req.Device.Rid)
		if err != nil {
			return "", nil, false
		}
		aux, err := c.Store.AuxGet(gl.Owner.Rid)
		if err != nil || aux.Topic == nil {
			return "", nil, false
		}
		return *aux.Topic, fromLightUpdate(req.Update), true

	case eventbus.ReqSceneStore:
		aux, err := c.Store.AuxGet(req.Room.Rid)
		if err != nil || aux.Topic == nil {
			return "", nil, false
		}
		return *aux.Topic, map[string]any{
			"scene_store": map[string]any{"ID": req.ID, "name": req.Name},
		}, true

	case eventbus.ReqSceneRemove:
		// The scene (and its aux) is already gone from the store by the
		// time this request is drained; the caller deletes it
		// synchronously before enqueueing, so RoomTopic/SceneIndex carry
		// what was resolved at enqueue time instead of being re-looked-up
		// here.
		if req.RoomTopic == nil || req.SceneIndex == nil {
			return "", nil, false
		}
		return *req.RoomTopic, map[string]any{"scene_remove": *req.SceneIndex}, true

	case eventbus.ReqSceneRecall:
		scene, err := store.Get[resource.Scene](c.Store, req.Scene.Rid)
		if err != nil {
			return "", nil, false
		}
		roomAux, err := c.Store.AuxGet(scene.Group.Rid)
		if err != nil || roomAux.Topic == nil {
			return "", nil, false
		}
		sceneAux, err := c.Store.AuxGet(req.Scene.Rid)
		if err != nil || sceneAux.Index == nil {
			return "", nil, false
		}
		return *roomAux.Topic, map[string]any{"scene_recall": *sceneAux.Index}, true

	default:
		return "", nil, false
	}
}

// dispatchOutbound translates req and writes it to conn if this client owns
// the target topic. A request whose target topic isn't in the local map is
// silently dropped — expected, since each client only serves the topics it
// owns.
func (c *Client) dispatchOutbound(conn *websocket.Conn, req eventbus.ClientRequest) bool {
	topicName, payload, ok := c.translateOutbound(req)
	if !ok {
		return false
	}
	if _, known := c.topicToRid[topicName]; !known {
		return false
	}

	if req.Kind == eventbus.ReqSceneRecall {
		c.maybeStartLearner(req.Scene.Rid)
	}

	body, err := json.Marshal(struct {
		Topic   string `json:"topic"`
		Payload any    `json:"payload"`
	}{Topic: topicName + "/set", Payload: payload})
	if err != nil {
		log.WithError(err).Warn("marshal outbound request failed")
		return false
	}
	if err := conn.WriteMessage(websocket.TextMessage, body); err != nil {
		log.WithError(err).Warn("write outbound request failed")
		return false
	}
	return true
}
