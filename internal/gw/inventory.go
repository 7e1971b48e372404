package gw

import (
	"encoding/json"
	"strings"

	"bifrost/internal/berr"
	"bifrost/internal/resource"
	"bifrost/internal/store"

	"github.com/google/uuid"
)

// envelope is the outer shape of every upstream message: a topic tag plus an
// opaque payload whose structure depends on the topic.
type envelope struct {
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload"`
}

// ignoredTopics are acknowledged but otherwise produce no store mutation.
var ignoredTopics = map[string]bool{
	"bridge/info":        true,
	"bridge/state":       true,
	"bridge/logging":     true,
	"bridge/definitions": true,
	"bridge/extensions":  true,
}

type z2mEndpointLink struct {
	IEEEAddress string `json:"ieee_address"`
}

type z2mExpose struct {
	Type string `json:"type"`
}

type z2mDeviceDefinition struct {
	Exposes []z2mExpose `json:"exposes"`
}

type z2mDevice struct {
	IEEEAddress  string               `json:"ieee_address"`
	FriendlyName string               `json:"friendly_name"`
	Type         string               `json:"type"`
	ModelID      string               `json:"model_id"`
	Definition   *z2mDeviceDefinition `json:"definition"`
}

func (d z2mDevice) hasLight() bool {
	if d.Definition == nil {
		return false
	}
	for _, e := range d.Definition.Exposes {
		if e.Type == "light" {
			return true
		}
	}
	return false
}

type z2mScene struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type z2mGroup struct {
	FriendlyName string            `json:"friendly_name"`
	ID           int               `json:"id"`
	Members      []z2mEndpointLink `json:"members"`
	Scenes       []z2mScene        `json:"scenes"`
}

// handleInbound dispatches one upstream message per the topic taxonomy.
func (c *Client) handleInbound(data []byte) error {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return &berr.UnexpectedGWReply{Preview: preview(data)}
	}

	switch {
	case env.Topic == "bridge/devices":
		var devices []z2mDevice
		if err := json.Unmarshal(env.Payload, &devices); err != nil {
			return &berr.UnexpectedGWReply{Preview: preview(data)}
		}
		c.ingestDevices(devices)
		return nil

	case env.Topic == "bridge/groups":
		var groups []z2mGroup
		if err := json.Unmarshal(env.Payload, &groups); err != nil {
			return &berr.UnexpectedGWReply{Preview: preview(data)}
		}
		c.ingestGroups(groups)
		return nil

	case ignoredTopics[env.Topic]:
		return nil

	case !strings.Contains(env.Topic, "/"):
		c.handleStateUpdate(env.Topic, env.Payload)
		return nil

	default:
		log.WithField("topic", env.Topic).Debug("ignoring unrecognized topic")
		return nil
	}
}

// ingestDevices ensures a Device+Light pair exists for every light-capable
// device and records its friendly name in the local topic map.
func (c *Client) ingestDevices(devices []z2mDevice) {
	for _, d := range devices {
		if !d.hasLight() {
			continue
		}
		deviceRid := resource.ID(resource.RTypeDevice, d.IEEEAddress)
		lightRid := resource.ID(resource.RTypeLight, d.IEEEAddress)

		deviceLink := resource.NewLink(deviceRid, resource.RTypeDevice)
		lightLink := resource.NewLink(lightRid, resource.RTypeLight)

		if err := c.Store.Add(deviceLink, resource.Device{
			Services:    []resource.Link{lightLink},
			ProductName: d.ModelID,
			ModelID:     d.ModelID,
			Name:        d.FriendlyName,
		}); err != nil {
			log.WithError(err).WithField("ieee", d.IEEEAddress).Warn("ingest device failed")
			continue
		}
		if err := c.Store.Add(lightLink, resource.Light{
			Owner: deviceLink,
			Name:  d.FriendlyName,
		}); err != nil {
			log.WithError(err).WithField("ieee", d.IEEEAddress).Warn("ingest light failed")
			continue
		}

		name := d.FriendlyName
		c.Store.AuxSet(lightRid, store.AuxData{Topic: &name})
		c.topicToRid[d.FriendlyName] = lightRid
	}
}

// ingestGroups upserts every reported room, its GroupedLight, and its
// scenes, reconciling away scenes no longer reported for that room.
func (c *Client) ingestGroups(groups []z2mGroup) {
	for _, g := range groups {
		roomRid := resource.ID(resource.RTypeRoom, g.FriendlyName)
		roomLink := resource.NewLink(roomRid, resource.RTypeRoom)
		glightRid := resource.ID2(resource.RTypeGroupedLight, roomRid, g.ID)
		glightLink := resource.NewLink(glightRid, resource.RTypeGroupedLight)

		children := make([]resource.Link, 0, len(g.Members))
		for _, m := range g.Members {
			children = append(children, resource.NewLink(
				resource.ID(resource.RTypeDevice, m.IEEEAddress), resource.RTypeDevice))
		}

		oldScenes := map[uuid.UUID]bool{}
		for _, rid := range c.Store.GetScenesForRoom(roomRid) {
			oldScenes[rid] = true
		}

		topic := g.FriendlyName
		for _, s := range g.Scenes {
			sceneRid := resource.ID2(resource.RTypeScene, roomRid, s.ID)
			sceneLink := resource.NewLink(sceneRid, resource.RTypeScene)
			delete(oldScenes, sceneRid)

			if err := c.Store.Add(sceneLink, resource.Scene{
				Group:  roomLink,
				Name:   s.Name,
				Status: resource.SceneStatusInactive,
			}); err != nil {
				log.WithError(err).WithField("scene", sceneRid).Warn("ingest scene failed")
				continue
			}
			idx := uint32(s.ID)
			c.Store.AuxSet(sceneRid, store.AuxData{Topic: &topic, Index: &idx})
		}

		for orphan := range oldScenes {
			if err := c.Store.Delete(resource.NewLink(orphan, resource.RTypeScene)); err != nil {
				log.WithError(err).WithField("scene", orphan).Warn("orphan scene delete failed")
			}
		}

		if err := c.Store.Add(roomLink, resource.Room{
			Children: children,
			Services: []resource.Link{glightLink},
			Name:     g.FriendlyName,
		}); err != nil {
			log.WithError(err).WithField("room", roomRid).Warn("ingest room failed")
		}
		if err := c.Store.Add(glightLink, resource.GroupedLight{Owner: roomLink}); err != nil {
			log.WithError(err).WithField("grouped_light", glightRid).Warn("ingest grouped_light failed")
		}
		c.Store.AuxSet(roomRid, store.AuxData{Topic: &topic})

		c.topicToRid[g.FriendlyName] = glightRid
	}
}
