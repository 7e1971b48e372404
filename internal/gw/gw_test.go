package gw

import (
	"encoding/json"
	"testing"

	"bifrost/internal/eventbus"
	"bifrost/internal/resource"
	"bifrost/internal/store"
)

func newTestClient() *Client {
	s := store.New()
	return New("test", "ws://example.invalid", s)
}

func TestIngestDevicesCreatesDeviceLightPairAndTopic(t *testing.T) {
	c := newTestClient()
	c.ingestDevices([]z2mDevice{
		{
			IEEEAddress:  "0x1",
			FriendlyName: "Lamp",
			Definition:   &z2mDeviceDefinition{Exposes: []z2mExpose{{Type: "light"}}},
		},
		{
			IEEEAddress:  "0x2",
			FriendlyName: "Sensor",
			Definition:   &z2mDeviceDefinition{Exposes: []z2mExpose{{Type: "numeric"}}},
		},
	})

	lightRid := resource.ID(resource.RTypeLight, "0x1")
	if _, err := store.Get[resource.Light](c.Store, lightRid); err != nil {
		t.Fatalf("expected light-exposing device to produce a Light: %v", err)
	}
	if rid, ok := c.topicToRid["Lamp"]; !ok || rid != lightRid {
		t.Fatal("expected friendly_name to map to the light rid")
	}
	if _, ok := c.topicToRid["Sensor"]; ok {
		t.Fatal("non-light device must not populate the topic map")
	}
}

func TestIngestGroupsReconcilesOrphanedScenes(t *testing.T) {
	c := newTestClient()
	c.ingestGroups([]z2mGroup{{
		FriendlyName: "Den",
		ID:           1,
		Scenes:       []z2mScene{{ID: 1, Name: "Bright"}, {ID: 3, Name: "Read"}},
	}})

	roomRid := resource.ID(resource.RTypeRoom, "Den")
	if len(c.Store.GetScenesForRoom(roomRid)) != 2 {
		t.Fatal("expected two scenes after first ingestion")
	}

	c.ingestGroups([]z2mGroup{{
		FriendlyName: "Den",
		ID:           1,
		Scenes:       []z2mScene{{ID: 1, Name: "Bright"}},
	}})

	remaining := c.Store.GetScenesForRoom(roomRid)
	if len(remaining) != 1 {
		t.Fatalf("expected orphaned scene removed, got %d scenes", len(remaining))
	}
	orphan := resource.ID2(resource.RTypeScene, roomRid, 3)
	if _, err := store.Get[resource.Scene](c.Store, orphan); err == nil {
		t.Fatal("expected scene id 3 to be deleted")
	}
}

func TestIngestGroupsSetsRoomAuxTopic(t *testing.T) {
	c := newTestClient()
	c.ingestGroups([]z2mGroup{{
		FriendlyName: "Den",
		ID:           1,
		Scenes:       []z2mScene{{ID: 1, Name: "Bright"}},
	}})

	roomRid := resource.ID(resource.RTypeRoom, "Den")
	aux, err := c.Store.AuxGet(roomRid)
	if err != nil {
		t.Fatalf("expected room aux to be set: %v", err)
	}
	if aux.Topic == nil || *aux.Topic != "Den" {
		t.Fatalf("expected room aux topic %q, got %v", "Den", aux.Topic)
	}
}

func TestBrightnessRescaleRoundTrips(t *testing.T) {
	du := DeviceUpdate{Brightness: floatPtr(127.0)}
	upd := du.toLightUpdate()
	if upd.Brightness == nil || *upd.Brightness != 50 {
		t.Fatalf("expected inbound 127/254*100=50, got %v", upd.Brightness)
	}

	back := fromLightUpdate(resource.LightUpdate{Brightness: floatPtr(50)})
	if back.Brightness == nil || *back.Brightness != 127 {
		t.Fatalf("expected outbound 50/100*254=127, got %v", back.Brightness)
	}
}

func floatPtr(f float64) *float64 { return &f }

func TestHandleStateUpdateAppliesToKnownLight(t *testing.T) {
	c := newTestClient()
	c.ingestDevices([]z2mDevice{{
		IEEEAddress:  "0x1",
		FriendlyName: "Lamp",
		Definition:   &z2mDeviceDefinition{Exposes: []z2mExpose{{Type: "light"}}},
	}})

	payload, _ := json.Marshal(DeviceUpdate{State: strPtr("ON")})
	c.handleStateUpdate("Lamp", payload)

	got, err := store.Get[resource.Light](c.Store, resource.ID(resource.RTypeLight, "0x1"))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.On.On {
		t.Fatal("expected state update to turn the light on")
	}
}

func TestHandleStateUpdateDropsUnknownTopic(t *testing.T) {
	c := newTestClient()
	payload, _ := json.Marshal(DeviceUpdate{State: strPtr("ON")})
	c.handleStateUpdate("Nonexistent", payload) // must not panic
}

func strPtr(s string) *string { return &s }

func TestSceneLearnerCommitsAfterAllLightsReport(t *testing.T) {
	c := newTestClient()
	c.ingestDevices([]z2mDevice{
		{IEEEAddress: "l1", FriendlyName: "L1", Definition: &z2mDeviceDefinition{Exposes: []z2mExpose{{Type: "light"}}}},
		{IEEEAddress: "l2", FriendlyName: "L2", Definition: &z2mDeviceDefinition{Exposes: []z2mExpose{{Type: "light"}}}},
	})
	c.ingestGroups([]z2mGroup{{
		FriendlyName: "Den",
		ID:           1,
		Members:      []z2mEndpointLink{{IEEEAddress: "l1"}, {IEEEAddress: "l2"}},
		Scenes:       []z2mScene{{ID: 1, Name: "Bright"}},
	}})

	roomRid := resource.ID(resource.RTypeRoom, "Den")
	sceneRid := resource.ID2(resource.RTypeScene, roomRid, 1)

	c.maybeStartLearner(sceneRid)
	if _, ok := c.learn[sceneRid]; !ok {
		t.Fatal("expected a learner to start for an unlearned scene")
	}

	l1 := resource.ID(resource.RTypeLight, "l1")
	l2 := resource.ID(resource.RTypeLight, "l2")

	after1, _ := store.Get[resource.Light](c.Store, l1)
	after1.On.On = true
	c.observeLightUpdate(l1, after1)
	if _, stillActive := c.learn[sceneRid]; !stillActive {
		t.Fatal("learner must stay active until every light reports")
	}

	after2, _ := store.Get[resource.Light](c.Store, l2)
	after2.On.On = true
	c.observeLightUpdate(l2, after2)
	if _, stillActive := c.learn[sceneRid]; stillActive {
		t.Fatal("learner should have committed and been dropped")
	}

	scene, err := store.Get[resource.Scene](c.Store, sceneRid)
	if err != nil {
		t.Fatalf("get scene: %v", err)
	}
	if len(scene.Actions) != 2 {
		t.Fatalf("expected 2 learned actions, got %d", len(scene.Actions))
	}
	if scene.Status != resource.SceneStatusStatic {
		t.Fatalf("expected scene status static after learning, got %v", scene.Status)
	}
}

func TestTranslateOutboundDropsWhenAuxMissing(t *testing.T) {
	c := newTestClient()
	_, _, ok := c.translateOutbound(eventbus.ClientRequest{
		Kind:   eventbus.ReqLightUpdate,
		Device: resource.NewLink(resource.ID(resource.RTypeLight, "ghost"), resource.RTypeLight),
	})
	if ok {
		t.Fatal("expected translation to fail when aux topic is unset")
	}
}

// TestTranslateOutboundSceneRemoveAfterStoreDelete covers the race the
// clip DELETE handler works around: the scene (and its aux) can already be
// gone from the store by the time the GW client drains this request, so
// translation must use the RoomTopic/SceneIndex resolved at enqueue time
// rather than re-resolving them from the store.
func TestTranslateOutboundSceneRemoveAfterStoreDelete(t *testing.T) {
	c := newTestClient()
	roomRid := resource.ID(resource.RTypeRoom, "Den")
	sceneRid := resource.ID2(resource.RTypeScene, roomRid, 1)
	sceneLink := resource.NewLink(sceneRid, resource.RTypeScene)
	topic := "Den"
	idx := uint32(1)

	topicName, payload, ok := c.translateOutbound(eventbus.ClientRequest{
		Kind:       eventbus.ReqSceneRemove,
		Scene:      sceneLink,
		RoomTopic:  &topic,
		SceneIndex: &idx,
	})
	if !ok {
		t.Fatal("expected translation to succeed using resolved RoomTopic/SceneIndex")
	}
	if topicName != "Den" {
		t.Fatalf("expected topic Den, got %q", topicName)
	}
	m, ok := payload.(map[string]any)
	if !ok || m["scene_remove"] != idx {
		t.Fatalf("unexpected scene_remove payload: %+v", payload)
	}
}

// TestTranslateOutboundSceneRemoveDropsWithoutResolvedFields covers the
// defensive fallback: a SceneRemove request with no resolved RoomTopic or
// SceneIndex (e.g. constructed by a future caller that forgets to resolve
// them before deleting) is dropped, not crashed on.
func TestTranslateOutboundSceneRemoveDropsWithoutResolvedFields(t *testing.T) {
	c := newTestClient()
	_, _, ok := c.translateOutbound(eventbus.ClientRequest{
		Kind:  eventbus.ReqSceneRemove,
		Scene: resource.NewLink(resource.ID(resource.RTypeScene, "ghost"), resource.RTypeScene),
	})
	if ok {
		t.Fatal("expected translation to fail without resolved RoomTopic/SceneIndex")
	}
}

func TestTranslateOutboundSceneStore(t *testing.T) {
	c := newTestClient()
	roomRid := resource.ID(resource.RTypeRoom, "Den")
	topic := "Den"
	c.Store.AuxSet(roomRid, store.AuxData{Topic: &topic})

	topicName, payload, ok := c.translateOutbound(eventbus.ClientRequest{
		Kind: eventbus.ReqSceneStore,
		Room: resource.NewLink(roomRid, resource.RTypeRoom),
		ID:   2,
		Name: "Relax",
	})
	if !ok || topicName != "Den" {
		t.Fatalf("expected topic Den, got %q ok=%v", topicName, ok)
	}
	m, ok := payload.(map[string]any)
	if !ok {
		t.Fatal("expected map payload")
	}
	inner, ok := m["scene_store"].(map[string]any)
	if !ok || inner["name"] != "Relax" {
		t.Fatalf("unexpected scene_store payload: %+v", m)
	}
}
