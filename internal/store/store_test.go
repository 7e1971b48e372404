package store

import (
	"testing"

	"bifrost/internal/resource"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

func newTestLight(t *testing.T, s *Store, owner resource.Link) (uuid.UUID, resource.Link) {
	t.Helper()
	rid := resource.ID(resource.RTypeLight, t.Name())
	link := resource.NewLink(rid, resource.RTypeLight)
	if err := s.Add(link, resource.Light{Owner: owner, On: resource.OnState{On: false}}); err != nil {
		t.Fatalf("add light: %v", err)
	}
	return rid, link
}

func TestAddRefusesTypeMismatch(t *testing.T) {
	s := New()
	rid := resource.ID(resource.RTypeLight, "x")
	link := resource.NewLink(rid, resource.RTypeRoom) // mismatched on purpose
	err := s.Add(link, resource.Light{})
	if err == nil {
		t.Fatal("expected WrongType error")
	}
	if s.Len() != 0 {
		t.Fatal("store should be unchanged after a refused add")
	}
}

func TestAddIsIdempotent(t *testing.T) {
	s := New()
	rid, link := newTestLight(t, s, resource.Link{})
	_ = rid
	if err := s.Add(link, resource.Light{On: resource.OnState{On: true}}); err != nil {
		t.Fatalf("second add should no-op, got error: %v", err)
	}
	got, err := Get[resource.Light](s, link.Rid)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.On.On {
		t.Fatal("second add must not overwrite the existing resource")
	}
}

func TestUpdateThenGetObservesApplySemantics(t *testing.T) {
	s := New()
	rid, _ := newTestLight(t, s, resource.Link{})

	sub, unsub := s.HueUpdates.Subscribe()
	defer unsub()

	if err := s.UpdateLight(rid, func(l *resource.Light) { l.On.On = true }); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := Get[resource.Light](s, rid)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.On.On {
		t.Fatal("expected on=true after update")
	}

	select {
	case ev := <-sub:
		if ev.Kind != "update" {
			t.Fatalf("expected update event, got %v", ev.Kind)
		}
	default:
		t.Fatal("expected an event to have been published")
	}
}

func TestDeleteRemovesFromAllIndexes(t *testing.T) {
	s := New()
	roomRid := resource.ID(resource.RTypeScene, "room-for-delete")
	link := resource.NewLink(roomRid, resource.RTypeScene)
	if err := s.Add(link, resource.Scene{Status: resource.SceneStatusInactive}); err != nil {
		t.Fatalf("add: %v", err)
	}
	idx := uint32(7)
	s.AuxSet(roomRid, AuxData{Index: &idx})
	legacyID := s.IDv1(roomRid)
	if err := s.Delete(link); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := Get[resource.Scene](s, roomRid); err == nil {
		t.Fatal("expected NotFound after delete")
	}
	if _, err := s.AuxGet(roomRid); err == nil {
		t.Fatal("expected aux removed after delete")
	}
	if _, ok := s.FromIDv1(legacyID); ok {
		t.Fatal("expected legacy id released after delete")
	}
}

func TestDeviceIsUndeletable(t *testing.T) {
	s := New()
	rid := resource.ID(resource.RTypeDevice, "undeletable")
	link := resource.NewLink(rid, resource.RTypeDevice)
	if err := s.Add(link, resource.Device{}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.Delete(link); err == nil {
		t.Fatal("expected DeleteDenied for a device")
	}
}

func TestLegacyIDAllocationIsLowestFree(t *testing.T) {
	s := New()
	a := resource.ID(resource.RTypeLight, "a")
	b := resource.ID(resource.RTypeLight, "b")

	n1 := s.IDv1(a)
	n2 := s.IDv1(b)
	if n1 == n2 {
		t.Fatal("expected distinct legacy ids")
	}

	// Removing the lowest then adding a new one should reuse it.
	s.mu.Lock()
	s.ids.forget(a)
	s.mu.Unlock()
	c := resource.ID(resource.RTypeLight, "c")
	n3 := s.IDv1(c)
	if n3 != n1 {
		t.Fatalf("expected lowest-free reuse: got %d, want %d", n3, n1)
	}
}

func TestSceneIDAllocationAvoidsCollision(t *testing.T) {
	s := New()
	room := uuid.New()

	n, err := s.GetNextSceneID(room)
	if err != nil {
		t.Fatalf("get next scene id: %v", err)
	}
	rid := resource.ID(resource.RTypeScene, "scene-in-room")
	link := resource.NewLink(rid, resource.RTypeScene)
	if err := s.Add(link, resource.Scene{Group: resource.NewLink(room, resource.RTypeRoom)}); err != nil {
		t.Fatalf("add scene: %v", err)
	}
	s.AuxSet(rid, AuxData{Index: &n})

	next, err := s.GetNextSceneID(room)
	if err != nil {
		t.Fatalf("get next scene id 2: %v", err)
	}
	if next == n {
		t.Fatalf("expected a different scene id after %d was claimed", n)
	}
}

func TestSceneRecallDeactivatesSiblings(t *testing.T) {
	s := New()
	room := uuid.New()
	roomLink := resource.NewLink(room, resource.RTypeRoom)

	s1 := resource.ID(resource.RTypeScene, "s1")
	s2 := resource.ID(resource.RTypeScene, "s2")
	l1 := resource.NewLink(s1, resource.RTypeScene)
	l2 := resource.NewLink(s2, resource.RTypeScene)

	if err := s.Add(l1, resource.Scene{Group: roomLink, Status: resource.SceneStatusStatic}); err != nil {
		t.Fatal(err)
	}
	if err := s.Add(l2, resource.Scene{Group: roomLink, Status: resource.SceneStatusInactive}); err != nil {
		t.Fatal(err)
	}

	if err := s.UpdateScene(s2, func(sc *resource.Scene) { sc.Status = resource.SceneStatusStatic }); err != nil {
		t.Fatalf("update scene: %v", err)
	}

	got1, _ := Get[resource.Scene](s, s1)
	got2, _ := Get[resource.Scene](s, s2)
	if got1.Status != resource.SceneStatusInactive {
		t.Fatalf("expected sibling scene deactivated, got %v", got1.Status)
	}
	if got2.Status != resource.SceneStatusStatic {
		t.Fatalf("expected recalled scene active, got %v", got2.Status)
	}
}

func TestSnapshotLoadRoundTrip(t *testing.T) {
	s := New()
	s.Init("abcdeffffe123456")
	rid, link := newTestLight(t, s, resource.Link{})
	_ = s.UpdateLight(rid, func(l *resource.Light) { l.On.On = true })
	topic := "Lamp"
	s.AuxSet(link.Rid, AuxData{Topic: &topic})

	data, err := s.Write()
	if err != nil {
		t.Fatalf("write: %v", err)
	}

	loaded := New()
	if err := loaded.Load(data); err != nil {
		t.Fatalf("load: %v", err)
	}
	got, err := Get[resource.Light](loaded, rid)
	if err != nil {
		t.Fatalf("get after load: %v", err)
	}
	if !got.On.On {
		t.Fatal("expected on=true to survive round trip")
	}
	aux, err := loaded.AuxGet(link.Rid)
	if err != nil {
		t.Fatalf("aux get: %v", err)
	}
	if aux.Topic == nil || *aux.Topic != "Lamp" {
		t.Fatalf("aux topic didn't survive round trip: %+v", aux)
	}
}

func TestLoadV0UpgradesToV1(t *testing.T) {
	s := New()
	rid := resource.ID(resource.RTypeLight, "v0-light")
	link := resource.NewLink(rid, resource.RTypeLight)
	if err := s.Add(link, resource.Light{On: resource.OnState{On: true}}); err != nil {
		t.Fatal(err)
	}

	v0 := wireStateV0{Res: map[string]wireResource{}, Aux: map[string]AuxData{}}
	var node yaml.Node
	if err := node.Encode(resource.Light{On: resource.OnState{On: true}}); err != nil {
		t.Fatalf("encode: %v", err)
	}
	v0.Res[rid.String()] = wireResource{RType: resource.RTypeLight, Body: node}

	data, err := yaml.Marshal(v0)
	if err != nil {
		t.Fatalf("marshal v0: %v", err)
	}

	loaded := New()
	if err := loaded.Load(data); err != nil {
		t.Fatalf("load v0: %v", err)
	}
	if _, err := Get[resource.Light](loaded, rid); err != nil {
		t.Fatalf("expected light to survive v0 upgrade: %v", err)
	}
	if _, ok := loaded.FromIDv1(loaded.IDv1(rid)); !ok {
		t.Fatal("expected synthesized id_v1 allocation to resolve back to the rid")
	}
}
