package eventbus

import "bifrost/internal/resource"

// ClientRequestKind discriminates the outbound GW request variants of
// the GW client's outbound translation table.
type ClientRequestKind string

const (
	ReqLightUpdate  ClientRequestKind = "light_update"
	ReqGroupUpdate  ClientRequestKind = "group_update"
	ReqSceneStore   ClientRequestKind = "scene_store"
	ReqSceneRecall  ClientRequestKind = "scene_recall"
	ReqSceneRemove  ClientRequestKind = "scene_remove"
)

// ClientRequest is a single outbound GW mutation, enqueued on z2m_updates by
// HTTP handlers, and drained by the GW client
// whose topic map claims it.
type ClientRequest struct {
	Kind ClientRequestKind

	// LightUpdate / GroupUpdate
	Device resource.Link // light rid (LightUpdate) or grouped_light rid (GroupUpdate)
	Update resource.LightUpdate

	// SceneStore
	Room resource.Link
	ID   uint32
	Name string

	// SceneRecall / SceneRemove share Scene
	Scene resource.Link

	// SceneRemove resolves the room's topic and the scene's aux index at
	// enqueue time: the caller deletes the scene (and its aux) from the
	// store synchronously, so by the time the GW client drains this
	// request off the broadcaster there is nothing left to re-resolve it
	// from. Left nil for every other Kind, which still resolve via the
	// live store.
	RoomTopic  *string
	SceneIndex *uint32
}
