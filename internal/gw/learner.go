package gw

import (
	"time"

	"bifrost/internal/resource"
	"bifrost/internal/store"

	"github.com/google/uuid"
)

// learnScene is one in-flight attempt to infer a recalled scene's per-light
// actions by watching the lights in its room report state.
type learnScene struct {
	expire  time.Time
	missing map[uuid.UUID]bool
	known   map[uuid.UUID]resource.SceneAction
}

// maybeStartLearner begins learning sceneRid's actions if it was recalled
// with no actions yet recorded. A scene that already has actions doesn't
// need relearning.
func (c *Client) maybeStartLearner(sceneRid uuid.UUID) {
	scene, err := store.Get[resource.Scene](c.Store, sceneRid)
	if err != nil || len(scene.Actions) != 0 {
		return
	}
	lights := c.Store.RoomLights(scene.Group.Rid)
	if len(lights) == 0 {
		return
	}

	missing := make(map[uuid.UUID]bool, len(lights))
	for _, l := range lights {
		missing[l] = true
	}
	c.learn[sceneRid] = &learnScene{
		expire:  time.Now().Add(learnWindow),
		missing: missing,
		known:   map[uuid.UUID]resource.SceneAction{},
	}
}

// observeLightUpdate feeds a light's post-update state to every learner
// still waiting on it, committing any learner whose missing set just
// emptied.
func (c *Client) observeLightUpdate(lightRid uuid.UUID, light resource.Light) {
	for sceneRid, ls := range c.learn {
		if !ls.missing[lightRid] {
			continue
		}
		delete(ls.missing, lightRid)
		ls.known[lightRid] = actionFromLight(lightRid, light)

		if len(ls.missing) == 0 {
			c.commitLearnedScene(sceneRid, ls)
			delete(c.learn, sceneRid)
		}
	}
}

// actionFromLight snapshots the fields a recalled scene remembers: on,
// dimming, and color xor color_temperature, preferring color.
func actionFromLight(rid uuid.UUID, l resource.Light) resource.SceneAction {
	on := l.On
	a := resource.SceneAction{
		Target:  resource.NewLink(rid, resource.RTypeLight),
		On:      &on,
		Dimming: l.Dimming,
	}
	switch {
	case l.Color != nil:
		a.Color = l.Color
	case l.ColorTemperature != nil:
		a.ColorTemperature = l.ColorTemperature
	}
	return a
}

func (c *Client) commitLearnedScene(sceneRid uuid.UUID, ls *learnScene) {
	actions := make([]resource.SceneAction, 0, len(ls.known))
	for _, a := range ls.known {
		actions = append(actions, a)
	}
	if err := c.Store.UpdateScene(sceneRid, func(s *resource.Scene) {
		s.Actions = actions
		s.Status = resource.SceneStatusStatic
	}); err != nil {
		log.WithError(err).WithField("scene", sceneRid).Warn("commit learned scene failed")
	}
}

// sweepLearners drops any learner whose window has lapsed, run at the top of
// every outbound dispatch attempt. Lights that never reported keep the
// scene's actions partial (unchanged) rather than blocking forever.
func (c *Client) sweepLearners() {
	now := time.Now()
	for rid, ls := range c.learn {
		if ls.expire.Before(now) {
			log.WithField("scene", rid).Debug("scene learner expired, discarding")
			delete(c.learn, rid)
		}
	}
}
