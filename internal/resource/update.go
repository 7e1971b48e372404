package resource

import "reflect"

// Update is a struct of optional fields: a nil pointer means "unchanged",
// a non-nil pointer means "set to this value". apply/diff are implemented
// per concrete type below rather than through a generic interface, since
// each variant's semantics (mirek/xy exclusivity, scene single-active
// invariant) differ enough that a shared Update type would just be a bag
// of every field with most of them always nil.

// LightUpdate is the update record for Light and GroupedLight (whose
// actuator fields are identical). Diff order is on, dimming, mirek, xy;
// apply clears mirek whenever xy is set.
type LightUpdate struct {
	On         *bool
	Brightness *float64
	Mirek      *int
	XY         *ColorXY
}

func (u LightUpdate) IsEmpty() bool {
	return u.On == nil && u.Brightness == nil && u.Mirek == nil && u.XY == nil
}

// ApplyLight mutates l in place per u, in the fixed field order the spec
// prescribes, and restores the color_mode/mirek-clearing invariants.
func ApplyLight(l *Light, u LightUpdate) {
	if u.On != nil {
		l.On.On = *u.On
	}
	if u.Brightness != nil {
		if l.Dimming == nil {
			l.Dimming = &Dimming{}
		}
		l.Dimming.Brightness = *u.Brightness
	}
	if u.Mirek != nil {
		if l.ColorTemperature == nil {
			schema := DefaultMirekSchema
			l.ColorTemperature = &ColorTemperature{MirekSchema: schema}
		}
		m := *u.Mirek
		l.ColorTemperature.Mirek = &m
		l.ColorMode = ColorModeColorTemp
	}
	if u.XY != nil {
		if l.Color == nil {
			l.Color = &Color{}
		}
		l.Color.XY = *u.XY
		if l.ColorTemperature != nil {
			l.ColorTemperature.Mirek = nil
		}
		l.ColorMode = ColorModeXY
	}
}

// ApplyGroupedLight is ApplyLight's counterpart for GroupedLight, which has
// the same actuator fields but no ColorMode of its own (mirrors whichever
// member light most recently reported).
func ApplyGroupedLight(g *GroupedLight, u LightUpdate) {
	if u.On != nil {
		g.On.On = *u.On
	}
	if u.Brightness != nil {
		if g.Dimming == nil {
			g.Dimming = &Dimming{}
		}
		g.Dimming.Brightness = *u.Brightness
	}
	if u.Mirek != nil {
		if g.ColorTemperature == nil {
			g.ColorTemperature = &ColorTemperature{MirekSchema: DefaultMirekSchema}
		}
		m := *u.Mirek
		g.ColorTemperature.Mirek = &m
	}
	if u.XY != nil {
		if g.Color == nil {
			g.Color = &Color{}
		}
		g.Color.XY = *u.XY
		if g.ColorTemperature != nil {
			g.ColorTemperature.Mirek = nil
		}
	}
}

func mirekOf(ct *ColorTemperature) *int {
	if ct == nil {
		return nil
	}
	return ct.Mirek
}

func mirekEqual(a, b *ColorTemperature) bool {
	am, bm := mirekOf(a), mirekOf(b)
	if (am == nil) != (bm == nil) {
		return false
	}
	return am == nil || *am == *bm
}

func xyOf(c *Color) (ColorXY, bool) {
	if c == nil {
		return ColorXY{}, false
	}
	return c.XY, true
}

func xyEqual(a, b *Color) bool {
	av, aok := xyOf(a)
	bv, bok := xyOf(b)
	if aok != bok {
		return false
	}
	return !aok || av == bv
}

func dimmingEqual(a, b *Dimming) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	return a == nil || a.Brightness == b.Brightness
}

// DiffLight computes the minimum LightUpdate that turns before into after.
// Scalar fields are present iff unequal; color_temperature uses mirek-only
// equality: a light with xy set has mirek=None, so a
// before/after pair that both have xy set and nil mirek diffs as equal on
// that channel even if their xy values differ — the xy comparison below
// covers that case separately).
func DiffLight(before, after Light) LightUpdate {
	var u LightUpdate
	if before.On.On != after.On.On {
		on := after.On.On
		u.On = &on
	}
	if !dimmingEqual(before.Dimming, after.Dimming) && after.Dimming != nil {
		b := after.Dimming.Brightness
		u.Brightness = &b
	}
	if !mirekEqual(before.ColorTemperature, after.ColorTemperature) {
		m := mirekOf(after.ColorTemperature)
		if m != nil {
			v := *m
			u.Mirek = &v
		}
	}
	if !xyEqual(before.Color, after.Color) {
		xy, ok := xyOf(after.Color)
		if ok {
			v := xy
			u.XY = &v
		}
	}
	return u
}

// DiffGroupedLight mirrors DiffLight for GroupedLight.
func DiffGroupedLight(before, after GroupedLight) LightUpdate {
	return DiffLight(
		Light{On: before.On, Dimming: before.Dimming, Color: before.Color, ColorTemperature: before.ColorTemperature},
		Light{On: after.On, Dimming: after.Dimming, Color: after.Color, ColorTemperature: after.ColorTemperature},
	)
}

// SceneUpdate is the update record for Scene: metadata rename, a recall
// request, and the learner's eventual action-list write.
type SceneUpdate struct {
	Name    *string
	Status  *SceneStatus
	Actions *[]SceneAction
}

func (u SceneUpdate) IsEmpty() bool {
	return u.Name == nil && u.Status == nil && u.Actions == nil
}

// ApplySceneUpdate mutates s in place per u.
func ApplySceneUpdate(s *Scene, u SceneUpdate) {
	if u.Name != nil {
		s.Name = *u.Name
	}
	if u.Status != nil {
		s.Status = *u.Status
	}
	if u.Actions != nil {
		s.Actions = *u.Actions
	}
}

// DiffScene produces the update that would turn before into after, used
// only for event fan-out (status/name changes the learner or an HTTP PUT
// introduces).
func DiffScene(before, after Scene) SceneUpdate {
	var u SceneUpdate
	if before.Name != after.Name {
		n := after.Name
		u.Name = &n
	}
	if before.Status != after.Status {
		s := after.Status
		u.Status = &s
	}
	if len(before.Actions) != len(after.Actions) || !actionsEqual(before.Actions, after.Actions) {
		a := after.Actions
		u.Actions = &a
	}
	return u
}

func actionsEqual(a, b []SceneAction) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !reflect.DeepEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}
