package resource

import "testing"

func boolPtr(b bool) *bool       { return &b }
func floatPtr(f float64) *float64 { return &f }
func intPtr(i int) *int          { return &i }

func TestDiffThenApplyRoundTrips(t *testing.T) {
	mirek := 300
	before := Light{On: OnState{On: false}}
	after := Light{
		On:               OnState{On: true},
		Dimming:          &Dimming{Brightness: 80},
		ColorTemperature: &ColorTemperature{Mirek: &mirek, MirekSchema: DefaultMirekSchema},
		ColorMode:        ColorModeColorTemp,
	}

	u := DiffLight(before, after)
	got := before
	ApplyLight(&got, u)

	if got.On.On != after.On.On {
		t.Fatalf("on mismatch: %v vs %v", got.On, after.On)
	}
	if got.Dimming == nil || got.Dimming.Brightness != 80 {
		t.Fatalf("dimming mismatch: %+v", got.Dimming)
	}
	if got.ColorTemperature == nil || got.ColorTemperature.Mirek == nil || *got.ColorTemperature.Mirek != 300 {
		t.Fatalf("mirek mismatch: %+v", got.ColorTemperature)
	}
}

func TestDiffIdentityIsEmpty(t *testing.T) {
	l := Light{On: OnState{On: true}, Dimming: &Dimming{Brightness: 50}}
	u := DiffLight(l, l)
	if !u.IsEmpty() {
		t.Fatalf("expected empty diff for identical lights, got %+v", u)
	}
}

func TestApplyXYClearsMirek(t *testing.T) {
	mirek := 250
	l := Light{ColorTemperature: &ColorTemperature{Mirek: &mirek, MirekSchema: DefaultMirekSchema}, ColorMode: ColorModeColorTemp}
	ApplyLight(&l, LightUpdate{XY: &ColorXY{X: 0.3, Y: 0.3}})

	if l.ColorTemperature.Mirek != nil {
		t.Fatalf("expected mirek cleared after xy set, got %v", *l.ColorTemperature.Mirek)
	}
	if l.ColorMode != ColorModeXY {
		t.Fatalf("expected color_mode xy, got %v", l.ColorMode)
	}
	if l.Color == nil || l.Color.XY.X != 0.3 {
		t.Fatalf("xy not applied: %+v", l.Color)
	}
}

func TestApplyMirekSetsColorTempMode(t *testing.T) {
	l := Light{Color: &Color{XY: ColorXY{X: 0.5, Y: 0.5}}, ColorMode: ColorModeXY}
	m := 200
	ApplyLight(&l, LightUpdate{Mirek: &m})

	if l.ColorMode != ColorModeColorTemp {
		t.Fatalf("expected color_mode color_temperature, got %v", l.ColorMode)
	}
	if l.ColorTemperature == nil || l.ColorTemperature.Mirek == nil || *l.ColorTemperature.Mirek != 200 {
		t.Fatalf("mirek not applied: %+v", l.ColorTemperature)
	}
}

func TestApplyFieldOrderOnDimmingMirekXY(t *testing.T) {
	l := Light{}
	m := 400
	ApplyLight(&l, LightUpdate{On: boolPtr(true), Brightness: floatPtr(42), Mirek: &m, XY: &ColorXY{X: 0.1, Y: 0.2}})

	if !l.On.On {
		t.Fatal("on not applied")
	}
	if l.Dimming == nil || l.Dimming.Brightness != 42 {
		t.Fatal("dimming not applied")
	}
	// xy applied last, so it wins over mirek and clears it.
	if l.ColorTemperature.Mirek != nil {
		t.Fatal("mirek should be cleared when xy also set in the same update")
	}
	if l.ColorMode != ColorModeXY {
		t.Fatalf("expected final color_mode xy, got %v", l.ColorMode)
	}
}

func TestSceneDiffStatusChange(t *testing.T) {
	before := Scene{Status: SceneStatusInactive}
	after := Scene{Status: SceneStatusStatic}
	u := DiffScene(before, after)
	if u.Status == nil || *u.Status != SceneStatusStatic {
		t.Fatalf("expected status diff, got %+v", u)
	}
}
