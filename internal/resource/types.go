package resource

// Resource is the closed tagged union C2 operates over. Each variant is a
// concrete Go struct implementing this interface instead of a Rust-style
// enum; dispatch over variants uses the RType() tag plus a type switch,
// mirroring how the core package this was adapted from picks per-entity
// behavior by concrete struct rather than inheritance (see DESIGN.md:
// "tagged union dispatch").
type Resource interface {
	RType() RType
}

// OnState is the universal on/off actuator field.
type OnState struct {
	On bool `json:"on" yaml:"on"`
}

// Dimming carries a 0..100 percentage brightness.
type Dimming struct {
	Brightness float64 `json:"brightness" yaml:"brightness"`
}

// ColorXY is a CIE 1931 chromaticity coordinate pair.
type ColorXY struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Color carries the xy chromaticity channel.
type Color struct {
	XY ColorXY `json:"xy" yaml:"xy"`
}

// MirekSchema bounds the mirek range a light supports; defaulted when a GW
// state update materializes ColorTemperature for the first time.
type MirekSchema struct {
	MirekMinimum int `json:"mirek_minimum" yaml:"mirek_minimum"`
	MirekMaximum int `json:"mirek_maximum" yaml:"mirek_maximum"`
}

var DefaultMirekSchema = MirekSchema{MirekMinimum: 153, MirekMaximum: 500}

// ColorTemperature carries the mirek channel. Mirek is a pointer so "unset"
// (xy authoritative) is representable distinctly from "set to zero".
type ColorTemperature struct {
	Mirek       *int        `json:"mirek" yaml:"mirek"`
	MirekSchema MirekSchema `json:"mirek_schema" yaml:"mirek_schema"`
}

// ColorMode remembers which color channel was last authoritative.
type ColorMode string

const (
	ColorModeColorTemp ColorMode = "color_temperature"
	ColorModeXY        ColorMode = "xy"
	ColorModeNone      ColorMode = "none"
)

// Bridge is the bootstrap resource representing the bridge itself.
type Bridge struct {
	Owner     Link   `json:"owner" yaml:"owner"`
	BridgeID  string `json:"bridge_id" yaml:"bridge_id"`
	TimeZone  string `json:"time_zone" yaml:"time_zone"`
}

func (Bridge) RType() RType { return RTypeBridge }

// BridgeHome is the bootstrap root grouping every top-level room/zone.
type BridgeHome struct {
	Children []Link `json:"children" yaml:"children"`
	Services []Link `json:"services" yaml:"services"`
}

func (BridgeHome) RType() RType { return RTypeBridgeHome }

// Device owns one or more service links. Invariant: every link in Services
// resolves to a resource whose Owner points back to this device. The code
// that builds a device and its services (GW inventory ingestion, Store.Init)
// keeps this; neither the Store nor this struct checks it.
type Device struct {
	Services     []Link `json:"services" yaml:"services"`
	ProductName  string `json:"product_name" yaml:"product_name"`
	ModelID      string `json:"model_id" yaml:"model_id"`
	SoftwareVer  string `json:"software_version" yaml:"software_version"`
	Name         string `json:"name" yaml:"name"`
}

func (Device) RType() RType { return RTypeDevice }

// Light is the primary actuator resource.
type Light struct {
	Owner            Link              `json:"owner" yaml:"owner"`
	On               OnState           `json:"on" yaml:"on"`
	Dimming          *Dimming          `json:"dimming" yaml:"dimming"`
	Color            *Color            `json:"color" yaml:"color"`
	ColorTemperature *ColorTemperature `json:"color_temperature" yaml:"color_temperature"`
	ColorMode        ColorMode         `json:"color_mode" yaml:"color_mode"`
	Name             string            `json:"name" yaml:"name"`
}

func (Light) RType() RType { return RTypeLight }

// GroupedLight mirrors Light's actuator fields; Owner is the room link.
type GroupedLight struct {
	Owner            Link              `json:"owner" yaml:"owner"`
	On               OnState           `json:"on" yaml:"on"`
	Dimming          *Dimming          `json:"dimming" yaml:"dimming"`
	Color            *Color            `json:"color" yaml:"color"`
	ColorTemperature *ColorTemperature `json:"color_temperature" yaml:"color_temperature"`
}

func (GroupedLight) RType() RType { return RTypeGroupedLight }

// Room carries device children and exactly one GroupedLight service.
type Room struct {
	Children []Link `json:"children" yaml:"children"`
	Services []Link `json:"services" yaml:"services"`
	Name     string `json:"name" yaml:"name"`
}

func (Room) RType() RType { return RTypeRoom }

// Zone is Room's sibling grouping kind; this daemon exposes it with the
// same shape but never originates one from GW inventory (GW has no zone
// concept) — it only exists so v2 clients that create zones get a
// consistent response.
type Zone struct {
	Children []Link `json:"children" yaml:"children"`
	Services []Link `json:"services" yaml:"services"`
	Name     string `json:"name" yaml:"name"`
}

func (Zone) RType() RType { return RTypeZone }

// SceneStatus is the active/inactive/dynamic tri-state of a Scene.
type SceneStatus string

const (
	SceneStatusInactive       SceneStatus = "inactive"
	SceneStatusStatic         SceneStatus = "static"
	SceneStatusDynamicPalette SceneStatus = "dynamic_palette"
)

// SceneAction is one per-light action a scene recall applies.
type SceneAction struct {
	Target           Link              `json:"target" yaml:"target"`
	On               *OnState          `json:"on,omitempty" yaml:"on,omitempty"`
	Dimming          *Dimming          `json:"dimming,omitempty" yaml:"dimming,omitempty"`
	Color            *Color            `json:"color,omitempty" yaml:"color,omitempty"`
	ColorTemperature *ColorTemperature `json:"color_temperature,omitempty" yaml:"color_temperature,omitempty"`
}

// Scene carries an ordered action list learned by observing a GW recall.
// Invariant: at most one scene per Group has Status != Inactive, enforced
// by the Store's recall path.
type Scene struct {
	Group   Link          `json:"group" yaml:"group"`
	Actions []SceneAction `json:"actions" yaml:"actions"`
	Status  SceneStatus   `json:"status" yaml:"status"`
	Name    string        `json:"name" yaml:"name"`
}

func (Scene) RType() RType { return RTypeScene }

// Button is a service resource under a Device; this daemon only echoes its
// last-known event back to clients, it never drives one.
type Button struct {
	Owner     Link   `json:"owner" yaml:"owner"`
	LastEvent string `json:"last_event" yaml:"last_event"`
}

func (Button) RType() RType { return RTypeButton }

// ZigbeeConnectivity mirrors the reachability status GW reports per device.
type ZigbeeConnectivity struct {
	Owner  Link   `json:"owner" yaml:"owner"`
	Status string `json:"status" yaml:"status"`
	MACAddress string `json:"mac_address" yaml:"mac_address"`
}

func (ZigbeeConnectivity) RType() RType { return RTypeZigbeeConnectivity }

// Stub is a generic carrier for the ten resource kinds the real API exposes
// that this daemon only echoes: it stores whatever payload a client POSTed
// and hands it back unchanged. No GW translation ever touches a Stub.
type Stub struct {
	Kind    RType          `json:"-" yaml:"-"`
	Payload map[string]any `json:"payload" yaml:"payload"`
}

func (s Stub) RType() RType { return s.Kind }

// Deletable reports whether a resource kind may be removed via the v2
// DELETE endpoint. Only Scene and Zone are deletable; every other kind,
// Device, Bridge/BridgeHome and all stub kinds included, is fixed for the
// life of the daemon.
func Deletable(rtype RType) bool {
	switch rtype {
	case RTypeScene, RTypeZone:
		return true
	default:
		return false
	}
}
