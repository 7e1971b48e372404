package eventbus

import (
	"strconv"
	"time"

	"bifrost/internal/resource"
)

// EventKind tags an EventBlock's variant.
type EventKind string

const (
	EventAdd    EventKind = "add"
	EventUpdate EventKind = "update"
	EventDelete EventKind = "delete"
	EventError  EventKind = "error"
)

// EventBlock is the message shape pushed on hue_updates: every add/update/
// delete a Store commit produces, consumed by the HTTP SSE stream.
type EventBlock struct {
	Kind      EventKind       `json:"kind"`
	Link      resource.Link   `json:"link,omitempty"`
	Resource  resource.Resource `json:"resource,omitempty"`
	Update    any             `json:"update,omitempty"`
	Error     string          `json:"error,omitempty"`
	Timestamp time.Time       `json:"-"`
}

// SSEID renders the SSE "id" field as "<unix-timestamp>:0".
func (e EventBlock) SSEID() string {
	return strconv.FormatInt(e.Timestamp.Unix(), 10) + ":0"
}
