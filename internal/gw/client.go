// Package gw implements C5: one long-lived task per configured upstream,
// translating between the GW WebSocket JSON protocol and the resource
// Store's typed-update discipline.
//
// Grounded on core/blockchain_synchronization.go's SyncManager.loop: a
// for{select{}} loop that retries its fallible step on error with a fixed
// time.Sleep and keeps going until its quit channel or context fires,
// generalized from a fixed-interval resync poll to a WebSocket dial/
// read/write event loop, and wired onto gorilla/websocket, which is
// declared as an indirect dependency (pulled in by the libp2p transport
// stack) but never exercised directly elsewhere.
package gw

import (
	"context"
	"time"

	"bifrost/internal/berr"
	"bifrost/internal/store"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "gw")

const (
	redialDelay = 2 * time.Second
	writePacing = 100 * time.Millisecond
	learnWindow = 5 * time.Second
)

// Client owns one upstream connection's full lifecycle: dial/reconnect,
// inventory ingestion, inbound/outbound translation, and the scene learner.
// Every field below is touched only from the goroutine running RunForever,
// so none of it needs its own lock.
type Client struct {
	Name    string
	ConnURL string
	Store   *store.Store

	topicToRid map[string]uuid.UUID
	learn      map[uuid.UUID]*learnScene
}

func New(name, connURL string, s *store.Store) *Client {
	return &Client{
		Name:       name,
		ConnURL:    connURL,
		Store:      s,
		topicToRid: map[string]uuid.UUID{},
		learn:      map[uuid.UUID]*learnScene{},
	}
}

// RunForever dials, runs the event loop to exhaustion, and redials after a
// fixed delay on any error or clean close, until ctx is cancelled. There is
// no backoff escalation: the upstream is expected to be on-LAN.
func (c *Client) RunForever(ctx context.Context) {
	for ctx.Err() == nil {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.ConnURL, nil)
		if err != nil {
			log.WithField("upstream", c.Name).WithError(err).Warn("dial failed")
			if !sleepOrDone(ctx, redialDelay) {
				return
			}
			continue
		}

		if err := c.eventLoop(ctx, conn); err != nil {
			log.WithField("upstream", c.Name).WithError(err).Warn("event loop ended, reconnecting")
		}
		conn.Close()

		if !sleepOrDone(ctx, redialDelay) {
			return
		}
	}
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

type frame struct {
	data []byte
	err  error
}

// eventLoop runs until the connection breaks or ctx is cancelled. Inbound
// frames are read on a dedicated goroutine so the select can also service
// the outbound request subscription and exit promptly on ctx.Done.
func (c *Client) eventLoop(ctx context.Context, conn *websocket.Conn) error {
	sub, unsub := c.Store.Z2MUpdates.Subscribe()
	defer unsub()

	inbound := make(chan frame, 1)
	go func() {
		for {
			mt, data, err := conn.ReadMessage()
			if err != nil {
				inbound <- frame{err: err}
				return
			}
			if mt != websocket.TextMessage {
				inbound <- frame{err: &berr.UnexpectedGWReply{Preview: "<non-text frame>"}}
				return
			}
			inbound <- frame{data: data}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case f := <-inbound:
			if f.err != nil {
				return f.err
			}
			if err := c.handleInbound(f.data); err != nil {
				return err
			}

		case req := <-sub:
			c.sweepLearners()
			if c.dispatchOutbound(conn, req) {
				time.Sleep(writePacing)
			}
		}
	}
}

func preview(data []byte) string {
	if len(data) > 128 {
		return string(data[:128])
	}
	return string(data)
}
