// Package mdns advertises the daemon on the local network as
// "_hue._tcp.local.", the discovery mechanism real Hue apps use to find a
// bridge without a pre-configured address.
//
// Grounded on the registration shape in original_source/src/mdns.rs
// (instance name derived from the MAC, a fixed service type and port, two
// TXT properties), ported onto github.com/libp2p/zeroconf/v2, which the
// teacher pulls in transitively through its libp2p discovery stack but
// never calls directly.
package mdns

import (
	"fmt"

	"github.com/libp2p/zeroconf/v2"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "mdns")

const serviceType = "_hue._tcp"

// InstanceName renders "bifrost-<mac hex>", matching the original's naming.
func InstanceName(mac [6]byte) string {
	return fmt.Sprintf("bifrost-%02x%02x%02x%02x%02x%02x", mac[0], mac[1], mac[2], mac[3], mac[4], mac[5])
}

// Register advertises the bridge on port and returns the running server;
// the caller shuts it down on process exit.
func Register(mac [6]byte, bridgeID string, port int) (*zeroconf.Server, error) {
	instance := InstanceName(mac)
	txt := []string{
		"modelid=BSB002",
		"bridgeid=" + bridgeID,
	}

	server, err := zeroconf.Register(instance, serviceType, "local.", port, txt, nil)
	if err != nil {
		return nil, fmt.Errorf("register mdns service: %w", err)
	}
	log.WithFields(logrus.Fields{"instance": instance, "port": port}).Info("registered mdns service")
	return server, nil
}
