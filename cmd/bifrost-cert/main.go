// Command bifrost-cert inspects a bridge identity PEM file without running
// the daemon: useful for verifying a deployed bridge's certificate matches
// its advertised MAC before rolling it out.
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"log"

	"bifrost/internal/identity"
)

func main() {
	path := flag.String("path", "bifrost-identity.pem", "identity PEM file to inspect")
	mac := flag.String("mac", "", "MAC address to verify the certificate CN against (optional)")
	flag.Parse()

	var id *identity.Identity
	var err error

	if *mac != "" {
		macBytes, parseErr := parseMac(*mac)
		if parseErr != nil {
			log.Fatalf("parse mac: %v", parseErr)
		}
		id, err = identity.Load(*path, macBytes)
		if err != nil {
			log.Fatalf("identity at %s does not match mac %s: %v", *path, *mac, err)
		}
	} else {
		id, err = identity.Inspect(*path)
		if err != nil {
			log.Fatalf("inspect identity: %v", err)
		}
	}

	fmt.Printf("bridge id:   %s\n", id.BridgeID)
	fmt.Printf("subject:     %s\n", id.Certificate.Subject)
	fmt.Printf("serial:      %x\n", id.Certificate.SerialNumber)
	fmt.Printf("not before:  %s\n", id.Certificate.NotBefore)
	fmt.Printf("not after:   %s\n", id.Certificate.NotAfter)
	fmt.Printf("ski:         %s\n", hex.EncodeToString(id.Certificate.SubjectKeyId))
	fmt.Printf("aki:         %s\n", hex.EncodeToString(id.Certificate.AuthorityKeyId))
}

func parseMac(s string) ([6]byte, error) {
	var out [6]byte
	var b [6]int
	n, err := fmt.Sscanf(s, "%02x:%02x:%02x:%02x:%02x:%02x", &b[0], &b[1], &b[2], &b[3], &b[4], &b[5])
	if err != nil || n != 6 {
		return out, fmt.Errorf("expected aa:bb:cc:dd:ee:ff, got %q", s)
	}
	for i, v := range b {
		out[i] = byte(v)
	}
	return out, nil
}
