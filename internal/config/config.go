// Package config is the daemon's non-core shell: cobra flag parsing plus an
// optional .env overlay for local/dev knobs, exactly the ambient surface
// spec.md §6 puts out of scope for the core but still requires for a
// runnable binary.
//
// Grounded on cmd/synnergy/main.go's cobra.Command construction and
// walletserver/config/config.go's godotenv-then-os.Getenv shape, merged
// into one flag-and-env surface instead of two separate mechanisms.
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// GWUpstream names one configured GW WebSocket endpoint this daemon
// maintains a reconnecting client for.
type GWUpstream struct {
	Name string
	URL  string
}

// Config is everything main.go needs to wire the daemon together.
type Config struct {
	Name         string
	Mac          [6]byte
	IP           net.IP
	HTTPPort     int
	HTTPSPort    int
	StateFile    string
	IdentityFile string
	GWUpstreams  []GWUpstream
}

// ParseMac parses a colon- or dash-separated MAC address string.
func ParseMac(s string) ([6]byte, error) {
	var out [6]byte
	hw, err := net.ParseMAC(s)
	if err != nil {
		return out, fmt.Errorf("parse mac %q: %w", s, err)
	}
	if len(hw) != 6 {
		return out, fmt.Errorf("mac %q is not 6 bytes", s)
	}
	copy(out[:], hw)
	return out, nil
}

// parseUpstreams parses "name=url,name=url" into a GWUpstream slice.
func parseUpstreams(s string) ([]GWUpstream, error) {
	if s == "" {
		return nil, nil
	}
	var out []GWUpstream
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		nameURL := strings.SplitN(part, "=", 2)
		if len(nameURL) != 2 {
			return nil, fmt.Errorf("malformed gw upstream %q, want name=url", part)
		}
		out = append(out, GWUpstream{Name: nameURL[0], URL: nameURL[1]})
	}
	return out, nil
}

// loadDotenv overlays a .env file onto the process environment if one
// exists at path; a missing file is not an error, since .env is a purely
// optional local/dev convenience.
func loadDotenv(path string) {
	if _, err := os.Stat(path); err != nil {
		return
	}
	if err := godotenv.Load(path); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// NewRootCommand builds the cobra root command: flags for --name, --mac,
// --ip, --http-port, --https-port, --state-file, --identity-file,
// --gw-upstreams, and an --env-file overlay loaded before flags resolve.
// run is invoked once flags and the .env overlay have produced a Config.
func NewRootCommand(run func(*Config) error) *cobra.Command {
	var (
		envFile      string
		name         string
		macStr       string
		ipStr        string
		httpPort     int
		httpsPort    int
		stateFile    string
		identityFile string
		gwUpstreams  string
	)

	cmd := &cobra.Command{
		Use:   "bifrost",
		Short: "impersonates a Hue v2 bridge in front of a GW lighting gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			loadDotenv(envFile)

			mac, err := ParseMac(envOr("BIFROST_MAC", macStr))
			if err != nil {
				return err
			}
			ip := net.ParseIP(envOr("BIFROST_IP", ipStr))
			if ip == nil {
				return fmt.Errorf("invalid --ip value %q", ipStr)
			}
			upstreams, err := parseUpstreams(envOr("BIFROST_GW_UPSTREAMS", gwUpstreams))
			if err != nil {
				return err
			}

			cfg := &Config{
				Name:         envOr("BIFROST_NAME", name),
				Mac:          mac,
				IP:           ip,
				HTTPPort:     intEnvOr("BIFROST_HTTP_PORT", httpPort),
				HTTPSPort:    intEnvOr("BIFROST_HTTPS_PORT", httpsPort),
				StateFile:    envOr("BIFROST_STATE_FILE", stateFile),
				IdentityFile: envOr("BIFROST_IDENTITY_FILE", identityFile),
				GWUpstreams:  upstreams,
			}
			return run(cfg)
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", ".env", "optional .env overlay loaded before flags resolve")
	cmd.Flags().StringVar(&name, "name", "bifrost", "bridge name advertised to clients")
	cmd.Flags().StringVar(&macStr, "mac", "", "bridge MAC address (required)")
	cmd.Flags().StringVar(&ipStr, "ip", "", "bridge IP address (required; validated only, the mDNS registration does not use it)")
	cmd.Flags().IntVar(&httpPort, "http-port", 80, "plain HTTP listen port")
	cmd.Flags().IntVar(&httpsPort, "https-port", 443, "TLS listen port")
	cmd.Flags().StringVar(&stateFile, "state-file", "bifrost-state.yaml", "path to the persisted resource graph")
	cmd.Flags().StringVar(&identityFile, "identity-file", "bifrost-identity.pem", "path to the bridge's key/certificate PEM")
	cmd.Flags().StringVar(&gwUpstreams, "gw-upstreams", "", "comma-separated name=url pairs of GW WebSocket endpoints")

	return cmd
}

func intEnvOr(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
