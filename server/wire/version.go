package wire

import (
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"
	goversion "github.com/hashicorp/go-version"

	"github.com/fleetwatch/core/api"
	"github.com/fleetwatch/core/helper"
)

// VersionGate runs the version handshake (spec.md §4.8): a proxy
// reporting a version greater than the server's own is forward
// incompatible and rejected; equal or lower versions are accepted. A
// mismatch either way still logs a warning, rate-limited to once per
// five minutes per gate.
type VersionGate struct {
	server  *goversion.Version
	limiter *helper.RateLimiter
	log     hclog.Logger
}

// NewVersionGate builds a gate against serverVersion (e.g. "6.4.2").
func NewVersionGate(serverVersion string, log hclog.Logger) (*VersionGate, error) {
	v, err := goversion.NewVersion(serverVersion)
	if err != nil {
		return nil, fmt.Errorf("server version %q: %w", serverVersion, err)
	}
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &VersionGate{
		server:  v,
		limiter: helper.NewRateLimiter(5 * time.Minute),
		log:     log.Named("wire.version"),
	}, nil
}

// Check validates proxyVersion against the server's version at now.
// It returns api.ErrProtocol-wrapped when the proxy is strictly newer.
func (g *VersionGate) Check(proxyVersion string, now helper.Timestamp) error {
	pv, err := goversion.NewVersion(proxyVersion)
	if err != nil {
		return fmt.Errorf("%w: malformed proxy version %q", api.ErrProtocol, proxyVersion)
	}

	if !pv.Equal(g.server) {
		if g.limiter.Allow(now) {
			g.log.Warn("proxy version differs from server version", "proxy_version", proxyVersion, "server_version", g.server.String())
		}
	}

	if pv.GreaterThan(g.server) {
		return fmt.Errorf("%w: proxy version %s is newer than server version %s", api.ErrProtocol, proxyVersion, g.server.String())
	}
	return nil
}
