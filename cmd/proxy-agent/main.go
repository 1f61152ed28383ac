// Command proxy-agent is the proxy-side entrypoint: it constructs a
// dedup session table and blocks until signaled to stop. The scheduler,
// interval parser, record buffer and configuration mirror are not
// constructed here.
// Config loading and daemonization are out of core scope (spec.md
// §1's Non-goals); this binary exists to prove the library wiring,
// not to be a production supervisor.
package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/hashicorp/go-hclog"

	"github.com/fleetwatch/core/server/session"
)

func main() {
	log := hclog.New(&hclog.LoggerOptions{
		Name:  "proxy-agent",
		Level: hclog.Info,
	})

	// The dedup session table is process-wide on whichever side
	// terminates the wire connection; a proxy-agent binary terminates
	// incoming agent/sender connections on the server's behalf, so it
	// owns one too.
	sessions := session.NewTable(log)
	log.Info("proxy-agent started", "sessions", sessions.Len())

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("proxy-agent shutting down")
}
