// Command core-server is the server-side entrypoint: it constructs the
// admission gate, session table, task queue and wire version gate and
// blocks until signaled to stop. Configuration sync and the validators
// are not constructed here. Config loading and daemonization are out of
// core scope (spec.md §1's Non-goals); this binary exists to prove the
// library wiring, not to be a production supervisor.
package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/hashicorp/go-hclog"

	"github.com/fleetwatch/core/server/admission"
	"github.com/fleetwatch/core/server/session"
	"github.com/fleetwatch/core/server/task"
	"github.com/fleetwatch/core/server/wire"
)

const serverVersion = "1.0.0"

func main() {
	log := hclog.New(&hclog.LoggerOptions{
		Name:  "core-server",
		Level: hclog.Info,
	})

	gate := admission.NewGate(log)
	sessions := session.NewTable(log)
	tasks := task.NewQueue(log)

	versionGate, err := wire.NewVersionGate(serverVersion, log)
	if err != nil {
		log.Error("invalid server version", "error", err)
		os.Exit(1)
	}

	log.Info("core-server started", "sessions", sessions.Len(), "pending_tasks", len(tasks.Pending()))

	// gate and versionGate are consulted per connection by the
	// transport loop, which lives outside core scope (spec.md §1);
	// they're constructed here so that loop has them ready to use.
	_, _ = gate, versionGate

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("core-server shutting down")
}
