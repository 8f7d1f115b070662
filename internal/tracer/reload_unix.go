//go:build !windows

package tracer

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// signalReloadLoop funnels SIGHUP into the serial dispatch loop's reload
// transition, per spec.md §4.8.
func (s *Supervisor) signalReloadLoop(ctx context.Context) {
	defer s.wg.Done()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGHUP)
	defer signal.Stop(sigc)

	for {
		select {
		case <-ctx.Done():
			return
		case <-sigc:
			s.run(s.reload)
		}
	}
}
