//go:build windows

package tracer

import "context"

// signalReloadLoop has no POSIX signal to listen for on Windows; the
// reload-flag-file poll (reloadFlagPollLoop) replaces it, per spec.md
// §4.8. This stub exists only so Start's platform branch compiles.
func (s *Supervisor) signalReloadLoop(ctx context.Context) {
	defer s.wg.Done()
	<-ctx.Done()
}
