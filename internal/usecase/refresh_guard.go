package usecase

import "sync/atomic"

// RefreshGuard admits one refresh cycle at a time. Callers use
//
//	if !g.TryStart() { return }
//	defer g.Finish()
type RefreshGuard struct {
	running atomic.Bool
}

func (g *RefreshGuard) TryStart() bool { return g.running.CompareAndSwap(false, true) }

func (g *RefreshGuard) Finish() { g.running.Store(false) }

func (g *RefreshGuard) Running() bool { return g.running.Load() }
