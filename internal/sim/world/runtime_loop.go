package world

import (
	"context"
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

// EditRequest is a SET_BLOCK from an observer session, applied at the next
// tick boundary.
type EditRequest struct {
	SessionID string
	RequestID string
	Pos       [3]int
	Block     uint8
}

func (w *World) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(w.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	pos := w.observer
	var pendingEdits []EditRequest

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case p := <-w.pose:
			pos = p
		case req := <-w.edits:
			pendingEdits = append(pendingEdits, req)
		case req := <-w.observerJoin:
			w.handleObserverJoin(req)
		case req := <-w.observerSub:
			w.handleObserverSubscribe(req)
		case id := <-w.observerLeave:
			w.handleObserverLeave(id)
		case <-ticker.C:
			w.stepInternal(pos, pendingEdits)
			pendingEdits = pendingEdits[:0]
		}
	}
}

func (w *World) Stop() { close(w.stop) }

// StepOnce advances the world by a single tick using the same ordering
// semantics as the server. It is intended for deterministic replays/tests.
func (w *World) StepOnce(pos mgl64.Vec3, edits []EditRequest) StepResult {
	return w.stepInternal(pos, edits)
}

func (w *World) Pose() chan<- mgl64.Vec3                            { return w.pose }
func (w *World) Edits() chan<- EditRequest                          { return w.edits }
func (w *World) ObserverJoin() chan<- ObserverJoinRequest           { return w.observerJoin }
func (w *World) ObserverSubscribe() chan<- ObserverSubscribeRequest { return w.observerSub }
func (w *World) ObserverLeave() chan<- string                       { return w.observerLeave }

func sendLatest(ch chan []byte, b []byte) {
	select {
	case ch <- b:
		return
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}

func trySend(ch chan []byte, b []byte) bool {
	select {
	case ch <- b:
		return true
	default:
		return false
	}
}
