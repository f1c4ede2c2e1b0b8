package transport

import (
	"context"

	"github.com/looplab/fsm"

	"github.com/GordonDrop/mcpkit/server"
)

// Transport states.
const (
	StateIdle    = "idle"
	StateRunning = "running"
	StateStopped = "stopped"
)

const (
	eventStart = "start"
	eventStop  = "stop"
)

// lifecycle guards the Idle -> Running -> Stopped progression shared by
// all carriers.
type lifecycle struct {
	fsm *fsm.FSM
}

func newLifecycle() *lifecycle {
	return &lifecycle{
		fsm: fsm.NewFSM(StateIdle, fsm.Events{
			{Name: eventStart, Src: []string{StateIdle}, Dst: StateRunning},
			{Name: eventStop, Src: []string{StateIdle, StateRunning}, Dst: StateStopped},
		}, fsm.Callbacks{}),
	}
}

// start moves to Running, failing with a lifecycle violation from any
// other state than Idle.
func (l *lifecycle) start(ctx context.Context, name string) error {
	if err := l.fsm.Event(ctx, eventStart); err != nil {
		return server.NewLifecycleViolation(name+".start", "transport is "+l.fsm.Current())
	}
	return nil
}

// stop moves to Stopped and reports whether this call made the transition.
func (l *lifecycle) stop() bool {
	return l.fsm.Event(context.Background(), eventStop) == nil
}

func (l *lifecycle) current() string {
	return l.fsm.Current()
}
