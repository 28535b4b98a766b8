package scheduler

import (
	"fmt"
	"strings"
)

// State is a phase of a session. Each state is entered at most once, in
// declaration order.
type State int

const (
	StateStarting State = iota
	StateRunning
	StateDraining
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateStopped:
		return "stopped"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Pacing decides what happens to ticks that fall due while a slow frame is
// still being drawn.
type Pacing int

const (
	// PacingDrop skips missed ticks and counts them.
	PacingDrop Pacing = iota
	// PacingQueue renders every tick, back to back when late.
	PacingQueue
)

func (p Pacing) String() string {
	if p == PacingQueue {
		return "queue"
	}
	return "drop"
}

// ParsePacing accepts "drop" or "queue".
func ParsePacing(s string) (Pacing, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "drop":
		return PacingDrop, nil
	case "queue":
		return PacingQueue, nil
	}
	return 0, fmt.Errorf("unknown pacing %q (want drop or queue)", s)
}
