package scheduler

import "fmt"

// Outcome classifies how a session ended.
type Outcome int

const (
	OutcomeOK Outcome = iota
	// OutcomeInterrupted means the caller cancelled the session.
	OutcomeInterrupted
	OutcomeInvalid
	OutcomeOpenFailed
	OutcomeDecodeFailed
	OutcomeTerminalUnavailable
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeInterrupted:
		return "interrupted"
	case OutcomeInvalid:
		return "invalid options"
	case OutcomeOpenFailed:
		return "open failed"
	case OutcomeDecodeFailed:
		return "decode failed"
	case OutcomeTerminalUnavailable:
		return "terminal unavailable"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Result summarises a finished session.
type Result struct {
	Outcome Outcome
	Err     error

	// Frames counts presented frames, including repeats.
	Frames   int
	Dropped  int
	Repeated int
	States   []State
}
