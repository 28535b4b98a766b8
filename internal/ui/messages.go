package ui

import "github.com/olivier-w/termscope/internal/scheduler"

// frameMsg carries a composed frame to the program.
type frameMsg struct {
	body   string
	status scheduler.Status
	// hasStatus is false until the first status arrives.
	hasStatus bool
}
