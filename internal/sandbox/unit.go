// Package sandbox runs diagram validation inside a bounded pool of isolated
// execution units.
//
// A unit wraps one private copy of a validator that is unsafe to share, either
// a goroutine that owns its own parser or a child process speaking the
// JSON-lines protocol implemented by Serve. The Pool hands each unit at most
// one request at a time, queues the rest in FIFO order and arms a timer per
// dispatch. Failures of the isolation machinery are reported as
// infrastructure errors so callers can tell them apart from genuine syntax
// errors returned by the validator.
package sandbox

import (
	"github.com/li-yechao/aigne-doc-smith-sub000/internal/mermaid"
)

// Request is one unit of work handed to a Unit.
type Request struct {
	ID      string
	Content string
}

// EventKind classifies an Event emitted by a Unit.
type EventKind int

const (
	// EventResult carries the outcome of the outstanding request. A nil Err
	// means the content is valid.
	EventResult EventKind = iota
	// EventError reports a failure of the unit itself. The unit is unusable
	// afterwards.
	EventError
	// EventExit reports that the unit's runtime has stopped.
	EventExit
)

func (k EventKind) String() string {
	switch k {
	case EventResult:
		return "result"
	case EventError:
		return "error"
	case EventExit:
		return "exit"
	default:
		return "unknown"
	}
}

// Event is emitted by a Unit on its Events channel.
type Event struct {
	Kind EventKind
	ID   string
	Err  error
}

// Unit is one isolated execution unit. Implementations must not block in
// Send and must emit exactly one EventResult per request unless they fail.
type Unit interface {
	Send(req Request) error
	Events() <-chan Event
	Terminate() error
}

// UnitFactory creates the unit for slot id.
type UnitFactory func(id int) (Unit, error)

// ValidateFunc checks one diagram. It returns nil when content is valid.
type ValidateFunc func(content string) error

// MermaidValidator returns a ValidateFunc backed by a private mermaid.Parser.
// The returned function must only be used by one goroutine.
func MermaidValidator() ValidateFunc {
	p := mermaid.NewParser()
	return func(content string) error {
		_, err := p.Parse(content)
		return err
	}
}
