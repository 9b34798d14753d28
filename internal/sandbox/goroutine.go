package sandbox

import (
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/li-yechao/aigne-doc-smith-sub000/internal/errors"
)

// GoroutineUnit runs a private validator on its own goroutine. A panic in
// the validator is reported as a unit failure followed by an exit.
//
// Terminate cannot preempt a validator that never returns; the goroutine
// exits once the call completes. Use ProcessUnit when a hard kill is needed.
type GoroutineUnit struct {
	validate ValidateFunc
	in       chan Request
	events   chan Event
	quit     chan struct{}
	once     sync.Once
}

// NewGoroutineUnit starts a unit around validate. validate is only ever
// called from the unit's goroutine.
func NewGoroutineUnit(validate ValidateFunc) *GoroutineUnit {
	u := &GoroutineUnit{
		validate: validate,
		in:       make(chan Request, 1),
		events:   make(chan Event, 2),
		quit:     make(chan struct{}),
	}
	go u.run()
	return u
}

// GoroutineFactory creates goroutine units, each with the validator returned
// by newValidator.
func GoroutineFactory(newValidator func() ValidateFunc) UnitFactory {
	return func(int) (Unit, error) {
		return NewGoroutineUnit(newValidator()), nil
	}
}

func (u *GoroutineUnit) Send(req Request) error {
	select {
	case <-u.quit:
		return errors.NewInfrastructureError(errors.ErrCodeWorkerCrashed, "worker has been terminated", nil)
	default:
	}

	select {
	case u.in <- req:
		return nil
	default:
		return errors.NewInfrastructureError(errors.ErrCodeRuntime, "worker already holds a request", nil)
	}
}

func (u *GoroutineUnit) Events() <-chan Event {
	return u.events
}

func (u *GoroutineUnit) Terminate() error {
	u.once.Do(func() { close(u.quit) })
	return nil
}

func (u *GoroutineUnit) run() {
	defer close(u.events)

	for {
		select {
		case <-u.quit:
			return
		case req := <-u.in:
			err, crash := u.call(req.Content)
			if crash != nil {
				u.emit(Event{Kind: EventError, ID: req.ID, Err: crash})
				u.emit(Event{Kind: EventExit, Err: crash})
				return
			}
			u.emit(Event{Kind: EventResult, ID: req.ID, Err: err})
		}
	}
}

func (u *GoroutineUnit) call(content string) (err, crash error) {
	defer func() {
		if r := recover(); r != nil {
			crash = errors.NewInfrastructureError(errors.ErrCodeRuntime,
				fmt.Sprintf("validator panicked: %v", r), nil).
				WithContext("stack", string(debug.Stack()))
		}
	}()
	return u.validate(content), nil
}

func (u *GoroutineUnit) emit(ev Event) {
	select {
	case u.events <- ev:
	case <-u.quit:
	}
}
