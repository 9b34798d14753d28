package sandbox

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	"github.com/li-yechao/aigne-doc-smith-sub000/internal/errors"
)

// ProcessUnit runs a child process that speaks the protocol implemented by
// Serve over its stdin and stdout. Terminate kills the process.
type ProcessUnit struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	in     chan Request
	events chan Event
	quit   chan struct{}
	exited chan struct{}
	once   sync.Once
}

// StartProcessUnit starts name with args and returns a unit bound to it.
func StartProcessUnit(name string, args ...string) (*ProcessUnit, error) {
	cmd := exec.Command(name, args...)
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, errors.NewInfrastructureError(errors.ErrCodeWorkerSpawn, "failed to open worker stdin", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.NewInfrastructureError(errors.ErrCodeWorkerSpawn, "failed to open worker stdout", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, errors.NewInfrastructureError(errors.ErrCodeWorkerSpawn,
			fmt.Sprintf("failed to start worker %q", name), err)
	}

	u := &ProcessUnit{
		cmd:    cmd,
		stdin:  stdin,
		in:     make(chan Request, 1),
		events: make(chan Event, 2),
		quit:   make(chan struct{}),
		exited: make(chan struct{}),
	}
	go u.write()
	go u.read(stdout)
	return u, nil
}

// ProcessFactory creates process units running name with args.
func ProcessFactory(name string, args ...string) UnitFactory {
	return func(int) (Unit, error) {
		return StartProcessUnit(name, args...)
	}
}

func (u *ProcessUnit) Send(req Request) error {
	select {
	case <-u.exited:
		return errors.NewInfrastructureError(errors.ErrCodeWorkerCrashed, "worker process has exited", nil)
	default:
	}

	select {
	case u.in <- req:
		return nil
	default:
		return errors.NewInfrastructureError(errors.ErrCodeRuntime, "worker already holds a request", nil)
	}
}

func (u *ProcessUnit) Events() <-chan Event {
	return u.events
}

// Terminate kills the process and waits for it to be reaped.
func (u *ProcessUnit) Terminate() error {
	var err error
	u.once.Do(func() {
		close(u.quit)
		_ = u.stdin.Close()
		if kerr := u.cmd.Process.Kill(); kerr != nil && kerr != os.ErrProcessDone {
			err = errors.NewInfrastructureError(errors.ErrCodeRuntime, "failed to kill worker process", kerr)
		}
	})
	<-u.exited
	return err
}

// write forwards requests to the process. A failed write means the process
// is gone; read reports that as an exit.
func (u *ProcessUnit) write() {
	enc := json.NewEncoder(u.stdin)
	for {
		select {
		case <-u.quit:
			return
		case <-u.exited:
			return
		case req := <-u.in:
			if err := enc.Encode(Message{ID: req.ID, Content: req.Content}); err != nil {
				return
			}
		}
	}
}

func (u *ProcessUnit) read(stdout io.Reader) {
	defer close(u.events)
	defer close(u.exited)

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), maxMessageSize)
	for scanner.Scan() {
		var reply Reply
		if err := json.Unmarshal(scanner.Bytes(), &reply); err != nil {
			u.emit(Event{Kind: EventError, Err: errors.NewInfrastructureError(errors.ErrCodeRuntime,
				"worker wrote a malformed reply", err)})
			continue
		}
		u.emit(Event{Kind: EventResult, ID: reply.ID, Err: reply.Err()})
	}

	err := u.cmd.Wait()
	if err == nil {
		err = fmt.Errorf("worker process exited")
	}
	u.emit(Event{Kind: EventExit, Err: errors.NewInfrastructureError(errors.ErrCodeWorkerCrashed,
		"worker process exited", err)})
}

func (u *ProcessUnit) emit(ev Event) {
	select {
	case u.events <- ev:
	case <-u.quit:
	}
}
