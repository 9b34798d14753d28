package sandbox

import (
	"container/list"
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/li-yechao/aigne-doc-smith-sub000/internal/errors"
	"github.com/li-yechao/aigne-doc-smith-sub000/internal/logging"
)

const (
	DefaultTimeout    = 15 * time.Second
	DefaultQueueLimit = 256
	maxDefaultSize    = 4
)

// Config controls the size and backpressure of a Pool.
type Config struct {
	// Size is the number of units kept alive.
	Size int
	// Timeout bounds a single dispatch. A unit that misses it is killed and
	// replaced.
	Timeout time.Duration
	// QueueLimit bounds the number of requests waiting for a free unit.
	QueueLimit int
}

// DefaultConfig returns a Config sized to the machine.
func DefaultConfig() Config {
	size := runtime.NumCPU()
	if size > maxDefaultSize {
		size = maxDefaultSize
	}
	return Config{
		Size:       size,
		Timeout:    DefaultTimeout,
		QueueLimit: DefaultQueueLimit,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Size <= 0 {
		c.Size = def.Size
	}
	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
	if c.QueueLimit <= 0 {
		c.QueueLimit = def.QueueLimit
	}
	return c
}

type poolState int

const (
	stateUninitialized poolState = iota
	stateActive
	stateShuttingDown
	stateTerminated
)

type workerState int

const (
	workerAvailable workerState = iota
	workerBusy
	workerTerminated
)

type worker struct {
	id      int
	unit    Unit
	state   workerState
	current *request
	stop    chan struct{}
}

// request is owned by the pool until it is settled exactly once.
type request struct {
	id      string
	content string
	result  chan error
	timer   *time.Timer
	elem    *list.Element
	settled bool
}

// Stats is a point-in-time snapshot of a Pool.
type Stats struct {
	PoolSize         int  `json:"pool_size" yaml:"pool_size"`
	TotalWorkers     int  `json:"total_workers" yaml:"total_workers"`
	AvailableWorkers int  `json:"available_workers" yaml:"available_workers"`
	BusyWorkers      int  `json:"busy_workers" yaml:"busy_workers"`
	QueuedRequests   int  `json:"queued_requests" yaml:"queued_requests"`
	ShuttingDown     bool `json:"shutting_down" yaml:"shutting_down"`
}

// Pool dispatches validation requests to a bounded set of units.
type Pool struct {
	cfg     Config
	factory UnitFactory
	logger  logging.Logger

	mu        sync.Mutex
	state     poolState
	workers   []*worker
	available []*worker
	queue     *list.List
	nextID    int
}

// NewPool creates a pool. Units are spawned on Initialize or on the first
// Validate.
func NewPool(cfg Config, factory UnitFactory, logger logging.Logger) *Pool {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Pool{
		cfg:     cfg.withDefaults(),
		factory: factory,
		logger:  logger.WithComponent("sandbox"),
		queue:   list.New(),
	}
}

// Initialize spawns units until the pool holds Size of them. It is safe to
// call more than once.
func (p *Pool) Initialize() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.initializeLocked()
}

func (p *Pool) initializeLocked() error {
	if p.state >= stateShuttingDown {
		return errors.ErrPoolShutdown
	}

	var errs error
	for len(p.workers) < p.cfg.Size {
		w, err := p.spawnLocked()
		if err != nil {
			errs = multierr.Append(errs, err)
			break
		}
		p.available = append(p.available, w)
	}
	p.state = stateActive

	if len(p.workers) == 0 && errs != nil {
		return errs
	}
	if errs != nil {
		p.logger.Warn(context.Background(), errs, "Pool started below its configured size",
			"workers", len(p.workers), "pool_size", p.cfg.Size)
	}
	return nil
}

func (p *Pool) spawnLocked() (*worker, error) {
	p.nextID++
	unit, err := p.factory(p.nextID)
	if err != nil {
		return nil, errors.NewInfrastructureError(errors.ErrCodeWorkerSpawn,
			fmt.Sprintf("failed to start worker %d", p.nextID), err)
	}

	w := &worker{id: p.nextID, unit: unit, stop: make(chan struct{})}
	p.workers = append(p.workers, w)
	go p.watch(w)

	p.logger.Debug(context.Background(), "Worker started", "worker", w.id)
	return w, nil
}

// Validate runs content through a unit and blocks until it replies, times
// out, ctx is done or the pool shuts down. A nil error means the content is
// valid.
func (p *Pool) Validate(ctx context.Context, content string) error {
	req := &request{
		id:      uuid.NewString(),
		content: content,
		result:  make(chan error, 1),
	}

	if err := p.submit(req); err != nil {
		return err
	}

	select {
	case err := <-req.result:
		return err
	case <-ctx.Done():
	}

	p.mu.Lock()
	if req.elem != nil {
		p.queue.Remove(req.elem)
		req.elem = nil
	}
	// An in-flight request keeps its timer so a stuck unit is still replaced.
	if !req.settled {
		req.settled = true
		req.result <- errors.NewInfrastructureError(errors.ErrCodeCancelled,
			"diagram validation cancelled", ctx.Err())
	}
	p.mu.Unlock()

	return <-req.result
}

func (p *Pool) submit(req *request) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state >= stateShuttingDown {
		return errors.ErrPoolShutdown
	}
	if p.state == stateUninitialized {
		if err := p.initializeLocked(); err != nil {
			return err
		}
	}

	if n := len(p.available); n > 0 {
		w := p.available[n-1]
		p.available = p.available[:n-1]
		p.dispatchLocked(w, req)
		return nil
	}

	if p.queue.Len() >= p.cfg.QueueLimit {
		return errors.ErrQueueFull
	}
	req.elem = p.queue.PushBack(req)
	p.growLocked()
	return nil
}

func (p *Pool) dispatchLocked(w *worker, req *request) {
	w.state = workerBusy
	w.current = req
	req.elem = nil
	req.timer = time.AfterFunc(p.cfg.Timeout, func() { p.onTimeout(w, req) })

	if err := w.unit.Send(Request{ID: req.id, Content: req.content}); err != nil {
		p.failLocked(w, err)
	}
}

// drainLocked hands one queued request to each free unit.
func (p *Pool) drainLocked() {
	for p.queue.Len() > 0 && len(p.available) > 0 {
		n := len(p.available)
		w := p.available[n-1]
		p.available = p.available[:n-1]
		req := p.queue.Remove(p.queue.Front()).(*request)
		p.dispatchLocked(w, req)
	}
}

// growLocked spawns replacements for dropped slots while work is waiting.
func (p *Pool) growLocked() {
	for p.queue.Len() > 0 && len(p.available) == 0 && len(p.workers) < p.cfg.Size {
		w, err := p.spawnLocked()
		if err != nil {
			p.logger.Error(context.Background(), err, "Failed to respawn worker")
			if len(p.workers) == 0 {
				p.rejectQueueLocked(err)
			}
			return
		}
		p.available = append(p.available, w)
		p.drainLocked()
	}
}

func (p *Pool) rejectQueueLocked(err error) {
	for e := p.queue.Front(); e != nil; e = p.queue.Front() {
		req := p.queue.Remove(e).(*request)
		req.elem = nil
		p.settleLocked(req, err)
	}
}

func (p *Pool) settleLocked(req *request, err error) {
	if req.settled {
		return
	}
	req.settled = true
	if req.timer != nil {
		req.timer.Stop()
	}
	req.result <- err
}

// retireLocked removes w from every collection. The caller terminates it.
func (p *Pool) retireLocked(w *worker) {
	if w.state == workerTerminated {
		return
	}
	w.state = workerTerminated
	w.current = nil
	close(w.stop)

	for i, x := range p.workers {
		if x == w {
			p.workers = append(p.workers[:i], p.workers[i+1:]...)
			break
		}
	}
	for i, x := range p.available {
		if x == w {
			p.available = append(p.available[:i], p.available[i+1:]...)
			break
		}
	}
}

func (p *Pool) terminateAsync(w *worker) {
	go func() {
		if err := w.unit.Terminate(); err != nil {
			p.logger.Warn(context.Background(), err, "Failed to terminate worker", "worker", w.id)
		}
	}()
}

// watch forwards unit events to the pool until the unit exits or the pool
// retires it.
func (p *Pool) watch(w *worker) {
	events := w.unit.Events()
	for {
		select {
		case <-w.stop:
			return
		case ev, ok := <-events:
			if !ok {
				p.onFailure(w, fmt.Errorf("worker %d stopped without reporting", w.id))
				return
			}
			switch ev.Kind {
			case EventResult:
				p.onResult(w, ev)
			case EventError:
				p.onFailure(w, ev.Err)
			case EventExit:
				err := ev.Err
				if err == nil {
					err = fmt.Errorf("worker %d exited", w.id)
				}
				p.onFailure(w, err)
				return
			}
		}
	}
}

func (p *Pool) onResult(w *worker, ev Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if w.state == workerTerminated {
		return
	}

	req := w.current
	w.current = nil
	if req != nil {
		req.timer.Stop()
		if ev.ID != "" && ev.ID != req.id {
			p.logger.Debug(context.Background(), "Worker replied with a foreign request id",
				"worker", w.id, "expected", req.id, "got", ev.ID)
		}
		p.settleLocked(req, ev.Err)
	}

	w.state = workerAvailable
	p.available = append(p.available, w)
	p.drainLocked()
}

func (p *Pool) onFailure(w *worker, cause error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failLocked(w, cause)
}

// failLocked rejects the unit's request and drops its slot. A replacement is
// spawned only when queued work is waiting.
func (p *Pool) failLocked(w *worker, cause error) {
	if w.state == workerTerminated {
		return
	}

	if req := w.current; req != nil {
		p.settleLocked(req, errors.NewInfrastructureError(errors.ErrCodeWorkerCrashed,
			fmt.Sprintf("worker %d crashed while validating", w.id), cause))
	}
	p.logger.Warn(context.Background(), cause, "Worker failed", "worker", w.id)

	p.retireLocked(w)
	p.terminateAsync(w)

	if p.state == stateActive {
		p.growLocked()
	}
}

func (p *Pool) onTimeout(w *worker, req *request) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if w.current != req || w.state == workerTerminated {
		return
	}

	p.settleLocked(req, errors.NewInfrastructureError(errors.ErrCodeWorkerTimeout,
		fmt.Sprintf("diagram validation timed out after %s", p.cfg.Timeout), nil))
	p.logger.Warn(context.Background(), nil, "Worker timed out, replacing it",
		"worker", w.id, "timeout", p.cfg.Timeout.String())

	p.retireLocked(w)
	p.terminateAsync(w)

	if p.state != stateActive {
		return
	}
	nw, err := p.spawnLocked()
	if err != nil {
		p.logger.Error(context.Background(), err, "Failed to replace timed out worker")
		if len(p.workers) == 0 {
			p.rejectQueueLocked(err)
		}
		return
	}
	p.available = append(p.available, nw)
	p.drainLocked()
}

// Stats returns a snapshot of the pool.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	return Stats{
		PoolSize:         p.cfg.Size,
		TotalWorkers:     len(p.workers),
		AvailableWorkers: len(p.available),
		BusyWorkers:      len(p.workers) - len(p.available),
		QueuedRequests:   p.queue.Len(),
		ShuttingDown:     p.state >= stateShuttingDown,
	}
}

// Shutdown rejects queued and in-flight requests and terminates every unit.
// Termination failures are logged, not returned. The only error is ctx's if
// it ends before every unit has been terminated. Later calls are no-ops and
// the pool never accepts work again.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if p.state >= stateShuttingDown {
		p.mu.Unlock()
		return nil
	}
	p.state = stateShuttingDown

	p.rejectQueueLocked(errors.ErrPoolShutdown)
	units := make([]Unit, 0, len(p.workers))
	for _, w := range append([]*worker(nil), p.workers...) {
		if w.current != nil {
			p.settleLocked(w.current, errors.ErrPoolShutdown)
		}
		units = append(units, w.unit)
		p.retireLocked(w)
	}
	p.workers = nil
	p.available = nil
	p.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		var (
			mu   sync.Mutex
			errs error
			wg   sync.WaitGroup
		)
		for _, u := range units {
			wg.Add(1)
			go func(u Unit) {
				defer wg.Done()
				err := u.Terminate()
				mu.Lock()
				errs = multierr.Append(errs, err)
				mu.Unlock()
			}(u)
		}
		wg.Wait()
		done <- errs
	}()

	select {
	case errs := <-done:
		if errs != nil {
			p.logger.Warn(ctx, errs, "Some workers failed to terminate",
				"failures", len(multierr.Errors(errs)))
		}
	case <-ctx.Done():
		return ctx.Err()
	}

	p.mu.Lock()
	p.state = stateTerminated
	p.mu.Unlock()

	p.logger.Info(ctx, "Worker pool shut down", "workers", len(units))
	return nil
}
