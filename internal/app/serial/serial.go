// Package serial runs commands for the same user one at a time.
//
// A consistent hash ring assigns every user id to one of N lanes. Each lane
// is a single goroutine draining a queue, so two commands for one user never
// overlap while commands for different users proceed in parallel. An
// optional Locker extends the guarantee across processes.
package serial

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/takax-network/takax/internal/infra/dsa"
	"github.com/takax-network/takax/internal/infra/observability"
)

// ErrClosed is returned by Do after Close.
var ErrClosed = errors.New("serializer closed")

// Locker holds a cross-process lock for a key while a command runs.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// Config configures the lane dispatcher.
type Config struct {
	Lanes      int // default 16
	QueueDepth int // per-lane buffer (default 64)
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{Lanes: 16, QueueDepth: 64}
}

type command struct {
	ctx      context.Context
	key      string
	fn       func(ctx context.Context) error
	done     chan error
	enqueued time.Time
}

// Dispatcher owns the lanes.
type Dispatcher struct {
	ring   *dsa.HashRing
	lanes  []chan command
	locker Locker
	log    *logrus.Entry

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// New starts a dispatcher. locker may be nil for single-process deployments.
func New(cfg Config, locker Locker, log *logrus.Entry) *Dispatcher {
	def := DefaultConfig()
	if cfg.Lanes <= 0 {
		cfg.Lanes = def.Lanes
	}
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = def.QueueDepth
	}

	d := &Dispatcher{
		ring:   dsa.NewLaneRing(cfg.Lanes, dsa.DefaultHashRingConfig()),
		lanes:  make([]chan command, cfg.Lanes),
		locker: locker,
		log:    log,
	}
	for i := range d.lanes {
		d.lanes[i] = make(chan command, cfg.QueueDepth)
		d.wg.Add(1)
		go d.run(i, d.lanes[i])
	}
	return d
}

// Do runs fn after every command queued earlier for key has finished, and
// returns fn's error. It gives up with ctx.Err() if ctx ends first.
func (d *Dispatcher) Do(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	cmd := command{ctx: ctx, key: key, fn: fn, done: make(chan error, 1), enqueued: time.Now()}

	d.mu.RLock()
	if d.closed {
		d.mu.RUnlock()
		return ErrClosed
	}
	lane := d.lanes[d.ring.Lookup(key)]
	select {
	case lane <- cmd:
		d.mu.RUnlock()
	case <-ctx.Done():
		d.mu.RUnlock()
		return ctx.Err()
	}

	select {
	case err := <-cmd.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting commands and waits for queued ones to finish.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, l := range d.lanes {
		close(l)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) run(id int, queue <-chan command) {
	defer d.wg.Done()
	for cmd := range queue {
		observability.LaneWait.Observe(time.Since(cmd.enqueued).Seconds())
		if err := cmd.ctx.Err(); err != nil {
			cmd.done <- err
			continue
		}
		cmd.done <- d.exec(id, cmd)
	}
}

func (d *Dispatcher) exec(id int, cmd command) (err error) {
	defer func() {
		if r := recover(); r != nil {
			d.log.WithFields(logrus.Fields{"lane": id, "key": cmd.key}).Errorf("command panicked: %v", r)
			err = fmt.Errorf("command for %s panicked: %v", cmd.key, r)
		}
	}()

	if d.locker != nil {
		unlock, err := d.locker.Lock(cmd.ctx, cmd.key)
		if err != nil {
			return fmt.Errorf("lock %s: %w", cmd.key, err)
		}
		defer unlock()
	}
	return cmd.fn(cmd.ctx)
}
