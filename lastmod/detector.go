// Package lastmod detects remote changes to a bucket without listing it.
// Every mutation to the bucket advances a logical clock (a millisecond
// timestamp kept as an opaque string); the detector mirrors that value
// locally and polls the remote one, notifying observers on drift.
package lastmod

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/guildrec/go-vodutils/transfer/gateway"
)

// RemoteClock is the authority-side clock storage, implemented by
// gateway.Client. LastModified reports gateway.ErrClockNotSet while the
// bucket has never been mutated.
type RemoteClock interface {
	LastModified() (string, error)
	SetLastModified(value string) error
}

// InitializationError means the clock bootstrap failed for a reason other
// than "no clock value exists yet".
type InitializationError struct {
	Err error
}

func (e *InitializationError) Error() string {
	return fmt.Sprintf("last-modified bootstrap failed: %s", e.Err)
}

func (e *InitializationError) Unwrap() error {
	return e.Err
}

// Detector owns one bucket's cached clock value and the polling loop that
// compares it against the remote one. Detectors are independent: construct
// one per bucket. All methods are safe for concurrent use; the cache is a
// plain last-writer-wins value, acceptable because the clock only moves
// forward and staleness self-corrects on the next tick.
type Detector struct {
	clock  RemoteClock
	logger log.Logger

	mu        sync.Mutex
	cached    string
	observers []func()
	stop      chan struct{}

	nowMillis func() int64
}

// New ...
func New(clock RemoteClock, logger log.Logger) *Detector {
	return &Detector{
		clock:     clock,
		logger:    logger,
		nowMillis: func() int64 { return time.Now().UnixMilli() },
	}
}

// Init adopts the remote clock value as the cache. A bucket with no clock yet
// gets one created by advancing; any other failure is an
// InitializationError, and the detector must not be used uninitialized.
func (d *Detector) Init() error {
	value, err := d.clock.LastModified()
	if errors.Is(err, gateway.ErrClockNotSet) {
		if err := d.Advance(); err != nil {
			return &InitializationError{Err: err}
		}
		return nil
	}
	if err != nil {
		return &InitializationError{Err: err}
	}

	d.setCached(value)
	return nil
}

// Subscribe registers an observer called once per detected remote change.
// Observers run on the polling goroutine and should return quickly.
func (d *Detector) Subscribe(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.observers = append(d.observers, fn)
}

// StartPolling cancels any previous polling activity, then checks the remote
// clock every interval. Ticks never overlap: a slow fetch delays the next
// tick instead of running concurrently with it. A failed fetch is logged and
// retried on the next tick; polling never stops because of one bad response.
func (d *Detector) StartPolling(interval time.Duration) {
	d.mu.Lock()
	if d.stop != nil {
		close(d.stop)
	}
	stop := make(chan struct{})
	d.stop = stop
	d.mu.Unlock()

	go d.loop(interval, stop)
}

// StopPolling cancels the polling loop. Calling it with nothing running is a
// no-op.
func (d *Detector) StopPolling() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stop != nil {
		close(d.stop)
		d.stop = nil
	}
}

// Advance issues a clock value strictly greater than any this process issued
// before, adopts it locally, then pushes it to the remote authority. The
// local cache is updated before the push: if the push fails, local and remote
// diverge until the next successful mutation. Callers treat that as a logged
// warning, not a transfer failure.
func (d *Detector) Advance() error {
	d.mu.Lock()
	now := d.nowMillis()
	if prev, err := strconv.ParseInt(d.cached, 10, 64); err == nil && now <= prev {
		now = prev + 1
	}
	value := strconv.FormatInt(now, 10)
	d.cached = value
	d.mu.Unlock()

	if err := d.clock.SetLastModified(value); err != nil {
		return fmt.Errorf("push last-modified: %w", err)
	}
	return nil
}

// Cached returns the locally cached clock value.
func (d *Detector) Cached() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cached
}

func (d *Detector) setCached(value string) {
	d.mu.Lock()
	d.cached = value
	d.mu.Unlock()
}

func (d *Detector) loop(interval time.Duration, stop chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			d.tick()
		}
	}
}

func (d *Detector) tick() {
	value, err := d.clock.LastModified()
	if err != nil {
		d.logger.Debugf("last-modified poll failed, retrying on next tick: %s", err)
		return
	}

	d.mu.Lock()
	changed := value != d.cached
	if changed {
		d.cached = value
	}
	observers := make([]func(), len(d.observers))
	copy(observers, d.observers)
	d.mu.Unlock()

	if !changed {
		return
	}
	d.logger.Debugf("remote bucket changed, last-modified is now %s", value)
	for _, fn := range observers {
		fn()
	}
}
