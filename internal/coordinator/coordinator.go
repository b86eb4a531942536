package coordinator

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// DefaultInterval is the polling interval when none is given.
const DefaultInterval = 30 * time.Minute

// Logger is the logging surface used by the coordinator.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// FetchFunc retrieves fresh data.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// RefreshResult describes one completed refresh, for observers.
type RefreshResult struct {
	Name     string
	Duration time.Duration
	Err      error
}

// Coordinator owns the latest fetched value of type T.
//
// Thread Safety: All methods are safe for concurrent use. Refreshes are
// serialised; listeners run on the refreshing goroutine with no lock held.
type Coordinator[T any] struct {
	name     string
	interval time.Duration
	fetch    FetchFunc[T]
	logger   Logger
	observer func(RefreshResult)

	refreshMu sync.Mutex

	mu          sync.RWMutex
	data        T
	hasData     bool
	lastSuccess bool
	lastErr     error
	lastUpdate  time.Time

	listenersMu sync.Mutex
	listeners   map[int]func()
	nextID      int

	done      chan struct{}
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
}

// New creates a coordinator. interval <= 0 selects DefaultInterval.
func New[T any](name string, interval time.Duration, fetch func(ctx context.Context) (T, error)) *Coordinator[T] {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Coordinator[T]{
		name:      name,
		interval:  interval,
		fetch:     fetch,
		logger:    noopLogger{},
		listeners: make(map[int]func()),
		done:      make(chan struct{}),
	}
}

// SetLogger sets the logger for the coordinator.
func (c *Coordinator[T]) SetLogger(logger Logger) {
	c.logger = logger
}

// SetObserver registers fn to receive the outcome of every refresh.
// Call before Start.
func (c *Coordinator[T]) SetObserver(fn func(RefreshResult)) {
	c.observer = fn
}

// Name returns the coordinator name.
func (c *Coordinator[T]) Name() string {
	return c.name
}

// Interval returns the polling interval.
func (c *Coordinator[T]) Interval() time.Duration {
	return c.interval
}

// Data returns the latest successfully fetched value. ok is false until the
// first successful refresh.
func (c *Coordinator[T]) Data() (data T, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.data, c.hasData
}

// LastUpdateSuccess reports whether the most recent refresh succeeded.
func (c *Coordinator[T]) LastUpdateSuccess() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastSuccess
}

// LastError returns the error of the most recent refresh, or nil.
func (c *Coordinator[T]) LastError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

// LastUpdate returns when the most recent refresh finished.
func (c *Coordinator[T]) LastUpdate() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastUpdate
}

// Refresh fetches now and notifies listeners.
//
// On failure the previous data is kept and the returned error wraps
// ErrUpdateFailed. Listeners are notified either way.
func (c *Coordinator[T]) Refresh(ctx context.Context) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	start := time.Now()
	data, err := c.fetch(ctx)
	elapsed := time.Since(start)

	c.mu.Lock()
	c.lastUpdate = time.Now()
	if err != nil {
		err = fmt.Errorf("%w: %s: %w", ErrUpdateFailed, c.name, err)
		c.lastSuccess = false
		c.lastErr = err
	} else {
		c.data = data
		c.hasData = true
		c.lastSuccess = true
		c.lastErr = nil
	}
	c.mu.Unlock()

	if err != nil {
		c.logger.Warn("refresh failed", "coordinator", c.name, "error", err)
	} else {
		c.logger.Debug("refresh complete", "coordinator", c.name, "duration", elapsed)
	}

	if c.observer != nil {
		c.observer(RefreshResult{Name: c.name, Duration: elapsed, Err: err})
	}
	c.notify()
	return err
}

// AddListener registers fn to run after every refresh. The returned function
// unregisters it.
func (c *Coordinator[T]) AddListener(fn func()) (remove func()) {
	c.listenersMu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.listenersMu.Unlock()

	return func() {
		c.listenersMu.Lock()
		delete(c.listeners, id)
		c.listenersMu.Unlock()
	}
}

func (c *Coordinator[T]) notify() {
	c.listenersMu.Lock()
	ids := make([]int, 0, len(c.listeners))
	for id := range c.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, c.listeners[id])
	}
	c.listenersMu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// Start begins polling every interval until Stop is called or ctx is
// cancelled. It does not refresh immediately. Calling Start twice has no
// further effect.
func (c *Coordinator[T]) Start(ctx context.Context) {
	c.startOnce.Do(func() {
		c.wg.Add(1)
		go c.pollLoop(ctx)
	})
}

// Stop ends polling and waits for an in-flight refresh. Safe to call more
// than once, and before Start.
func (c *Coordinator[T]) Stop() {
	c.stopOnce.Do(func() {
		close(c.done)
	})
	c.wg.Wait()
}

func (c *Coordinator[T]) pollLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case <-ticker.C:
			_ = c.Refresh(ctx) //nolint:errcheck // logged in Refresh, retried next tick
		}
	}
}
