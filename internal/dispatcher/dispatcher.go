package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/rcsfx/extension/internal/dispatcher"

// ErrUnknownCommand is returned for commands without a handler.
var ErrUnknownCommand = errors.New("unknown command")

// ErrClosed is returned by Dispatch after Close.
var ErrClosed = errors.New("dispatcher closed")

// Event is one command line received from the host.
type Event struct {
	Command   string
	Args      []string
	Timestamp time.Time
}

// HandlerFunc processes an event and returns a result.
type HandlerFunc func(Event) (any, error)

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures handler registration.
type Option func(*options)

type options struct {
	bufferSize int
	blocking   bool
	logged     bool
	gate       func() error
}

// Buffered makes the handler async with a queue of the given size.
func Buffered(size int) Option {
	return func(o *options) {
		o.bufferSize = size
	}
}

// Blocking makes a buffered handler block when the queue is full instead of dropping.
func Blocking() Option {
	return func(o *options) {
		o.blocking = true
	}
}

// Logged adds debug logging to the handler.
func Logged() Option {
	return func(o *options) {
		o.logged = true
	}
}

// Gated rejects events while check returns an error, before they are queued.
// Tick and thruster commands use it to refuse work outside a session.
func Gated(check func() error) Option {
	return func(o *options) {
		o.gate = check
	}
}

// Dispatcher routes events to registered handlers.
type Dispatcher struct {
	logger Logger

	queueSize metric.Int64ObservableGauge
	processed metric.Int64Counter
	dropped   metric.Int64Counter
	rejected  metric.Int64Counter

	mu       sync.RWMutex
	handlers map[string]HandlerFunc
	buffers  map[string]chan Event
	closed   bool
	wg       sync.WaitGroup
}

// New creates a new Dispatcher with the given logger. Metrics go to the
// global meter provider, which is a no-op until internal/otel installs one.
func New(logger Logger) (*Dispatcher, error) {
	d := &Dispatcher{
		handlers: make(map[string]HandlerFunc),
		buffers:  make(map[string]chan Event),
		logger:   logger,
	}

	m := otel.Meter(instrumentationName)

	var err error

	d.queueSize, err = m.Int64ObservableGauge(
		"dispatcher.queue.size",
		metric.WithDescription("Current number of events in queue"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating queue size gauge: %w", err)
	}

	_, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			d.mu.RLock()
			defer d.mu.RUnlock()
			for cmd, buf := range d.buffers {
				o.ObserveInt64(d.queueSize, int64(len(buf)),
					metric.WithAttributes(attribute.String("command", cmd)))
			}
			return nil
		},
		d.queueSize,
	)
	if err != nil {
		return nil, fmt.Errorf("registering queue callback: %w", err)
	}

	d.processed, err = m.Int64Counter(
		"dispatcher.events.processed",
		metric.WithDescription("Total events processed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating processed counter: %w", err)
	}

	d.dropped, err = m.Int64Counter(
		"dispatcher.events.dropped",
		metric.WithDescription("Total events dropped due to full queue"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dropped counter: %w", err)
	}

	d.rejected, err = m.Int64Counter(
		"dispatcher.events.rejected",
		metric.WithDescription("Total events refused by a gate"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating rejected counter: %w", err)
	}

	return d, nil
}

// Register adds a handler for the given command with optional configuration.
func (d *Dispatcher) Register(command string, h HandlerFunc, opts ...Option) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	handler := h

	if o.bufferSize > 0 {
		handler = d.withBuffer(command, o.bufferSize, o.blocking, handler)
	}

	if o.gate != nil {
		handler = d.withGate(command, o.gate, handler)
	}

	if o.logged {
		handler = d.withLogging(command, handler)
	}

	d.mu.Lock()
	d.handlers[command] = handler
	d.mu.Unlock()
}

// Dispatch routes an event to its registered handler.
func (d *Dispatcher) Dispatch(e Event) (any, error) {
	d.mu.RLock()
	h, ok := d.handlers[e.Command]
	closed := d.closed
	d.mu.RUnlock()

	if closed {
		return nil, ErrClosed
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, e.Command)
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	return h(e)
}

// HasHandler returns true if a handler is registered for the command.
func (d *Dispatcher) HasHandler(command string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.handlers[command]
	return ok
}

// Commands returns the registered commands in sorted order.
func (d *Dispatcher) Commands() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]string, 0, len(d.handlers))
	for cmd := range d.handlers {
		out = append(out, cmd)
	}
	sort.Strings(out)
	return out
}

// Close stops accepting events and waits for buffered queues to drain.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, buf := range d.buffers {
		close(buf)
	}
	d.mu.Unlock()

	d.wg.Wait()
}

func (d *Dispatcher) withBuffer(command string, size int, blocking bool, h HandlerFunc) HandlerFunc {
	buffer := make(chan Event, size)

	d.mu.Lock()
	d.buffers[command] = buffer
	d.mu.Unlock()

	cmdAttr := attribute.String("command", command)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for e := range buffer {
			if _, err := h(e); err != nil {
				d.logger.Warn("queued event failed", "command", command, "error", err)
			}
			d.processed.Add(context.Background(), 1, metric.WithAttributes(cmdAttr))
		}
	}()

	if blocking {
		return func(e Event) (any, error) {
			buffer <- e
			return "queued", nil
		}
	}

	return func(e Event) (any, error) {
		select {
		case buffer <- e:
			return "queued", nil
		default:
			d.dropped.Add(context.Background(), 1, metric.WithAttributes(cmdAttr))
			return nil, fmt.Errorf("queue full: %s", command)
		}
	}
}

func (d *Dispatcher) withGate(command string, check func() error, h HandlerFunc) HandlerFunc {
	cmdAttr := attribute.String("command", command)
	return func(e Event) (any, error) {
		if err := check(); err != nil {
			d.rejected.Add(context.Background(), 1, metric.WithAttributes(cmdAttr))
			return nil, fmt.Errorf("%s: %w", command, err)
		}
		return h(e)
	}
}

func (d *Dispatcher) withLogging(command string, h HandlerFunc) HandlerFunc {
	return func(e Event) (any, error) {
		start := time.Now()
		d.logger.Debug("handling event", "command", command, "args", len(e.Args))

		result, err := h(e)

		if err != nil {
			d.logger.Error("event failed", "command", command, "duration", time.Since(start), "error", err)
		} else {
			d.logger.Debug("event complete", "command", command, "duration", time.Since(start))
		}

		return result, err
	}
}
