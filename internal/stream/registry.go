package stream

import (
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Sink is the registry's handle on one subscriber connection.
type Sink interface {
	// Send queues a frame for the connection. It must not block; an error
	// means the subscriber can no longer keep up and will be detached.
	Send(frame []byte) error
	// Close tells the connection to end. It must be idempotent.
	Close()
}

type subscription struct {
	id      string
	channel string
	sink    Sink
}

type channel struct {
	// publishMu keeps broadcasts on one channel in call order.
	publishMu sync.Mutex
	// subs is guarded by Registry.mu.
	subs map[string]*subscription
}

// Registry maps channel names to their live subscriptions. All methods are
// safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	channels map[string]*channel

	logger  *slog.Logger
	metrics *Metrics
	newID   func() string
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for attach/detach and delivery failures.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMetrics records registry activity in m.
func WithMetrics(m *Metrics) Option {
	return func(r *Registry) { r.metrics = m }
}

// WithIDGenerator replaces the subscription id source.
func WithIDGenerator(fn func() string) Option {
	return func(r *Registry) {
		if fn != nil {
			r.newID = fn
		}
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		channels: make(map[string]*channel),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Attach adds sink to the named channel, creating the channel if needed, and
// returns the new subscription id. The sink only sees broadcasts issued after
// Attach returns.
func (r *Registry) Attach(name string, sink Sink) string {
	id := r.newID()

	r.mu.Lock()
	ch, ok := r.channels[name]
	if !ok {
		ch = &channel{subs: make(map[string]*subscription)}
		r.channels[name] = ch
	}
	ch.subs[id] = &subscription{id: id, channel: name, sink: sink}
	n := len(ch.subs)
	r.mu.Unlock()

	r.metrics.setSubscribers(name, n)
	r.logger.Debug("subscriber attached", slog.String("channel", name), slog.String("subscription", id), slog.Int("subscribers", n))
	return id
}

// Detach removes a subscription and closes its sink. The channel entry is
// dropped with its last subscription. Unknown ids are ignored.
func (r *Registry) Detach(name, id string) {
	r.mu.Lock()
	ch, ok := r.channels[name]
	if !ok {
		r.mu.Unlock()
		return
	}
	sub, ok := ch.subs[id]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(ch.subs, id)
	n := len(ch.subs)
	if n == 0 {
		delete(r.channels, name)
	}
	r.mu.Unlock()

	sub.sink.Close()
	r.metrics.setSubscribers(name, n)
	r.logger.Debug("subscriber detached", slog.String("channel", name), slog.String("subscription", id), slog.Int("subscribers", n))
}

// Broadcast sends one event to every subscription currently on the channel.
// A channel without subscribers is a no-op. A subscriber whose Send fails is
// detached without affecting delivery to the others. The only error returned
// is a failure to encode data.
func (r *Registry) Broadcast(name, event string, data any) error {
	r.mu.RLock()
	ch, ok := r.channels[name]
	r.mu.RUnlock()
	if !ok {
		return nil
	}

	frame, err := Encode(event, data)
	if err != nil {
		return err
	}

	ch.publishMu.Lock()
	subs := r.snapshot(ch)
	var failed []*subscription
	for _, sub := range subs {
		if err := sub.sink.Send(frame); err != nil {
			r.logger.Warn("dropping subscriber after failed send",
				slog.String("channel", name),
				slog.String("subscription", sub.id),
				slog.String("error", err.Error()))
			failed = append(failed, sub)
		}
	}
	ch.publishMu.Unlock()

	for _, sub := range failed {
		r.Detach(name, sub.id)
	}
	if len(subs) > 0 {
		r.metrics.recordBroadcast(name, event, len(failed))
	}
	return nil
}

func (r *Registry) snapshot(ch *channel) []*subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()

	subs := make([]*subscription, 0, len(ch.subs))
	for _, sub := range ch.subs {
		subs = append(subs, sub)
	}
	return subs
}

// Subscribers returns the number of subscriptions on the channel.
func (r *Registry) Subscribers(name string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if ch, ok := r.channels[name]; ok {
		return len(ch.subs)
	}
	return 0
}

// Channels returns the names of channels that have subscriptions, sorted.
func (r *Registry) Channels() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.channels))
	for name := range r.channels {
		names = append(names, name)
	}
	r.mu.RUnlock()

	sort.Strings(names)
	return names
}

// Close detaches every subscription, ending all attached connections.
func (r *Registry) Close() {
	r.mu.Lock()
	var subs []*subscription
	for name, ch := range r.channels {
		for _, sub := range ch.subs {
			subs = append(subs, sub)
		}
		delete(r.channels, name)
	}
	r.mu.Unlock()

	for _, sub := range subs {
		sub.sink.Close()
		r.metrics.setSubscribers(sub.channel, 0)
	}
	if len(subs) > 0 {
		r.logger.Info("registry closed", slog.Int("subscribers", len(subs)))
	}
}
