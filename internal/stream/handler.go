package stream

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	// DefaultKeepAlive is the interval between ping comments.
	DefaultKeepAlive = 15 * time.Second
	// DefaultBufferSize is the number of frames queued per connection.
	DefaultBufferSize = 64
)

var (
	// ErrSlowSubscriber is returned by a connection whose queue is full.
	ErrSlowSubscriber = errors.New("subscriber queue full")
	// ErrSubscriptionClosed is returned by a connection that has already ended.
	ErrSubscriptionClosed = errors.New("subscription closed")
)

// connSink queues frames for the goroutine serving one connection. Only that
// goroutine writes to the response.
type connSink struct {
	frames chan []byte
	done   chan struct{}
	once   sync.Once
}

func newConnSink(size int) *connSink {
	return &connSink{
		frames: make(chan []byte, size),
		done:   make(chan struct{}),
	}
}

func (s *connSink) Send(frame []byte) error {
	select {
	case <-s.done:
		return ErrSubscriptionClosed
	default:
	}

	select {
	case s.frames <- frame:
		return nil
	default:
		return ErrSlowSubscriber
	}
}

func (s *connSink) Close() {
	s.once.Do(func() { close(s.done) })
}

// Handler serves the event stream for one channel per request.
type Handler struct {
	registry   *Registry
	param      string
	keepAlive  time.Duration
	bufferSize int
	logger     *slog.Logger
	now        func() time.Time
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithKeepAlive sets the ping interval.
func WithKeepAlive(d time.Duration) HandlerOption {
	return func(h *Handler) {
		if d > 0 {
			h.keepAlive = d
		}
	}
}

// WithBufferSize sets how many frames may wait for a slow connection.
func WithBufferSize(n int) HandlerOption {
	return func(h *Handler) {
		if n > 0 {
			h.bufferSize = n
		}
	}
}

// WithChannelParam names the route parameter holding the channel.
func WithChannelParam(name string) HandlerOption {
	return func(h *Handler) { h.param = name }
}

// WithHandlerLogger sets the handler's logger.
func WithHandlerLogger(logger *slog.Logger) HandlerOption {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// NewHandler creates a stream handler bound to reg.
func NewHandler(reg *Registry, opts ...HandlerOption) *Handler {
	h := &Handler{
		registry:   reg,
		param:      "slug",
		keepAlive:  DefaultKeepAlive,
		bufferSize: DefaultBufferSize,
		logger:     reg.logger,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Serve streams channel events to the client until the request context ends,
// a write fails, or the registry drops the subscription.
func (h *Handler) Serve(c *gin.Context) {
	name := c.Param(h.param)
	if name == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "channel is required"})
		return
	}

	w := c.Writer
	header := w.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write(EncodeComment("connected")); err != nil {
		return
	}
	w.Flush()

	sink := newConnSink(h.bufferSize)
	id := h.registry.Attach(name, sink)
	ticker := time.NewTicker(h.keepAlive)
	defer func() {
		ticker.Stop()
		h.registry.Detach(name, id)
	}()

	logger := h.logger.With(slog.String("channel", name), slog.String("subscription", id))
	logger.Info("stream opened", slog.String("remote", c.ClientIP()))

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			logger.Info("stream closed by client")
			return
		case <-sink.done:
			logger.Info("stream closed by server")
			return
		case frame := <-sink.frames:
			if _, err := w.Write(frame); err != nil {
				logger.Warn("stream write failed", slog.String("error", err.Error()))
				return
			}
			w.Flush()
		case <-ticker.C:
			ping := EncodeComment(fmt.Sprintf("ping %d", h.now().UnixMilli()))
			if _, err := w.Write(ping); err != nil {
				logger.Warn("keep-alive write failed", slog.String("error", err.Error()))
				return
			}
			w.Flush()
		}
	}
}
