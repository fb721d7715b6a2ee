package notification

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"tumapply/internal/domain"
	"tumapply/internal/metrics"
)

const publishTimeout = 10 * time.Second

var ErrStopped = errors.New("dispatcher stopped")

type Options struct {
	QueueSize    int
	Workers      int
	MaxRetries   int
	RetryBackoff time.Duration
}

func (o Options) withDefaults() Options {
	if o.QueueSize <= 0 {
		o.QueueSize = 256
	}
	if o.Workers <= 0 {
		o.Workers = 1
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = 500 * time.Millisecond
	}
	return o
}

// Dispatcher queues events and publishes them from background workers.
// Callers never wait for delivery and never see its errors.
type Dispatcher struct {
	publisher Publisher
	opts      Options
	logger    *zap.Logger
	queue     chan domain.NotificationEvent

	mu      sync.RWMutex
	started bool
	stopped bool
	wg      sync.WaitGroup
}

func NewDispatcher(publisher Publisher, opts Options, logger *zap.Logger) *Dispatcher {
	opts = opts.withDefaults()
	return &Dispatcher{
		publisher: publisher,
		opts:      opts,
		logger:    logger,
		queue:     make(chan domain.NotificationEvent, opts.QueueSize),
	}
}

func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.stopped {
		return
	}
	d.started = true

	for i := 0; i < d.opts.Workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	d.logger.Info("notification dispatcher started", zap.Int("workers", d.opts.Workers))
}

// SendAsync enqueues event. A full queue or a stopped dispatcher drops it.
func (d *Dispatcher) SendAsync(event domain.NotificationEvent) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.stopped {
		d.drop(event, ErrStopped)
		return
	}

	select {
	case d.queue <- event:
		metrics.NotificationsTotal.WithLabelValues(string(event.Type), "queued").Inc()
	default:
		d.drop(event, errors.New("queue full"))
	}
}

// Stop stops accepting events and waits until queued ones are delivered or
// ctx expires.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return nil
	}
	d.stopped = true
	close(d.queue)
	if !d.started {
		d.started = true
		d.wg.Add(1)
		go d.worker()
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	if err := d.publisher.Close(); err != nil {
		d.logger.Error("close notification publisher", zap.Error(err))
		return err
	}
	d.logger.Info("notification dispatcher stopped")
	return nil
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for event := range d.queue {
		d.deliver(event)
	}
}

func (d *Dispatcher) deliver(event domain.NotificationEvent) {
	backoff := d.opts.RetryBackoff
	for attempt := 0; ; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		err := d.publisher.Publish(ctx, event)
		cancel()

		if err == nil {
			metrics.NotificationsTotal.WithLabelValues(string(event.Type), "sent").Inc()
			return
		}
		if attempt >= d.opts.MaxRetries {
			metrics.NotificationsTotal.WithLabelValues(string(event.Type), "failed").Inc()
			d.logger.Error("notification delivery failed",
				zap.String("id", event.ID.String()),
				zap.String("type", string(event.Type)),
				zap.Int("attempts", attempt+1),
				zap.Error(err),
			)
			return
		}

		d.logger.Warn("notification delivery retry",
			zap.String("id", event.ID.String()),
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)
		time.Sleep(backoff)
		backoff *= 2
	}
}

func (d *Dispatcher) drop(event domain.NotificationEvent, reason error) {
	metrics.NotificationsTotal.WithLabelValues(string(event.Type), "dropped").Inc()
	d.logger.Error("notification dropped",
		zap.String("id", event.ID.String()),
		zap.String("type", string(event.Type)),
		zap.String("application", event.ApplicationID.String()),
		zap.Error(reason),
	)
}
