package queue

import (
	"context"
	"errors"
	"hash/fnv"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/coursehub/registration-api/internal/api/metrics"
	"github.com/coursehub/registration-api/internal/core/domain"
	"github.com/coursehub/registration-api/internal/core/ports"
)

const (
	defaultWorkers = 8
	channelBuffer  = 256
)

// ErrQueueFull is returned by Publish when the course's worker is saturated.
var ErrQueueFull = errors.New("ledger event queue full")

// Dispatcher routes ledger events to a fixed set of workers using consistent
// hashing on the course id. Events of one course are handled in publish order;
// consumers use the ledger version to recover commit order.
type Dispatcher struct {
	workers []chan domain.LedgerEvent
	handler ports.LedgerEventHandler
	log     zerolog.Logger
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, handler ports.LedgerEventHandler, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan domain.LedgerEvent, numWorkers),
		handler: handler,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.LedgerEvent, channelBuffer)
	}
	return d
}

// Run processes events until ctx is cancelled, then drains what is already
// queued with a fresh context so committed events are not lost on shutdown.
func (d *Dispatcher) Run(ctx context.Context) error {
	done := make(chan struct{}, len(d.workers))
	for i, ch := range d.workers {
		go func(id int, ch chan domain.LedgerEvent) {
			d.runWorker(ctx, id, ch)
			done <- struct{}{}
		}(i, ch)
	}
	for range d.workers {
		<-done
	}
	return nil
}

// Publish hands an event to the worker responsible for its course. It never
// blocks the committing request; a saturated worker drops the event and
// reports ErrQueueFull.
func (d *Dispatcher) Publish(_ context.Context, event domain.LedgerEvent) error {
	idx := d.shardIndex(event.CourseID)
	select {
	case d.workers[idx] <- event:
		metrics.EventsQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
		return nil
	default:
		metrics.EventsErrorsTotal.WithLabelValues("queue_full").Inc()
		return ErrQueueFull
	}
}

// shardIndex maps a course id deterministically to a worker index.
func (d *Dispatcher) shardIndex(courseID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(courseID))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.LedgerEvent) {
	label := strconv.Itoa(id)
	for {
		select {
		case <-ctx.Done():
			d.drain(id, ch)
			return
		case event := <-ch:
			metrics.EventsQueueDepth.WithLabelValues(label).Set(float64(len(ch)))
			d.process(ctx, id, event)
		}
	}
}

func (d *Dispatcher) drain(id int, ch <-chan domain.LedgerEvent) {
	ctx := context.Background()
	for {
		select {
		case event := <-ch:
			d.process(ctx, id, event)
		default:
			return
		}
	}
}

func (d *Dispatcher) process(ctx context.Context, id int, event domain.LedgerEvent) {
	if err := d.handler.Process(ctx, event); err != nil {
		d.log.Error().Err(err).
			Str("course_id", event.CourseID).
			Str("kind", string(event.Kind)).
			Int("worker_id", id).
			Msg("ledger event processing failed")
	}
}
