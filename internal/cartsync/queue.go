package cartsync

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/mystore-sync/internal/remote"
	pkgerrors "github.com/angelmondragon/mystore-sync/pkg/errors"
	"github.com/angelmondragon/mystore-sync/pkg/logger"
	"github.com/angelmondragon/mystore-sync/pkg/metrics"
)

type jobKind int

const (
	jobSetLine jobKind = iota
	jobRemoveLine
	jobClear
)

type job struct {
	kind      jobKind
	productID string
	quantity  int
	name      string
	image     string
	unitPrice decimal.Decimal
}

// Queue is the write-behind buffer between the local cart and the
// backend. Mutations are applied locally first; the queue drains them
// to the remote store in the background and never rolls back.
type Queue struct {
	jobs    chan job
	api     cartAPI
	metrics *metrics.SyncMetrics
	logg    *logger.Logger

	drainTimeout time.Duration
}

// NewQueue constructs a bounded write-behind queue.
func NewQueue(api cartAPI, size int, drainTimeout time.Duration, mets *metrics.SyncMetrics, logg *logger.Logger) (*Queue, error) {
	if api == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cartsync: cart API is required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cartsync: logger is required")
	}
	if size <= 0 {
		size = 256
	}
	if drainTimeout <= 0 {
		drainTimeout = 10 * time.Second
	}
	return &Queue{
		jobs:         make(chan job, size),
		api:          api,
		metrics:      mets,
		logg:         logg,
		drainTimeout: drainTimeout,
	}, nil
}

// enqueue buffers a job without blocking. A full queue drops the job;
// the local cart stays authoritative either way.
func (q *Queue) enqueue(ctx context.Context, j job) {
	select {
	case q.jobs <- j:
		q.metrics.SetQueueDepth(len(q.jobs))
	default:
		q.metrics.IncQueueDrop()
		q.logg.Warn(ctx, fmt.Sprintf("cartsync: queue full, dropping remote write for %q", j.productID))
	}
}

// Run drains the queue until the context is cancelled, then flushes
// buffered jobs within the drain timeout.
func (q *Queue) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			q.flush()
			return
		case j := <-q.jobs:
			q.apply(ctx, j)
			q.metrics.SetQueueDepth(len(q.jobs))
		}
	}
}

func (q *Queue) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), q.drainTimeout)
	defer cancel()
	for {
		select {
		case j := <-q.jobs:
			q.apply(ctx, j)
		default:
			q.metrics.SetQueueDepth(0)
			return
		}
	}
}

// apply pushes one mutation to the remote store. Failures are logged
// and dropped, never retried.
func (q *Queue) apply(ctx context.Context, j job) {
	var err error
	switch j.kind {
	case jobSetLine:
		err = q.api.SetLine(ctx, remote.CartLine{
			ProductID: j.productID,
			Name:      j.name,
			Image:     j.image,
			Quantity:  j.quantity,
			UnitPrice: j.unitPrice,
		})
	case jobRemoveLine:
		err = q.api.RemoveLine(ctx, j.productID)
	case jobClear:
		err = q.api.Clear(ctx)
	}
	if err != nil {
		q.metrics.IncRemoteCall("cart", "failure")
		q.logg.Warn(ctx, fmt.Sprintf("cartsync: remote write failed: %v", err))
		return
	}
	q.metrics.IncRemoteCall("cart", "success")
}
