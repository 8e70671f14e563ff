package events

import (
	"context"
	"fmt"

	"github.com/angelmondragon/mystore-sync/internal/orders"
	pkgerrors "github.com/angelmondragon/mystore-sync/pkg/errors"
	"github.com/angelmondragon/mystore-sync/pkg/logger"
	"github.com/angelmondragon/mystore-sync/pkg/metrics"
)

// mergerRepo is the slice of the order repository the merger patches.
type mergerRepo interface {
	Get(ctx context.Context, orderID string) (*orders.Order, error)
	MergeOrder(ctx context.Context, order orders.Order) error
	ApplyStatus(ctx context.Context, orderID string, status orders.Status) error
}

// Merger applies server-push order events to the repository's cached
// lists and local backup. Patches are last-write-wins on status and
// idempotent, so delivery order and re-delivery never corrupt state.
type Merger struct {
	repo    mergerRepo
	metrics *metrics.SyncMetrics
	logg    *logger.Logger
}

// NewMerger constructs the event merger. The metrics recorder may be
// nil.
func NewMerger(repo mergerRepo, mets *metrics.SyncMetrics, logg *logger.Logger) (*Merger, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "events: order repository is required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "events: logger is required")
	}
	return &Merger{repo: repo, metrics: mets, logg: logg}, nil
}

// Apply merges one event. Events without an order id and unknown event
// types are ignored.
func (m *Merger) Apply(ctx context.Context, ev Event) error {
	if !ev.Valid() {
		m.logg.Debug(ctx, "events: dropping event without order id")
		return nil
	}

	switch ev.Type {
	case TypeOrderUpdated:
		if !orders.KnownStatus(ev.Status) {
			m.logg.Warn(ctx, fmt.Sprintf("events: dropping update with unknown status %q", ev.Status))
			return nil
		}
		if err := m.repo.ApplyStatus(ctx, ev.OrderID, ev.Status); err != nil {
			return err
		}
		m.metrics.IncEventMerged(string(TypeOrderUpdated))
		return nil

	case TypeOrderCreated:
		status := ev.Status
		if !orders.KnownStatus(status) {
			status = orders.StatusPending
		}

		existing, err := m.repo.Get(ctx, ev.OrderID)
		switch {
		case err == nil:
			// Already known: only the status moves, the full record
			// stays intact.
			if existing.Status != status {
				if err := m.repo.ApplyStatus(ctx, ev.OrderID, status); err != nil {
					return err
				}
			}
		case pkgerrors.HasCode(err, pkgerrors.CodeNotFound):
			if err := m.repo.MergeOrder(ctx, orders.Order{
				ID:     ev.OrderID,
				UserID: ev.UserID,
				Status: status,
			}); err != nil {
				return err
			}
		default:
			return err
		}
		m.metrics.IncEventMerged(string(TypeOrderCreated))
		return nil

	default:
		m.logg.Warn(ctx, fmt.Sprintf("events: dropping unknown event type %q", ev.Type))
		return nil
	}
}
