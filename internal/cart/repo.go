package cart

import (
	"context"

	"gorm.io/gorm"

	"github.com/angelmondragon/mystore-sync/pkg/localdb"
)

// Persister stores the full cart snapshot in the durable local cache.
type Persister interface {
	SaveLines(ctx context.Context, lines []Line) error
	LoadLines(ctx context.Context) ([]Line, error)
}

// Repository persists cart lines through the local sqlite cache.
type Repository struct {
	client *localdb.Client
}

// NewRepository constructs a cart repository bound to the local cache.
func NewRepository(client *localdb.Client) *Repository {
	return &Repository{client: client}
}

// SaveLines replaces the persisted snapshot with the given lines.
func (r *Repository) SaveLines(ctx context.Context, lines []Line) error {
	rows := make([]localdb.CartLineRow, 0, len(lines))
	for i, line := range lines {
		rows = append(rows, localdb.CartLineRow{
			ProductID: line.ProductID,
			Name:      line.Name,
			Image:     line.Image,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			Position:  i,
		})
	}

	return r.client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM cart_lines").Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
}

// LoadLines returns the persisted snapshot in insertion order.
func (r *Repository) LoadLines(ctx context.Context) ([]Line, error) {
	var rows []localdb.CartLineRow
	if err := r.client.DB().WithContext(ctx).Order("position ASC").Find(&rows).Error; err != nil {
		return nil, err
	}

	lines := make([]Line, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, Line{
			ProductID: row.ProductID,
			Name:      row.Name,
			Image:     row.Image,
			Quantity:  row.Quantity,
			UnitPrice: row.UnitPrice,
		})
	}
	return lines, nil
}

// NopPersister keeps the cart purely in memory.
type NopPersister struct{}

func (NopPersister) SaveLines(context.Context, []Line) error { return nil }

func (NopPersister) LoadLines(context.Context) ([]Line, error) { return nil, nil }
