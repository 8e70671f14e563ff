package orders

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	pkgerrors "github.com/angelmondragon/mystore-sync/pkg/errors"
	"github.com/angelmondragon/mystore-sync/pkg/localdb"
)

// BackupStore mirrors orders into the durable local cache so listing
// keeps working while the backend is unreachable.
type BackupStore struct {
	client *localdb.Client
}

// NewBackupStore constructs a backup store bound to the local cache.
func NewBackupStore(client *localdb.Client) *BackupStore {
	return &BackupStore{client: client}
}

// Save upserts the order snapshot.
func (s *BackupStore) Save(ctx context.Context, order Order) error {
	if strings.TrimSpace(order.ID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "order ID is required")
	}
	payload, err := json.Marshal(order)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal order backup")
	}

	row := localdb.OrderBackupRow{
		ID:      order.ID,
		Status:  string(order.Status),
		Payload: payload,
	}
	return s.client.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"status", "payload", "updated_at"}),
		}).Create(&row).Error
	})
}

// SaveAll upserts a batch of order snapshots.
func (s *BackupStore) SaveAll(ctx context.Context, orders []Order) error {
	for _, order := range orders {
		if err := s.Save(ctx, order); err != nil {
			return err
		}
	}
	return nil
}

// Get returns one backed-up order, or a not-found error.
func (s *BackupStore) Get(ctx context.Context, orderID string) (*Order, error) {
	var row localdb.OrderBackupRow
	err := s.client.DB().WithContext(ctx).First(&row, "id = ?", orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order backup")
	}
	return decodeBackup(row)
}

// List returns every backed-up order in the scope, newest first.
func (s *BackupStore) List(ctx context.Context, scope Scope) ([]Order, error) {
	var rows []localdb.OrderBackupRow
	if err := s.client.DB().WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list order backups")
	}

	out := make([]Order, 0, len(rows))
	for _, row := range rows {
		order, err := decodeBackup(row)
		if err != nil {
			continue
		}
		if scope.Covers(*order) {
			out = append(out, *order)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func decodeBackup(row localdb.OrderBackupRow) (*Order, error) {
	var order Order
	if err := json.Unmarshal(row.Payload, &order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode order backup")
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = row.CreatedAt
	}
	return &order, nil
}
