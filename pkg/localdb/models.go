package localdb

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// CartLineRow mirrors one cart line in the durable cache.
type CartLineRow struct {
	ProductID string          `gorm:"column:product_id;primaryKey"`
	Name      string          `gorm:"column:name"`
	Image     string          `gorm:"column:image"`
	Quantity  int             `gorm:"column:quantity;not null"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:text;not null"`
	Position  int             `gorm:"column:position;not null"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName binds the model to the migrated table.
func (CartLineRow) TableName() string { return "cart_lines" }

// OrderBackupRow stores a full order snapshot for local fallback.
type OrderBackupRow struct {
	ID        string          `gorm:"column:id;primaryKey"`
	Status    string          `gorm:"column:status;not null"`
	Payload   json.RawMessage `gorm:"column:payload;type:text;not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName binds the model to the migrated table.
func (OrderBackupRow) TableName() string { return "order_backups" }
