package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is the catalog row the reservation engine reads and whose
// stock_total it adjusts. Catalog CRUD lives outside this service.
type Product struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Name       string          `gorm:"column:name;not null"`
	Price      decimal.Decimal `gorm:"column:price;type:numeric(10,2);not null"`
	ImageURL   *string         `gorm:"column:image_url"`
	StockTotal int             `gorm:"column:stock_total;not null;default:0;check:stock_total >= 0"`
	IsActive   bool            `gorm:"column:is_active;not null"`
	IsApproved bool            `gorm:"column:is_approved;not null;default:false"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// Sellable reports whether new units may be reserved against the product.
func (p *Product) Sellable() bool {
	return p != nil && p.IsActive && p.IsApproved
}
