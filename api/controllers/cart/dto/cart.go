package cartdto

import (
	"time"

	"github.com/google/uuid"
)

type Cart struct {
	ID        uuid.UUID  `json:"id"`
	Kind      string     `json:"kind"`
	Status    string     `json:"status"`
	ExpiresAt time.Time  `json:"expiresAt"`
	Items     []CartItem `json:"items"`
	Total     string     `json:"total"`
	ItemCount int        `json:"itemCount"`
}

type CartItem struct {
	ProductID     uuid.UUID       `json:"productId"`
	Quantity      int             `json:"quantity"`
	ReservedUntil time.Time       `json:"reservedUntil"`
	Available     bool            `json:"available"`
	Subtotal      string          `json:"subtotal"`
	Product       *ProductSummary `json:"product,omitempty"`
}

type ProductSummary struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Price    string    `json:"price"`
	ImageURL *string   `json:"image_url"`
}

type Migration struct {
	Migrated    bool       `json:"migrated"`
	GuestCartID *uuid.UUID `json:"guestCartId,omitempty"`
	MovedLines  int        `json:"movedLines"`
	MergedLines int        `json:"mergedLines"`
	Cart        Cart       `json:"cart"`
}
