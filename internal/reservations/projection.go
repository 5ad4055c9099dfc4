package reservations

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/glowcart/glowcart-backend/pkg/db/models"
	"github.com/glowcart/glowcart-backend/pkg/enums"
)

// Cart is the read model returned by every engine operation.
type Cart struct {
	ID        uuid.UUID              `json:"id"`
	Kind      enums.ReservationKind  `json:"kind"`
	Status    enums.ReservationState `json:"status"`
	ExpiresAt time.Time              `json:"expiresAt"`
	Items     []CartItem             `json:"items"`
	Total     decimal.Decimal        `json:"total"`
	ItemCount int                    `json:"itemCount"`
}

type CartItem struct {
	ProductID     uuid.UUID       `json:"productId"`
	Quantity      int             `json:"quantity"`
	ReservedUntil time.Time       `json:"reservedUntil"`
	Available     bool            `json:"available"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Product       *ProductSummary `json:"product,omitempty"`
}

type ProductSummary struct {
	ID       uuid.UUID       `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	ImageURL *string         `json:"image_url"`
}

// project joins lines with the current catalog. Lines whose product was deleted
// or taken off sale stay visible but unavailable and do not count toward total.
func (s *Service) project(ctx context.Context, tx *gorm.DB, reservation *models.Reservation, lines []models.ReservationLine) (*Cart, error) {
	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ProductID)
	}
	products, err := s.ledger.LoadMany(ctx, tx, ids)
	if err != nil {
		return nil, err
	}
	return buildCart(reservation, lines, products), nil
}

func buildCart(reservation *models.Reservation, lines []models.ReservationLine, products map[uuid.UUID]models.Product) *Cart {
	cart := &Cart{
		ID:        reservation.ID,
		Kind:      reservation.Kind,
		Status:    reservation.State,
		ExpiresAt: reservation.ExpiresAt.UTC(),
		Items:     make([]CartItem, 0, len(lines)),
		Total:     decimal.Zero,
	}
	for _, line := range lines {
		item := CartItem{
			ProductID:     line.ProductID,
			Quantity:      line.Quantity,
			ReservedUntil: line.ReservedUntil.UTC(),
			Subtotal:      decimal.Zero,
		}
		if product, ok := products[line.ProductID]; ok {
			item.Product = &ProductSummary{
				ID:       product.ID,
				Name:     product.Name,
				Price:    product.Price,
				ImageURL: product.ImageURL,
			}
			item.Available = product.Sellable()
			if item.Available {
				item.Subtotal = product.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))
				cart.Total = cart.Total.Add(item.Subtotal)
			}
		}
		cart.ItemCount += line.Quantity
		cart.Items = append(cart.Items, item)
	}
	return cart
}
