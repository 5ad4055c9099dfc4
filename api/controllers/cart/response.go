package cart

import (
	"github.com/google/uuid"

	cartdto "github.com/glowcart/glowcart-backend/api/controllers/cart/dto"
	"github.com/glowcart/glowcart-backend/internal/reservations"
)

const moneyPlaces = 2

func newCart(cart *reservations.Cart) cartdto.Cart {
	if cart == nil {
		return cartdto.Cart{Items: []cartdto.CartItem{}}
	}
	out := cartdto.Cart{
		ID:        cart.ID,
		Kind:      string(cart.Kind),
		Status:    string(cart.Status),
		ExpiresAt: cart.ExpiresAt,
		Items:     make([]cartdto.CartItem, 0, len(cart.Items)),
		Total:     cart.Total.StringFixed(moneyPlaces),
		ItemCount: cart.ItemCount,
	}
	for _, item := range cart.Items {
		line := cartdto.CartItem{
			ProductID:     item.ProductID,
			Quantity:      item.Quantity,
			ReservedUntil: item.ReservedUntil,
			Available:     item.Available,
			Subtotal:      item.Subtotal.StringFixed(moneyPlaces),
		}
		if item.Product != nil {
			line.Product = &cartdto.ProductSummary{
				ID:       item.Product.ID,
				Name:     item.Product.Name,
				Price:    item.Product.Price.StringFixed(moneyPlaces),
				ImageURL: item.Product.ImageURL,
			}
		}
		out.Items = append(out.Items, line)
	}
	return out
}

func newMigration(result *reservations.MigrationResult) cartdto.Migration {
	out := cartdto.Migration{
		Migrated:    result.Migrated,
		MovedLines:  result.MovedLines,
		MergedLines: result.MergedLines,
		Cart:        newCart(result.Cart),
	}
	if result.GuestCartID != uuid.Nil {
		id := result.GuestCartID
		out.GuestCartID = &id
	}
	return out
}
