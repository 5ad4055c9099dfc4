package stock

import (
	"errors"
	"fmt"

	pkgerrors "github.com/glowcart/glowcart-backend/pkg/errors"
	"github.com/google/uuid"
)

var (
	ErrProductNotFound    = errors.New("product not found")
	ErrProductUnavailable = errors.New("product is not available for sale")
	ErrInsufficientStock  = errors.New("insufficient stock")
)

// InsufficientStockDetails is attached to INSUFFICIENT_STOCK errors and returned to clients.
type InsufficientStockDetails struct {
	ProductID uuid.UUID `json:"productId"`
	Requested int       `json:"requested"`
	Available int       `json:"available"`
}

func notFound(productID uuid.UUID) error {
	return pkgerrors.Wrap(pkgerrors.CodeNotFound, ErrProductNotFound, "product not found").
		WithDetails(map[string]any{"productId": productID})
}

func unavailable(productID uuid.UUID) error {
	return pkgerrors.Wrap(pkgerrors.CodeStateConflict, ErrProductUnavailable, "product is not available for sale").
		WithDetails(map[string]any{"productId": productID})
}

func insufficient(productID uuid.UUID, requested, available int) error {
	msg := fmt.Sprintf("only %d left in stock", available)
	if available <= 0 {
		msg = "out of stock"
	}
	return pkgerrors.Wrap(pkgerrors.CodeInsufficientStock, ErrInsufficientStock, msg).
		WithDetails(InsufficientStockDetails{ProductID: productID, Requested: requested, Available: available})
}

// InsufficientDetails extracts the stock details from an INSUFFICIENT_STOCK error.
func InsufficientDetails(err error) (InsufficientStockDetails, bool) {
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInsufficientStock {
		return InsufficientStockDetails{}, false
	}
	details, ok := typed.Details().(InsufficientStockDetails)
	return details, ok
}

func storageErr(err error, op string) error {
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
}
