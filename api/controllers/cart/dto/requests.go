package cartdto

type AddItemRequest struct {
	ProductID string `json:"productId" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,min=1,max=999"`
	SessionID string `json:"sessionId,omitempty" validate:"omitempty,session"`
}

// UpdateQuantityRequest uses a pointer so an explicit zero can be told apart
// from a missing field. Zero removes the line.
type UpdateQuantityRequest struct {
	Quantity  *int   `json:"quantity" validate:"required,min=0,max=999"`
	SessionID string `json:"sessionId,omitempty" validate:"omitempty,session"`
}

type MigrateRequest struct {
	SessionID string `json:"sessionId,omitempty" validate:"omitempty,session"`
	UserID    string `json:"userId,omitempty" validate:"omitempty,uuid"`
}
