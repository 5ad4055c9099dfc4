package enums

// StockMovementReason labels each journaled stock delta. Reserve takes units
// out of available stock; the others put them back.
type StockMovementReason string

const (
	StockMovementReserve StockMovementReason = "reserve"
	StockMovementRelease StockMovementReason = "release"
	StockMovementAdjust  StockMovementReason = "adjust"
	StockMovementExpire  StockMovementReason = "expire"
)

func (r StockMovementReason) IsValid() bool {
	return oneOf(r, []StockMovementReason{StockMovementReserve, StockMovementRelease, StockMovementAdjust, StockMovementExpire})
}
