package queries

import (
	"context"

	"ordertrack/internal/core/ports"
)

// GetAvailableOrdersQueryHandler reads claimable orders from the order store.
type GetAvailableOrdersQueryHandler struct {
	reader ports.OrderReader
}

// NewGetAvailableOrdersQueryHandler creates a handler over reader.
func NewGetAvailableOrdersQueryHandler(reader ports.OrderReader) GetAvailableOrdersQueryHandler {
	return GetAvailableOrdersQueryHandler{reader: reader}
}

// Handle returns the claimable orders, newest first. Orders that became
// unclaimable between the read and the mapping are filtered out.
func (h GetAvailableOrdersQueryHandler) Handle(
	ctx context.Context,
	query GetAvailableOrdersQuery,
) ([]OrderResponse, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	orders, err := h.reader.GetAllAvailableForClaim(ctx)
	if err != nil {
		return nil, err
	}

	resp := make([]OrderResponse, 0, len(orders))
	for _, o := range orders {
		if !o.IsClaimable() {
			continue
		}
		resp = append(resp, toResponse(o))
	}

	return resp, nil
}
