package tmf

import (
	"context"

	"github.com/FIWARE-TMForum/business-ecosystem-charging-backend/internal/domain/ordering"
	"go.uber.org/zap"
)

// OrderingClient talks to the TM Forum product ordering API. It implements
// the ordering collaborator contract of the charging engine.
type OrderingClient struct {
	*restClient
	baseURL string
}

// NewOrderingClient creates a product ordering API client
func NewOrderingClient(config *Config, logger *zap.Logger) (*OrderingClient, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &OrderingClient{
		restClient: newRESTClient(config.Timeout, logger),
		baseURL:    config.OrderingURL,
	}, nil
}

// orderItemPatch is the wire representation of one item state transition
type orderItemPatch struct {
	ID    string `json:"id"`
	State string `json:"state"`
}

// UpdateItemsState transitions every non-terminated item of the order to the
// given state
func (c *OrderingClient) UpdateItemsState(ctx context.Context, order *ordering.Order, state string) error {
	contracts := order.ActiveContracts()
	items := make([]orderItemPatch, 0, len(contracts))
	for _, contract := range contracts {
		items = append(items, orderItemPatch{ID: contract.ItemID, State: state})
	}

	patch := map[string]any{"orderItem": items}
	if err := c.do(ctx, "PATCH", c.baseURL+"/productOrder/"+order.OrderID, patch, nil); err != nil {
		return err
	}

	c.logger.Info("Order items transitioned",
		zap.String("order_id", order.OrderID),
		zap.String("state", state),
		zap.Int("items", len(items)),
	)
	return nil
}
