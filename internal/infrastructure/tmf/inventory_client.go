package tmf

import (
	"context"

	"go.uber.org/zap"
)

// InventoryClient talks to the TM Forum product inventory API. It implements
// the inventory collaborator contract of the renovation monitor.
type InventoryClient struct {
	*restClient
	baseURL string
}

// NewInventoryClient creates a product inventory API client
func NewInventoryClient(config *Config, logger *zap.Logger) (*InventoryClient, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &InventoryClient{
		restClient: newRESTClient(config.Timeout, logger),
		baseURL:    config.InventoryURL,
	}, nil
}

// SuspendProduct suspends access to an expired product
func (c *InventoryClient) SuspendProduct(ctx context.Context, productID string) error {
	patch := map[string]any{"status": "Suspended"}
	if err := c.do(ctx, "PATCH", c.baseURL+"/product/"+productID, patch, nil); err != nil {
		return err
	}

	c.logger.Info("Product suspended in inventory", zap.String("product_id", productID))
	return nil
}
