package payment

import (
	"fmt"
	"time"
)

// RedirectConfig holds the settings of the redirection payment gateway
type RedirectConfig struct {
	// APIURL is the base URL of the gateway checkout API
	APIURL string
	// APIKey authenticates checkout creation requests
	APIKey string
	// ReturnURL is where the gateway redirects the customer after approval
	ReturnURL string
	// CancelURL is where the gateway redirects the customer after refusal
	CancelURL string
	// Timeout bounds every gateway request
	Timeout time.Duration
}

// Validate checks the configuration
func (c *RedirectConfig) Validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("payment: gateway API URL is required")
	}
	if c.ReturnURL == "" {
		return fmt.Errorf("payment: return URL is required")
	}
	return nil
}
