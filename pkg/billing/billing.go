package billing

import (
	"fmt"
	"strings"
)

// Config selects and configures the billing provider.
type Config struct {
	Provider string `env:"BILLING_PROVIDER" envDefault:"stripe"`
	Stripe   StripeConfig
	Paddle   PaddleConfig
}

// New creates the provider named by cfg.Provider.
func New(cfg Config) (Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "stripe", "":
		return NewStripeProvider(cfg.Stripe)
	case "paddle":
		return NewPaddleProvider(cfg.Paddle)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, cfg.Provider)
}
