package gateway

import (
	"context"
	"errors"
)

// Intent is the gateway's handle for a created payment intent. ClientSecret
// is passed to the frontend to complete the charge.
type Intent struct {
	IntentID     string `json:"intent_id"`
	ClientSecret string `json:"client_secret"`
}

// PaymentGateway is the contract with the external payment processor. All
// amounts cross this boundary in minor currency units (cents).
type PaymentGateway interface {
	CreateIntent(ctx context.Context, amountMinor int64, currency string, metadata map[string]string) (*Intent, error)
	Capture(ctx context.Context, intentID string) error
	Refund(ctx context.Context, intentID string, amountMinor int64) (string, error)
}

// DeclinedError is a definitive processor rejection: the request reached the
// gateway and was refused. Retrying the same request will not succeed, unlike
// transport failures and gateway-side outages.
type DeclinedError struct {
	Reason string
}

func (e *DeclinedError) Error() string {
	if e.Reason != "" {
		return "gateway declined: " + e.Reason
	}
	return "gateway declined the request"
}

// IsDeclined reports whether err carries a definitive gateway decline.
func IsDeclined(err error) bool {
	var declined *DeclinedError
	return errors.As(err, &declined)
}
