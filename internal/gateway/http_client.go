package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/winnipeg-connect/backend/internal/pkg/apperror"
)

// Client talks to the payment processor over its REST API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a gateway client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type createIntentRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type refundRequest struct {
	Amount int64 `json:"amount"`
}

type refundResponse struct {
	RefundID string `json:"refund_id"`
}

type gatewayError struct {
	Error string `json:"error"`
}

// CreateIntent registers a new payment intent with the processor.
func (c *Client) CreateIntent(ctx context.Context, amountMinor int64, currency string, metadata map[string]string) (*Intent, error) {
	body := createIntentRequest{Amount: amountMinor, Currency: currency, Metadata: metadata}

	var intent Intent
	if err := c.post(ctx, "/v1/intents", body, &intent); err != nil {
		return nil, err
	}
	if intent.IntentID == "" {
		return nil, apperror.New(apperror.ErrCodeGateway, "gateway returned an empty intent id")
	}
	return &intent, nil
}

// Capture captures a previously authorized intent, moving funds into escrow.
func (c *Client) Capture(ctx context.Context, intentID string) error {
	return c.post(ctx, fmt.Sprintf("/v1/intents/%s/capture", intentID), struct{}{}, nil)
}

// Refund returns captured funds to the payer, fully or partially.
func (c *Client) Refund(ctx context.Context, intentID string, amountMinor int64) (string, error) {
	var resp refundResponse
	if err := c.post(ctx, fmt.Sprintf("/v1/intents/%s/refund", intentID), refundRequest{Amount: amountMinor}, &resp); err != nil {
		return "", err
	}
	return resp.RefundID, nil
}

// post sends a JSON request and decodes the response into out (if non-nil).
func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("gateway: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("gateway: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeGateway, "payment gateway unreachable")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeGateway, "cannot read gateway response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var gwErr gatewayError
		_ = json.Unmarshal(data, &gwErr)
		// 4xx means the gateway understood the request and refused it; that
		// outcome is final. 5xx and everything else is transient.
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return apperror.Wrap(&DeclinedError{Reason: gwErr.Error}, apperror.ErrCodeGateway, "gateway declined the request")
		}
		if gwErr.Error != "" {
			return apperror.New(apperror.ErrCodeGateway, fmt.Sprintf("gateway error: %s", gwErr.Error))
		}
		return apperror.New(apperror.ErrCodeGateway, fmt.Sprintf("gateway returned status %d", resp.StatusCode))
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return apperror.Wrap(err, apperror.ErrCodeGateway, "cannot decode gateway response")
		}
	}
	return nil
}
