package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"payment-challenge-service/models"
)

// InstrumentAccessor looks up payment instruments and links challenge
// sessions to them.
type InstrumentAccessor interface {
	GetPaymentInstrument(ctx context.Context, accountID, instrumentID string) (*models.PaymentInstrument, error)
	LinkSession(ctx context.Context, accountID, instrumentID, sessionID string) error
}

type instrumentClient struct {
	baseURL string
	client  *http.Client
}

// NewInstrumentClient builds an HTTP accessor for the payment instrument
// service.
func NewInstrumentClient(baseURL string) InstrumentAccessor {
	return &instrumentClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *instrumentClient) GetPaymentInstrument(ctx context.Context, accountID, instrumentID string) (*models.PaymentInstrument, error) {
	u := fmt.Sprintf("%s/accounts/%s/paymentInstruments/%s?extendedView=true",
		c.baseURL, url.PathEscape(accountID), url.PathEscape(instrumentID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeServiceError(resp)
	}

	var pi models.PaymentInstrument
	if err := json.NewDecoder(resp.Body).Decode(&pi); err != nil {
		return nil, err
	}
	return &pi, nil
}

func (c *instrumentClient) LinkSession(ctx context.Context, accountID, instrumentID, sessionID string) error {
	u := fmt.Sprintf("%s/accounts/%s/paymentInstruments/%s/linkSession",
		c.baseURL, url.PathEscape(accountID), url.PathEscape(instrumentID))

	body, err := json.Marshal(map[string]string{"paymentSessionId": sessionID})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return decodeServiceError(resp)
	}
	return nil
}

// decodeServiceError turns a non-2xx downstream response into a structured
// ServiceError so the safety net can classify it.
func decodeServiceError(resp *http.Response) error {
	serviceErr := &models.ServiceError{StatusCode: resp.StatusCode}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err == nil && len(body) > 0 {
		_ = json.Unmarshal(body, serviceErr)
	}
	serviceErr.StatusCode = resp.StatusCode
	if serviceErr.Message == "" {
		serviceErr.Message = http.StatusText(resp.StatusCode)
	}
	return serviceErr
}
