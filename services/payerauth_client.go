package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"payment-challenge-service/models"
)

// PayerAuthAccessor is the 3DS / PSD2 provider surface: session creation,
// the fingerprint URL round trip, authenticate and challenge completion.
type PayerAuthAccessor interface {
	CreatePaymentSessionID(ctx context.Context, req *models.ProviderSessionRequest) (*models.ProviderSessionResponse, error)
	GetThreeDSMethodURL(ctx context.Context, sessionID string, req *models.ProviderSessionRequest) (*models.ThreeDSMethodData, error)
	Authenticate(ctx context.Context, req *models.AuthenticationRequest) (*models.AuthenticationResponse, error)
	CompleteChallenge(ctx context.Context, req *models.CompletionRequest) (*models.CompletionResponse, error)
}

type payerAuthClient struct {
	baseURL string
	client  *http.Client
}

func NewPayerAuthClient(baseURL string) PayerAuthAccessor {
	return &payerAuthClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *payerAuthClient) CreatePaymentSessionID(ctx context.Context, req *models.ProviderSessionRequest) (*models.ProviderSessionResponse, error) {
	var out models.ProviderSessionResponse
	if err := c.post(ctx, "/payerauth/createPaymentSessionId", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *payerAuthClient) GetThreeDSMethodURL(ctx context.Context, sessionID string, req *models.ProviderSessionRequest) (*models.ThreeDSMethodData, error) {
	var out models.ThreeDSMethodData
	path := fmt.Sprintf("/payerauth/%s/getThreeDSMethodUrl", url.PathEscape(sessionID))
	if err := c.post(ctx, path, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *payerAuthClient) Authenticate(ctx context.Context, req *models.AuthenticationRequest) (*models.AuthenticationResponse, error) {
	var out models.AuthenticationResponse
	if err := c.post(ctx, "/payerauth/authenticate", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *payerAuthClient) CompleteChallenge(ctx context.Context, req *models.CompletionRequest) (*models.CompletionResponse, error) {
	var out models.CompletionResponse
	if err := c.post(ctx, "/payerauth/completeChallenge", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *payerAuthClient) post(ctx context.Context, path string, in, out interface{}) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeServiceError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
