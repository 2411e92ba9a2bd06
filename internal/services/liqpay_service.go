package services

import (
	"context"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/example/techshop/internal/config"
	"github.com/example/techshop/internal/models"
)

// LiqPayService encodes, signs and verifies LiqPay payloads and queries the
// gateway status API. The signature is base64(sha1(privateKey+data+privateKey))
// over the already-base64-encoded data, per the LiqPay protocol.
type LiqPayService struct {
	publicKey   string
	privateKey  string
	sandbox     bool
	checkoutURL string
	apiURL      string
	serverURL   string
	resultURL   string
	client      *http.Client
}

// NewLiqPayService constructs a LiqPayService from configuration.
func NewLiqPayService(cfg *config.Config) *LiqPayService {
	return &LiqPayService{
		publicKey:   cfg.LiqPayPublicKey,
		privateKey:  cfg.LiqPayPrivateKey,
		sandbox:     cfg.LiqPaySandbox,
		checkoutURL: cfg.LiqPayCheckoutURL,
		apiURL:      cfg.LiqPayAPIURL,
		serverURL:   strings.TrimRight(cfg.ServerBaseURL, "/"),
		resultURL:   strings.TrimRight(cfg.ResultBaseURL, "/"),
		client:      &http.Client{Timeout: 15 * time.Second},
	}
}

// Sign computes the LiqPay signature for an encoded data string.
func (s *LiqPayService) Sign(data string) string {
	hash := sha1.Sum([]byte(s.privateKey + data + s.privateKey))
	return base64.StdEncoding.EncodeToString(hash[:])
}

// VerifyCallback recomputes the signature for data and compares it with the
// received one in constant time.
func (s *LiqPayService) VerifyCallback(data, signature string) bool {
	expected := s.Sign(data)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}

// DecodeCallback decodes a base64 JSON callback payload. Malformed input is
// a decode error, never silently treated as unverified.
func (s *LiqPayService) DecodeCallback(data string) (map[string]any, error) {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("decode callback data: %w", err)
	}

	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("unmarshal callback data: %w", err)
	}

	return payload, nil
}

// CheckoutForm carries everything a client needs to POST the customer to the
// LiqPay checkout page: two hidden form fields and the form action URL.
type CheckoutForm struct {
	Action    string `json:"action"`
	Data      string `json:"data"`
	Signature string `json:"signature"`
}

// BuildCheckout produces the signed checkout payload for an order. The order
// must have its delivery loaded so the amount includes the delivery cost.
func (s *LiqPayService) BuildCheckout(order *models.Order) (*CheckoutForm, error) {
	sandbox := 0
	if s.sandbox {
		sandbox = 1
	}

	payload := map[string]any{
		"public_key": s.publicKey,
		"version":    "3",
		"action":     "pay",
		"amount":     json.Number(strconv.FormatFloat(order.TotalWithDelivery(), 'f', 2, 64)),
		"currency":   "UAH",
		"description": fmt.Sprintf("Оплата замовлення №%s", order.ID),
		"order_id":   order.ID.String(),
		"sandbox":    sandbox,
		"server_url": s.serverURL + "/api/payments/callback",
		"result_url": fmt.Sprintf("%s/api/payments/%s/status", s.resultURL, order.ID),
		"language":   "uk",
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal checkout payload: %w", err)
	}

	data := base64.StdEncoding.EncodeToString(encoded)
	return &CheckoutForm{
		Action:    s.checkoutURL,
		Data:      data,
		Signature: s.Sign(data),
	}, nil
}

// Status queries the gateway for the current payment status of an order.
// Transport failures are reported as ErrGatewayUnavailable and must never be
// interpreted as success by callers.
func (s *LiqPayService) Status(ctx context.Context, orderID string) (map[string]any, error) {
	payload := map[string]any{
		"action":     "status",
		"version":    "3",
		"public_key": s.publicKey,
		"order_id":   orderID,
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal status payload: %w", err)
	}

	data := base64.StdEncoding.EncodeToString(encoded)
	form := url.Values{}
	form.Set("data", data)
	form.Set("signature", s.Sign(data))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build status request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrGatewayUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrGatewayUnavailable, resp.StatusCode)
	}

	var result map[string]any
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("unmarshal status response: %w", err)
	}

	return result, nil
}
