package omise

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Charge statuses reported by the gateway.
const (
	ChargeStatusSuccessful = "successful"
	ChargeStatusFailed     = "failed"
	ChargeStatusExpired    = "expired"
	ChargeStatusPending    = "pending"
)

// Config holds Omise API configuration
type Config struct {
	SecretKey string
	BaseURL   string
	Timeout   time.Duration
}

// Client represents Omise payment gateway client
type Client struct {
	httpClient *http.Client
	config     Config
}

// Source represents a payment source (PromptPay QR, TrueMoney, ...)
type Source struct {
	ID            string         `json:"id"`
	Type          string         `json:"type"`
	Amount        int64          `json:"amount"`
	Currency      string         `json:"currency"`
	ScannableCode *ScannableCode `json:"scannable_code,omitempty"`
}

// ScannableCode carries the QR payload for scan-to-pay sources
type ScannableCode struct {
	Image struct {
		DownloadURI string `json:"download_uri"`
	} `json:"image"`
}

// Charge represents a gateway charge
type Charge struct {
	ID             string     `json:"id"`
	Status         string     `json:"status"`
	Amount         int64      `json:"amount"`
	Currency       string     `json:"currency"`
	FailureCode    *string    `json:"failure_code"`
	FailureMessage *string    `json:"failure_message"`
	AuthorizeURI   string     `json:"authorize_uri"`
	ExpiresAt      *time.Time `json:"expires_at"`
	Source         *Source    `json:"source"`
}

// QRCodeURL returns the scannable QR image URI, if the charge has one
func (c *Charge) QRCodeURL() string {
	if c.Source == nil || c.Source.ScannableCode == nil {
		return ""
	}
	return c.Source.ScannableCode.Image.DownloadURI
}

// apiError is the gateway's error envelope
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewClient creates new Omise API client
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.omise.co"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		config:     cfg,
	}
}

// CreateSource creates a payment source of the given type
func (c *Client) CreateSource(ctx context.Context, sourceType string, amount int64, currency string) (*Source, error) {
	params := url.Values{}
	params.Set("type", sourceType)
	params.Set("amount", strconv.FormatInt(amount, 10))
	params.Set("currency", currency)

	var src Source
	if err := c.post(ctx, "/sources", params, &src); err != nil {
		return nil, err
	}
	return &src, nil
}

// CreateChargeRequest represents charge creation parameters
type CreateChargeRequest struct {
	Amount    int64
	Currency  string
	SourceID  string
	ReturnURI string
}

// CreateCharge creates a charge against an existing source
func (c *Client) CreateCharge(ctx context.Context, req CreateChargeRequest) (*Charge, error) {
	if req.Amount <= 0 {
		return nil, fmt.Errorf("validation error: amount must be > 0")
	}
	if strings.TrimSpace(req.SourceID) == "" {
		return nil, fmt.Errorf("validation error: source id must be non-empty")
	}

	params := url.Values{}
	params.Set("amount", strconv.FormatInt(req.Amount, 10))
	params.Set("currency", req.Currency)
	params.Set("source", req.SourceID)
	if req.ReturnURI != "" {
		params.Set("return_uri", req.ReturnURI)
	}

	var charge Charge
	if err := c.post(ctx, "/charges", params, &charge); err != nil {
		return nil, err
	}
	return &charge, nil
}

func (c *Client) post(ctx context.Context, path string, params url.Values, out interface{}) error {
	if c == nil || c.httpClient == nil {
		return fmt.Errorf("omise client is not initialized")
	}
	if strings.TrimSpace(c.config.SecretKey) == "" {
		return fmt.Errorf("omise config error: secret key is empty")
	}

	timeout := c.config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	endpoint := strings.TrimRight(c.config.BaseURL, "/") + path
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(params.Encode()))
	if err != nil {
		return fmt.Errorf("omise api call failed: %w", err)
	}
	// Omise authenticates with the secret key as basic-auth username
	httpReq.SetBasicAuth(c.config.SecretKey, "")
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("omise api call failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("omise api call failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr apiError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
			return fmt.Errorf("omise api error (%s): %s", apiErr.Code, apiErr.Message)
		}
		return fmt.Errorf("omise api returned non-2xx status: %d, body: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse omise response: %w", err)
	}
	return nil
}
