package paymob

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

// Supported payment methods.
const (
	MethodCard   = "card"
	MethodWallet = "wallet"
)

const (
	authTokenTTL       = 50 * time.Minute
	paymentKeyLifetime = 3600
	walletSubtype      = "WALLET"
)

// ErrGateway wraps every failure returned by the gateway API.
var ErrGateway = errors.New("payment gateway error")

// Config describes the merchant account used for gateway requests.
type Config struct {
	BaseURL             string
	APIKey              string
	IframeID            string
	CardIntegrationID   int
	WalletIntegrationID int
	Timeout             time.Duration
}

// BillingData is the customer block required by the payment key endpoint.
type BillingData struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
	Apartment   string `json:"apartment"`
	Floor       string `json:"floor"`
	Street      string `json:"street"`
	Building    string `json:"building"`
	City        string `json:"city"`
	Country     string `json:"country"`
	State       string `json:"state"`
	PostalCode  string `json:"postal_code"`
}

// NewBillingData fills the mandatory address placeholders the gateway expects.
func NewBillingData(name, email, phone string) BillingData {
	first, last, found := strings.Cut(strings.TrimSpace(name), " ")
	if first == "" {
		first = "NA"
	}
	if !found || strings.TrimSpace(last) == "" {
		last = first
	}
	if phone == "" {
		phone = "NA"
	}

	return BillingData{
		FirstName:   first,
		LastName:    strings.TrimSpace(last),
		Email:       email,
		PhoneNumber: phone,
		Apartment:   "NA",
		Floor:       "NA",
		Street:      "NA",
		Building:    "NA",
		City:        "NA",
		Country:     "NA",
		State:       "NA",
		PostalCode:  "NA",
	}
}

// Client talks to the gateway acceptance API.
type Client struct {
	http   *resty.Client
	cfg    Config
	logger zerolog.Logger

	mu           sync.Mutex
	authToken    string
	authTokenExp time.Time
	now          func() time.Time
}

// New constructs a gateway client. The resty client timeout bounds every call.
func New(cfg Config, logger zerolog.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("paymob base url must not be empty")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("paymob api key must not be empty")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{
		http:   httpClient,
		cfg:    cfg,
		logger: logger.With().Str("component", "paymob_client").Logger(),
		now:    time.Now,
	}, nil
}

type authResponse struct {
	Token string `json:"token"`
}

type orderResponse struct {
	ID int64 `json:"id"`
}

type paymentKeyResponse struct {
	Token string `json:"token"`
}

type walletResponse struct {
	RedirectURL          string `json:"redirect_url"`
	IframeRedirectionURL string `json:"iframe_redirection_url"`
}

// CreateOrder registers an order for amountCents and returns the gateway order id.
func (c *Client) CreateOrder(ctx context.Context, amountCents int64, currency, merchantReference string) (string, error) {
	token, err := c.token(ctx)
	if err != nil {
		return "", err
	}

	body := map[string]interface{}{
		"auth_token":        token,
		"delivery_needed":   "false",
		"amount_cents":      strconv.FormatInt(amountCents, 10),
		"currency":          currency,
		"merchant_order_id": merchantReference,
		"items":             []interface{}{},
	}

	var out orderResponse
	if err := c.post(ctx, "/api/ecommerce/orders", body, &out); err != nil {
		return "", err
	}
	if out.ID == 0 {
		return "", fmt.Errorf("%w: order id missing in response", ErrGateway)
	}

	return strconv.FormatInt(out.ID, 10), nil
}

// RequestPaymentKey obtains the payment token bound to an order and integration.
func (c *Client) RequestPaymentKey(ctx context.Context, orderID string, billing BillingData, amountCents int64, currency, method string) (string, error) {
	integrationID, err := c.integrationFor(method)
	if err != nil {
		return "", err
	}

	token, err := c.token(ctx)
	if err != nil {
		return "", err
	}

	body := map[string]interface{}{
		"auth_token":           token,
		"amount_cents":         strconv.FormatInt(amountCents, 10),
		"expiration":           paymentKeyLifetime,
		"order_id":             orderID,
		"billing_data":         billing,
		"currency":             currency,
		"integration_id":       integrationID,
		"lock_order_when_paid": "true",
	}

	var out paymentKeyResponse
	if err := c.post(ctx, "/api/acceptance/payment_keys", body, &out); err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", fmt.Errorf("%w: payment token missing in response", ErrGateway)
	}

	return out.Token, nil
}

// RedirectURL resolves where the customer completes the payment: the card
// iframe, or the wallet provider page returned by the pay endpoint.
func (c *Client) RedirectURL(ctx context.Context, method, paymentToken, walletPhone string) (string, error) {
	switch method {
	case MethodCard:
		if c.cfg.IframeID == "" {
			return "", fmt.Errorf("%w: iframe id not configured", ErrGateway)
		}
		return fmt.Sprintf("%s/api/acceptance/iframes/%s?payment_token=%s", c.cfg.BaseURL, url.PathEscape(c.cfg.IframeID), url.QueryEscape(paymentToken)), nil
	case MethodWallet:
		body := map[string]interface{}{
			"source": map[string]string{
				"identifier": walletPhone,
				"subtype":    walletSubtype,
			},
			"payment_token": paymentToken,
		}

		var out walletResponse
		if err := c.post(ctx, "/api/acceptance/payments/pay", body, &out); err != nil {
			return "", err
		}
		if out.RedirectURL != "" {
			return out.RedirectURL, nil
		}
		if out.IframeRedirectionURL != "" {
			return out.IframeRedirectionURL, nil
		}
		return "", fmt.Errorf("%w: wallet redirect url missing in response", ErrGateway)
	default:
		return "", fmt.Errorf("%w: unsupported payment method %q", ErrGateway, method)
	}
}

func (c *Client) integrationFor(method string) (int, error) {
	switch method {
	case MethodCard:
		if c.cfg.CardIntegrationID == 0 {
			return 0, fmt.Errorf("%w: card integration not configured", ErrGateway)
		}
		return c.cfg.CardIntegrationID, nil
	case MethodWallet:
		if c.cfg.WalletIntegrationID == 0 {
			return 0, fmt.Errorf("%w: wallet integration not configured", ErrGateway)
		}
		return c.cfg.WalletIntegrationID, nil
	default:
		return 0, fmt.Errorf("%w: unsupported payment method %q", ErrGateway, method)
	}
}

func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.authToken != "" && c.now().Before(c.authTokenExp) {
		return c.authToken, nil
	}

	var out authResponse
	if err := c.post(ctx, "/api/auth/tokens", map[string]string{"api_key": c.cfg.APIKey}, &out); err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", fmt.Errorf("%w: auth token missing in response", ErrGateway)
	}

	c.authToken = out.Token
	c.authTokenExp = c.now().Add(authTokenTTL)
	return c.authToken, nil
}

func (c *Client) post(ctx context.Context, path string, body interface{}, out interface{}) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(out).
		Post(path)
	if err != nil {
		c.logger.Warn().Err(err).Str("path", path).Msg("gateway request failed")
		return fmt.Errorf("%w: %v", ErrGateway, err)
	}
	if resp.IsError() {
		c.logger.Warn().Str("path", path).Int("status", resp.StatusCode()).Msg("gateway returned error status")
		return fmt.Errorf("%w: %s returned status %d", ErrGateway, path, resp.StatusCode())
	}
	return nil
}
