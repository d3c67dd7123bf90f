package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fitzone/booking-api/pkg/config"
)

// Gateway return codes as documented by the provider.
const (
	returnCodeSuccess    = 1
	returnCodeFailed     = 2
	returnCodeProcessing = 3
)

// OrderRequest describes a payment order to create at the gateway.
type OrderRequest struct {
	OrderID     string
	Amount      int64
	Description string
	UserRef     string
}

// OrderResponse is the created order handed back for client redirect.
type OrderResponse struct {
	OrderURL string
	QRCode   string
}

// OrderStatus is the settlement state of an order at the gateway.
type OrderStatus struct {
	Paid       bool
	Processing bool
	Amount     int64
	Message    string
}

// ZaloPayClient talks to the ZaloPay sandbox/production HTTP API. Requests
// are signed with an HMAC-SHA256 mac over the provider's field ordering.
type ZaloPayClient struct {
	httpClient  *http.Client
	baseURL     string
	appID       string
	key         string
	callbackURL string
	logger      *zap.Logger
}

// NewZaloPayClient constructs a gateway client from configuration.
func NewZaloPayClient(cfg config.PaymentConfig, logger *zap.Logger) *ZaloPayClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ZaloPayClient{
		httpClient:  &http.Client{Timeout: timeout},
		baseURL:     strings.TrimRight(cfg.GatewayBaseURL, "/"),
		appID:       cfg.AppID,
		key:         cfg.Key,
		callbackURL: cfg.CallbackURL,
		logger:      logger,
	}
}

// NewOrderID generates a gateway transaction ID. The provider requires the
// yymmdd_ prefix to match the order's creation date.
func NewOrderID() string {
	return fmt.Sprintf("%s_%06d", time.Now().Format("060102"), rand.Intn(1000000))
}

type createOrderResponse struct {
	ReturnCode    int    `json:"return_code"`
	ReturnMessage string `json:"return_message"`
	OrderURL      string `json:"order_url"`
	QRCode        string `json:"qr_code"`
}

// CreateOrder registers a payment order and returns the redirect URL.
func (c *ZaloPayClient) CreateOrder(ctx context.Context, req OrderRequest) (*OrderResponse, error) {
	appTime := strconv.FormatInt(time.Now().UnixMilli(), 10)
	amount := strconv.FormatInt(req.Amount, 10)
	embedData := "{}"
	items := "[]"

	mac := c.sign(strings.Join([]string{
		c.appID, req.OrderID, req.UserRef, amount, appTime, embedData, items,
	}, "|"))

	form := url.Values{}
	form.Set("app_id", c.appID)
	form.Set("app_trans_id", req.OrderID)
	form.Set("app_user", req.UserRef)
	form.Set("app_time", appTime)
	form.Set("amount", amount)
	form.Set("description", req.Description)
	form.Set("embed_data", embedData)
	form.Set("item", items)
	form.Set("callback_url", c.callbackURL)
	form.Set("mac", mac)

	var out createOrderResponse
	if err := c.post(ctx, "/create", form, &out); err != nil {
		return nil, err
	}
	if out.ReturnCode != returnCodeSuccess {
		return nil, fmt.Errorf("gateway rejected order %s: %s", req.OrderID, out.ReturnMessage)
	}
	c.logger.Info("payment order created",
		zap.String("order_id", req.OrderID),
		zap.Int64("amount", req.Amount))
	return &OrderResponse{OrderURL: out.OrderURL, QRCode: out.QRCode}, nil
}

type queryOrderResponse struct {
	ReturnCode    int    `json:"return_code"`
	ReturnMessage string `json:"return_message"`
	IsProcessing  bool   `json:"is_processing"`
	Amount        int64  `json:"amount"`
}

// QueryOrder polls the settlement state of an order.
func (c *ZaloPayClient) QueryOrder(ctx context.Context, orderID string) (*OrderStatus, error) {
	mac := c.sign(strings.Join([]string{c.appID, orderID, c.key}, "|"))

	form := url.Values{}
	form.Set("app_id", c.appID)
	form.Set("app_trans_id", orderID)
	form.Set("mac", mac)

	var out queryOrderResponse
	if err := c.post(ctx, "/query", form, &out); err != nil {
		return nil, err
	}
	return &OrderStatus{
		Paid:       out.ReturnCode == returnCodeSuccess,
		Processing: out.ReturnCode == returnCodeProcessing || out.IsProcessing,
		Amount:     out.Amount,
		Message:    out.ReturnMessage,
	}, nil
}

func (c *ZaloPayClient) post(ctx context.Context, path string, form url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gateway request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gateway returned status %d for %s", resp.StatusCode, path)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode gateway response: %w", err)
	}
	return nil
}

func (c *ZaloPayClient) sign(payload string) string {
	h := hmac.New(sha256.New, []byte(c.key))
	h.Write([]byte(payload))
	return hex.EncodeToString(h.Sum(nil))
}
