package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitzone/booking-api/pkg/config"
)

func testClient(t *testing.T, handler http.HandlerFunc) (*ZaloPayClient, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client := NewZaloPayClient(config.PaymentConfig{
		GatewayBaseURL: server.URL,
		AppID:          "2553",
		Key:            "test-key",
		CallbackURL:    "https://api.fitzone.example/payments/callback",
		RequestTimeout: 5 * time.Second,
	}, nil)
	return client, server
}

func signWith(key, payload string) string {
	h := hmac.New(sha256.New, []byte(key))
	h.Write([]byte(payload))
	return hex.EncodeToString(h.Sum(nil))
}

func TestCreateOrderSignsAndSubmitsForm(t *testing.T) {
	var seen map[string]string
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "/create", r.URL.Path)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		seen = map[string]string{}
		for k := range r.PostForm {
			seen[k] = r.PostForm.Get(k)
		}
		w.Write([]byte(`{"return_code":1,"return_message":"success","order_url":"https://sb.zalopay.vn/order/abc","qr_code":"qr-data"}`))
	})

	resp, err := client.CreateOrder(context.Background(), OrderRequest{
		OrderID:     "260828_000123",
		Amount:      250000,
		Description: "Class registration: Morning Yoga",
		UserRef:     "user-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://sb.zalopay.vn/order/abc", resp.OrderURL)
	assert.Equal(t, "qr-data", resp.QRCode)

	assert.Equal(t, "2553", seen["app_id"])
	assert.Equal(t, "260828_000123", seen["app_trans_id"])
	assert.Equal(t, "user-1", seen["app_user"])
	assert.Equal(t, "250000", seen["amount"])
	assert.Equal(t, "https://api.fitzone.example/payments/callback", seen["callback_url"])

	payload := strings.Join([]string{
		"2553", "260828_000123", "user-1", "250000", seen["app_time"], seen["embed_data"], seen["item"],
	}, "|")
	assert.Equal(t, signWith("test-key", payload), seen["mac"])
}

func TestCreateOrderSurfacesGatewayRejection(t *testing.T) {
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"return_code":2,"return_message":"invalid mac"}`))
	})

	_, err := client.CreateOrder(context.Background(), OrderRequest{OrderID: "260828_000001", Amount: 100})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid mac")
}

func TestCreateOrderRejectsNon200(t *testing.T) {
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.CreateOrder(context.Background(), OrderRequest{OrderID: "260828_000001", Amount: 100})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestQueryOrderMapsSettlementStates(t *testing.T) {
	cases := []struct {
		name       string
		body       string
		paid       bool
		processing bool
	}{
		{"paid", `{"return_code":1,"return_message":"success","amount":250000}`, true, false},
		{"processing", `{"return_code":3,"return_message":"processing"}`, false, true},
		{"processing flag", `{"return_code":2,"is_processing":true}`, false, true},
		{"failed", `{"return_code":2,"return_message":"order not found"}`, false, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
				require.NoError(t, r.ParseForm())
				assert.Equal(t, "/query", r.URL.Path)
				payload := strings.Join([]string{"2553", r.PostForm.Get("app_trans_id"), "test-key"}, "|")
				assert.Equal(t, signWith("test-key", payload), r.PostForm.Get("mac"))
				w.Write([]byte(tc.body))
			})

			status, err := client.QueryOrder(context.Background(), "260828_000123")
			require.NoError(t, err)
			assert.Equal(t, tc.paid, status.Paid)
			assert.Equal(t, tc.processing, status.Processing)
		})
	}
}

func TestNewOrderIDMatchesProviderFormat(t *testing.T) {
	id := NewOrderID()
	assert.Regexp(t, regexp.MustCompile(`^\d{6}_\d{6}$`), id)
	assert.True(t, strings.HasPrefix(id, time.Now().Format("060102")))
}
