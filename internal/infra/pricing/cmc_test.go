package pricing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coinsettle.com/pkg/xerr"
)

func TestUSDPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/tools/price-conversion", r.URL.Path)
		assert.Equal(t, "LTC", r.URL.Query().Get("symbol"))
		assert.Equal(t, "USD", r.URL.Query().Get("convert"))
		assert.Equal(t, "1", r.URL.Query().Get("amount"))
		assert.Equal(t, "test-key", r.Header.Get("X-CMC_PRO_API_KEY"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"status": {"error_code": 0, "error_message": null},
			"data": {"quote": {"USD": {"price": 85.123456789}}}
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key")
	price, err := c.USDPrice(context.Background(), "LTC")
	require.NoError(t, err)
	// 超出 8 位的部分截断
	assert.True(t, price.Equal(decimal.RequireFromString("85.12345678")), "got %s", price)
}

func TestUSDPriceAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"status": {"error_code": 1001, "error_message": "API key invalid"}
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "bad-key")
	_, err := c.USDPrice(context.Background(), "LTC")
	assert.True(t, xerr.IsCode(err, xerr.RpcError))
}

func TestUSDPriceHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k")
	_, err := c.USDPrice(context.Background(), "SOL")
	assert.True(t, xerr.IsCode(err, xerr.RpcError))
}

func TestUSDPriceMissingQuote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status": {"error_code": 0}, "data": {"quote": {}}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k")
	_, err := c.USDPrice(context.Background(), "SOL")
	assert.Error(t, err)
}
