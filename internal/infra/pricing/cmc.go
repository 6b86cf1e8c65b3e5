package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"coinsettle.com/internal/domain"
	"coinsettle.com/pkg/xerr"
)

const requestTimeout = 10 * time.Second

// Client CoinMarketCap 行情客户端
// 只用 price-conversion 这一个接口：1 个币折多少 USD
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: requestTimeout},
	}
}

// conversionReply 只取用得到的字段
type conversionReply struct {
	Status struct {
		ErrorCode    int    `json:"error_code"`
		ErrorMessage string `json:"error_message"`
	} `json:"status"`
	Data struct {
		Quote struct {
			USD struct {
				Price *float64 `json:"price"`
			} `json:"USD"`
		} `json:"quote"`
	} `json:"data"`
}

// USDPrice 查 symbol 对 USD 的现价，按 8 位截断
func (c *Client) USDPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	q := url.Values{}
	q.Set("amount", "1")
	q.Set("symbol", symbol)
	q.Set("convert", "USD")
	endpoint := fmt.Sprintf("%s/v1/tools/price-conversion?%s", c.baseURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return decimal.Zero, xerr.New(xerr.TechnicalError, fmt.Sprintf("build price request failed: %v", err))
	}
	req.Header.Set("X-CMC_PRO_API_KEY", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return decimal.Zero, xerr.New(xerr.RpcError, fmt.Sprintf("price request failed: %v", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return decimal.Zero, xerr.New(xerr.RpcError, fmt.Sprintf("read price reply failed: %v", err))
	}
	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, xerr.New(xerr.RpcError,
			fmt.Sprintf("price api returned %d: %s", resp.StatusCode, string(body)))
	}

	var reply conversionReply
	if err := json.Unmarshal(body, &reply); err != nil {
		return decimal.Zero, xerr.New(xerr.RpcError, fmt.Sprintf("decode price reply failed: %v", err))
	}
	if reply.Status.ErrorCode != 0 {
		return decimal.Zero, xerr.New(xerr.RpcError,
			fmt.Sprintf("price api error %d: %s", reply.Status.ErrorCode, reply.Status.ErrorMessage))
	}
	if reply.Data.Quote.USD.Price == nil {
		return decimal.Zero, xerr.New(xerr.RpcError, fmt.Sprintf("no USD quote for %s", symbol))
	}

	price := domain.Truncate8(decimal.NewFromFloat(*reply.Data.Quote.USD.Price))
	if price.Sign() <= 0 {
		return decimal.Zero, xerr.New(xerr.RpcError, fmt.Sprintf("non-positive USD quote for %s", symbol))
	}
	return price, nil
}
