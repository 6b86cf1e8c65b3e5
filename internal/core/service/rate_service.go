package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"coinsettle.com/internal/cache"
	"coinsettle.com/internal/domain"
	"coinsettle.com/pkg/logger"
	"coinsettle.com/pkg/xerr"
)

// PriceSource 外部行情源，1 个币折多少 USD
type PriceSource interface {
	USDPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// RateService 汇率读取与维护
// 读取优先级: 缓存 -> 库里最新一条 -> 行情 API (回源结果落库再落缓存)
type RateService struct {
	rates  domain.RateRepo
	coins  domain.CoinRepo
	source PriceSource
	cache  *cache.Cache
	sf     singleflight.Group // 同一币种的 API 回源合并成一次
}

func NewRateService(rates domain.RateRepo, coins domain.CoinRepo, source PriceSource, c *cache.Cache) *RateService {
	return &RateService{rates: rates, coins: coins, source: source, cache: c}
}

// Rate 取币种对 USD 的当前汇率，任何一级拿到都不会返回零值
func (s *RateService) Rate(ctx context.Context, coinID int16) (decimal.Decimal, error) {
	var cached decimal.Decimal
	if err := s.cache.GetJSON(ctx, cache.KeyRate(coinID), &cached); err == nil && cached.Sign() > 0 {
		return cached, nil
	}

	latest, err := s.rates.LatestRateByCoinID(ctx, coinID)
	if err != nil {
		return decimal.Zero, err
	}
	if latest != nil && latest.Rate.Sign() > 0 {
		s.cache.SetJSON(ctx, cache.KeyRate(coinID), latest.Rate, cache.TTLLong)
		return latest.Rate, nil
	}

	// 库里也没有，回源行情 API，并发请求合并
	v, err, _ := s.sf.Do(fmt.Sprintf("rate-%d", coinID), func() (interface{}, error) {
		return s.fetchAndStore(ctx, coinID)
	})
	if err != nil {
		return decimal.Zero, err
	}
	return v.(decimal.Decimal), nil
}

func (s *RateService) fetchAndStore(ctx context.Context, coinID int16) (decimal.Decimal, error) {
	coin, err := s.coins.CoinByID(ctx, coinID)
	if err != nil {
		return decimal.Zero, err
	}
	price, err := s.source.USDPrice(ctx, coin.Symbol)
	if err != nil {
		logger.Error(ctx, "行情回源失败", zap.String("symbol", coin.Symbol), zap.Error(err))
		return decimal.Zero, xerr.New(xerr.TechnicalError, fmt.Sprintf("fetch rate for %s failed", coin.Symbol))
	}
	if err := s.AddRate(ctx, coinID, price); err != nil {
		return decimal.Zero, err
	}
	return price, nil
}

// AddRate 存一条汇率历史并刷新缓存
func (s *RateService) AddRate(ctx context.Context, coinID int16, rate decimal.Decimal) error {
	if rate.Sign() <= 0 {
		return xerr.New(xerr.InvalidAmount, "rate must be positive")
	}
	if err := s.rates.InsertRate(ctx, &domain.ConversionRate{CoinID: coinID, Rate: rate}); err != nil {
		return err
	}
	s.cache.SetJSON(ctx, cache.KeyRate(coinID), rate, cache.TTLLong)
	return nil
}

// RefreshAll 刷新所有启用币种的汇率
// 稳定币 (symbol 含 usd) 跳过；单个币失败只记日志，别的币照常刷
func (s *RateService) RefreshAll(ctx context.Context) error {
	coins, err := s.coins.ActiveCoins(ctx)
	if err != nil {
		return err
	}
	for _, coin := range coins {
		if strings.Contains(strings.ToLower(coin.Symbol), "usd") {
			continue
		}
		price, err := s.source.USDPrice(ctx, coin.Symbol)
		if err != nil {
			logger.Error(ctx, "刷新汇率失败", zap.String("symbol", coin.Symbol), zap.Error(err))
			continue
		}
		if err := s.AddRate(ctx, coin.ID, price); err != nil {
			logger.Error(ctx, "汇率落库失败", zap.String("symbol", coin.Symbol), zap.Error(err))
		}
	}
	return nil
}
