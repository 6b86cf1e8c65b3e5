package service

import (
	"context"
	"fmt"
	"os"

	"github.com/shopspring/decimal"

	"coinsettle.com/internal/cache"
	"coinsettle.com/internal/domain"
	"coinsettle.com/pkg/xerr"
)

// 业务运行时配置项的 Key
const (
	CfgWithdrawalMinimum = "WITHDRAWAL_MINIMUM"
	CfgWithdrawalMaximum = "WITHDRAWAL_MAXIMUM"
	CfgSolanaAddress     = "SOLANA_ADDRESS"
	CfgCMCAPIKey         = "COIN_MARKET_CAP_API_KEY"
	CfgCMCBaseURL        = "COIN_MARKET_CAP_BASE_URL"
	CfgMnemonicPhrase    = "MNEMONIC_PHRASE"
	CfgLitecoinRPCURL    = "LTC_RPC_URL"
	CfgLitecoinRPCUser   = "LTC_RPC_USER"
	CfgLitecoinRPCPass   = "LTC_RPC_PASSWORD"
	CfgSolanaRPCURL      = "SOLANA_RPC_URL"
)

// ConfigService 运行时配置，读取优先级: 缓存 -> 环境变量 -> configs 表
// 环境变量优先于库表，方便部署时临时覆盖而不动数据
type ConfigService struct {
	repo  domain.ConfigRepo
	cache *cache.Cache
}

func NewConfigService(repo domain.ConfigRepo, c *cache.Cache) *ConfigService {
	return &ConfigService{repo: repo, cache: c}
}

// Get 可选配置，三级都没有返回 ("", nil)
func (s *ConfigService) Get(ctx context.Context, name string) (string, error) {
	var cached string
	if err := s.cache.GetJSON(ctx, cache.KeyConfig(name), &cached); err == nil {
		return cached, nil
	}

	if v, ok := os.LookupEnv(name); ok && v != "" {
		s.cache.SetJSON(ctx, cache.KeyConfig(name), v, cache.TTLShort)
		return v, nil
	}

	entry, err := s.repo.ConfigByName(ctx, name)
	if err != nil {
		return "", err
	}
	if entry == nil {
		return "", nil
	}
	s.cache.SetJSON(ctx, cache.KeyConfig(name), entry.Value, cache.TTLShort)
	return entry.Value, nil
}

// MustGet 必填配置，缺失是硬错误，宁可拒单也不能用错误参数结算
func (s *ConfigService) MustGet(ctx context.Context, name string) (string, error) {
	v, err := s.Get(ctx, name)
	if err != nil {
		return "", err
	}
	if v == "" {
		return "", xerr.New(xerr.ConfigMissing, fmt.Sprintf("config %s is required", name))
	}
	return v, nil
}

// MustGetDecimal 限额这类数值配置
func (s *ConfigService) MustGetDecimal(ctx context.Context, name string) (decimal.Decimal, error) {
	v, err := s.MustGet(ctx, name)
	if err != nil {
		return decimal.Zero, err
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, xerr.New(xerr.ConfigMissing, fmt.Sprintf("config %s is not a number: %q", name, v))
	}
	return d, nil
}

// WithdrawalBounds 出款限额，min/max 都是必填
func (s *ConfigService) WithdrawalBounds(ctx context.Context) (min, max decimal.Decimal, err error) {
	min, err = s.MustGetDecimal(ctx, CfgWithdrawalMinimum)
	if err != nil {
		return
	}
	max, err = s.MustGetDecimal(ctx, CfgWithdrawalMaximum)
	return
}

func (s *ConfigService) Create(ctx context.Context, name, value string) error {
	if err := s.repo.CreateConfig(ctx, &domain.ConfigEntry{Name: name, Value: value}); err != nil {
		return err
	}
	s.cache.SetJSON(ctx, cache.KeyConfig(name), value, cache.TTLShort)
	return nil
}

func (s *ConfigService) Update(ctx context.Context, name, value string) error {
	if _, err := s.repo.UpdateConfig(ctx, name, value); err != nil {
		return err
	}
	s.cache.SetJSON(ctx, cache.KeyConfig(name), value, cache.TTLShort)
	return nil
}

func (s *ConfigService) Delete(ctx context.Context, name string) error {
	if err := s.repo.DeleteConfig(ctx, name); err != nil {
		return err
	}
	s.cache.Delete(ctx, cache.KeyConfig(name))
	return nil
}
