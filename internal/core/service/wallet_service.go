package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"coinsettle.com/internal/cache"
	"coinsettle.com/internal/domain"
	"coinsettle.com/pkg/hdwallet"
	"coinsettle.com/pkg/logger"
	"coinsettle.com/pkg/xerr"
)

// AddressGenerator 节点托管链的收款地址来源 (Litecoin Core getnewaddress)
type AddressGenerator interface {
	GenerateAddress(ctx context.Context) (string, error)
}

// WalletService 用户收款钱包的内部管理，不对外暴露 HTTP
// Solana 系资产走 HD 派生 (索引递增)，UTXO 系让节点钱包发地址
type WalletService struct {
	wallets domain.WalletRepo
	assets  *domain.AssetTable
	hd      *hdwallet.HDWallet
	addrGen AddressGenerator
	cache   *cache.Cache
}

func NewWalletService(wallets domain.WalletRepo, assets *domain.AssetTable, hd *hdwallet.HDWallet, addrGen AddressGenerator, c *cache.Cache) *WalletService {
	return &WalletService{wallets: wallets, assets: assets, hd: hd, addrGen: addrGen, cache: c}
}

// EnsureWallet 有就返回，没有就按链类型建一个
func (s *WalletService) EnsureWallet(ctx context.Context, userID int64, coinID int16) (*domain.Wallet, error) {
	var cached domain.Wallet
	if err := s.cache.GetJSON(ctx, cache.KeyWallet(userID, coinID), &cached); err == nil {
		return &cached, nil
	}

	existing, err := s.wallets.WalletByUserAndCoin(ctx, userID, coinID)
	if err == nil {
		s.cache.SetJSON(ctx, cache.KeyWallet(userID, coinID), existing, cache.TTLLong)
		return existing, nil
	}
	if !xerr.IsCode(err, xerr.RecordNotFound) {
		return nil, err
	}

	asset, ok := s.assets.ByCoinID(coinID)
	if !ok {
		return nil, xerr.New(xerr.ConfigMissing, fmt.Sprintf("coin %d has no chain asset", coinID))
	}

	var w *domain.Wallet
	switch asset.Kind {
	case domain.ChainSolana:
		w, err = s.deriveSolanaWallet(ctx, userID, coinID)
	case domain.ChainUTXO:
		w, err = s.nodeWallet(ctx, userID, coinID)
	default:
		return nil, xerr.New(xerr.TechnicalError, fmt.Sprintf("unsupported chain kind %q", asset.Kind))
	}
	if err != nil {
		return nil, err
	}

	if err := s.wallets.CreateWallet(ctx, w); err != nil {
		return nil, err
	}
	logger.Info(ctx, "创建用户钱包",
		zap.Int64("user_id", userID),
		zap.Int16("coin_id", coinID),
		zap.String("kind", string(asset.Kind)))

	s.cache.SetJSON(ctx, cache.KeyWallet(userID, coinID), w, cache.TTLLong)
	return w, nil
}

// deriveSolanaWallet 取全局最大索引 +1 往后派生，地址永不重复
func (s *WalletService) deriveSolanaWallet(ctx context.Context, userID int64, coinID int16) (*domain.Wallet, error) {
	if s.hd == nil {
		return nil, xerr.New(xerr.ConfigMissing, "hd wallet mnemonic is not configured")
	}
	highest, err := s.wallets.HighestWalletIndex(ctx)
	if err != nil {
		return nil, err
	}
	next := highest + 1

	address, secret, _, err := s.hd.DeriveKeypair(uint32(next))
	if err != nil {
		return nil, xerr.New(xerr.TechnicalError, fmt.Sprintf("derive keypair failed: %v", err))
	}

	return &domain.Wallet{
		UserID:      userID,
		CoinID:      coinID,
		Address:     &address,
		PrivateKey:  &secret,
		WalletIndex: &next,
		Status:      true,
	}, nil
}

func (s *WalletService) nodeWallet(ctx context.Context, userID int64, coinID int16) (*domain.Wallet, error) {
	if s.addrGen == nil {
		return nil, xerr.New(xerr.ConfigMissing, "no address generator for utxo chain")
	}
	address, err := s.addrGen.GenerateAddress(ctx)
	if err != nil {
		return nil, err
	}
	return &domain.Wallet{
		UserID:  userID,
		CoinID:  coinID,
		Address: &address,
		Status:  true,
	}, nil
}
