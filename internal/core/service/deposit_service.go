package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"coinsettle.com/internal/cache"
	"coinsettle.com/internal/domain"
	"coinsettle.com/pkg/logger"
	"coinsettle.com/pkg/xerr"
)

type DepositRequest struct {
	UserID          int64
	TransactionHash string
	EventID         int64
}

// DepositService 充值入账校验
// 入账凭链上交易本身说话：客户端只报 hash，金额/币种/收款人全部从链上内省
type DepositService struct {
	deposits    domain.DepositRepo
	wallets     domain.WalletRepo
	tx          domain.Transactor
	rates       RateProvider
	dispatchers *domain.DispatcherSet
	cache       *cache.Cache
}

func NewDepositService(
	deposits domain.DepositRepo,
	wallets domain.WalletRepo,
	tx domain.Transactor,
	rates RateProvider,
	dispatchers *domain.DispatcherSet,
	c *cache.Cache,
) *DepositService {
	return &DepositService{
		deposits:    deposits,
		wallets:     wallets,
		tx:          tx,
		rates:       rates,
		dispatchers: dispatchers,
		cache:       c,
	}
}

// Validate 校验并入账一笔链上充值
func (s *DepositService) Validate(ctx context.Context, req DepositRequest) (*domain.Deposit, error) {
	txHash := strings.TrimSpace(req.TransactionHash)
	if txHash == "" {
		return nil, xerr.NewErrCode(xerr.RequestParamsError)
	}

	logger.Info(ctx, "开始校验充值",
		zap.Int64("user_id", req.UserID),
		zap.String("tx_hash", txHash))

	// 幂等闸门：hash 已入账就到此为止，不再碰链和账本
	existing, err := s.deposits.ActiveDepositByHash(ctx, txHash)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, xerr.NewErrCode(xerr.DepositAlreadyExists)
	}

	// 充值内省目前只有 Solana 链支持
	dispatcher, err := s.dispatchers.ForKind(domain.ChainSolana)
	if err != nil {
		return nil, xerr.New(xerr.TechnicalError, err.Error())
	}
	info, err := dispatcher.TransactionInfo(ctx, txHash)
	if err != nil {
		return nil, err
	}

	// 收款地址必须是我们托管的钱包，且归属声称的这个用户
	wallet, err := s.wallets.WalletByAddress(ctx, info.Recipient)
	if err != nil {
		return nil, err
	}
	if wallet.UserID != req.UserID {
		logger.Warn(ctx, "充值归属校验失败",
			zap.Int64("asserted_user", req.UserID),
			zap.Int64("wallet_user", wallet.UserID),
			zap.String("tx_hash", txHash))
		return nil, xerr.NewErrCode(xerr.UserIdMismatch)
	}

	rate, err := s.rates.Rate(ctx, info.Asset.CoinID)
	if err != nil {
		return nil, err
	}
	fiat := domain.Truncate(info.Amount.Mul(rate), domain.FiatScale)

	d := &domain.Deposit{
		UserID:          req.UserID,
		CoinID:          info.Asset.CoinID,
		Amount:          info.Amount,
		FiatAmount:      fiat,
		WalletID:        wallet.ID,
		TransactionHash: txHash,
		Status:          true,
		EventID:         req.EventID,
	}
	err = s.tx.Transaction(ctx, func(txCtx context.Context) error {
		return s.deposits.CreateDeposit(txCtx, d)
	})
	if err != nil {
		return nil, err
	}

	s.cache.SetJSON(ctx, cache.KeyDeposit(d.ID), d, cache.TTLShort)
	s.refreshUserDeposits(ctx, req.UserID)

	logger.Info(ctx, "充值入账完成",
		zap.Int64("deposit_id", d.ID),
		zap.Int16("coin_id", d.CoinID),
		zap.String("amount", d.Amount.String()),
		zap.String("fiat_amount", d.FiatAmount.String()))
	return d, nil
}

// History 充值历史，未带过滤条件的首页先试缓存
func (s *DepositService) History(ctx context.Context, q domain.DepositHistoryQuery) (*domain.DepositHistoryResult, error) {
	if q.Page <= 1 && q.Status == nil && q.FromDate == nil && q.ToDate == nil {
		var list []domain.Deposit
		if err := s.cache.GetJSON(ctx, cache.KeyDepositsByUser(q.UserID), &list); err == nil {
			perPage := q.PerPage
			if perPage < 1 {
				perPage = 20
			}
			page := list
			if len(page) > perPage {
				page = page[:perPage]
			}
			return &domain.DepositHistoryResult{
				Page:         1,
				PerPage:      perPage,
				TotalResults: int64(len(list)),
				TotalPages:   totalPages(int64(len(list)), perPage),
				Data:         page,
			}, nil
		}
	}
	return s.deposits.DepositHistory(ctx, q)
}

func (s *DepositService) refreshUserDeposits(ctx context.Context, userID int64) {
	if !s.cache.Enabled() {
		return
	}
	list, err := s.deposits.DepositsByUserID(ctx, userID)
	if err != nil {
		logger.Warn(ctx, "刷新用户充值缓存失败", zap.Int64("user_id", userID), zap.Error(err))
		return
	}
	s.cache.SetJSON(ctx, cache.KeyDepositsByUser(userID), list, cache.TTLShort)
}
