package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"coinsettle.com/internal/cache"
	"coinsettle.com/internal/domain"
	"coinsettle.com/pkg/logger"
	"coinsettle.com/pkg/xerr"
)

// RateProvider 汇率读取口，WithdrawService/DepositService 只读不写
type RateProvider interface {
	Rate(ctx context.Context, coinID int16) (decimal.Decimal, error)
}

// BoundsProvider 出款限额配置
type BoundsProvider interface {
	WithdrawalBounds(ctx context.Context) (min, max decimal.Decimal, err error)
}

type WithdrawRequest struct {
	UserID    int64
	CoinID    int16
	UsdAmount decimal.Decimal
	Address   string
	EventID   int64
}

// WithdrawService 出款编排
// 流程: 校验 -> 抢用户锁 -> 限额 -> 落 pending -> 链上发送 -> 查手续费 -> 事务结算
// 链上发送永远在 DB 事务之外，事务里只做本地写
type WithdrawService struct {
	users       domain.UserRepo
	coins       domain.CoinRepo
	withdrawals domain.WithdrawalRepo
	tx          domain.Transactor
	rates       RateProvider
	bounds      BoundsProvider
	locks       *TxLockRegistry
	dispatchers *domain.DispatcherSet
	assets      *domain.AssetTable
	cache       *cache.Cache
}

func NewWithdrawService(
	users domain.UserRepo,
	coins domain.CoinRepo,
	withdrawals domain.WithdrawalRepo,
	tx domain.Transactor,
	rates RateProvider,
	bounds BoundsProvider,
	locks *TxLockRegistry,
	dispatchers *domain.DispatcherSet,
	assets *domain.AssetTable,
	c *cache.Cache,
) *WithdrawService {
	return &WithdrawService{
		users:       users,
		coins:       coins,
		withdrawals: withdrawals,
		tx:          tx,
		rates:       rates,
		bounds:      bounds,
		locks:       locks,
		dispatchers: dispatchers,
		assets:      assets,
		cache:       c,
	}
}

// Withdraw 发起一笔出款
func (s *WithdrawService) Withdraw(ctx context.Context, req WithdrawRequest) (*domain.Withdrawal, error) {
	logger.Info(ctx, "开始出款",
		zap.Int64("user_id", req.UserID),
		zap.Int16("coin_id", req.CoinID),
		zap.String("usd_amount", req.UsdAmount.String()))

	if req.UsdAmount.Sign() <= 0 {
		return nil, xerr.NewErrCode(xerr.InvalidAmount)
	}
	if req.Address == "" {
		return nil, xerr.NewErrCode(xerr.InvalidAddress)
	}

	user, err := s.users.UserByID(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	minBound, maxBound, err := s.bounds.WithdrawalBounds(ctx)
	if err != nil {
		return nil, err
	}
	coin, err := s.coins.CoinByID(ctx, req.CoinID)
	if err != nil {
		return nil, err
	}
	asset, ok := s.assets.ByCoinID(coin.ID)
	if !ok {
		return nil, xerr.New(xerr.ConfigMissing, fmt.Sprintf("coin %d has no chain asset", coin.ID))
	}
	dispatcher, err := s.dispatchers.ForAsset(asset)
	if err != nil {
		return nil, xerr.New(xerr.TechnicalError, err.Error())
	}
	rate, err := s.rates.Rate(ctx, coin.ID)
	if err != nil {
		return nil, err
	}
	if rate.Sign() <= 0 {
		return nil, xerr.New(xerr.TechnicalError, fmt.Sprintf("rate for coin %d is not positive", coin.ID))
	}

	// 同一个用户一次只能有一笔在途
	if !s.locks.TryAcquire(user.ID) {
		return nil, xerr.NewErrCode(xerr.TransactionInProgress)
	}
	// 之后所有退出路径都必须放锁
	defer s.locks.Release(user.ID)

	coinAmount := domain.Truncate8(req.UsdAmount.Div(rate))
	if req.UsdAmount.LessThan(minBound) {
		return nil, xerr.NewErrCode(xerr.LessThanMinimum)
	}
	if req.UsdAmount.GreaterThan(maxBound) {
		return nil, xerr.NewErrCode(xerr.GreaterThanMaximum)
	}

	// 链上发送之前先落 pending，进程崩在发送途中也能查到这次尝试
	w := &domain.Withdrawal{
		UserID:     user.ID,
		CoinID:     coin.ID,
		UsdAmount:  req.UsdAmount,
		CoinAmount: coinAmount,
		Address:    req.Address,
		EventID:    req.EventID,
	}
	if err := s.withdrawals.CreatePendingWithdrawal(ctx, w); err != nil {
		return nil, err
	}

	txHash, err := dispatcher.Send(ctx, domain.SendRequest{
		Asset:   asset,
		UserID:  user.ID,
		Address: req.Address,
		Amount:  coinAmount,
	})
	if err != nil {
		logger.Error(ctx, "链上发送失败",
			zap.Int64("withdrawal_id", w.ID),
			zap.Error(err))
		// 标失败是尽力而为，标不上也要把发送错误抛出去
		if markErr := s.withdrawals.MarkWithdrawalFailed(ctx, w.ID); markErr != nil {
			logger.Error(ctx, "标记出款失败状态出错", zap.Int64("withdrawal_id", w.ID), zap.Error(markErr))
		}
		return nil, err
	}

	// 手续费查询失败按 0 记，这笔钱已经发出去了，不能因为查费失败让整单报错
	feeCoin, err := dispatcher.NetworkFee(ctx, txHash, coinAmount)
	if err != nil {
		logger.Warn(ctx, "查询网络手续费失败，按 0 记账",
			zap.String("tx_hash", txHash), zap.Error(err))
		feeCoin = decimal.Zero
	}
	feeCoin = domain.Truncate8(feeCoin)
	feeUsd := domain.Truncate8(feeCoin.Mul(rate))

	err = s.tx.Transaction(ctx, func(txCtx context.Context) error {
		return s.withdrawals.SettleWithdrawal(txCtx, w.ID, txHash, feeCoin, feeUsd)
	})
	if err != nil {
		// 链上已经发出去但本地没结上账，这是要人工对账的硬伤口径
		logger.Error(ctx, "出款结算落库失败，需要人工对账",
			zap.Int64("withdrawal_id", w.ID),
			zap.String("tx_hash", txHash),
			zap.Error(err))
		return nil, xerr.New(xerr.DbError, fmt.Sprintf("settle withdrawal %d failed", w.ID))
	}

	w.TransactionHash = txHash
	w.FeeCoinAmount = feeCoin
	w.FeeUsdAmount = feeUsd
	w.Status = domain.WithdrawStatusSettled

	// 缓存是锦上添花，写不进也不影响结果
	s.cache.SetJSON(ctx, cache.KeyWithdrawal(w.ID), w, cache.TTLShort)
	s.refreshUserWithdrawals(ctx, user.ID)

	logger.Info(ctx, "出款完成",
		zap.Int64("withdrawal_id", w.ID),
		zap.String("tx_hash", txHash),
		zap.String("coin_amount", coinAmount.String()),
		zap.String("fee_coin", feeCoin.String()))
	return w, nil
}

// Rollback 对账事件回滚，只翻本地状态，链上转账收不回来
func (s *WithdrawService) Rollback(ctx context.Context, eventID int64) error {
	if err := s.withdrawals.RollbackWithdrawalByEventID(ctx, eventID); err != nil {
		return err
	}
	logger.Info(ctx, "出款已按事件回滚", zap.Int64("event_id", eventID))
	return nil
}

// History 出款历史，未带过滤条件的首页先试缓存，其余直接查库
func (s *WithdrawService) History(ctx context.Context, q domain.WithdrawalHistoryQuery) (*domain.WithdrawalHistoryResult, error) {
	if q.Page <= 1 && q.Status == nil && q.FromDate == nil && q.ToDate == nil {
		var list []domain.Withdrawal
		if err := s.cache.GetJSON(ctx, cache.KeyWithdrawalsByUser(q.UserID), &list); err == nil {
			perPage := q.PerPage
			if perPage < 1 {
				perPage = 20
			}
			page := list
			if len(page) > perPage {
				page = page[:perPage]
			}
			return &domain.WithdrawalHistoryResult{
				Page:         1,
				PerPage:      perPage,
				TotalResults: int64(len(list)),
				TotalPages:   totalPages(int64(len(list)), perPage),
				Data:         page,
			}, nil
		}
	}
	return s.withdrawals.WithdrawalHistory(ctx, q)
}

func totalPages(total int64, perPage int) int {
	if perPage <= 0 {
		return 0
	}
	return int((total + int64(perPage) - 1) / int64(perPage))
}

func (s *WithdrawService) refreshUserWithdrawals(ctx context.Context, userID int64) {
	if !s.cache.Enabled() {
		return
	}
	list, err := s.withdrawals.WithdrawalsByUserID(ctx, userID)
	if err != nil {
		logger.Warn(ctx, "刷新用户出款缓存失败", zap.Int64("user_id", userID), zap.Error(err))
		return
	}
	s.cache.SetJSON(ctx, cache.KeyWithdrawalsByUser(userID), list, cache.TTLShort)
}
