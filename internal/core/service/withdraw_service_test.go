package service

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"coinsettle.com/internal/cache"
	"coinsettle.com/internal/domain"
	"coinsettle.com/pkg/xerr"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type withdrawFixture struct {
	users       *mockUserRepo
	coins       *mockCoinRepo
	withdrawals *mockWithdrawalRepo
	dispatcher  *mockDispatcher
	locks       *TxLockRegistry
	svc         *WithdrawService
}

func newWithdrawFixture(t *testing.T, rate, min, max string) *withdrawFixture {
	t.Helper()

	f := &withdrawFixture{
		users:       new(mockUserRepo),
		coins:       new(mockCoinRepo),
		withdrawals: new(mockWithdrawalRepo),
		dispatcher:  new(mockDispatcher),
		locks:       NewTxLockRegistry(),
	}

	assets := domain.NewAssetTable([]domain.ChainAsset{
		{CoinID: 1, Symbol: "LTC", Kind: domain.ChainUTXO, Decimals: 8, Native: true},
	})
	set := domain.NewDispatcherSet()
	set.Register(domain.ChainUTXO, f.dispatcher)

	f.svc = NewWithdrawService(
		f.users, f.coins, f.withdrawals, fakeTx{},
		fakeRates{rate: d(rate)},
		fakeBounds{min: d(min), max: d(max)},
		f.locks, set, assets,
		cache.New(nil, false),
	)
	return f
}

func (f *withdrawFixture) expectUserAndCoin() {
	f.users.On("UserByID", mock.Anything, int64(7)).Return(&domain.User{ID: 7, Status: true}, nil)
	f.coins.On("CoinByID", mock.Anything, int16(1)).Return(&domain.Coin{ID: 1, Symbol: "LTC", Status: true}, nil)
}

func TestWithdrawHappyPath(t *testing.T) {
	f := newWithdrawFixture(t, "20", "10", "1000")
	f.expectUserAndCoin()

	// 100 USD / 20 = 5.00000000 LTC
	f.withdrawals.On("CreatePendingWithdrawal", mock.Anything, mock.Anything).Return(nil)
	f.dispatcher.On("Send", mock.Anything, mock.MatchedBy(func(req domain.SendRequest) bool {
		return req.Amount.Equal(d("5")) && req.Address == "ltc-addr"
	})).Return("txhash-1", nil)
	f.dispatcher.On("NetworkFee", mock.Anything, "txhash-1", mock.Anything).Return(d("0.0001"), nil)
	f.withdrawals.On("SettleWithdrawal", mock.Anything, int64(1), "txhash-1",
		mock.MatchedBy(func(v decimal.Decimal) bool { return v.Equal(d("0.0001")) }),
		mock.MatchedBy(func(v decimal.Decimal) bool { return v.Equal(d("0.002")) }), // 0.0001 * 20
	).Return(nil)

	got, err := f.svc.Withdraw(context.Background(), WithdrawRequest{
		UserID: 7, CoinID: 1, UsdAmount: d("100"), Address: "ltc-addr", EventID: 55,
	})
	require.NoError(t, err)
	assert.True(t, got.CoinAmount.Equal(d("5")))
	assert.Equal(t, "txhash-1", got.TransactionHash)
	assert.Equal(t, domain.WithdrawStatusSettled, got.Status)

	// 完成后锁必须已释放
	assert.False(t, f.locks.IsLocked(7))
	f.withdrawals.AssertExpectations(t)
	f.dispatcher.AssertExpectations(t)
}

func TestWithdrawCoinAmountTruncatesTowardZero(t *testing.T) {
	f := newWithdrawFixture(t, "3", "10", "1000")
	f.expectUserAndCoin()

	// 100/3 = 33.333...，必须截断成 33.33333333 而不是四舍五入
	f.withdrawals.On("CreatePendingWithdrawal", mock.Anything, mock.MatchedBy(func(w *domain.Withdrawal) bool {
		return w.CoinAmount.Equal(d("33.33333333"))
	})).Return(nil)
	f.dispatcher.On("Send", mock.Anything, mock.Anything).Return("h", nil)
	f.dispatcher.On("NetworkFee", mock.Anything, "h", mock.Anything).Return(decimal.Zero, nil)
	f.withdrawals.On("SettleWithdrawal", mock.Anything, mock.Anything, "h", mock.Anything, mock.Anything).Return(nil)

	_, err := f.svc.Withdraw(context.Background(), WithdrawRequest{
		UserID: 7, CoinID: 1, UsdAmount: d("100"), Address: "a", EventID: 1,
	})
	require.NoError(t, err)
	f.withdrawals.AssertExpectations(t)
}

func TestWithdrawBelowMinimumNeverTouchesChain(t *testing.T) {
	f := newWithdrawFixture(t, "20", "10", "1000")
	f.expectUserAndCoin()

	_, err := f.svc.Withdraw(context.Background(), WithdrawRequest{
		UserID: 7, CoinID: 1, UsdAmount: d("5"), Address: "a", EventID: 1,
	})
	assert.True(t, xerr.IsCode(err, xerr.LessThanMinimum))

	// 限额拒绝前不允许有任何链上调用和落库
	f.dispatcher.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	f.withdrawals.AssertNotCalled(t, "CreatePendingWithdrawal", mock.Anything, mock.Anything)
	// 拒绝后锁要放掉
	assert.False(t, f.locks.IsLocked(7))
}

func TestWithdrawAboveMaximum(t *testing.T) {
	f := newWithdrawFixture(t, "20", "10", "1000")
	f.expectUserAndCoin()

	_, err := f.svc.Withdraw(context.Background(), WithdrawRequest{
		UserID: 7, CoinID: 1, UsdAmount: d("5000"), Address: "a", EventID: 1,
	})
	assert.True(t, xerr.IsCode(err, xerr.GreaterThanMaximum))
	f.dispatcher.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	assert.False(t, f.locks.IsLocked(7))
}

func TestWithdrawRejectsWhenUserLocked(t *testing.T) {
	f := newWithdrawFixture(t, "20", "10", "1000")
	f.expectUserAndCoin()

	require.True(t, f.locks.TryAcquire(7))
	_, err := f.svc.Withdraw(context.Background(), WithdrawRequest{
		UserID: 7, CoinID: 1, UsdAmount: d("100"), Address: "a", EventID: 1,
	})
	assert.True(t, xerr.IsCode(err, xerr.TransactionInProgress))
	f.dispatcher.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)

	// 锁是别人占的，被拒绝的请求不能顺手把它放了
	assert.True(t, f.locks.IsLocked(7))
	f.withdrawals.AssertNotCalled(t, "CreatePendingWithdrawal", mock.Anything, mock.Anything)
}

func TestWithdrawChainFailureMarksRowFailed(t *testing.T) {
	f := newWithdrawFixture(t, "20", "10", "1000")
	f.expectUserAndCoin()

	f.withdrawals.On("CreatePendingWithdrawal", mock.Anything, mock.Anything).Return(nil)
	f.dispatcher.On("Send", mock.Anything, mock.Anything).
		Return("", xerr.New(xerr.RpcError, "node unreachable"))
	f.withdrawals.On("MarkWithdrawalFailed", mock.Anything, int64(1)).Return(nil)

	_, err := f.svc.Withdraw(context.Background(), WithdrawRequest{
		UserID: 7, CoinID: 1, UsdAmount: d("100"), Address: "a", EventID: 1,
	})
	assert.True(t, xerr.IsCode(err, xerr.RpcError))
	assert.False(t, f.locks.IsLocked(7))
	f.withdrawals.AssertExpectations(t)
}

func TestWithdrawFeeLookupFailureSettlesWithZeroFee(t *testing.T) {
	f := newWithdrawFixture(t, "20", "10", "1000")
	f.expectUserAndCoin()

	f.withdrawals.On("CreatePendingWithdrawal", mock.Anything, mock.Anything).Return(nil)
	f.dispatcher.On("Send", mock.Anything, mock.Anything).Return("h", nil)
	f.dispatcher.On("NetworkFee", mock.Anything, "h", mock.Anything).
		Return(decimal.Zero, xerr.New(xerr.RpcError, "fee lookup failed"))
	f.withdrawals.On("SettleWithdrawal", mock.Anything, int64(1), "h",
		mock.MatchedBy(func(v decimal.Decimal) bool { return v.IsZero() }),
		mock.MatchedBy(func(v decimal.Decimal) bool { return v.IsZero() }),
	).Return(nil)

	got, err := f.svc.Withdraw(context.Background(), WithdrawRequest{
		UserID: 7, CoinID: 1, UsdAmount: d("100"), Address: "a", EventID: 1,
	})
	require.NoError(t, err)
	assert.True(t, got.FeeCoinAmount.IsZero())
	f.withdrawals.AssertExpectations(t)
}

func TestWithdrawSettleFailureStillReleasesLock(t *testing.T) {
	f := newWithdrawFixture(t, "20", "10", "1000")
	f.expectUserAndCoin()

	f.withdrawals.On("CreatePendingWithdrawal", mock.Anything, mock.Anything).Return(nil)
	f.dispatcher.On("Send", mock.Anything, mock.Anything).Return("h", nil)
	f.dispatcher.On("NetworkFee", mock.Anything, "h", mock.Anything).Return(decimal.Zero, nil)
	f.withdrawals.On("SettleWithdrawal", mock.Anything, mock.Anything, "h", mock.Anything, mock.Anything).
		Return(xerr.New(xerr.DbError, "commit failed"))

	_, err := f.svc.Withdraw(context.Background(), WithdrawRequest{
		UserID: 7, CoinID: 1, UsdAmount: d("100"), Address: "a", EventID: 1,
	})
	assert.True(t, xerr.IsCode(err, xerr.DbError))
	assert.False(t, f.locks.IsLocked(7))
}

// 同一个用户并发只有一笔能进入发送，其余拿到 TransactionInProgress
func TestWithdrawConcurrentSameUser(t *testing.T) {
	f := newWithdrawFixture(t, "20", "10", "1000")

	f.users.On("UserByID", mock.Anything, int64(7)).Return(&domain.User{ID: 7}, nil)
	f.coins.On("CoinByID", mock.Anything, int16(1)).Return(&domain.Coin{ID: 1, Symbol: "LTC"}, nil)
	f.withdrawals.On("CreatePendingWithdrawal", mock.Anything, mock.Anything).Return(nil)
	started := make(chan struct{})
	release := make(chan struct{})
	f.dispatcher.On("Send", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { close(started); <-release }).
		Return("h", nil)
	f.dispatcher.On("NetworkFee", mock.Anything, "h", mock.Anything).Return(decimal.Zero, nil)
	f.withdrawals.On("SettleWithdrawal", mock.Anything, mock.Anything, "h", mock.Anything, mock.Anything).Return(nil)

	var wg sync.WaitGroup
	wg.Add(1)
	var firstErr error
	go func() {
		defer wg.Done()
		_, firstErr = f.svc.Withdraw(context.Background(), WithdrawRequest{
			UserID: 7, CoinID: 1, UsdAmount: d("100"), Address: "a", EventID: 1,
		})
	}()

	<-started // 第一笔已经拿到锁并卡在链上发送
	_, secondErr := f.svc.Withdraw(context.Background(), WithdrawRequest{
		UserID: 7, CoinID: 1, UsdAmount: d("100"), Address: "a", EventID: 2,
	})
	assert.True(t, xerr.IsCode(secondErr, xerr.TransactionInProgress))

	close(release)
	wg.Wait()
	require.NoError(t, firstErr)
	assert.False(t, f.locks.IsLocked(7))
}

func TestRollbackDelegatesToRepo(t *testing.T) {
	f := newWithdrawFixture(t, "20", "10", "1000")
	f.withdrawals.On("RollbackWithdrawalByEventID", mock.Anything, int64(9)).Return(nil)

	require.NoError(t, f.svc.Rollback(context.Background(), 9))
	f.withdrawals.AssertExpectations(t)
}
