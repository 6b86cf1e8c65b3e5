package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"coinsettle.com/internal/cache"
	"coinsettle.com/internal/domain"
	"coinsettle.com/pkg/xerr"
)

type depositFixture struct {
	deposits   *mockDepositRepo
	wallets    *mockWalletRepo
	dispatcher *mockDispatcher
	svc        *DepositService
}

func newDepositFixture(t *testing.T, rate string) *depositFixture {
	t.Helper()
	f := &depositFixture{
		deposits:   new(mockDepositRepo),
		wallets:    new(mockWalletRepo),
		dispatcher: new(mockDispatcher),
	}

	set := domain.NewDispatcherSet()
	set.Register(domain.ChainSolana, f.dispatcher)

	f.svc = NewDepositService(
		f.deposits, f.wallets, fakeTx{},
		fakeRates{rate: d(rate)},
		set, cache.New(nil, false),
	)
	return f
}

func solInfo(amount, recipient string) *domain.ChainTransferInfo {
	return &domain.ChainTransferInfo{
		Asset:     domain.ChainAsset{CoinID: 2, Symbol: "SOL", Kind: domain.ChainSolana, Decimals: 9, Native: true},
		Amount:    d(amount),
		Recipient: recipient,
		Sender:    "sender-addr",
	}
}

func TestDepositHappyPath(t *testing.T) {
	f := newDepositFixture(t, "150")

	f.deposits.On("ActiveDepositByHash", mock.Anything, "sig-1").Return(nil, nil)
	f.dispatcher.On("TransactionInfo", mock.Anything, "sig-1").Return(solInfo("1.5", "our-addr"), nil)
	f.wallets.On("WalletByAddress", mock.Anything, "our-addr").
		Return(&domain.Wallet{ID: 33, UserID: 5, CoinID: 2}, nil)
	f.deposits.On("CreateDeposit", mock.Anything, mock.MatchedBy(func(dep *domain.Deposit) bool {
		// 1.5 * 150 = 225.0000，法币 4 位截断
		return dep.FiatAmount.Equal(d("225")) &&
			dep.Amount.Equal(d("1.5")) &&
			dep.WalletID == 33 &&
			dep.CoinID == 2
	})).Return(nil)

	got, err := f.svc.Validate(context.Background(), DepositRequest{
		UserID: 5, TransactionHash: "sig-1", EventID: 11,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5), got.UserID)
	assert.True(t, got.Status)
	f.deposits.AssertExpectations(t)
}

func TestDepositFiatTruncatesToFourDecimals(t *testing.T) {
	f := newDepositFixture(t, "3")

	f.deposits.On("ActiveDepositByHash", mock.Anything, "sig-2").Return(nil, nil)
	// 0.1 * 3 = 0.3，0.033333333 * 3 = 0.099999999 -> 0.0999
	f.dispatcher.On("TransactionInfo", mock.Anything, "sig-2").Return(solInfo("0.033333333", "our-addr"), nil)
	f.wallets.On("WalletByAddress", mock.Anything, "our-addr").
		Return(&domain.Wallet{ID: 1, UserID: 5, CoinID: 2}, nil)
	f.deposits.On("CreateDeposit", mock.Anything, mock.MatchedBy(func(dep *domain.Deposit) bool {
		return dep.FiatAmount.Equal(d("0.0999"))
	})).Return(nil)

	_, err := f.svc.Validate(context.Background(), DepositRequest{UserID: 5, TransactionHash: "sig-2"})
	require.NoError(t, err)
	f.deposits.AssertExpectations(t)
}

func TestDepositDuplicateHashStopsBeforeChain(t *testing.T) {
	f := newDepositFixture(t, "150")

	f.deposits.On("ActiveDepositByHash", mock.Anything, "sig-dup").
		Return(&domain.Deposit{ID: 1, TransactionHash: "sig-dup"}, nil)

	_, err := f.svc.Validate(context.Background(), DepositRequest{UserID: 5, TransactionHash: "sig-dup"})
	assert.True(t, xerr.IsCode(err, xerr.DepositAlreadyExists))

	// 幂等拒绝后不允许再碰链和账本
	f.dispatcher.AssertNotCalled(t, "TransactionInfo", mock.Anything, mock.Anything)
	f.deposits.AssertNotCalled(t, "CreateDeposit", mock.Anything, mock.Anything)
}

func TestDepositUserMismatchLeavesNoRow(t *testing.T) {
	f := newDepositFixture(t, "150")

	f.deposits.On("ActiveDepositByHash", mock.Anything, "sig-3").Return(nil, nil)
	f.dispatcher.On("TransactionInfo", mock.Anything, "sig-3").Return(solInfo("1", "our-addr"), nil)
	// 钱包归属用户 6，但请求声称是用户 5
	f.wallets.On("WalletByAddress", mock.Anything, "our-addr").
		Return(&domain.Wallet{ID: 2, UserID: 6, CoinID: 2}, nil)

	_, err := f.svc.Validate(context.Background(), DepositRequest{UserID: 5, TransactionHash: "sig-3"})
	assert.True(t, xerr.IsCode(err, xerr.UserIdMismatch))
	f.deposits.AssertNotCalled(t, "CreateDeposit", mock.Anything, mock.Anything)
}

func TestDepositUnknownRecipientWallet(t *testing.T) {
	f := newDepositFixture(t, "150")

	f.deposits.On("ActiveDepositByHash", mock.Anything, "sig-4").Return(nil, nil)
	f.dispatcher.On("TransactionInfo", mock.Anything, "sig-4").Return(solInfo("1", "stranger-addr"), nil)
	f.wallets.On("WalletByAddress", mock.Anything, "stranger-addr").
		Return(nil, xerr.New(xerr.RecordNotFound, "wallet not found"))

	_, err := f.svc.Validate(context.Background(), DepositRequest{UserID: 5, TransactionHash: "sig-4"})
	assert.True(t, xerr.IsCode(err, xerr.RecordNotFound))
	f.deposits.AssertNotCalled(t, "CreateDeposit", mock.Anything, mock.Anything)
}

func TestDepositIntrospectionFailurePropagates(t *testing.T) {
	f := newDepositFixture(t, "150")

	f.deposits.On("ActiveDepositByHash", mock.Anything, "sig-5").Return(nil, nil)
	f.dispatcher.On("TransactionInfo", mock.Anything, "sig-5").
		Return(nil, xerr.New(xerr.TechnicalError, "unsupported mint"))

	_, err := f.svc.Validate(context.Background(), DepositRequest{UserID: 5, TransactionHash: "sig-5"})
	assert.True(t, xerr.IsCode(err, xerr.TechnicalError))
	f.deposits.AssertNotCalled(t, "CreateDeposit", mock.Anything, mock.Anything)
}

func TestDepositEmptyHashRejected(t *testing.T) {
	f := newDepositFixture(t, "150")

	_, err := f.svc.Validate(context.Background(), DepositRequest{UserID: 5, TransactionHash: "   "})
	assert.True(t, xerr.IsCode(err, xerr.RequestParamsError))
	f.deposits.AssertNotCalled(t, "ActiveDepositByHash", mock.Anything, mock.Anything)
}
