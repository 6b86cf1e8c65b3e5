package solana

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coinsettle.com/internal/domain"
)

const (
	usdtMint = "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB"
	usdcMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
)

func testAssets() *domain.AssetTable {
	return domain.NewAssetTable([]domain.ChainAsset{
		{CoinID: 2, Symbol: "SOL", Kind: domain.ChainSolana, Decimals: 9, Native: true},
		{CoinID: 3, Symbol: "USDT", Kind: domain.ChainSolana, Mint: usdtMint, Decimals: 6},
		{CoinID: 4, Symbol: "USDC", Kind: domain.ChainSolana, Mint: usdcMint, Decimals: 6},
	})
}

func TestClassifyNativeTransfer(t *testing.T) {
	sender := solana.NewWallet().PublicKey()
	recipient := solana.NewWallet().PublicKey()

	meta := &rpc.TransactionMeta{
		Fee:          5000,
		PreBalances:  []uint64{5_000_000_000, 1_000_000_000},
		PostBalances: []uint64{3_999_995_000, 2_000_000_000},
	}

	info, err := classify(meta, []solana.PublicKey{sender, recipient}, testAssets())
	require.NoError(t, err)
	assert.Equal(t, int16(2), info.Asset.CoinID)
	assert.True(t, info.Amount.Equal(decimal.RequireFromString("1")), "got %s", info.Amount)
	assert.True(t, info.NetworkFee.Equal(decimal.RequireFromString("0.000005")))
	assert.Equal(t, sender.String(), info.Sender)
	assert.Equal(t, recipient.String(), info.Recipient)
}

func TestClassifyNativeRejectsNonIncreasingBalance(t *testing.T) {
	keys := []solana.PublicKey{solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey()}
	meta := &rpc.TransactionMeta{
		PreBalances:  []uint64{1_000_000_000, 2_000_000_000},
		PostBalances: []uint64{999_995_000, 2_000_000_000},
	}
	_, err := classify(meta, keys, testAssets())
	assert.Error(t, err)
}

func TestClassifySPLTransfer(t *testing.T) {
	sender := solana.NewWallet().PublicKey()
	recipient := solana.NewWallet().PublicKey()
	mint := solana.MustPublicKeyFromBase58(usdtMint)

	meta := &rpc.TransactionMeta{
		Fee: 10000,
		PreTokenBalances: []rpc.TokenBalance{
			{Mint: mint, Owner: &sender, UiTokenAmount: &rpc.UiTokenAmount{
				Amount: "100000000", Decimals: 6, UiAmountString: "100",
			}},
		},
		PostTokenBalances: []rpc.TokenBalance{
			{Mint: mint, Owner: &sender, UiTokenAmount: &rpc.UiTokenAmount{
				Amount: "74500000", Decimals: 6, UiAmountString: "74.5",
			}},
			{Mint: mint, Owner: &recipient, UiTokenAmount: &rpc.UiTokenAmount{
				Amount: "25500000", Decimals: 6, UiAmountString: "25.5",
			}},
		},
	}

	info, err := classify(meta, nil, testAssets())
	require.NoError(t, err)
	assert.Equal(t, "USDT", info.Asset.Symbol)
	assert.True(t, info.Amount.Equal(decimal.RequireFromString("25.5")), "got %s", info.Amount)
	assert.True(t, info.NetworkFee.Equal(decimal.RequireFromString("0.00001")))
	assert.Equal(t, sender.String(), info.Sender)
	assert.Equal(t, recipient.String(), info.Recipient)
}

func TestClassifyRejectsUnknownMint(t *testing.T) {
	owner := solana.NewWallet().PublicKey()
	other := solana.NewWallet().PublicKey()
	// 随便一个不在允许表里的 mint
	stray := solana.NewWallet().PublicKey()

	meta := &rpc.TransactionMeta{
		PreTokenBalances: []rpc.TokenBalance{
			{Mint: stray, Owner: &owner, UiTokenAmount: &rpc.UiTokenAmount{Amount: "1", Decimals: 6}},
		},
		PostTokenBalances: []rpc.TokenBalance{
			{Mint: stray, Owner: &other, UiTokenAmount: &rpc.UiTokenAmount{Amount: "1", Decimals: 6}},
		},
	}
	_, err := classify(meta, nil, testAssets())
	assert.Error(t, err)
}

func TestTokenAmountFallsBackToRawUnits(t *testing.T) {
	got, err := tokenAmount(&rpc.UiTokenAmount{Amount: "25500000", Decimals: 6})
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.RequireFromString("25.5")))
}
