package solana

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/shopspring/decimal"

	"coinsettle.com/internal/domain"
	"coinsettle.com/pkg/xerr"
)

// classify 从交易元数据里还原这笔转账的币种/金额/收发方
//
// 判定规则：
//   - 没有 token 余额变化 => 原生 SOL 转账，金额取第二个账户的 lamports 差值
//     (简单转账里 keys[0] 是付款方，keys[1] 是收款方)
//   - 否则 => SPL 转账，pre 里白名单 mint 的持有人是付款方，
//     post 里换了持有人的那条是收款方
//
// mint 不在允许表里的交易一律拒绝，不入账
func classify(meta *rpc.TransactionMeta, keys []solana.PublicKey, assets *domain.AssetTable) (*domain.ChainTransferInfo, error) {
	if meta == nil {
		return nil, xerr.New(xerr.TechnicalError, "transaction meta is missing")
	}
	fee := lamportsToSol(meta.Fee)

	if len(meta.PostTokenBalances) == 0 {
		return classifyNative(meta, keys, fee, assets)
	}
	return classifySPL(meta, fee, assets)
}

func classifyNative(meta *rpc.TransactionMeta, keys []solana.PublicKey, fee decimal.Decimal, assets *domain.AssetTable) (*domain.ChainTransferInfo, error) {
	asset, ok := assets.NativeSolana()
	if !ok {
		return nil, xerr.New(xerr.ConfigMissing, "native solana asset is not configured")
	}
	if len(keys) < 2 || len(meta.PreBalances) < 2 || len(meta.PostBalances) < 2 {
		return nil, xerr.New(xerr.TechnicalError, "transaction does not look like a simple transfer")
	}

	lamports := int64(meta.PostBalances[1]) - int64(meta.PreBalances[1])
	if lamports <= 0 {
		return nil, xerr.New(xerr.InvalidAmount, "recipient balance did not increase")
	}

	return &domain.ChainTransferInfo{
		Asset:      asset,
		Amount:     domain.Truncate(decimal.NewFromInt(lamports).Shift(-int32(domain.NativeScale)), domain.NativeScale),
		NetworkFee: fee,
		Sender:     keys[0].String(),
		Recipient:  keys[1].String(),
	}, nil
}

func classifySPL(meta *rpc.TransactionMeta, fee decimal.Decimal, assets *domain.AssetTable) (*domain.ChainTransferInfo, error) {
	var (
		asset  domain.ChainAsset
		sender string
	)
	for _, pre := range meta.PreTokenBalances {
		a, ok := assets.ByMint(pre.Mint.String())
		if !ok {
			continue
		}
		asset = a
		if pre.Owner != nil {
			sender = pre.Owner.String()
		}
		break
	}
	if sender == "" {
		return nil, xerr.New(xerr.TechnicalError, "no supported mint in token balances")
	}

	for _, post := range meta.PostTokenBalances {
		if _, ok := assets.ByMint(post.Mint.String()); !ok {
			continue
		}
		if post.Owner == nil || post.Owner.String() == sender {
			continue
		}
		amount, err := tokenAmount(post.UiTokenAmount)
		if err != nil {
			return nil, err
		}
		return &domain.ChainTransferInfo{
			Asset:      asset,
			Amount:     domain.Truncate8(amount),
			NetworkFee: fee,
			Sender:     sender,
			Recipient:  post.Owner.String(),
		}, nil
	}
	return nil, xerr.New(xerr.TechnicalError, "no recipient token balance found")
}

// tokenAmount 优先用节点已折算的 uiAmountString，缺了再自己按 decimals 折
func tokenAmount(ui *rpc.UiTokenAmount) (decimal.Decimal, error) {
	if ui == nil {
		return decimal.Zero, xerr.New(xerr.TechnicalError, "token balance has no amount")
	}
	if ui.UiAmountString != "" {
		d, err := decimal.NewFromString(ui.UiAmountString)
		if err == nil {
			return d, nil
		}
	}
	raw, err := decimal.NewFromString(ui.Amount)
	if err != nil {
		return decimal.Zero, xerr.New(xerr.TechnicalError, fmt.Sprintf("bad token amount %q", ui.Amount))
	}
	return raw.Shift(-int32(ui.Decimals)), nil
}

func lamportsToSol(lamports uint64) decimal.Decimal {
	return decimal.NewFromUint64(lamports).Shift(-int32(domain.NativeScale))
}
