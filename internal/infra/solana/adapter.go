package solana

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	ata "github.com/gagliardetto/solana-go/programs/associated-token-account"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"coinsettle.com/internal/domain"
	"coinsettle.com/pkg/logger"
	"coinsettle.com/pkg/xerr"
)

// 发送后轮询确认的参数
const (
	confirmAttempts = 30
	confirmInterval = 2 * time.Second
)

// Adapter Solana 原生转账 + SPL token 转账
// 出款统一从服务热钱包签名发出，公共 RPC 有频率限制所以客户端这边也限流
type Adapter struct {
	rpc    *rpc.Client
	payer  solana.PrivateKey
	assets *domain.AssetTable
}

var _ domain.ChainDispatcher = (*Adapter)(nil)

func New(endpoint string, payer solana.PrivateKey, assets *domain.AssetTable) *Adapter {
	rpcClient := rpc.NewWithCustomRPCClient(rpc.NewWithLimiter(
		endpoint,
		rate.Every(time.Second), // time frame
		5,                       // limit of requests per time frame
	))
	return &Adapter{
		rpc:    rpcClient,
		payer:  payer,
		assets: assets,
	}
}

// Send 构建并发送交易，等到 confirmed 才返回
func (a *Adapter) Send(ctx context.Context, req domain.SendRequest) (string, error) {
	recipient, err := solana.PublicKeyFromBase58(req.Address)
	if err != nil {
		return "", xerr.New(xerr.InvalidAddress, fmt.Sprintf("invalid solana address: %v", err))
	}

	// 按资产小数位换成链上最小单位
	units := req.Amount.Shift(int32(req.Asset.Decimals))
	if !units.IsInteger() || units.Sign() <= 0 {
		return "", xerr.New(xerr.InvalidAmount, fmt.Sprintf("amount %s not representable", req.Amount))
	}
	rawUnits := units.BigInt()
	if !rawUnits.IsUint64() {
		return "", xerr.New(xerr.InvalidAmount, fmt.Sprintf("amount %s overflows u64", req.Amount))
	}

	var instructions []solana.Instruction
	if req.Asset.Native {
		instructions = append(instructions, system.NewTransferInstruction(
			rawUnits.Uint64(),
			a.payer.PublicKey(),
			recipient,
		).Build())
	} else {
		instructions, err = a.splTransferInstructions(ctx, req.Asset, recipient, rawUnits.Uint64())
		if err != nil {
			return "", err
		}
	}

	recent, err := a.rpc.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return "", xerr.New(xerr.RpcError, fmt.Sprintf("get blockhash failed: %v", err))
	}

	tx, err := solana.NewTransaction(
		instructions,
		recent.Value.Blockhash,
		solana.TransactionPayer(a.payer.PublicKey()),
	)
	if err != nil {
		return "", xerr.New(xerr.TechnicalError, fmt.Sprintf("build transaction failed: %v", err))
	}

	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(a.payer.PublicKey()) {
			return &a.payer
		}
		return nil
	})
	if err != nil {
		return "", xerr.New(xerr.TechnicalError, fmt.Sprintf("sign transaction failed: %v", err))
	}

	sig, err := a.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		PreflightCommitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return "", xerr.New(xerr.RpcError, fmt.Sprintf("send transaction failed: %v", err))
	}

	if err := a.waitConfirmed(ctx, sig); err != nil {
		return "", err
	}
	return sig.String(), nil
}

// splTransferInstructions 组装 SPL 转账，目标 ATA 不存在就顺手创建
func (a *Adapter) splTransferInstructions(ctx context.Context, asset domain.ChainAsset, recipient solana.PublicKey, units uint64) ([]solana.Instruction, error) {
	mint, err := solana.PublicKeyFromBase58(asset.Mint)
	if err != nil {
		return nil, xerr.New(xerr.TechnicalError, fmt.Sprintf("bad mint for coin %d: %v", asset.CoinID, err))
	}

	source, _, err := solana.FindAssociatedTokenAddress(a.payer.PublicKey(), mint)
	if err != nil {
		return nil, xerr.New(xerr.TechnicalError, fmt.Sprintf("derive source ata failed: %v", err))
	}
	dest, _, err := solana.FindAssociatedTokenAddress(recipient, mint)
	if err != nil {
		return nil, xerr.New(xerr.TechnicalError, fmt.Sprintf("derive dest ata failed: %v", err))
	}

	instructions := make([]solana.Instruction, 0, 2)
	if _, err := a.rpc.GetAccountInfo(ctx, dest); err != nil {
		// 账户不存在，转账前先建 ATA，租金由热钱包垫付
		instructions = append(instructions, ata.NewCreateInstruction(
			a.payer.PublicKey(),
			recipient,
			mint,
		).Build())
	}

	instructions = append(instructions, token.NewTransferCheckedInstruction(
		units,
		asset.Decimals,
		source,
		mint,
		dest,
		a.payer.PublicKey(),
		nil,
	).Build())

	return instructions, nil
}

// waitConfirmed 轮询签名状态直到 confirmed/finalized
// 超时不代表失败，只是放弃等待，调用方据此判定这笔出款失败并人工核对
func (a *Adapter) waitConfirmed(ctx context.Context, sig solana.Signature) error {
	for i := 0; i < confirmAttempts; i++ {
		res, err := a.rpc.GetSignatureStatuses(ctx, true, sig)
		if err == nil && len(res.Value) > 0 && res.Value[0] != nil {
			st := res.Value[0]
			if st.Err != nil {
				return xerr.New(xerr.RpcError, fmt.Sprintf("transaction %s failed on chain: %v", sig, st.Err))
			}
			if st.ConfirmationStatus == rpc.ConfirmationStatusConfirmed ||
				st.ConfirmationStatus == rpc.ConfirmationStatusFinalized {
				return nil
			}
		}
		if err != nil {
			logger.Warn(ctx, "查询签名状态失败，继续重试", zap.String("sig", sig.String()), zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return xerr.New(xerr.RpcError, fmt.Sprintf("confirm %s canceled: %v", sig, ctx.Err()))
		case <-time.After(confirmInterval):
		}
	}
	return xerr.New(xerr.RpcError, fmt.Sprintf("transaction %s not confirmed in time", sig))
}

// NetworkFee 回查交易元数据里节点实际收取的 fee (lamports)
func (a *Adapter) NetworkFee(ctx context.Context, txID string, _ decimal.Decimal) (decimal.Decimal, error) {
	out, err := a.fetchTransaction(ctx, txID)
	if err != nil {
		return decimal.Zero, err
	}
	if out.Meta == nil {
		return decimal.Zero, xerr.New(xerr.RpcError, fmt.Sprintf("transaction %s has no meta", txID))
	}
	return lamportsToSol(out.Meta.Fee), nil
}

// TransactionInfo 拉取并内省一笔链上交易
func (a *Adapter) TransactionInfo(ctx context.Context, txID string) (*domain.ChainTransferInfo, error) {
	out, err := a.fetchTransaction(ctx, txID)
	if err != nil {
		return nil, err
	}
	tx, err := out.Transaction.GetTransaction()
	if err != nil {
		return nil, xerr.New(xerr.TechnicalError, fmt.Sprintf("decode transaction %s failed: %v", txID, err))
	}

	info, err := classify(out.Meta, tx.Message.AccountKeys, a.assets)
	if err != nil {
		return nil, err
	}
	info.Signature = txID
	return info, nil
}

func (a *Adapter) fetchTransaction(ctx context.Context, txID string) (*rpc.GetTransactionResult, error) {
	sig, err := solana.SignatureFromBase58(txID)
	if err != nil {
		return nil, xerr.New(xerr.RequestParamsError, fmt.Sprintf("invalid signature: %v", err))
	}

	maxVersion := uint64(0)
	out, err := a.rpc.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
		Encoding:                       solana.EncodingBase64,
		Commitment:                     rpc.CommitmentConfirmed,
		MaxSupportedTransactionVersion: &maxVersion,
	})
	if err != nil {
		return nil, xerr.New(xerr.RpcError, fmt.Sprintf("get transaction %s failed: %v", txID, err))
	}
	if out == nil {
		return nil, xerr.New(xerr.RecordNotFound, fmt.Sprintf("transaction %s not found", txID))
	}
	return out, nil
}
