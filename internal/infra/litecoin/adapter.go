package litecoin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/rpcclient"
	"github.com/shopspring/decimal"

	"coinsettle.com/internal/domain"
	"coinsettle.com/pkg/xerr"
)

// Litecoin Core 的 JSON-RPC 错误码
const (
	rpcErrInvalidAmount  = -3
	rpcErrInvalidAddress = -5
)

// Adapter 走 Litecoin Core 节点钱包，私钥由节点托管
// 地址格式和金额合法性都交给节点校验，这里只翻译错误码
type Adapter struct {
	rpcClient *rpcclient.Client
}

var _ domain.ChainDispatcher = (*Adapter)(nil)

func New(host, user, password string) (*Adapter, error) {
	rpcConfig := &rpcclient.ConnConfig{
		Host:         host,
		User:         user,
		Pass:         password,
		HTTPPostMode: true, // Core 节点必须使用 POST 模式
		DisableTLS:   true, // 节点内网部署不加密
	}
	client, err := rpcclient.New(rpcConfig, nil)
	if err != nil {
		return nil, err
	}
	return &Adapter{rpcClient: client}, nil
}

// Send 调 sendtoaddress，返回交易 hash
// 用 RawRequest 而不是类型化的 SendToAddress：btcd 的地址解析器只认 BTC
// 前缀，LTC 地址直接透传字符串让节点自己校验
func (a *Adapter) Send(ctx context.Context, req domain.SendRequest) (string, error) {
	addrParam, err := json.Marshal(req.Address)
	if err != nil {
		return "", xerr.New(xerr.TechnicalError, fmt.Sprintf("marshal address failed: %v", err))
	}
	amountParam, err := json.Marshal(req.Amount)
	if err != nil {
		return "", xerr.New(xerr.TechnicalError, fmt.Sprintf("marshal amount failed: %v", err))
	}

	raw, err := a.rpcClient.RawRequest("sendtoaddress", []json.RawMessage{addrParam, amountParam})
	if err != nil {
		return "", mapRPCError(err)
	}

	var txHash string
	if err := json.Unmarshal(raw, &txHash); err != nil {
		return "", xerr.New(xerr.RpcError, fmt.Sprintf("decode sendtoaddress reply failed: %v", err))
	}
	return txHash, nil
}

// NetworkFee 发送后查 gettransaction 拿节点实际扣掉的手续费
// 查不到匹配明细时按 0 记，不能让手续费查询失败拖垮整笔出款
func (a *Adapter) NetworkFee(ctx context.Context, txID string, sentAmount decimal.Decimal) (decimal.Decimal, error) {
	txHash, err := chainhash.NewHashFromStr(txID)
	if err != nil {
		return decimal.Zero, xerr.New(xerr.TechnicalError, fmt.Sprintf("invalid tx hash: %v", err))
	}
	tx, err := a.rpcClient.GetTransaction(txHash)
	if err != nil {
		return decimal.Zero, mapRPCError(err)
	}
	return feeFromDetails(tx.Details, sentAmount), nil
}

// TransactionInfo 入账内省走不到 UTXO 链，这类充值由节点钱包通知流程处理
func (a *Adapter) TransactionInfo(ctx context.Context, txID string) (*domain.ChainTransferInfo, error) {
	return nil, xerr.New(xerr.TechnicalError, "transaction introspection is not supported on utxo chains")
}

// GenerateAddress 让节点钱包生成一个新收款地址
func (a *Adapter) GenerateAddress(ctx context.Context) (string, error) {
	raw, err := a.rpcClient.RawRequest("getnewaddress", nil)
	if err != nil {
		return "", mapRPCError(err)
	}
	var addr string
	if err := json.Unmarshal(raw, &addr); err != nil {
		return "", xerr.New(xerr.RpcError, fmt.Sprintf("decode getnewaddress reply failed: %v", err))
	}
	return addr, nil
}

// Balance 节点钱包的已确认余额
func (a *Adapter) Balance(ctx context.Context) (decimal.Decimal, error) {
	amount, err := a.rpcClient.GetBalance("*")
	if err != nil {
		return decimal.Zero, mapRPCError(err)
	}
	return decimal.NewFromFloat(amount.ToBTC()), nil
}

// feeFromDetails 在交易明细里找这笔 send 对应的手续费
// 明细里 send 的金额是负数，手续费也是负数，取绝对值后按 8 位截断
func feeFromDetails(details []btcjson.GetTransactionDetailsResult, sentAmount decimal.Decimal) decimal.Decimal {
	for _, d := range details {
		if d.Category != "send" {
			continue
		}
		if !decimal.NewFromFloat(d.Amount).Abs().Equal(sentAmount) {
			continue
		}
		if d.Fee == nil {
			continue
		}
		return domain.Truncate8(decimal.NewFromFloat(*d.Fee).Abs())
	}
	return decimal.Zero
}

// mapRPCError 把节点错误码翻译成业务错误
func mapRPCError(err error) error {
	var rpcErr *btcjson.RPCError
	if errors.As(err, &rpcErr) {
		switch int(rpcErr.Code) {
		case rpcErrInvalidAmount:
			return xerr.New(xerr.InvalidAmount, rpcErr.Message)
		case rpcErrInvalidAddress:
			return xerr.New(xerr.InvalidAddress, rpcErr.Message)
		}
	}
	return xerr.New(xerr.RpcError, fmt.Sprintf("litecoin rpc failed: %v", err))
}
