package domain

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// SendRequest 出款请求，金额是 coin 单位 (已经按 8 位截断)
type SendRequest struct {
	Asset   ChainAsset
	UserID  int64  // 发起出款的用户，审计日志用
	Address string // 目标地址
	Amount  decimal.Decimal
}

// ChainTransferInfo 入账交易内省结果
type ChainTransferInfo struct {
	Asset      ChainAsset
	Amount     decimal.Decimal
	NetworkFee decimal.Decimal
	Recipient  string
	Sender     string
	Signature  string
}

// ChainDispatcher 屏蔽链差异的统一出入口
// 任何一步链上调用失败都归类为 RPC/技术错误，这一层不做重试
type ChainDispatcher interface {
	// Send 发起链上转账，返回交易 hash
	Send(ctx context.Context, req SendRequest) (string, error)
	// NetworkFee 查询刚发出的那笔交易的网络手续费 (coin 单位)
	NetworkFee(ctx context.Context, txID string, sentAmount decimal.Decimal) (decimal.Decimal, error)
	// TransactionInfo 内省一笔入账交易的币种/金额/收发地址
	TransactionInfo(ctx context.Context, txID string) (*ChainTransferInfo, error)
}

// DispatcherSet 按链类型查表分发，启动时注册一次
// 不在业务代码里反复对币种名做字符串匹配
type DispatcherSet struct {
	byKind map[ChainKind]ChainDispatcher
}

func NewDispatcherSet() *DispatcherSet {
	return &DispatcherSet{byKind: make(map[ChainKind]ChainDispatcher)}
}

func (s *DispatcherSet) Register(kind ChainKind, d ChainDispatcher) {
	s.byKind[kind] = d
}

func (s *DispatcherSet) ForAsset(asset ChainAsset) (ChainDispatcher, error) {
	return s.ForKind(asset.Kind)
}

func (s *DispatcherSet) ForKind(kind ChainKind) (ChainDispatcher, error) {
	d, ok := s.byKind[kind]
	if !ok {
		return nil, fmt.Errorf("no dispatcher registered for chain kind %q", kind)
	}
	return d, nil
}
