package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type WithdrawStatus uint8

const (
	WithdrawStatusPending WithdrawStatus = iota // 0: 已落库，链上还没发出
	WithdrawStatusSettled                       // 1: 链上已发出且账本已提交
	WithdrawStatusFailed                        // 2: 链上发送失败
)

// EventStatus 对账事件状态，外部对账系统通过 event_id 驱动回滚
type EventStatus int16

const (
	EventStatusActive     EventStatus = 1
	EventStatusRolledBack EventStatus = 2
)

// Withdrawal 提现实体
// 金额和手续费都是 8 位截断后的值，入库即不可变，只有状态还会动
type Withdrawal struct {
	ID              int64           `gorm:"primaryKey"`
	UserID          int64           `gorm:"index"`
	CoinID          int16           `gorm:"index"`
	UsdAmount       decimal.Decimal `gorm:"type:decimal(36,18)"`
	CoinAmount      decimal.Decimal `gorm:"type:decimal(36,18)"`
	FeeCoinAmount   decimal.Decimal `gorm:"type:decimal(36,18)"`
	FeeUsdAmount    decimal.Decimal `gorm:"type:decimal(36,18)"`
	TransactionHash string          `gorm:"size:128;index"`
	Address         string          `gorm:"size:128"`
	Status          WithdrawStatus
	EventID         int64       `gorm:"index"`
	EventStatus     EventStatus `gorm:"default:1"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (Withdrawal) TableName() string { return "withdrawals" }

// WithdrawalHistoryQuery 历史记录查询条件
type WithdrawalHistoryQuery struct {
	UserID   int64
	Page     int
	PerPage  int
	Status   *WithdrawStatus
	FromDate *time.Time
	ToDate   *time.Time
}

type WithdrawalHistoryResult struct {
	Page         int          `json:"page"`
	PerPage      int          `json:"per_page"`
	TotalResults int64        `json:"total_results"`
	TotalPages   int          `json:"total_pages"`
	Data         []Withdrawal `json:"data"`
}

type WithdrawalRepo interface {
	// CreatePendingWithdrawal 在链上发送之前落一条 pending，进程崩了也留痕
	CreatePendingWithdrawal(ctx context.Context, w *Withdrawal) error
	// SettleWithdrawal 链上发送成功后补全 hash 和手续费并置为 settled
	SettleWithdrawal(ctx context.Context, id int64, txHash string, feeCoin, feeUsd decimal.Decimal) error
	MarkWithdrawalFailed(ctx context.Context, id int64) error
	// RollbackWithdrawalByEventID 对账事件驱动：active -> rolled back，不动链上
	RollbackWithdrawalByEventID(ctx context.Context, eventID int64) error
	WithdrawalByID(ctx context.Context, id int64) (*Withdrawal, error)
	WithdrawalsByUserID(ctx context.Context, userID int64) ([]Withdrawal, error)
	WithdrawalHistory(ctx context.Context, q WithdrawalHistoryQuery) (*WithdrawalHistoryResult, error)
}
