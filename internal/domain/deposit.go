package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Deposit 充值实体
// TransactionHash 是幂等键：同一笔链上交易只允许入账一次
type Deposit struct {
	ID              int64           `gorm:"primaryKey"`
	UserID          int64           `gorm:"index"`
	CoinID          int16           `gorm:"index"`
	Amount          decimal.Decimal `gorm:"type:decimal(36,18)"`
	FiatAmount      decimal.Decimal `gorm:"type:decimal(36,18)"` // USD 等值，4 位截断
	WalletID        int64           `gorm:"column:user_wallet_id"`
	TransactionHash string          `gorm:"size:128;uniqueIndex"`
	Status          bool            `gorm:"default:true"`
	EventID         int64           `gorm:"index"`
	EventStatus     EventStatus     `gorm:"default:1"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (Deposit) TableName() string { return "deposits" }

type DepositHistoryQuery struct {
	UserID   int64
	Page     int
	PerPage  int
	Status   *bool
	FromDate *time.Time
	ToDate   *time.Time
}

type DepositHistoryResult struct {
	Page         int       `json:"page"`
	PerPage      int       `json:"per_page"`
	TotalResults int64     `json:"total_results"`
	TotalPages   int       `json:"total_pages"`
	Data         []Deposit `json:"data"`
}

type DepositRepo interface {
	CreateDeposit(ctx context.Context, d *Deposit) error
	// ActiveDepositByHash 幂等检查用，没有记录时返回 (nil, nil)
	ActiveDepositByHash(ctx context.Context, txHash string) (*Deposit, error)
	DepositsByUserID(ctx context.Context, userID int64) ([]Deposit, error)
	DepositHistory(ctx context.Context, q DepositHistoryQuery) (*DepositHistoryResult, error)
}
