package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// ConversionRate 币种对 USD 的汇率，保留历史记录
// "当前汇率" = created_at 最新的一条
type ConversionRate struct {
	ID        int64           `gorm:"primaryKey"`
	CoinID    int16           `gorm:"index"`
	Rate      decimal.Decimal `gorm:"column:conversion_rate;type:decimal(36,18)"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (ConversionRate) TableName() string { return "conversion_rates" }

type RateRepo interface {
	InsertRate(ctx context.Context, r *ConversionRate) error
	// LatestRateByCoinID 没有记录时返回 (nil, nil)
	LatestRateByCoinID(ctx context.Context, coinID int16) (*ConversionRate, error)
}
