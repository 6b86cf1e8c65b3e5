package persistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"coinsettle.com/internal/domain"
	"coinsettle.com/pkg/xerr"
)

func (r *Repo) InsertRate(ctx context.Context, rate *domain.ConversionRate) error {
	if err := r.conn(ctx).WithContext(ctx).Create(rate).Error; err != nil {
		return xerr.New(xerr.DbError, fmt.Sprintf("insert rate failed: %v", err))
	}
	return nil
}

// LatestRateByCoinID 取最新一条，没有历史记录返回 (nil, nil) 让上层回源行情 API
func (r *Repo) LatestRateByCoinID(ctx context.Context, coinID int16) (*domain.ConversionRate, error) {
	var rate domain.ConversionRate
	err := r.conn(ctx).WithContext(ctx).
		Where("coin_id = ?", coinID).
		Order("created_at DESC").
		First(&rate).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, xerr.New(xerr.DbError, fmt.Sprintf("query rate failed: %v", err))
	}
	return &rate, nil
}
