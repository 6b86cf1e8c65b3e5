package persistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"coinsettle.com/internal/domain"
	"coinsettle.com/pkg/xerr"
)

func (r *Repo) CoinByID(ctx context.Context, id int16) (*domain.Coin, error) {
	var coin domain.Coin
	err := r.conn(ctx).WithContext(ctx).First(&coin, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, xerr.New(xerr.RecordNotFound, fmt.Sprintf("coin %d not found", id))
		}
		return nil, xerr.New(xerr.DbError, fmt.Sprintf("query coin failed: %v", err))
	}
	return &coin, nil
}

func (r *Repo) CoinBySymbol(ctx context.Context, symbol string) (*domain.Coin, error) {
	var coin domain.Coin
	err := r.conn(ctx).WithContext(ctx).First(&coin, "symbol = ?", symbol).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, xerr.New(xerr.RecordNotFound, fmt.Sprintf("coin %s not found", symbol))
		}
		return nil, xerr.New(xerr.DbError, fmt.Sprintf("query coin failed: %v", err))
	}
	return &coin, nil
}

func (r *Repo) ActiveCoins(ctx context.Context) ([]domain.Coin, error) {
	coins := make([]domain.Coin, 0)
	err := r.conn(ctx).WithContext(ctx).
		Where("status = ?", true).
		Order("id").
		Find(&coins).Error
	if err != nil {
		return nil, xerr.New(xerr.DbError, fmt.Sprintf("query active coins failed: %v", err))
	}
	return coins, nil
}

func (r *Repo) UserByID(ctx context.Context, id int64) (*domain.User, error) {
	var user domain.User
	err := r.conn(ctx).WithContext(ctx).First(&user, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, xerr.New(xerr.RecordNotFound, fmt.Sprintf("user %d not found", id))
		}
		return nil, xerr.New(xerr.DbError, fmt.Sprintf("query user failed: %v", err))
	}
	return &user, nil
}
