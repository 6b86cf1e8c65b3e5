package persistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"coinsettle.com/internal/domain"
	"coinsettle.com/pkg/xerr"
)

func (r *Repo) WalletByAddress(ctx context.Context, address string) (*domain.Wallet, error) {
	var w domain.Wallet
	err := r.conn(ctx).WithContext(ctx).First(&w, "address = ?", address).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, xerr.New(xerr.RecordNotFound, fmt.Sprintf("wallet for address %s not found", address))
		}
		return nil, xerr.New(xerr.DbError, fmt.Sprintf("query wallet failed: %v", err))
	}
	return &w, nil
}

func (r *Repo) WalletByUserAndCoin(ctx context.Context, userID int64, coinID int16) (*domain.Wallet, error) {
	var w domain.Wallet
	err := r.conn(ctx).WithContext(ctx).
		First(&w, "user_id = ? AND coin_id = ?", userID, coinID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, xerr.New(xerr.RecordNotFound,
				fmt.Sprintf("wallet for user %d coin %d not found", userID, coinID))
		}
		return nil, xerr.New(xerr.DbError, fmt.Sprintf("query wallet failed: %v", err))
	}
	return &w, nil
}

func (r *Repo) CreateWallet(ctx context.Context, w *domain.Wallet) error {
	if err := r.conn(ctx).WithContext(ctx).Create(w).Error; err != nil {
		return xerr.New(xerr.DbError, fmt.Sprintf("create wallet failed: %v", err))
	}
	return nil
}

func (r *Repo) UpdateWallet(ctx context.Context, w *domain.Wallet) error {
	if err := r.conn(ctx).WithContext(ctx).Save(w).Error; err != nil {
		return xerr.New(xerr.DbError, fmt.Sprintf("update wallet failed: %v", err))
	}
	return nil
}

// HighestWalletIndex HD 派生账户索引分配用，表里还没有派生钱包时返回 -1
func (r *Repo) HighestWalletIndex(ctx context.Context) (int64, error) {
	var idx *int64
	err := r.conn(ctx).WithContext(ctx).Model(&domain.Wallet{}).
		Select("MAX(wallet_index)").
		Scan(&idx).Error
	if err != nil {
		return 0, xerr.New(xerr.DbError, fmt.Sprintf("query wallet index failed: %v", err))
	}
	if idx == nil {
		return -1, nil
	}
	return *idx, nil
}
