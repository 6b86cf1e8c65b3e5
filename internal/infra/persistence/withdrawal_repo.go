package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"coinsettle.com/internal/domain"
	"coinsettle.com/pkg/xerr"
)

func (r *Repo) CreatePendingWithdrawal(ctx context.Context, w *domain.Withdrawal) error {
	w.Status = domain.WithdrawStatusPending
	w.EventStatus = domain.EventStatusActive
	if err := r.conn(ctx).WithContext(ctx).Create(w).Error; err != nil {
		return xerr.New(xerr.DbError, fmt.Sprintf("create withdrawal failed: %v", err))
	}
	return nil
}

// SettleWithdrawal 链上发送成功后补全 hash/手续费，只允许从 pending 转过来
func (r *Repo) SettleWithdrawal(ctx context.Context, id int64, txHash string, feeCoin, feeUsd decimal.Decimal) error {
	res := r.conn(ctx).WithContext(ctx).Model(&domain.Withdrawal{}).
		Where("id = ? AND status = ?", id, domain.WithdrawStatusPending).
		Updates(map[string]interface{}{
			"transaction_hash": txHash,
			"fee_coin_amount":  feeCoin,
			"fee_usd_amount":   feeUsd,
			"status":           domain.WithdrawStatusSettled,
		})
	if res.Error != nil {
		return xerr.New(xerr.DbError, fmt.Sprintf("settle withdrawal failed: %v", res.Error))
	}
	if res.RowsAffected == 0 {
		return xerr.New(xerr.ServerCommonError, fmt.Sprintf("withdrawal %d is not pending", id))
	}
	return nil
}

func (r *Repo) MarkWithdrawalFailed(ctx context.Context, id int64) error {
	res := r.conn(ctx).WithContext(ctx).Model(&domain.Withdrawal{}).
		Where("id = ? AND status = ?", id, domain.WithdrawStatusPending).
		Update("status", domain.WithdrawStatusFailed)
	if res.Error != nil {
		return xerr.New(xerr.DbError, fmt.Sprintf("mark withdrawal failed: %v", res.Error))
	}
	return nil
}

// RollbackWithdrawalByEventID 对账回滚：只改 event_status，链上已发出的交易收不回来
func (r *Repo) RollbackWithdrawalByEventID(ctx context.Context, eventID int64) error {
	res := r.conn(ctx).WithContext(ctx).Model(&domain.Withdrawal{}).
		Where("event_id = ? AND event_status = ?", eventID, domain.EventStatusActive).
		Update("event_status", domain.EventStatusRolledBack)
	if res.Error != nil {
		return xerr.New(xerr.DbError, fmt.Sprintf("rollback withdrawal failed: %v", res.Error))
	}
	if res.RowsAffected == 0 {
		return xerr.New(xerr.RecordNotFound, fmt.Sprintf("no active withdrawal for event %d", eventID))
	}
	return nil
}

func (r *Repo) WithdrawalByID(ctx context.Context, id int64) (*domain.Withdrawal, error) {
	var w domain.Withdrawal
	err := r.conn(ctx).WithContext(ctx).First(&w, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, xerr.New(xerr.RecordNotFound, fmt.Sprintf("withdrawal %d not found", id))
		}
		return nil, xerr.New(xerr.DbError, fmt.Sprintf("query withdrawal failed: %v", err))
	}
	return &w, nil
}

func (r *Repo) WithdrawalsByUserID(ctx context.Context, userID int64) ([]domain.Withdrawal, error) {
	list := make([]domain.Withdrawal, 0)
	err := r.conn(ctx).WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&list).Error
	if err != nil {
		return nil, xerr.New(xerr.DbError, fmt.Sprintf("query withdrawals failed: %v", err))
	}
	return list, nil
}

func (r *Repo) WithdrawalHistory(ctx context.Context, q domain.WithdrawalHistoryQuery) (*domain.WithdrawalHistoryResult, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PerPage < 1 {
		q.PerPage = 20
	}

	db := r.conn(ctx).WithContext(ctx).Model(&domain.Withdrawal{}).
		Where("user_id = ?", q.UserID)
	if q.Status != nil {
		db = db.Where("status = ?", *q.Status)
	}
	if q.FromDate != nil {
		db = db.Where("created_at >= ?", *q.FromDate)
	}
	if q.ToDate != nil {
		db = db.Where("created_at <= ?", *q.ToDate)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, xerr.New(xerr.DbError, fmt.Sprintf("count withdrawals failed: %v", err))
	}

	data := make([]domain.Withdrawal, 0)
	err := db.Order("created_at DESC").
		Offset((q.Page - 1) * q.PerPage).
		Limit(q.PerPage).
		Find(&data).Error
	if err != nil {
		return nil, xerr.New(xerr.DbError, fmt.Sprintf("query withdrawal history failed: %v", err))
	}

	return &domain.WithdrawalHistoryResult{
		Page:         q.Page,
		PerPage:      q.PerPage,
		TotalResults: total,
		TotalPages:   totalPages(total, q.PerPage),
		Data:         data,
	}, nil
}

func totalPages(total int64, perPage int) int {
	if perPage <= 0 {
		return 0
	}
	return int((total + int64(perPage) - 1) / int64(perPage))
}
