package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"coinsettle.com/internal/domain"
	"coinsettle.com/pkg/xerr"
)

// CreateDeposit transaction_hash 有唯一索引，撞索引时转成重复入账错误
// 这是幂等性的最后一道防线，即使并发绕过了前置检查也插不进第二条
func (r *Repo) CreateDeposit(ctx context.Context, d *domain.Deposit) error {
	d.EventStatus = domain.EventStatusActive
	if err := r.conn(ctx).WithContext(ctx).Create(d).Error; err != nil {
		if isUniqueViolation(err) {
			return xerr.NewErrCode(xerr.DepositAlreadyExists)
		}
		return xerr.New(xerr.DbError, fmt.Sprintf("create deposit failed: %v", err))
	}
	return nil
}

// ActiveDepositByHash 只看 event_status=active 的记录，回滚过的交易允许重新入账
func (r *Repo) ActiveDepositByHash(ctx context.Context, txHash string) (*domain.Deposit, error) {
	var d domain.Deposit
	err := r.conn(ctx).WithContext(ctx).
		Where("transaction_hash = ? AND event_status = ?", txHash, domain.EventStatusActive).
		First(&d).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, xerr.New(xerr.DbError, fmt.Sprintf("query deposit failed: %v", err))
	}
	return &d, nil
}

func (r *Repo) DepositsByUserID(ctx context.Context, userID int64) ([]domain.Deposit, error) {
	list := make([]domain.Deposit, 0)
	err := r.conn(ctx).WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&list).Error
	if err != nil {
		return nil, xerr.New(xerr.DbError, fmt.Sprintf("query deposits failed: %v", err))
	}
	return list, nil
}

func (r *Repo) DepositHistory(ctx context.Context, q domain.DepositHistoryQuery) (*domain.DepositHistoryResult, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PerPage < 1 {
		q.PerPage = 20
	}

	db := r.conn(ctx).WithContext(ctx).Model(&domain.Deposit{}).
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
		return nil, xerr.New(xerr.DbError, fmt.Sprintf("count deposits failed: %v", err))
	}

	data := make([]domain.Deposit, 0)
	err := db.Order("created_at DESC").
		Offset((q.Page - 1) * q.PerPage).
		Limit(q.PerPage).
		Find(&data).Error
	if err != nil {
		return nil, xerr.New(xerr.DbError, fmt.Sprintf("query deposit history failed: %v", err))
	}

	return &domain.DepositHistoryResult{
		Page:         q.Page,
		PerPage:      q.PerPage,
		TotalResults: total,
		TotalPages:   totalPages(total, q.PerPage),
		Data:         data,
	}, nil
}

// isUniqueViolation 兼容 Postgres (23505) 和测试用的 SQLite
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "23505") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
