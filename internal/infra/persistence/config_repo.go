package persistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"coinsettle.com/internal/domain"
	"coinsettle.com/pkg/xerr"
)

// ConfigByName 没有这条配置返回 (nil, nil)，让上层继续走环境变量兜底
func (r *Repo) ConfigByName(ctx context.Context, name string) (*domain.ConfigEntry, error) {
	var c domain.ConfigEntry
	err := r.conn(ctx).WithContext(ctx).First(&c, "name = ?", name).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, xerr.New(xerr.DbError, fmt.Sprintf("query config failed: %v", err))
	}
	return &c, nil
}

func (r *Repo) CreateConfig(ctx context.Context, c *domain.ConfigEntry) error {
	if err := r.conn(ctx).WithContext(ctx).Create(c).Error; err != nil {
		if isUniqueViolation(err) {
			return xerr.NewErrCode(xerr.DuplicateEntry)
		}
		return xerr.New(xerr.DbError, fmt.Sprintf("create config failed: %v", err))
	}
	return nil
}

func (r *Repo) UpdateConfig(ctx context.Context, name, value string) (*domain.ConfigEntry, error) {
	res := r.conn(ctx).WithContext(ctx).Model(&domain.ConfigEntry{}).
		Where("name = ?", name).
		Update("value", value)
	if res.Error != nil {
		return nil, xerr.New(xerr.DbError, fmt.Sprintf("update config failed: %v", res.Error))
	}
	if res.RowsAffected == 0 {
		return nil, xerr.New(xerr.RecordNotFound, fmt.Sprintf("config %s not found", name))
	}
	return r.ConfigByName(ctx, name)
}

func (r *Repo) DeleteConfig(ctx context.Context, name string) error {
	res := r.conn(ctx).WithContext(ctx).
		Where("name = ?", name).
		Delete(&domain.ConfigEntry{})
	if res.Error != nil {
		return xerr.New(xerr.DbError, fmt.Sprintf("delete config failed: %v", res.Error))
	}
	if res.RowsAffected == 0 {
		return xerr.New(xerr.RecordNotFound, fmt.Sprintf("config %s not found", name))
	}
	return nil
}
