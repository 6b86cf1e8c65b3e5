package domain

import (
	"context"
	"time"
)

// ConfigEntry 运行时配置表 (RPC 端点/凭证、限额、行情 API key 等)
// 读取优先级: 缓存 -> 环境变量 -> 数据库，必填项缺失是硬错误
type ConfigEntry struct {
	ID        int64  `gorm:"primaryKey"`
	Name      string `gorm:"size:128;uniqueIndex"`
	Value     string `gorm:"size:1024"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (ConfigEntry) TableName() string { return "configs" }

type ConfigRepo interface {
	ConfigByName(ctx context.Context, name string) (*ConfigEntry, error)
	CreateConfig(ctx context.Context, c *ConfigEntry) error
	UpdateConfig(ctx context.Context, name, value string) (*ConfigEntry, error)
	DeleteConfig(ctx context.Context, name string) error
}
