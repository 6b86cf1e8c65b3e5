package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"coinsettle.com/pkg/logger"
	"coinsettle.com/pkg/xerr"
)

// 缓存过期时间
const (
	TTLShort = 3600 * time.Second  // 单条记录
	TTLLong  = 36000 * time.Second // 列表、汇率这类读多写少的数据
)

// ErrMiss 缓存未命中，调用方回源即可，不是故障
var ErrMiss = errors.New("cache: miss")

// Cache Redis 之上的 JSON 读写封装
// enabled=false 时所有操作直接成功返回，业务代码不用到处判断开关
type Cache struct {
	rdb     *redis.Client
	enabled bool
}

func New(rdb *redis.Client, enabled bool) *Cache {
	return &Cache{rdb: rdb, enabled: enabled}
}

func (c *Cache) Enabled() bool {
	return c.enabled
}

// SetJSON 写入失败只记日志不向上抛，缓存永远是 best effort
func (c *Cache) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) {
	if !c.enabled {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		logger.Error(ctx, "cache 序列化失败", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.rdb.Set(ctx, key, data, ttl).Err(); err != nil {
		logger.Error(ctx, "cache 写入失败", zap.String("key", key), zap.Error(err))
	}
}

// GetJSON 未命中返回 ErrMiss，关闭状态也按未命中处理
func (c *Cache) GetJSON(ctx context.Context, key string, out any) error {
	if !c.enabled {
		return ErrMiss
	}
	data, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrMiss
	}
	if err != nil {
		logger.Error(ctx, "cache 读取失败", zap.String("key", key), zap.Error(err))
		return xerr.NewErrCode(xerr.RedisError)
	}
	if err := json.Unmarshal(data, out); err != nil {
		// 脏数据当未命中，顺手删掉
		_ = c.rdb.Del(ctx, key).Err()
		return ErrMiss
	}
	return nil
}

func (c *Cache) Delete(ctx context.Context, keys ...string) {
	if !c.enabled || len(keys) == 0 {
		return
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		logger.Error(ctx, "cache 删除失败", zap.Error(err))
	}
}
