package persistence

import (
	"context"

	"gorm.io/gorm"

	"coinsettle.com/internal/domain"
)

// txKey 事务在 Context 中的 Key，用私有类型避免撞 Key
type txKey struct{}

type Repo struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

// 确保 Repo 实现了所有仓储接口
var (
	_ domain.CoinRepo       = (*Repo)(nil)
	_ domain.UserRepo       = (*Repo)(nil)
	_ domain.WalletRepo     = (*Repo)(nil)
	_ domain.RateRepo       = (*Repo)(nil)
	_ domain.WithdrawalRepo = (*Repo)(nil)
	_ domain.DepositRepo    = (*Repo)(nil)
	_ domain.ConfigRepo     = (*Repo)(nil)
	_ domain.Transactor     = (*Repo)(nil)
)

// Transaction 开事务并把 tx 注入 Context，fn 里的仓储调用自动走同一个事务
func (r *Repo) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// conn 优先取 Context 里的事务连接
func (r *Repo) conn(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return r.db
}
