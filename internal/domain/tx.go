package domain

import "context"

// Transactor 数据库事务边界
// fn 内部通过 ctx 取到同一个事务连接，返回 error 则整体回滚
type Transactor interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
}
