package service

import "sync"

// TxLockRegistry 用户级交易互斥
// 一个用户同一时间只允许一笔出入账在途，防止并发把余额算花
// 进程内锁：多实例部署时各实例只保护自己接到的请求
type TxLockRegistry struct {
	mu     sync.Mutex
	locked map[int64]struct{}
}

func NewTxLockRegistry() *TxLockRegistry {
	return &TxLockRegistry{locked: make(map[int64]struct{})}
}

// TryAcquire 原子的"查并占"，拿不到返回 false
// 查和占必须在同一次持锁里完成，拆开就有并发窗口
func (r *TxLockRegistry) TryAcquire(userID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.locked[userID]; ok {
		return false
	}
	r.locked[userID] = struct{}{}
	return true
}

func (r *TxLockRegistry) Release(userID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.locked, userID)
}

func (r *TxLockRegistry) IsLocked(userID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.locked[userID]
	return ok
}
