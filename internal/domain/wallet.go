package domain

import (
	"context"
	"time"
)

// Wallet 用户收款钱包，一个用户每个币种最多一个
// Solana 系走 HD 派生，WalletIndex/PrivateKey 才有值；LTC 地址由节点托管
type Wallet struct {
	ID          int64   `gorm:"primaryKey"`
	UserID      int64   `gorm:"uniqueIndex:idx_user_coin"`
	CoinID      int16   `gorm:"uniqueIndex:idx_user_coin"`
	Address     *string `gorm:"size:128;index"`
	PrivateKey  *string `gorm:"size:256"`
	WalletIndex *int64
	Status      bool `gorm:"default:true"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (Wallet) TableName() string { return "users_wallets" }

type WalletRepo interface {
	WalletByAddress(ctx context.Context, address string) (*Wallet, error)
	WalletByUserAndCoin(ctx context.Context, userID int64, coinID int16) (*Wallet, error)
	CreateWallet(ctx context.Context, w *Wallet) error
	UpdateWallet(ctx context.Context, w *Wallet) error
	// HighestWalletIndex HD 派生下一个账户索引用，没有任何钱包时返回 -1
	HighestWalletIndex(ctx context.Context) (int64, error)
}
