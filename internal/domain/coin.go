package domain

import (
	"context"
	"time"
)

// Coin 支持的币种
type Coin struct {
	ID        int16  `gorm:"primaryKey"`
	CoinName  string `gorm:"size:64"`
	Symbol    string `gorm:"size:20;index"`
	Status    bool   `gorm:"default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Coin) TableName() string { return "coins" }

type CoinRepo interface {
	CoinByID(ctx context.Context, id int16) (*Coin, error)
	CoinBySymbol(ctx context.Context, symbol string) (*Coin, error)
	// ActiveCoins 汇率刷新用，只要 status=true 的
	ActiveCoins(ctx context.Context) ([]Coin, error)
}

// ChainKind 链类型，决定走哪个 dispatcher
type ChainKind string

const (
	ChainUTXO   ChainKind = "utxo"   // Litecoin 这类 JSON-RPC 节点
	ChainSolana ChainKind = "solana" // Solana 原生币 + SPL token
)

// ChainAsset 币种到链上资产的映射
// 从配置加载，不写死在代码里，新增资产不用改代码
type ChainAsset struct {
	CoinID   int16     `mapstructure:"coin_id"`
	Symbol   string    `mapstructure:"symbol"`
	Kind     ChainKind `mapstructure:"kind"`
	Mint     string    `mapstructure:"mint"`     // SPL mint 地址，原生资产留空
	Decimals uint8     `mapstructure:"decimals"` // 链上声明的小数位
	Native   bool      `mapstructure:"native"`   // 链原生资产 (LTC / SOL)
}

// AssetTable 资产允许表，mint 白名单也从这里查
type AssetTable struct {
	byCoin map[int16]ChainAsset
	byMint map[string]ChainAsset
}

func NewAssetTable(assets []ChainAsset) *AssetTable {
	t := &AssetTable{
		byCoin: make(map[int16]ChainAsset, len(assets)),
		byMint: make(map[string]ChainAsset, len(assets)),
	}
	for _, a := range assets {
		t.byCoin[a.CoinID] = a
		if a.Mint != "" {
			t.byMint[a.Mint] = a
		}
	}
	return t
}

func (t *AssetTable) ByCoinID(id int16) (ChainAsset, bool) {
	a, ok := t.byCoin[id]
	return a, ok
}

// ByMint mint 白名单查询，查不到的 mint 一律不支持
func (t *AssetTable) ByMint(mint string) (ChainAsset, bool) {
	a, ok := t.byMint[mint]
	return a, ok
}

// NativeSolana 找到表里的 SOL 原生资产 (充值内省时没有 token 余额变化就判定为它)
func (t *AssetTable) NativeSolana() (ChainAsset, bool) {
	for _, a := range t.byCoin {
		if a.Kind == ChainSolana && a.Native {
			return a, true
		}
	}
	return ChainAsset{}, false
}
