package domain

import "github.com/shopspring/decimal"

// 金额精度口径
// 结算金额一律向零截断，不做四舍五入——换了舍入方式结算数就对不上了
const (
	CoinScale   = 8 // 币种金额、手续费统一 8 位
	FiatScale   = 4 // 充值的法币等值金额 4 位
	NativeScale = 9 // SOL 原生金额按 lamports 精度 9 位
)

// Truncate 向零截断到指定位数
func Truncate(d decimal.Decimal, scale int32) decimal.Decimal {
	return d.Truncate(scale)
}

// Truncate8 币种金额统一口径
func Truncate8(d decimal.Decimal) decimal.Decimal {
	return d.Truncate(CoinScale)
}
