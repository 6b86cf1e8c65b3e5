package cache

import "fmt"

// 缓存 Key 统一在这里拼，避免散落各处拼错前缀
const prefix = "settlement"

func KeyWithdrawal(id int64) string {
	return fmt.Sprintf("%s:withdrawal:%d", prefix, id)
}

func KeyWithdrawalsByUser(userID int64) string {
	return fmt.Sprintf("%s:withdrawals:user:%d", prefix, userID)
}

func KeyDeposit(id int64) string {
	return fmt.Sprintf("%s:deposit:%d", prefix, id)
}

func KeyDepositsByUser(userID int64) string {
	return fmt.Sprintf("%s:deposits:user:%d", prefix, userID)
}

func KeyRate(coinID int16) string {
	return fmt.Sprintf("%s:rate:%d", prefix, coinID)
}

func KeyConfig(name string) string {
	return fmt.Sprintf("%s:config:%s", prefix, name)
}

func KeyCoins() string {
	return prefix + ":coins"
}

func KeyWallet(userID int64, coinID int16) string {
	return fmt.Sprintf("%s:wallet:%d:%d", prefix, userID, coinID)
}
