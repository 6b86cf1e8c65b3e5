package config

import "coinsettle.com/internal/domain"

// Config 服务静态配置 (etc/settlement-service.yaml)
// 运行期可变的业务参数 (限额、API key、RPC 凭证) 走 configs 表 + 环境变量
type Config struct {
	Name string `mapstructure:"name"`
	Addr string `mapstructure:"addr"`

	Log struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`

	Postgres struct {
		DSN         string `mapstructure:"dsn"`
		MaxIdle     int    `mapstructure:"max_idle"`
		MaxOpen     int    `mapstructure:"max_open"`
		MaxLifetime int    `mapstructure:"max_lifetime"`
	} `mapstructure:"postgres"`

	Redis struct {
		Enabled  bool   `mapstructure:"enabled"`
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	} `mapstructure:"redis"`

	Litecoin struct {
		Host     string `mapstructure:"host"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
	} `mapstructure:"litecoin"`

	Solana struct {
		Endpoint string `mapstructure:"endpoint"`
	} `mapstructure:"solana"`

	// 链上资产允许表，mint 白名单从这里来，不写死在代码里
	Assets []domain.ChainAsset `mapstructure:"assets"`
}
