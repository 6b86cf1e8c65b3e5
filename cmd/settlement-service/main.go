package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"coinsettle.com/config"
	"coinsettle.com/internal/cache"
	"coinsettle.com/internal/core/service"
	"coinsettle.com/internal/domain"
	"coinsettle.com/internal/handler"
	"coinsettle.com/internal/infra/litecoin"
	"coinsettle.com/internal/infra/persistence"
	"coinsettle.com/internal/infra/pricing"
	solanaChain "coinsettle.com/internal/infra/solana"
	"coinsettle.com/internal/router"
	cfgloader "coinsettle.com/pkg/config"
	"coinsettle.com/pkg/hdwallet"
	"coinsettle.com/pkg/logger"
	"coinsettle.com/pkg/orm"
	"coinsettle.com/pkg/safe"
	"coinsettle.com/pkg/xredis"
)

func main() {
	// 1. 加载静态配置
	var c config.Config
	if _, err := cfgloader.LoadAndWatch("settlement-service", &c); err != nil {
		panic("load config failed: " + err.Error())
	}

	logger.Init(c.Name, c.Log.Level)
	defer logger.Sync()
	ctx := context.Background()

	// 2. 基础设施
	db := orm.NewPostgres(&orm.Config{
		DSN:         c.Postgres.DSN,
		MaxIdle:     c.Postgres.MaxIdle,
		MaxOpen:     c.Postgres.MaxOpen,
		MaxLifetime: c.Postgres.MaxLifetime,
	})
	logger.Info(ctx, "✅ Postgres 连接成功")

	var rdb *redis.Client
	if c.Redis.Enabled {
		rdb = xredis.NewRedis(&xredis.Config{
			Addr:     c.Redis.Addr,
			Password: c.Redis.Password,
			DB:       c.Redis.DB,
		})
		logger.Info(ctx, "✅ Redis 连接成功")
	}
	appCache := cache.New(rdb, c.Redis.Enabled)

	repo := persistence.New(db)
	cfgSvc := service.NewConfigService(repo, appCache)
	assets := domain.NewAssetTable(c.Assets)

	// 3. 链适配器
	dispatchers := domain.NewDispatcherSet()

	ltcHost := configOr(ctx, cfgSvc, service.CfgLitecoinRPCURL, c.Litecoin.Host)
	ltcUser := configOr(ctx, cfgSvc, service.CfgLitecoinRPCUser, c.Litecoin.User)
	ltcPass := configOr(ctx, cfgSvc, service.CfgLitecoinRPCPass, c.Litecoin.Password)
	ltcAdapter, err := litecoin.New(ltcHost, ltcUser, ltcPass)
	if err != nil {
		logger.Fatal(ctx, "初始化 Litecoin 适配器失败", zap.Error(err))
	}
	dispatchers.Register(domain.ChainUTXO, ltcAdapter)

	// Solana 出款热钱包从助记词派生第 0 个账户
	mnemonic, err := cfgSvc.MustGet(ctx, service.CfgMnemonicPhrase)
	if err != nil {
		logger.Fatal(ctx, "缺少助记词配置", zap.Error(err))
	}
	hd, err := hdwallet.New(mnemonic)
	if err != nil {
		logger.Fatal(ctx, "助记词不合法", zap.Error(err))
	}
	payerAddr, _, payerKey, err := hd.DeriveKeypair(0)
	if err != nil {
		logger.Fatal(ctx, "派生热钱包失败", zap.Error(err))
	}
	logger.Info(ctx, "Solana 热钱包就绪", zap.String("address", payerAddr))

	solEndpoint := configOr(ctx, cfgSvc, service.CfgSolanaRPCURL, c.Solana.Endpoint)
	dispatchers.Register(domain.ChainSolana, solanaChain.New(solEndpoint, payerKey, assets))

	// 4. 行情与核心服务
	cmcKey, err := cfgSvc.MustGet(ctx, service.CfgCMCAPIKey)
	if err != nil {
		logger.Fatal(ctx, "缺少行情 API Key", zap.Error(err))
	}
	cmcBase, err := cfgSvc.MustGet(ctx, service.CfgCMCBaseURL)
	if err != nil {
		logger.Fatal(ctx, "缺少行情 API 地址", zap.Error(err))
	}
	priceClient := pricing.NewClient(cmcBase, cmcKey)

	rateSvc := service.NewRateService(repo, repo, priceClient, appCache)
	locks := service.NewTxLockRegistry()
	withdrawSvc := service.NewWithdrawService(
		repo, repo, repo, repo, rateSvc, cfgSvc, locks, dispatchers, assets, appCache)
	depositSvc := service.NewDepositService(repo, repo, repo, rateSvc, dispatchers, appCache)

	// 启动时预热一把汇率，失败不阻塞启动
	safe.Go(func() {
		if err := rateSvc.RefreshAll(context.Background()); err != nil {
			logger.Warn(context.Background(), "启动汇率预热失败", zap.Error(err))
		}
	})

	// 5. HTTP 服务
	srv := router.New(c.Addr,
		handler.NewWithdrawalHandler(withdrawSvc),
		handler.NewDepositHandler(depositSvc),
		handler.NewRateHandler(rateSvc, repo),
	)

	stopCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	safe.Go(func() {
		logger.Info(context.Background(), "HTTP 服务启动", zap.String("addr", c.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal(context.Background(), "HTTP 服务异常退出", zap.Error(err))
		}
	})

	<-stopCtx.Done()
	logger.Info(ctx, "收到退出信号，开始优雅停机")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "停机超时", zap.Error(err))
	}
	logger.Info(ctx, "服务已退出")
}

// configOr configs 表 / 环境变量优先，拿不到用 yaml 兜底
func configOr(ctx context.Context, cfg *service.ConfigService, name, fallback string) string {
	v, err := cfg.Get(ctx, name)
	if err != nil || v == "" {
		return fallback
	}
	return v
}
