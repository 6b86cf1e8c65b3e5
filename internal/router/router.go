package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"coinsettle.com/internal/handler"
	"coinsettle.com/pkg/logger"
)

// New 组装 HTTP 服务
func New(addr string, wh *handler.WithdrawalHandler, dh *handler.DepositHandler, rh *handler.RateHandler) *http.Server {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(traceID(), gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1")
	{
		api.POST("/withdrawals", wh.Create)
		api.POST("/withdrawals/rollback", wh.Rollback)
		api.GET("/withdrawals/history", wh.History)

		api.POST("/deposits/validate", dh.Validate)
		api.GET("/deposits/history", dh.History)

		api.GET("/rates/:symbol", rh.Get)
	}

	return &http.Server{
		Addr:           addr,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   30 * time.Second, // 出款要等链上确认，给宽一点
		MaxHeaderBytes: 1 << 20,
	}
}

// traceID 每个请求发一个 trace_id，透传头里带了就沿用
func traceID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Trace-Id")
		if id == "" {
			id = uuid.NewString()
		}
		ctx := context.WithValue(c.Request.Context(), logger.TraceIdKey, id)
		c.Request = c.Request.WithContext(ctx)
		c.Header("X-Trace-Id", id)
		c.Next()
	}
}
