package handler

import (
	"github.com/gin-gonic/gin"

	"coinsettle.com/internal/core/service"
	"coinsettle.com/internal/domain"
)

type RateHandler struct {
	rates *service.RateService
	coins domain.CoinRepo
}

func NewRateHandler(rates *service.RateService, coins domain.CoinRepo) *RateHandler {
	return &RateHandler{rates: rates, coins: coins}
}

// Get GET /rates/:symbol
func (h *RateHandler) Get(c *gin.Context) {
	coin, err := h.coins.CoinBySymbol(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		FailErr(c, err)
		return
	}
	rate, err := h.rates.Rate(c.Request.Context(), coin.ID)
	if err != nil {
		FailErr(c, err)
		return
	}
	Success(c, gin.H{
		"coin_id": coin.ID,
		"symbol":  coin.Symbol,
		"rate":    rate,
	})
}
