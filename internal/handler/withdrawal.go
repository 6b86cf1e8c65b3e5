package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"coinsettle.com/internal/core/service"
	"coinsettle.com/internal/domain"
)

type WithdrawalHandler struct {
	svc *service.WithdrawService
}

func NewWithdrawalHandler(svc *service.WithdrawService) *WithdrawalHandler {
	return &WithdrawalHandler{svc: svc}
}

type createWithdrawalReq struct {
	UserID    int64  `json:"user_id" binding:"required"`
	CoinID    int16  `json:"coin_id" binding:"required"`
	UsdAmount string `json:"usd_amount" binding:"required"` // 字符串传金额，float 会丢精度
	Address   string `json:"address" binding:"required"`
	EventID   int64  `json:"event_id" binding:"required"`
}

// Create POST /withdrawals
func (h *WithdrawalHandler) Create(c *gin.Context) {
	var req createWithdrawalReq
	if err := c.ShouldBindJSON(&req); err != nil {
		FailParams(c, err)
		return
	}
	usd, err := decimal.NewFromString(req.UsdAmount)
	if err != nil {
		FailParams(c, err)
		return
	}

	w, err := h.svc.Withdraw(c.Request.Context(), service.WithdrawRequest{
		UserID:    req.UserID,
		CoinID:    req.CoinID,
		UsdAmount: usd,
		Address:   req.Address,
		EventID:   req.EventID,
	})
	if err != nil {
		FailErr(c, err)
		return
	}
	Success(c, w)
}

type rollbackReq struct {
	EventID int64 `json:"event_id" binding:"required"`
}

// Rollback POST /withdrawals/rollback
func (h *WithdrawalHandler) Rollback(c *gin.Context) {
	var req rollbackReq
	if err := c.ShouldBindJSON(&req); err != nil {
		FailParams(c, err)
		return
	}
	if err := h.svc.Rollback(c.Request.Context(), req.EventID); err != nil {
		FailErr(c, err)
		return
	}
	Success(c, gin.H{"event_id": req.EventID})
}

type historyQuery struct {
	UserID   int64  `form:"user_id" binding:"required"`
	Page     int    `form:"page"`
	PerPage  int    `form:"per_page"`
	Status   *int   `form:"status"`
	FromDate string `form:"from_date"` // RFC3339
	ToDate   string `form:"to_date"`
}

// History GET /withdrawals/history
func (h *WithdrawalHandler) History(c *gin.Context) {
	var q historyQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		FailParams(c, err)
		return
	}

	dq := domain.WithdrawalHistoryQuery{
		UserID:  q.UserID,
		Page:    q.Page,
		PerPage: q.PerPage,
	}
	if q.Status != nil {
		st := domain.WithdrawStatus(*q.Status)
		dq.Status = &st
	}
	var err error
	if dq.FromDate, dq.ToDate, err = parseDateRange(q.FromDate, q.ToDate); err != nil {
		FailParams(c, err)
		return
	}

	res, err := h.svc.History(c.Request.Context(), dq)
	if err != nil {
		FailErr(c, err)
		return
	}
	Success(c, res)
}

func parseDateRange(from, to string) (*time.Time, *time.Time, error) {
	var fromT, toT *time.Time
	if from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			return nil, nil, err
		}
		fromT = &t
	}
	if to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			return nil, nil, err
		}
		toT = &t
	}
	return fromT, toT, nil
}
