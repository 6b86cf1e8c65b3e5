package handler

import (
	"github.com/gin-gonic/gin"

	"coinsettle.com/internal/core/service"
	"coinsettle.com/internal/domain"
)

type DepositHandler struct {
	svc *service.DepositService
}

func NewDepositHandler(svc *service.DepositService) *DepositHandler {
	return &DepositHandler{svc: svc}
}

type validateDepositReq struct {
	UserID          int64  `json:"user_id" binding:"required"`
	TransactionHash string `json:"transaction_hash" binding:"required"`
	EventID         int64  `json:"event_id" binding:"required"`
}

// Validate POST /deposits/validate
func (h *DepositHandler) Validate(c *gin.Context) {
	var req validateDepositReq
	if err := c.ShouldBindJSON(&req); err != nil {
		FailParams(c, err)
		return
	}

	dep, err := h.svc.Validate(c.Request.Context(), service.DepositRequest{
		UserID:          req.UserID,
		TransactionHash: req.TransactionHash,
		EventID:         req.EventID,
	})
	if err != nil {
		FailErr(c, err)
		return
	}
	Success(c, dep)
}

// History GET /deposits/history
func (h *DepositHandler) History(c *gin.Context) {
	var q historyQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		FailParams(c, err)
		return
	}

	dq := domain.DepositHistoryQuery{
		UserID:  q.UserID,
		Page:    q.Page,
		PerPage: q.PerPage,
	}
	if q.Status != nil {
		ok := *q.Status != 0
		dq.Status = &ok
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
