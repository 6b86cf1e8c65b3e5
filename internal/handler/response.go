package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"coinsettle.com/pkg/logger"
	"coinsettle.com/pkg/xerr"
)

// 统一 HTTP 返回格式
type Response struct {
	Code     int         `json:"code"`
	Message  string      `json:"message"`
	ErrorKey string      `json:"error_key,omitempty"` // 机器可读，调用方照这个分支
	Data     interface{} `json:"data"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    http.StatusOK,
		Message: http.StatusText(http.StatusOK),
		Data:    data,
	})
}

// FailErr 业务错误出口：对外只给 code + key + 人话，原始错误只进日志
func FailErr(c *gin.Context, err error) {
	code := xerr.CodeOf(err)
	logger.Warn(c.Request.Context(), "http 请求失败",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Int("biz_code", code),
		zap.Error(err))

	c.JSON(httpStatusOf(code), Response{
		Code:     code,
		Message:  xerr.MapErrMsg(code),
		ErrorKey: xerr.MapErrKey(code),
	})
}

func FailParams(c *gin.Context, err error) {
	FailErr(c, xerr.New(xerr.RequestParamsError, err.Error()))
}

// httpStatusOf 业务错误码到 HTTP 状态码
func httpStatusOf(code int) int {
	switch code {
	case xerr.RecordNotFound:
		return http.StatusNotFound
	case xerr.RequestParamsError, xerr.InvalidAmount, xerr.InvalidAddress,
		xerr.LessThanMinimum, xerr.GreaterThanMaximum:
		return http.StatusBadRequest
	case xerr.TransactionInProgress, xerr.DuplicateEntry, xerr.DepositAlreadyExists:
		return http.StatusConflict
	case xerr.UserIdMismatch:
		return http.StatusForbidden
	case xerr.RpcError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
