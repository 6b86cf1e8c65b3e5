package xerr

import (
	"errors"
	"fmt"
)

// 业务错误码定义
// Code 是对外稳定的符号值，Msg 是给人看的；底层 RPC/DB 的原始报错只进日志，不出参
const (
	OK                 = 200
	RequestParamsError = 400
	RecordNotFound     = 404
	ServerCommonError  = 500
	DbError            = 501
	RedisError         = 502
	RpcError           = 503
	TechnicalError     = 504
	ConfigMissing      = 505

	DuplicateEntry        = 1001
	TransactionInProgress = 1002
	LessThanMinimum       = 1003
	GreaterThanMaximum    = 1004
	InvalidAmount         = 1005
	InvalidAddress        = 1006
	DepositAlreadyExists  = 1007
	UserIdMismatch        = 1008
	InsufficientBalance   = 1009
)

type CodeError struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

func (e *CodeError) Error() string {
	return fmt.Sprintf("ErrCode:%d, Msg:%s", e.Code, e.Msg)
}

func New(code int, msg string) error {
	return &CodeError{Code: code, Msg: msg}
}

func NewErrCode(code int) error {
	return &CodeError{Code: code, Msg: MapErrMsg(code)}
}

// CodeOf 取出业务错误码，非 CodeError 一律按 ServerCommonError 处理
func CodeOf(err error) int {
	var ce *CodeError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ServerCommonError
}

func IsCode(err error, code int) bool {
	return CodeOf(err) == code
}

func MapErrMsg(code int) string {
	switch code {
	case ServerCommonError:
		return "服务器开小差了"
	case RequestParamsError:
		return "参数错误"
	case RecordNotFound:
		return "记录不存在"
	case DbError:
		return "数据库繁忙"
	case RedisError:
		return "缓存服务异常"
	case RpcError:
		return "链上节点调用失败"
	case TechnicalError:
		return "系统异常，请稍后重试"
	case ConfigMissing:
		return "缺少必要配置项"
	case DuplicateEntry:
		return "记录已存在"
	case TransactionInProgress:
		return "该用户已有一笔交易在处理中"
	case LessThanMinimum:
		return "提现金额低于最小限额"
	case GreaterThanMaximum:
		return "提现金额超过最大限额"
	case InvalidAmount:
		return "金额不合法"
	case InvalidAddress:
		return "地址不合法"
	case DepositAlreadyExists:
		return "该充值已入账，请勿重复提交"
	case UserIdMismatch:
		return "不能为其他用户确认充值"
	case InsufficientBalance:
		return "余额不足"
	default:
		return "未知错误"
	}
}

// MapErrKey 稳定的机器可读 key，HTTP 层返回给调用方用
func MapErrKey(code int) string {
	switch code {
	case RecordNotFound:
		return "not_found"
	case DbError:
		return "database_issue"
	case RedisError:
		return "redis_issue"
	case RpcError:
		return "rpc_issue"
	case TechnicalError:
		return "technical_issue"
	case ConfigMissing:
		return "config_missing"
	case DuplicateEntry:
		return "duplicate_entry"
	case TransactionInProgress:
		return "transaction_in_progress"
	case LessThanMinimum:
		return "less_than_minimum_transfer"
	case GreaterThanMaximum:
		return "greater_than_maximum_transfer"
	case InvalidAmount:
		return "invalid_amount"
	case InvalidAddress:
		return "invalid_address"
	case DepositAlreadyExists:
		return "deposit_already_recorded"
	case UserIdMismatch:
		return "user_id_mismatch"
	case RequestParamsError:
		return "invalid_request"
	default:
		return "server_error"
	}
}
