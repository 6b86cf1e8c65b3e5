package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestTruncate8(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"整除", "5", "5"},
		{"八位以内不变", "0.12345678", "0.12345678"},
		{"多余位直接丢弃不进位", "0.123456789", "0.12345678"},
		{"向零截断而非四舍五入", "0.999999999", "0.99999999"},
		{"除法结果", "33.333333333333", "33.33333333"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Truncate8(decimal.RequireFromString(tt.in))
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "got %s", got)
		})
	}
}

func TestTruncateIdempotent(t *testing.T) {
	for _, s := range []string{"0.123456789", "100", "0.00000001", "7.999999995"} {
		d := decimal.RequireFromString(s)
		once := Truncate8(d)
		twice := Truncate8(once)
		assert.True(t, once.Equal(twice))
		// 非负数截断后不会变大
		assert.True(t, once.LessThanOrEqual(d))
	}
}

func TestTruncateFiatScale(t *testing.T) {
	got := Truncate(decimal.RequireFromString("12.34567"), FiatScale)
	assert.True(t, got.Equal(decimal.RequireFromString("12.3456")))
}
