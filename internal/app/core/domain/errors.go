package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingField 欄位缺漏
	ErrMissingField = errors.New("missing field")

	// ErrInvalidNumber 帳戶或交易 ID 不是合法的無號整數
	ErrInvalidNumber = errors.New("invalid number")

	// ErrInvalidAmount 金額無法解析為十進位數
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrNegativeAmount 金額為負數
	ErrNegativeAmount = errors.New("negative amount")

	// ErrUnknownEventType 未知的交易類型
	ErrUnknownEventType = errors.New("unknown transaction type")

	// ErrInvalidTxState 無法辨識的交易狀態
	ErrInvalidTxState = errors.New("invalid transaction state")
)

// ParseError 描述輸入解碼失敗的位置與原因。
// Field 為出錯欄位 (type/client/tx/amount)，Value 為原始字串。
type ParseError struct {
	Field string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("field %q: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("field %q value %q: %v", e.Field, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
