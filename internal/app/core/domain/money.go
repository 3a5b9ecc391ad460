package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Money 所有餘額與金額都使用精確十進位，絕不使用 float
type Money = decimal.Decimal

// Zero 零元
var Zero = decimal.Zero

// ParseAmount 解析輸入金額字串並確保非負。
//
// 參數:
//
//	raw: 金額字串 (例如 "1.5", "2.0000")
//
// 回傳:
//
//	Money: 解析後的金額 ("-0" 會正規化為 0)
//	error: ErrInvalidAmount 或 ErrNegativeAmount
func ParseAmount(raw string) (Money, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Zero, &ParseError{Field: "amount", Err: ErrMissingField}
	}
	// 只接受一般小數寫法，不接受科學記號
	if strings.ContainsAny(s, "eE") {
		return Zero, &ParseError{Field: "amount", Value: s, Err: ErrInvalidAmount}
	}
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return Zero, &ParseError{Field: "amount", Value: s, Err: ErrInvalidAmount}
	}
	if amount.Sign() < 0 {
		return Zero, &ParseError{Field: "amount", Value: s, Err: ErrNegativeAmount}
	}
	// decimal 沒有 -0，Sign()==0 時一律視為正的零
	return amount, nil
}

// MustAmount 給測試與常數使用，解析失敗直接 panic
func MustAmount(raw string) Money {
	m, err := ParseAmount(raw)
	if err != nil {
		panic(err)
	}
	return m
}
