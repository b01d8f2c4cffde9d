package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Dividend is one cash dividend announcement.
type Dividend struct {
	Ticker         string          `json:"ticker"`
	CashAmount     decimal.Decimal `json:"cash_amount"`
	ExDividendDate time.Time       `json:"ex_dividend_date"`
	PayDate        time.Time       `json:"pay_date"`
	Frequency      int             `json:"frequency"`
}

// YieldCandidate is a dividend that passed the yield hunter filters.
type YieldCandidate struct {
	Dividend
	ClosePrice       decimal.Decimal `json:"close_price"`
	Percentage       decimal.Decimal `json:"percentage"`
	YearlyPercentage decimal.Decimal `json:"yearly_percentage"`
	Shares           int64           `json:"num_shares_100"`
	PurchaseCost     decimal.Decimal `json:"purchase_cost"`
	NextDividendPay  decimal.Decimal `json:"next_div_pay"`
	YearlyDividend   decimal.Decimal `json:"yr_div_pay"`
}
