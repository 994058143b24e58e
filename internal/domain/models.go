package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Currency string

const (
	CurrencyIQD Currency = "IQD"
	CurrencyUSD Currency = "USD"
)

type PayType string

const (
	PayTypeCash   PayType = "cash"
	PayTypeCredit PayType = "credit"
)

type PriceType string

const (
	PriceTypeRetail    PriceType = "retail"
	PriceTypeWholesale PriceType = "wholesale"
)

type Store struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

type Customer struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Type       string          `json:"type"`
	BalanceIQD decimal.Decimal `json:"balance_iqd"`
	BalanceUSD decimal.Decimal `json:"balance_usd"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

type InventoryItem struct {
	ID           string          `json:"id"`
	StoreID      string          `json:"store_id"`
	ProductCode  string          `json:"product_code"`
	ProductName  string          `json:"product_name"`
	Quantity     decimal.Decimal `json:"quantity"`
	Unit         string          `json:"unit"`
	SellPriceIQD decimal.Decimal `json:"sell_price_iqd"`
	SellPriceUSD decimal.Decimal `json:"sell_price_usd"`
}

// InventoryListResponse echoes the requested store id so a client that
// switched stores while the request was in flight can discard a stale answer.
type InventoryListResponse struct {
	StoreID string          `json:"store_id"`
	Items   []InventoryItem `json:"items"`
}

type ExchangeRate struct {
	ID        string          `json:"id"`
	Rate      decimal.Decimal `json:"rate"`
	CreatedAt time.Time       `json:"created_at"`
}

type ExchangeRateResponse struct {
	Rate    decimal.Decimal `json:"rate"`
	AsOf    time.Time       `json:"as_of"`
	Default bool            `json:"default"`
}

type Sale struct {
	ID                string          `json:"id"`
	Number            string          `json:"number"`
	StoreID           string          `json:"store_id"`
	CustomerID        string          `json:"customer_id"`
	CustomerName      string          `json:"customer_name"`
	PriceType         PriceType       `json:"price_type"`
	PayType           PayType         `json:"pay_type"`
	CurrencyType      Currency        `json:"currency_type"`
	Details           string          `json:"details,omitempty"`
	DateTime          time.Time       `json:"datetime"`
	DiscountEnabled   bool            `json:"discount_enabled"`
	DiscountCurrency  Currency        `json:"discount_currency,omitempty"`
	DiscountIQD       decimal.Decimal `json:"discount_iqd"`
	DiscountUSD       decimal.Decimal `json:"discount_usd"`
	TotalSaleIQD      decimal.Decimal `json:"total_sale_iqd"`
	TotalSaleUSD      decimal.Decimal `json:"total_sale_usd"`
	AmountReceivedIQD decimal.Decimal `json:"amount_received_iqd"`
	AmountReceivedUSD decimal.Decimal `json:"amount_received_usd"`
	FinalTotalIQD     decimal.Decimal `json:"final_total_iqd"`
	FinalTotalUSD     decimal.Decimal `json:"final_total_usd"`
	CreatedAt         time.Time       `json:"created_at"`
}

type SaleLine struct {
	ID            string          `json:"id"`
	SaleID        string          `json:"sale_id"`
	ProductCode   string          `json:"product_code"`
	ProductName   string          `json:"product_name"`
	StoreID       string          `json:"store_id"`
	Quantity      decimal.Decimal `json:"quantity"`
	UnitPriceIQD  decimal.Decimal `json:"unit_price_iqd"`
	UnitPriceUSD  decimal.Decimal `json:"unit_price_usd"`
	TotalPriceIQD decimal.Decimal `json:"total_price_iqd"`
	TotalPriceUSD decimal.Decimal `json:"total_price_usd"`
	Notes         string          `json:"notes,omitempty"`
}

type Payment struct {
	ID               string          `json:"id"`
	CustomerID       string          `json:"customer_id"`
	AmountIQD        decimal.Decimal `json:"amount_iqd"`
	AmountUSD        decimal.Decimal `json:"amount_usd"`
	CurrencyType     Currency        `json:"currency_type"`
	TransactionType  string          `json:"transaction_type"`
	Notes            string          `json:"notes,omitempty"`
	PayDate          time.Time       `json:"pay_date"`
	SaleID           string          `json:"sale_id"`
	PaymentAmountIQD decimal.Decimal `json:"payment_amount_iqd"`
	PaymentAmountUSD decimal.Decimal `json:"payment_amount_usd"`
	PaymentType      string          `json:"payment_type"`
}

type SaleLineInput struct {
	ProductCode   string          `json:"product_code"`
	ProductName   string          `json:"product_name"`
	Quantity      decimal.Decimal `json:"quantity"`
	UnitPriceIQD  decimal.Decimal `json:"unit_price_iqd"`
	UnitPriceUSD  decimal.Decimal `json:"unit_price_usd"`
	TotalPriceIQD decimal.Decimal `json:"total_price_iqd"`
	TotalPriceUSD decimal.Decimal `json:"total_price_usd"`
	Notes         string          `json:"notes,omitempty"`
}

type SaleCreateRequest struct {
	Number            string          `json:"number"`
	StoreID           string          `json:"store_id"`
	CustomerID        string          `json:"customer_id"`
	CustomerName      string          `json:"customer_name,omitempty"`
	PriceType         PriceType       `json:"price_type,omitempty"`
	PayType           PayType         `json:"pay_type"`
	CurrencyType      Currency        `json:"currency_type,omitempty"`
	Details           string          `json:"details,omitempty"`
	DateTime          time.Time       `json:"datetime,omitempty"`
	DiscountEnabled   bool            `json:"discount_enabled,omitempty"`
	DiscountCurrency  Currency        `json:"discount_currency,omitempty"`
	DiscountIQD       decimal.Decimal `json:"discount_iqd,omitempty"`
	DiscountUSD       decimal.Decimal `json:"discount_usd,omitempty"`
	AmountReceivedIQD decimal.Decimal `json:"amount_received_iqd,omitempty"`
	AmountReceivedUSD decimal.Decimal `json:"amount_received_usd,omitempty"`
	Lines             []SaleLineInput `json:"lines"`
}

type SaleCreateResponse struct {
	SaleID        string          `json:"sale_id"`
	Number        string          `json:"number"`
	TotalIQD      decimal.Decimal `json:"total_iqd"`
	TotalUSD      decimal.Decimal `json:"total_usd"`
	FinalTotalIQD decimal.Decimal `json:"final_total_iqd"`
	FinalTotalUSD decimal.Decimal `json:"final_total_usd"`
	PaymentID     string          `json:"payment_id,omitempty"`
}

// BalanceDelta is a cumulative increase applied to a customer's running
// balances as part of a committed credit sale.
type BalanceDelta struct {
	CustomerID string
	DeltaIQD   decimal.Decimal
	DeltaUSD   decimal.Decimal
}

// SaleCommit bundles everything one committed sale writes: the header, its
// lines, and the optional credit-side effects. The store applies it atomically.
type SaleCommit struct {
	Sale         Sale
	Lines        []SaleLine
	BalanceDelta *BalanceDelta
	Payment      *Payment
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

type UserAccount struct {
	Username  string    `json:"username"`
	Password  string    `json:"-"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

type CashierCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type CashierUser struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}
