// Package draft models the sale entry form as one immutable value. Every
// edit returns a new Draft via a transition method, and the derived totals
// are recomputed in full on each transition, so the calculation rules can be
// tested without any rendering layer.
package draft

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"dukkan/backend/internal/currency"
	"dukkan/backend/internal/domain"
)

// Line is one product row in the draft. Key identifies the row while it is
// being edited and is never persisted.
type Line struct {
	Key          string
	ProductCode  string
	ProductName  string
	Unit         string
	Quantity     decimal.Decimal
	UnitPriceIQD decimal.Decimal
	UnitPriceUSD decimal.Decimal
	TotalIQD     decimal.Decimal
	TotalUSD     decimal.Decimal
	Notes        string
}

// Eligible reports whether the line counts toward totals and commit.
func (l Line) Eligible() bool {
	return l.ProductCode != "" && l.Quantity.GreaterThan(decimal.Zero)
}

type Draft struct {
	Number             string
	StoreID            string
	CustomerID         string
	CustomerName       string
	PriceType          domain.PriceType
	PayType            domain.PayType
	SettlementCurrency domain.Currency
	Details            string
	DateTime           time.Time
	Rate               decimal.Decimal
	Lines              []Line
	DiscountEnabled    bool
	DiscountCurrency   domain.Currency
	DiscountIQD        decimal.Decimal
	DiscountUSD        decimal.Decimal
	AmountCurrency     domain.Currency
	AmountReceivedIQD  decimal.Decimal
	AmountReceivedUSD  decimal.Decimal

	nextKey int
}

// Summary holds the aggregate amounts derived from the draft. Remainders are
// only meaningful for credit sales with an amount received.
type Summary struct {
	TotalIQD         decimal.Decimal
	TotalUSD         decimal.Decimal
	AfterDiscountIQD decimal.Decimal
	AfterDiscountUSD decimal.Decimal
	RemainderIQD     decimal.Decimal
	RemainderUSD     decimal.Decimal
}

func New(number string, rate decimal.Decimal) Draft {
	return Draft{
		Number:             number,
		PriceType:          domain.PriceTypeRetail,
		PayType:            domain.PayTypeCash,
		SettlementCurrency: domain.CurrencyIQD,
		DiscountCurrency:   domain.CurrencyIQD,
		AmountCurrency:     domain.CurrencyIQD,
		DateTime:           time.Now().UTC(),
		Rate:               rate,
	}
}

func (d Draft) clone() Draft {
	next := d
	next.Lines = make([]Line, len(d.Lines))
	copy(next.Lines, d.Lines)
	return next
}

func (d Draft) WithNumber(number string) Draft {
	next := d.clone()
	next.Number = number
	return next
}

func (d Draft) WithStore(storeID string) Draft {
	next := d.clone()
	next.StoreID = storeID
	return next
}

func (d Draft) WithCustomer(id string, name string) Draft {
	next := d.clone()
	next.CustomerID = id
	next.CustomerName = name
	return next
}

func (d Draft) WithPriceType(priceType domain.PriceType) Draft {
	next := d.clone()
	next.PriceType = priceType
	return next
}

func (d Draft) WithPayType(payType domain.PayType) Draft {
	next := d.clone()
	next.PayType = payType
	return next
}

func (d Draft) WithSettlementCurrency(cur domain.Currency) Draft {
	next := d.clone()
	next.SettlementCurrency = cur
	return next
}

func (d Draft) WithDetails(details string) Draft {
	next := d.clone()
	next.Details = details
	return next
}

func (d Draft) WithDateTime(at time.Time) Draft {
	next := d.clone()
	next.DateTime = at
	return next
}

func (d Draft) WithRate(rate decimal.Decimal) Draft {
	next := d.clone()
	next.Rate = rate
	return next
}

func (d Draft) AppendLine() Draft {
	next := d.clone()
	next.Lines = append(next.Lines, Line{Key: fmt.Sprintf("line-%d", next.nextKey)})
	next.nextKey++
	return next
}

func (d Draft) RemoveLine(i int) Draft {
	if i < 0 || i >= len(d.Lines) {
		return d
	}
	next := d.clone()
	next.Lines = append(next.Lines[:i], next.Lines[i+1:]...)
	return next
}

// WithProduct fills a line from an inventory item: code, name, unit and both
// sell prices, then recomputes the line totals.
func (d Draft) WithProduct(i int, item domain.InventoryItem) Draft {
	if i < 0 || i >= len(d.Lines) {
		return d
	}
	next := d.clone()
	line := &next.Lines[i]
	line.ProductCode = item.ProductCode
	line.ProductName = item.ProductName
	line.Unit = item.Unit
	line.UnitPriceIQD = item.SellPriceIQD
	line.UnitPriceUSD = item.SellPriceUSD
	recompute(line)
	return next
}

// WithQuantity updates a line's quantity and recomputes both line totals.
// Unit prices are not touched.
func (d Draft) WithQuantity(i int, qty decimal.Decimal) Draft {
	if i < 0 || i >= len(d.Lines) {
		return d
	}
	next := d.clone()
	line := &next.Lines[i]
	line.Quantity = qty
	recompute(line)
	return next
}

// WithUnitPriceIQD sets the edited IQD price and derives the USD price from
// it when the rate is usable; with a non-positive rate the USD side is left
// as it was.
func (d Draft) WithUnitPriceIQD(i int, price decimal.Decimal) Draft {
	if i < 0 || i >= len(d.Lines) {
		return d
	}
	next := d.clone()
	line := &next.Lines[i]
	line.UnitPriceIQD = price
	if converted, ok := currency.Convert(price, next.Rate, currency.IQDToUSD); ok {
		line.UnitPriceUSD = converted
	}
	recompute(line)
	return next
}

// WithUnitPriceUSD is the mirror of WithUnitPriceIQD.
func (d Draft) WithUnitPriceUSD(i int, price decimal.Decimal) Draft {
	if i < 0 || i >= len(d.Lines) {
		return d
	}
	next := d.clone()
	line := &next.Lines[i]
	line.UnitPriceUSD = price
	if converted, ok := currency.Convert(price, next.Rate, currency.USDToIQD); ok {
		line.UnitPriceIQD = converted
	}
	recompute(line)
	return next
}

func (d Draft) WithLineNotes(i int, notes string) Draft {
	if i < 0 || i >= len(d.Lines) {
		return d
	}
	next := d.clone()
	next.Lines[i].Notes = notes
	return next
}

func (d Draft) WithDiscountEnabled(enabled bool) Draft {
	next := d.clone()
	next.DiscountEnabled = enabled
	return next
}

// WithDiscount sets the discount in exactly one currency; the other
// currency's discount is reset to zero.
func (d Draft) WithDiscount(cur domain.Currency, amount decimal.Decimal) Draft {
	next := d.clone()
	next.DiscountCurrency = cur
	if cur == domain.CurrencyUSD {
		next.DiscountUSD = amount
		next.DiscountIQD = decimal.Zero
	} else {
		next.DiscountIQD = amount
		next.DiscountUSD = decimal.Zero
	}
	return next
}

// WithAmountReceived records a partial payment in exactly one currency; the
// other currency's amount is reset to zero.
func (d Draft) WithAmountReceived(cur domain.Currency, amount decimal.Decimal) Draft {
	next := d.clone()
	next.AmountCurrency = cur
	if cur == domain.CurrencyUSD {
		next.AmountReceivedUSD = amount
		next.AmountReceivedIQD = decimal.Zero
	} else {
		next.AmountReceivedIQD = amount
		next.AmountReceivedUSD = decimal.Zero
	}
	return next
}

func recompute(line *Line) {
	line.TotalIQD = line.Quantity.Mul(line.UnitPriceIQD)
	line.TotalUSD = line.Quantity.Mul(line.UnitPriceUSD)
}

func (d Draft) EligibleLines() []Line {
	eligible := make([]Line, 0, len(d.Lines))
	for _, line := range d.Lines {
		if line.Eligible() {
			eligible = append(eligible, line)
		}
	}
	return eligible
}

func (d Draft) Totals() Summary {
	var sum Summary
	for _, line := range d.EligibleLines() {
		sum.TotalIQD = sum.TotalIQD.Add(line.TotalIQD)
		sum.TotalUSD = sum.TotalUSD.Add(line.TotalUSD)
	}

	sum.AfterDiscountIQD = sum.TotalIQD
	sum.AfterDiscountUSD = sum.TotalUSD
	if d.DiscountEnabled {
		sum.AfterDiscountIQD = sum.TotalIQD.Sub(d.DiscountIQD)
		sum.AfterDiscountUSD = sum.TotalUSD.Sub(d.DiscountUSD)
	}

	sum.RemainderIQD = sum.AfterDiscountIQD.Sub(d.AmountReceivedIQD)
	sum.RemainderUSD = sum.AfterDiscountUSD.Sub(d.AmountReceivedUSD)
	return sum
}

// Request maps the draft into the commit request, keeping only eligible
// lines and stripping the ephemeral row keys.
func (d Draft) Request() domain.SaleCreateRequest {
	lines := d.EligibleLines()
	inputs := make([]domain.SaleLineInput, 0, len(lines))
	for _, line := range lines {
		inputs = append(inputs, domain.SaleLineInput{
			ProductCode:   line.ProductCode,
			ProductName:   line.ProductName,
			Quantity:      line.Quantity,
			UnitPriceIQD:  line.UnitPriceIQD,
			UnitPriceUSD:  line.UnitPriceUSD,
			TotalPriceIQD: line.TotalIQD,
			TotalPriceUSD: line.TotalUSD,
			Notes:         line.Notes,
		})
	}

	return domain.SaleCreateRequest{
		Number:            d.Number,
		StoreID:           d.StoreID,
		CustomerID:        d.CustomerID,
		CustomerName:      d.CustomerName,
		PriceType:         d.PriceType,
		PayType:           d.PayType,
		CurrencyType:      d.SettlementCurrency,
		Details:           d.Details,
		DateTime:          d.DateTime,
		DiscountEnabled:   d.DiscountEnabled,
		DiscountCurrency:  d.DiscountCurrency,
		DiscountIQD:       d.DiscountIQD,
		DiscountUSD:       d.DiscountUSD,
		AmountReceivedIQD: d.AmountReceivedIQD,
		AmountReceivedUSD: d.AmountReceivedUSD,
		Lines:             inputs,
	}
}
