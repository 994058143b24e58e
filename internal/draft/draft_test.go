package draft

import (
	"testing"

	"github.com/shopspring/decimal"

	"dukkan/backend/internal/domain"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func draftWithOneLine() Draft {
	return New("S-00001", dec("1480")).AppendLine()
}

func TestUnitPriceEditDerivesOtherCurrency(t *testing.T) {
	d := draftWithOneLine().
		WithQuantity(0, dec("2")).
		WithUnitPriceIQD(0, dec("1000"))

	line := d.Lines[0]
	if !line.UnitPriceUSD.Equal(dec("0.68")) {
		t.Fatalf("expected derived USD price 0.68, got %s", line.UnitPriceUSD)
	}
	if !line.TotalIQD.Equal(dec("2000")) {
		t.Fatalf("expected IQD total 2000, got %s", line.TotalIQD)
	}
	if !line.TotalUSD.Equal(dec("1.36")) {
		t.Fatalf("expected USD total 1.36, got %s", line.TotalUSD)
	}

	d = d.WithUnitPriceUSD(0, dec("2"))
	line = d.Lines[0]
	if !line.UnitPriceIQD.Equal(dec("2960")) {
		t.Fatalf("expected derived IQD price 2960, got %s", line.UnitPriceIQD)
	}
}

func TestUnitPriceEditWithZeroRateLeavesOtherSide(t *testing.T) {
	d := New("S-00001", decimal.Zero).AppendLine().
		WithUnitPriceUSD(0, dec("5")).
		WithUnitPriceIQD(0, dec("1500"))

	line := d.Lines[0]
	if !line.UnitPriceUSD.Equal(dec("5")) {
		t.Fatalf("expected USD price untouched at 5, got %s", line.UnitPriceUSD)
	}
	if !line.UnitPriceIQD.Equal(dec("1500")) {
		t.Fatalf("expected IQD price 1500, got %s", line.UnitPriceIQD)
	}
}

func TestQuantityEditRecomputesTotalsOnly(t *testing.T) {
	d := draftWithOneLine().WithUnitPriceIQD(0, dec("1000"))
	priceUSD := d.Lines[0].UnitPriceUSD

	d = d.WithQuantity(0, dec("3"))
	line := d.Lines[0]
	if !line.UnitPriceUSD.Equal(priceUSD) {
		t.Fatalf("quantity edit must not touch unit prices")
	}
	if !line.TotalIQD.Equal(dec("3000")) {
		t.Fatalf("expected IQD total 3000, got %s", line.TotalIQD)
	}
}

func TestTotalsSkipIneligibleLines(t *testing.T) {
	d := draftWithOneLine().
		WithProduct(0, domain.InventoryItem{ProductCode: "X001", ProductName: "Sugar 1kg", SellPriceIQD: dec("1000"), SellPriceUSD: dec("0.68")}).
		WithQuantity(0, dec("2")).
		AppendLine(). // no product code
		AppendLine().
		WithProduct(2, domain.InventoryItem{ProductCode: "X002", ProductName: "Rice 5kg", SellPriceIQD: dec("8000"), SellPriceUSD: dec("5.41")})
	// third line has a product but zero quantity

	sum := d.Totals()
	if !sum.TotalIQD.Equal(dec("2000")) {
		t.Fatalf("expected total 2000, got %s", sum.TotalIQD)
	}
	if got := len(d.EligibleLines()); got != 1 {
		t.Fatalf("expected 1 eligible line, got %d", got)
	}
}

func TestDiscountAppliesInOneCurrencyAtATime(t *testing.T) {
	d := draftWithOneLine().
		WithProduct(0, domain.InventoryItem{ProductCode: "X001", ProductName: "Sugar 1kg", SellPriceIQD: dec("1000"), SellPriceUSD: dec("0.68")}).
		WithQuantity(0, dec("10")).
		WithDiscountEnabled(true).
		WithDiscount(domain.CurrencyUSD, dec("1.5")).
		WithDiscount(domain.CurrencyIQD, dec("500"))

	if !d.DiscountUSD.Equal(decimal.Zero) {
		t.Fatalf("selecting IQD discount must reset the USD discount, got %s", d.DiscountUSD)
	}

	sum := d.Totals()
	if !sum.AfterDiscountIQD.Equal(dec("9500")) {
		t.Fatalf("expected after-discount 9500, got %s", sum.AfterDiscountIQD)
	}
	if !sum.AfterDiscountUSD.Equal(dec("6.8")) {
		t.Fatalf("expected after-discount 6.8, got %s", sum.AfterDiscountUSD)
	}

	sum = d.WithDiscountEnabled(false).Totals()
	if !sum.AfterDiscountIQD.Equal(dec("10000")) {
		t.Fatalf("disabled discount must not reduce totals, got %s", sum.AfterDiscountIQD)
	}
}

func TestRemainderSubtractsAmountReceived(t *testing.T) {
	d := draftWithOneLine().
		WithProduct(0, domain.InventoryItem{ProductCode: "X001", ProductName: "Sugar 1kg", SellPriceIQD: dec("1000"), SellPriceUSD: dec("0.68")}).
		WithQuantity(0, dec("10")).
		WithPayType(domain.PayTypeCredit).
		WithAmountReceived(domain.CurrencyIQD, dec("4000"))

	sum := d.Totals()
	if !sum.RemainderIQD.Equal(dec("6000")) {
		t.Fatalf("expected remainder 6000, got %s", sum.RemainderIQD)
	}

	d = d.WithAmountReceived(domain.CurrencyUSD, dec("3"))
	if !d.AmountReceivedIQD.Equal(decimal.Zero) {
		t.Fatalf("switching received currency must reset the IQD amount")
	}
	sum = d.Totals()
	if !sum.RemainderUSD.Equal(dec("3.8")) {
		t.Fatalf("expected USD remainder 3.8, got %s", sum.RemainderUSD)
	}
}

func TestTransitionsDoNotMutateReceiver(t *testing.T) {
	base := draftWithOneLine().WithUnitPriceIQD(0, dec("1000"))
	_ = base.WithQuantity(0, dec("99"))
	_ = base.RemoveLine(0)

	if len(base.Lines) != 1 {
		t.Fatalf("expected base draft to keep its line")
	}
	if !base.Lines[0].Quantity.Equal(decimal.Zero) {
		t.Fatalf("expected base draft quantity untouched, got %s", base.Lines[0].Quantity)
	}
}

func TestRequestKeepsOnlyEligibleLines(t *testing.T) {
	d := draftWithOneLine().
		WithProduct(0, domain.InventoryItem{ProductCode: "X001", ProductName: "Sugar 1kg", SellPriceIQD: dec("1000"), SellPriceUSD: dec("0.68")}).
		WithQuantity(0, dec("2")).
		AppendLine().
		WithStore("store-1").
		WithCustomer("cust-1", "Ahmed Al-Saadi")

	req := d.Request()
	if len(req.Lines) != 1 {
		t.Fatalf("expected 1 line in request, got %d", len(req.Lines))
	}
	if !req.Lines[0].TotalPriceIQD.Equal(dec("2000")) {
		t.Fatalf("expected line total 2000, got %s", req.Lines[0].TotalPriceIQD)
	}
	if req.StoreID != "store-1" || req.CustomerID != "cust-1" {
		t.Fatalf("expected header fields carried into request")
	}
}
