package currency

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestConvertIQDToUSD(t *testing.T) {
	got, ok := Convert(dec("1000"), dec("1480"), IQDToUSD)
	if !ok {
		t.Fatalf("expected conversion to apply")
	}
	if !got.Equal(dec("0.68")) {
		t.Fatalf("expected 0.68, got %s", got)
	}
}

func TestConvertUSDToIQD(t *testing.T) {
	got, ok := Convert(dec("10"), dec("1480"), USDToIQD)
	if !ok {
		t.Fatalf("expected conversion to apply")
	}
	if !got.Equal(dec("14800")) {
		t.Fatalf("expected 14800, got %s", got)
	}
}

func TestConvertRoundsHalfUp(t *testing.T) {
	// 1 / 200 = 0.005, which rounds up to 0.01.
	got, ok := Convert(dec("1"), dec("200"), IQDToUSD)
	if !ok {
		t.Fatalf("expected conversion to apply")
	}
	if !got.Equal(dec("0.01")) {
		t.Fatalf("expected 0.01, got %s", got)
	}

	got, ok = Convert(dec("1.2345"), dec("2"), USDToIQD)
	if !ok {
		t.Fatalf("expected conversion to apply")
	}
	if !got.Equal(dec("2.47")) {
		t.Fatalf("expected 2.47, got %s", got)
	}
}

func TestConvertSkipsOnNonPositiveRate(t *testing.T) {
	for _, rate := range []string{"0", "-1"} {
		got, ok := Convert(dec("1000"), dec(rate), IQDToUSD)
		if ok {
			t.Fatalf("expected conversion to be skipped for rate %s", rate)
		}
		if !got.Equal(dec("1000")) {
			t.Fatalf("expected amount unchanged, got %s", got)
		}
	}
}

// Converting back and forth is lossy because each direction rounds to two
// decimals; the round trip is not expected to reproduce the input.
func TestConvertRoundTripIsLossy(t *testing.T) {
	rate := dec("1480")
	usd, _ := Convert(dec("1000"), rate, IQDToUSD)
	back, _ := Convert(usd, rate, USDToIQD)
	if back.Equal(dec("1000")) {
		t.Fatalf("expected lossy round trip, got exact %s", back)
	}
	if !back.Equal(dec("1006.4")) {
		t.Fatalf("expected 1006.4, got %s", back)
	}
}
