package indicator

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestBollinger_ConstantSeries(t *testing.T) {
	closes := make([]decimal.Decimal, 25)
	for i := range closes {
		closes[i] = decimal.NewFromInt(100)
	}

	result := Bollinger(closes, 20, decimal.NewFromInt(2))

	if len(result.Middle) != 6 {
		t.Fatalf("len = %d, want 6", len(result.Middle))
	}
	for i := range result.Middle {
		// Zero deviation: all bands collapse to the mean.
		if !result.Upper[i].Equal(decimal.NewFromInt(100)) {
			t.Errorf("Upper[%d] = %s, want 100", i, result.Upper[i])
		}
		if !result.Lower[i].Equal(decimal.NewFromInt(100)) {
			t.Errorf("Lower[%d] = %s, want 100", i, result.Lower[i])
		}
	}
}

func TestBollinger_BandsSymmetric(t *testing.T) {
	closes := decimals(10, 12, 14, 16, 18, 20, 22, 24)
	result := Bollinger(closes, 4, decimal.NewFromInt(2))

	for i := range result.Middle {
		upperDist := result.Upper[i].Sub(result.Middle[i])
		lowerDist := result.Middle[i].Sub(result.Lower[i])
		if !upperDist.Equal(lowerDist) {
			t.Errorf("bands not symmetric at %d: +%s vs -%s", i, upperDist, lowerDist)
		}
	}
}

func TestBollinger_InsufficientData(t *testing.T) {
	result := Bollinger(decimals(1, 2, 3), 4, decimal.NewFromInt(2))
	if len(result.Middle) != 0 {
		t.Errorf("Bollinger over 3 bars with period 4 = %d values, want empty", len(result.Middle))
	}
}

func TestStdDev_Population(t *testing.T) {
	// Population stddev of [2, 4, 4, 4, 5, 5, 7, 9] is exactly 2.
	sd := StdDev(decimals(2, 4, 4, 4, 5, 5, 7, 9))
	if !sd.Equal(decimal.NewFromInt(2)) {
		t.Errorf("StdDev = %s, want 2", sd)
	}
}
