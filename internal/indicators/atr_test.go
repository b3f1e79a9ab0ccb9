package indicators

import (
	"errors"
	"math"
	"testing"

	"github.com/Mehd1b/Tokamak-AI-Layer-sub006/internal/domain"
)

func bar(price, high, low float64) *domain.PriceBar {
	return &domain.PriceBar{Price: price, High: high, Low: low}
}

func TestATR_NotEnoughBars(t *testing.T) {
	bars := []*domain.PriceBar{bar(10, 11, 9), bar(10, 11, 9)}
	if _, err := ATR(bars, 2); !errors.Is(err, ErrNotEnoughBars) {
		t.Errorf("expected ErrNotEnoughBars, got %v", err)
	}
	if _, err := ATR(bars, 0); !errors.Is(err, ErrNotEnoughBars) {
		t.Errorf("expected ErrNotEnoughBars for zero period, got %v", err)
	}
}

func TestATR_ConstantRange(t *testing.T) {
	// Identical 2-point ranges everywhere → ATR is exactly 2.
	var bars []*domain.PriceBar
	for i := 0; i < 10; i++ {
		bars = append(bars, bar(100, 101, 99))
	}

	atr, err := ATR(bars, 5)
	if err != nil {
		t.Fatalf("ATR failed: %v", err)
	}
	if math.Abs(atr-2) > 1e-9 {
		t.Errorf("expected ATR 2, got %v", atr)
	}
}

func TestATR_CloseOnlyFallback(t *testing.T) {
	// No highs/lows: true range degrades to |close - prevClose| = 1.
	var bars []*domain.PriceBar
	for i := 0; i < 8; i++ {
		bars = append(bars, &domain.PriceBar{Price: 100 + float64(i%2)})
	}

	atr, err := ATR(bars, 3)
	if err != nil {
		t.Fatalf("ATR failed: %v", err)
	}
	if math.Abs(atr-1) > 1e-9 {
		t.Errorf("expected ATR 1, got %v", atr)
	}
}

func TestATR_GapAboveRangeUsesPrevClose(t *testing.T) {
	bars := []*domain.PriceBar{
		bar(100, 101, 99),
		bar(110, 111, 109), // gap up: TR = 111 - 100 = 11
		bar(110, 111, 109),
		bar(110, 111, 109),
	}

	atr, err := ATR(bars, 3)
	if err != nil {
		t.Fatalf("ATR failed: %v", err)
	}
	// TRs: 11, 2, 2 → ATR = 5
	if math.Abs(atr-5) > 1e-9 {
		t.Errorf("expected ATR 5, got %v", atr)
	}
}
