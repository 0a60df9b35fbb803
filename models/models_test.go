package models

import (
	"errors"
	"testing"
	"time"
)

func fp(v float64) *float64 { return &v }

func TestUsablePrice(t *testing.T) {
	cases := []struct {
		name string
		obs  MarketObservation
		want float64
		ok   bool
	}{
		{"last wins", MarketObservation{Bid: fp(10), Ask: fp(12), Last: fp(11.5)}, 11.5, true},
		{"midpoint", MarketObservation{Bid: fp(10), Ask: fp(12)}, 11, true},
		{"bid only", MarketObservation{Bid: fp(10)}, 10, true},
		{"ask only", MarketObservation{Ask: fp(12)}, 12, true},
		{"empty", MarketObservation{}, 0, false},
	}
	for _, c := range cases {
		got, ok := c.obs.UsablePrice()
		if ok != c.ok || got != c.want {
			t.Errorf("%s: UsablePrice() = %v, %v, want %v, %v", c.name, got, ok, c.want, c.ok)
		}
	}
}

func TestMarketObservationValidate(t *testing.T) {
	ts := time.Date(2023, 1, 1, 12, 0, 0, 0, time.UTC)
	good := MarketObservation{InstrumentID: "XYZ", Timestamp: ts, Bid: fp(10), Ask: fp(12)}
	if err := good.Validate(); err != nil {
		t.Fatalf("valid observation rejected: %v", err)
	}
	crossed := MarketObservation{InstrumentID: "XYZ", Timestamp: ts, Bid: fp(12), Ask: fp(10)}
	if err := crossed.Validate(); !errors.Is(err, ErrDataIntegrity) {
		t.Fatalf("expected integrity error for crossed quote, got %v", err)
	}
	negVol := MarketObservation{InstrumentID: "XYZ", Timestamp: ts, Volume: -1}
	if err := negVol.Validate(); !errors.Is(err, ErrDataIntegrity) {
		t.Fatalf("expected integrity error for negative volume, got %v", err)
	}
}

func TestSamePrices(t *testing.T) {
	a := MarketObservation{Bid: fp(10), Ask: fp(12)}
	b := MarketObservation{Bid: fp(10), Ask: fp(12)}
	if !a.SamePrices(b) {
		t.Fatal("identical prices reported as different")
	}
	b.Last = fp(11)
	if a.SamePrices(b) {
		t.Fatal("different prices reported as identical")
	}
}

func TestParseSide(t *testing.T) {
	cases := map[string]Side{
		"buy": SideBuy, "B": SideBuy, "1": SideBuy,
		"sell": SideSell, "S": SideSell, "2": SideSell,
	}
	for in, want := range cases {
		got, err := ParseSide(in)
		if err != nil || got != want {
			t.Errorf("ParseSide(%q) = %v, %v, want %v", in, got, err, want)
		}
	}
	if _, err := ParseSide("short"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestExecutionValidate(t *testing.T) {
	ts := time.Date(2023, 1, 1, 12, 0, 0, 0, time.UTC)
	base := Execution{ID: "e1", InstrumentID: "XYZ", Side: SideBuy, Quantity: 50, Price: 103, Timestamp: ts}
	if err := base.Validate(); err != nil {
		t.Fatalf("valid execution rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Execution)
	}{
		{"zero quantity", func(e *Execution) { e.Quantity = 0 }},
		{"negative price", func(e *Execution) { e.Price = -1 }},
		{"bad side", func(e *Execution) { e.Side = "short" }},
		{"empty id", func(e *Execution) { e.ID = "" }},
		{"zero timestamp", func(e *Execution) { e.Timestamp = time.Time{} }},
	}
	for _, c := range cases {
		e := base
		c.mutate(&e)
		if err := e.Validate(); !errors.Is(err, ErrValidation) {
			t.Errorf("%s: expected validation error, got %v", c.name, err)
		}
	}
}

func TestInstrumentValidate(t *testing.T) {
	good := Instrument{ID: "XYZ", Currency: "USD", Multiplier: 1, TickSize: 0.01}
	if err := good.Validate(); err != nil {
		t.Fatalf("valid instrument rejected: %v", err)
	}
	bad := Instrument{ID: "XYZ", Currency: "USD", Multiplier: 0, TickSize: 0.01}
	if err := bad.Validate(); !errors.Is(err, ErrDataIntegrity) {
		t.Fatalf("expected integrity error for zero multiplier, got %v", err)
	}
}
