package domain

import (
	"testing"
	"time"
)

func TestMarketEventMarshalRoundTrip(t *testing.T) {
	original := MarketEvent{
		Type:      EventTypePrice,
		Token:     "0xabc",
		Timestamp: time.Now().UTC().Truncate(time.Second),
		Price:     &PriceTick{PriceUSD: 1.23, VolumeUSD: 4500},
	}

	data, err := MarshalEvent(original)
	if err != nil {
		t.Fatalf("MarshalEvent: %v", err)
	}

	got, err := UnmarshalEvent(data)
	if err != nil {
		t.Fatalf("UnmarshalEvent: %v", err)
	}
	if got.Type != original.Type || got.Token != original.Token {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, original)
	}
	if got.Price == nil || got.Price.PriceUSD != original.Price.PriceUSD {
		t.Fatalf("price payload lost in round trip: got %+v", got.Price)
	}
}

func TestUnmarshalEventInvalidJSON(t *testing.T) {
	if _, err := UnmarshalEvent([]byte("not json")); err == nil {
		t.Fatal("expected error for malformed payload")
	}
}

func TestIsStale(t *testing.T) {
	now := time.Now().UTC()
	cases := []struct {
		name  string
		event MarketEvent
		want  bool
	}{
		{"fresh price event", MarketEvent{Type: EventTypePrice, Timestamp: now.Add(-5 * time.Second)}, false},
		{"stale price event", MarketEvent{Type: EventTypePrice, Timestamp: now.Add(-31 * time.Second)}, true},
		{"exactly at bound is not stale", MarketEvent{Type: EventTypePrice, Timestamp: now.Add(-StalenessBound)}, false},
		{"heartbeat never stale", MarketEvent{Type: EventTypeHeartbeat, Timestamp: now.Add(-10 * time.Hour)}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.event.IsStale(now); got != tc.want {
				t.Errorf("IsStale() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestNormalizeTokenAddress(t *testing.T) {
	addr, err := NormalizeTokenAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if addr == "" {
		t.Fatal("expected non-empty normalized address")
	}

	if _, err := NormalizeTokenAddress("not-an-address"); err == nil {
		t.Fatal("expected error for invalid address")
	}

	empty, err := NormalizeTokenAddress("")
	if err != nil || empty != "" {
		t.Fatalf("empty input should pass through as empty, got %q, err %v", empty, err)
	}
}
