package domain

import "testing"

func TestAllocationSnapshotRoundTrip(t *testing.T) {
	snap := AllocationSnapshot{
		Allocations: []StrategyAllocation{
			{ID: "momentum_5m-1", Weight: 0.6, SharpeRatio: 1.8, Mode: ModeLive},
			{ID: "mean_revert_1h-1", Weight: 0.4, SharpeRatio: 0.2, Mode: ModePaper},
		},
		EpochUnix: 1700000000,
	}

	data, err := MarshalAllocationSnapshot(snap)
	if err != nil {
		t.Fatalf("MarshalAllocationSnapshot: %v", err)
	}
	got, err := UnmarshalAllocationSnapshot(data)
	if err != nil {
		t.Fatalf("UnmarshalAllocationSnapshot: %v", err)
	}
	if len(got.Allocations) != len(snap.Allocations) {
		t.Fatalf("allocation count mismatch: got %d, want %d", len(got.Allocations), len(snap.Allocations))
	}
	if got.Allocations[0].Mode != ModeLive {
		t.Errorf("mode lost in round trip: got %q", got.Allocations[0].Mode)
	}
}

func TestStrategySpecRoundTrip(t *testing.T) {
	spec := StrategySpec{ID: "x-1", Family: "momentum_5m", Params: map[string]any{"window_len": 30.0}}
	data, err := MarshalStrategySpec(spec)
	if err != nil {
		t.Fatalf("MarshalStrategySpec: %v", err)
	}
	got, err := UnmarshalStrategySpec(data)
	if err != nil {
		t.Fatalf("UnmarshalStrategySpec: %v", err)
	}
	if got.ID != spec.ID || got.Family != spec.Family {
		t.Fatalf("round trip mismatch: got %+v", got)
	}
}
