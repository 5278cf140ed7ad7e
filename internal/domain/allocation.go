package domain

import "encoding/json"

// Mode selects whether a strategy's signals are simulated or submitted to a
// live venue. Allocation mode is authoritative over any mode a strategy may
// suggest internally (see DESIGN.md Open Question decisions).
type Mode string

const (
	ModePaper Mode = "Paper"
	ModeLive  Mode = "Live"
)

// StrategySpec identifies a strategy instance and the parameters it should be
// initialized with. Identity is ID; Family selects the registry constructor.
type StrategySpec struct {
	ID     string         `json:"id"`
	Family string         `json:"family"`
	Params map[string]any `json:"params,omitempty"`
}

// StrategyAllocation is the Meta-Allocator's verdict for one strategy: the
// capital weight it should receive and whether it has graduated to live
// trading.
type StrategyAllocation struct {
	ID          string  `json:"id"`
	Weight      float64 `json:"weight"`
	SharpeRatio float64 `json:"sharpe_ratio"`
	Mode        Mode    `json:"mode"`
}

// AllocationSnapshot is the complete set of strategies and weights/modes
// published in a single Meta-Allocator epoch.
type AllocationSnapshot struct {
	Allocations []StrategyAllocation `json:"allocations"`
	EpochUnix   int64                `json:"epoch_unix"`
}

// MarshalStrategySpec serializes a StrategySpec for the strategy_registry_stream.
func MarshalStrategySpec(s StrategySpec) ([]byte, error) {
	return json.Marshal(s)
}

// UnmarshalStrategySpec parses a StrategySpec previously produced by
// MarshalStrategySpec.
func UnmarshalStrategySpec(data []byte) (StrategySpec, error) {
	var s StrategySpec
	if err := json.Unmarshal(data, &s); err != nil {
		return StrategySpec{}, err
	}
	return s, nil
}

// MarshalAllocationSnapshot serializes a snapshot for the active_allocations
// key and the allocations stream.
func MarshalAllocationSnapshot(s AllocationSnapshot) ([]byte, error) {
	return json.Marshal(s)
}

// UnmarshalAllocationSnapshot parses a snapshot previously produced by
// MarshalAllocationSnapshot.
func UnmarshalAllocationSnapshot(data []byte) (AllocationSnapshot, error) {
	var s AllocationSnapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return AllocationSnapshot{}, err
	}
	return s, nil
}
