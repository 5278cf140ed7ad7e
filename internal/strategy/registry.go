// Package strategy provides the trading-strategy capability and a process-wide
// registry of strategy-family constructors, grounded on the teacher's
// internal/strategy/registry.go (side-table pattern, the idiomatic Go
// equivalent of original_source's inventory::iter static registration).
package strategy

import (
	"fmt"
	"sort"
	"sync"

	"github.com/riftline/tradecore/internal/domain"
)

// Registry is a named collection of strategy-family constructors. It is safe
// for concurrent use.
type Registry struct {
	mu           sync.RWMutex
	constructors map[string]domain.Constructor
}

// NewRegistry returns an empty, ready-to-use Registry.
func NewRegistry() *Registry {
	return &Registry{constructors: make(map[string]domain.Constructor)}
}

// Register adds a constructor under the given family name. A later call with
// the same name replaces the earlier one.
func (r *Registry) Register(family string, ctor domain.Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.constructors[family] = ctor
}

// Build constructs a fresh Strategy instance for id using the constructor
// registered under family. Returns domain.ErrUnknownStrategy if family is not
// registered.
func (r *Registry) Build(family, id string) (domain.Strategy, error) {
	r.mu.RLock()
	ctor, ok := r.constructors[family]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("strategy: family %q: %w", family, domain.ErrUnknownStrategy)
	}
	return ctor(id), nil
}

// Families returns the names of all registered families in sorted order.
func (r *Registry) Families() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.constructors))
	for n := range r.constructors {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// NewDefaultRegistry builds a Registry with every concrete strategy family
// named in SPEC_FULL.md §4.4 registered under its family name.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("momentum_5m", NewMomentum5m)
	r.Register("mean_revert_1h", NewMeanRevert1h)
	r.Register("social_buzz", NewSocialBuzz)
	r.Register("bridge_inflow", NewBridgeInflow)
	r.Register("liquidity_migration", NewLiquidityMigration)
	r.Register("korean_time_burst", NewKoreanTimeBurst)
	r.Register("dev_wallet_drain", NewDevWalletDrain)
	r.Register("rug_pull_sniffer", NewRugPullSniffer)
	r.Register("perp_basis_arb", NewPerpBasisArb)
	r.Register("airdrop_rotation", NewAirdropRotation)
	return r
}
