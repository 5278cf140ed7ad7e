package domain

import "context"

// Strategy is the capability every trading strategy family implements. A
// fresh instance is constructed by the registry per allocation and lives for
// one allocation epoch's presence in the allocation set.
type Strategy interface {
	// ID returns a stable identifier, usually the allocation ID it was
	// constructed for.
	ID() string
	// Subscriptions returns the set of event types this strategy wants
	// routed to its mailbox.
	Subscriptions() []EventType
	// Init validates and applies params. Called once before OnEvent.
	Init(ctx context.Context, params map[string]any) error
	// OnEvent is called for every routed event in arrival order and returns
	// the strategy's decision.
	OnEvent(ctx context.Context, event MarketEvent) (StrategyAction, error)
}

// Constructor builds a fresh Strategy instance for the given allocation ID.
type Constructor func(id string) Strategy
