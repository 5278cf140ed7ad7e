package handler

import (
	"net/http"
	"time"

	"github.com/riftline/tradecore/internal/domain"
	"github.com/riftline/tradecore/internal/executor"
)

// StateProvider is the capability the state handlers need from the Master
// Executor: enough to render the /api/v1/state snapshot and the
// /api/v1/strategies listing without exposing the executor's control
// surface (pause/reconcile) to HTTP callers.
type StateProvider interface {
	IsPaused() bool
	ActiveCount() int
	SolUSDPrice() float64
	StrategySnapshot() []executor.StrategyView
}

// StateHandler serves the core process snapshot endpoints SPEC_FULL.md §6
// and §6.1 name.
type StateHandler struct {
	executor StateProvider
}

// NewStateHandler creates a StateHandler.
func NewStateHandler(executor StateProvider) *StateHandler {
	return &StateHandler{executor: executor}
}

type strategyStateJSON struct {
	ID       string         `json:"id"`
	Weight   float64        `json:"weight"`
	Mode     domain.Mode    `json:"mode"`
	Params   map[string]any `json:"params"`
	IsActive bool           `json:"is_active"`
}

// GetState responds with {timestamp, is_paused, active_strategies_count,
// sol_usd_price, strategies[...]} per SPEC_FULL.md §6.
//
// GET /api/v1/state
func (h *StateHandler) GetState(w http.ResponseWriter, r *http.Request) {
	snapshot := h.executor.StrategySnapshot()
	strategies := make([]strategyStateJSON, 0, len(snapshot))
	for _, s := range snapshot {
		strategies = append(strategies, strategyStateJSON{
			ID: s.ID, Weight: s.Weight, Mode: s.Mode, Params: s.Params, IsActive: s.IsActive,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"timestamp":               time.Now().UTC().Unix(),
		"is_paused":               h.executor.IsPaused(),
		"active_strategies_count": h.executor.ActiveCount(),
		"sol_usd_price":           h.executor.SolUSDPrice(),
		"strategies":              strategies,
	})
}

// GetStrategies responds with each registered strategy id and its current
// allocation -- a dashboard convenience additive to GetState (SPEC_FULL.md
// §6.1).
//
// GET /api/v1/strategies
func (h *StateHandler) GetStrategies(w http.ResponseWriter, r *http.Request) {
	snapshot := h.executor.StrategySnapshot()
	strategies := make([]strategyStateJSON, 0, len(snapshot))
	for _, s := range snapshot {
		strategies = append(strategies, strategyStateJSON{
			ID: s.ID, Weight: s.Weight, Mode: s.Mode, Params: s.Params, IsActive: s.IsActive,
		})
	}
	writeJSON(w, http.StatusOK, strategies)
}
