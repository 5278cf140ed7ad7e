package domain

import (
	"context"
	"time"
)

// PriceCache is the last-writer-wins token->price mapping shared by the
// Master Executor (quote sizing) and the Position Manager (trailing-stop
// control loop).
type PriceCache interface {
	SetPrice(ctx context.Context, token string, price float64, ts time.Time) error
	GetPrice(ctx context.Context, token string) (float64, time.Time, error)
	GetPrices(ctx context.Context, tokens []string) (map[string]float64, error)
}
