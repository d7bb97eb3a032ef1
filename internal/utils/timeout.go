package utils

import (
	"context"
	"time"
)

// DefaultDBTimeout bounds every single statement; multi-statement catalog
// transactions get the larger budget.
const (
	DefaultDBTimeout = 5 * time.Second
	DefaultTxTimeout = 15 * time.Second
)

func WithDBTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, DefaultDBTimeout)
}

func WithTxTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, DefaultTxTimeout)
}
