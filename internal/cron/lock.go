package cron

import (
	"context"

	"gorm.io/gorm"
)

// Lock keeps a single cron worker instance running jobs at a time.
// *redis.Mutex satisfies it.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}
