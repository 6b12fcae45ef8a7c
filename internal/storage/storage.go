// Package storage defines the persistence interface and its implementations.
package storage

import (
	"context"

	"pfwatch/internal/model"
)

// Storage persists named filter definitions and watched listing ids.
type Storage interface {
	UpsertFilter(ctx context.Context, f *model.FilterDef) error
	GetFilter(ctx context.Context, name string) (*model.FilterDef, error)
	ListFilters(ctx context.Context) ([]model.FilterDef, error)
	ListEnabledFilters(ctx context.Context) ([]model.FilterDef, error)
	SetFilterEnabled(ctx context.Context, name string, enabled bool) error
	DeleteFilter(ctx context.Context, name string) error

	AddTarget(ctx context.Context, listingID int64) error
	RemoveTarget(ctx context.Context, listingID int64) error
	ListTargets(ctx context.Context) ([]int64, error)

	Close() error
}
