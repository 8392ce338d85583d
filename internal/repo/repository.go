package repo

import (
	"context"
	"errors"
	"time"

	"sitewatch/internal/domain"
)

// ErrNotFound is returned by Get/Update/Delete when no target has the id.
var ErrNotFound = errors.New("target not found")

// Ports (interfaces) — swap in any DB adapter later.
type TargetStore interface {
	Add(ctx context.Context, t *domain.Target) error
	List(ctx context.Context) ([]*domain.Target, error)
	Get(ctx context.Context, id domain.TargetID) (*domain.Target, error)
	GetByAddress(ctx context.Context, addr string) (*domain.Target, error)
	// Update applies the non-nil fields of u; everything else keeps its
	// stored value.
	Update(ctx context.Context, id domain.TargetID, u domain.TargetUpdate) error
	// Put persists the user-owned fields (name, category, threshold,
	// notification prefs) of an existing target.
	Put(ctx context.Context, t *domain.Target) error
	// Delete removes the target and cascades to its history.
	Delete(ctx context.Context, id domain.TargetID) error
}

type HistoryStore interface {
	Append(ctx context.Context, r *domain.HistoryRecord) error
	// Since returns the target's records with Timestamp >= since, oldest
	// first.
	Since(ctx context.Context, id domain.TargetID, since time.Time) ([]domain.HistoryRecord, error)
	DeleteByTarget(ctx context.Context, id domain.TargetID) error
}
