// Package counter defines the durable sequence counter contract.
// Exactly one counter row exists per (series, year) pair; its value is the
// sole source of sequence numbers and never decreases.
package counter

import (
	"context"

	"protocolo/internal/core/id"
)

// Block is a contiguous range of reserved sequence values, inclusive on both
// ends. End = Start + count - 1.
type Block struct {
	Start int64
	End   int64
}

// Store is the durable per-(series, year) monotonic counter.
//
// ReserveBlock must behave as a single atomic unit with row-level exclusivity
// on the (series, year) counter: two concurrent reservations observe
// non-overlapping, gap-free blocks in some serial order. Reservations for
// different (series, year) pairs must not block each other.
type Store interface {
	// ReserveBlock advances the counter by count and returns the reserved
	// range. The counter row is created at zero if absent, under the same
	// atomic scope.
	ReserveBlock(ctx context.Context, seriesID id.ID, year int, count int) (Block, error)

	// Provision creates the counter row at zero if it does not exist.
	// Called when a series is created so the first allocation never races
	// row creation against a concurrent reservation.
	Provision(ctx context.Context, seriesID id.ID, year int) error

	// Current returns the counter's current value without mutating it.
	// Returns 0 when no row exists yet.
	Current(ctx context.Context, seriesID id.ID, year int) (int64, error)
}
