package docking

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Pool bounds the number of engine processes running at once.  A single Pool
// is shared by every job of a process so that concurrent jobs compete for the
// same slots.
type Pool struct {
	sem   *semaphore.Weighted
	size  int
	inUse atomic.Int64
}

// NewPool returns a pool with size slots.  Sizes below one are raised to one.
func NewPool(size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{sem: semaphore.NewWeighted(int64(size)), size: size}
}

// Acquire blocks until a slot is free or ctx is done.
func (p *Pool) Acquire(ctx context.Context) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	p.inUse.Add(1)
	return nil
}

// Release frees a slot obtained by Acquire.
func (p *Pool) Release() {
	p.inUse.Add(-1)
	p.sem.Release(1)
}

// Size returns the number of slots.
func (p *Pool) Size() int { return p.size }

// InUse returns the number of slots currently held.
func (p *Pool) InUse() int { return int(p.inUse.Load()) }

//Personal.AI order the ending
