package rvp

import "github.com/ipandis/dorakit/pkg/pool"

// NewPool builds a pool.Pool[Point] pre-warmed with warmCount points.
// Giveback's reset just clears the continuation and counters; callers
// re-initialize a borrowed Point with Reset's full argument list before
// use, the same two-step borrow/initialize pattern pkg/action follows.
func NewPool(warmCount int) *pool.Pool[Point] {
	return pool.New(warmCount, func() *Point { return &Point{} }, func(p *Point) {
		p.Reset("", Midway, 0, nil)
	})
}
