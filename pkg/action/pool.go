package action

import "github.com/ipandis/dorakit/pkg/pool"

// NewPool creates an Action free list pre-warmed with warmCount
// objects, per §4.1's object pool contract.
func NewPool(warmCount int) *pool.Pool[Action] {
	return pool.New(warmCount, New, Reset)
}
