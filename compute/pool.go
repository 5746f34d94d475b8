package compute

import (
	"errors"
	"fmt"
)

// bufPool hands out reusable slices and tracks which are in use so that
// leaked allocations can be found once work is done.
type bufPool[T any] struct {
	_ins      [][]T
	_acquired []bool
}

// Acquire returns a slice of length n, reusing a released slice when one
// is large enough. n must be positive.
func (bp *bufPool[T]) Acquire(n int) []T {
	for i, locked := range bp._acquired {
		if !locked && cap(bp._ins[i]) >= n {
			bp._acquired[i] = true
			bp._ins[i] = bp._ins[i][:n]
			return bp._ins[i]
		}
	}
	newSlice := make([]T, n)
	bp._ins = append(bp._ins, newSlice)
	bp._acquired = append(bp._acquired, true)
	return newSlice
}

// Release returns buf to the pool.
func (bp *bufPool[T]) Release(buf []T) error {
	if len(buf) == 0 {
		return errors.New("release of empty resource")
	}
	for i, instance := range bp._ins {
		if &instance[0] == &buf[0] {
			if !bp._acquired[i] {
				return errors.New("release of unacquired resource")
			}
			bp._acquired[i] = false
			return nil
		}
	}
	return errors.New("release of nonexistent resource")
}

// inUse returns the amount of acquired slices.
func (bp *bufPool[T]) inUse() (n int) {
	for _, locked := range bp._acquired {
		if locked {
			n++
		}
	}
	return n
}

func (bp *bufPool[T]) assertAllReleased() error {
	if n := bp.inUse(); n > 0 {
		return fmt.Errorf("%d locked %T resources found in bufPool.assertAllReleased, memory leak?", n, *new(T))
	}
	return nil
}
