// Package event implements the bounded event queue that carries gamepad traffic
// from the channel listeners to a single consumer, backed by a fixed pool of
// pre-allocated payload blocks.
package event

import (
	"errors"
	"fmt"
	"sync/atomic"
)

// BlockSize is the fixed capacity of every arena block in bytes.
const BlockSize = 65536

var (
	// ErrDoubleRelease is returned when a block that is not checked out is released.
	ErrDoubleRelease = errors.New("block released twice")
	// ErrForeignBlock is returned when a block is released to an arena it does not belong to.
	ErrForeignBlock = errors.New("block does not belong to this arena")
)

// Block is a fixed-size payload buffer lent out by an Arena.
type Block struct {
	buf   []byte
	owner *Arena
	out   atomic.Bool
}

// Bytes returns the full backing buffer of the block.
func (b *Block) Bytes() []byte { return b.buf }

// Arena is a fixed pool of equally sized blocks. The free list is a buffered
// channel, so Checkout and Release never block and are safe for concurrent use.
type Arena struct {
	blocks []*Block
	free   chan *Block
}

// NewArena allocates size blocks of BlockSize bytes up front.
func NewArena(size int) *Arena {
	if size <= 0 {
		size = 1
	}
	a := &Arena{
		blocks: make([]*Block, size),
		free:   make(chan *Block, size),
	}
	backing := make([]byte, size*BlockSize)
	for i := range a.blocks {
		b := &Block{buf: backing[i*BlockSize : (i+1)*BlockSize : (i+1)*BlockSize], owner: a}
		a.blocks[i] = b
		a.free <- b
	}
	return a
}

// Checkout takes an available block. ok is false when the arena is exhausted;
// callers treat that as an out-of-memory condition.
func (a *Arena) Checkout() (b *Block, ok bool) {
	select {
	case b = <-a.free:
		b.out.Store(true)
		return b, true
	default:
		return nil, false
	}
}

// Release hands a checked-out block back to the arena.
func (a *Arena) Release(b *Block) error {
	if b == nil {
		return nil
	}
	if b.owner != a {
		return ErrForeignBlock
	}
	if !b.out.CompareAndSwap(true, false) {
		return ErrDoubleRelease
	}
	select {
	case a.free <- b:
		return nil
	default:
		// Unreachable while the out flag guards every return.
		return fmt.Errorf("arena free list full: %w", ErrDoubleRelease)
	}
}

// Size returns the total number of blocks owned by the arena.
func (a *Arena) Size() int { return len(a.blocks) }

// Available returns the number of blocks ready for checkout.
func (a *Arena) Available() int { return len(a.free) }

// Outstanding returns the number of blocks currently checked out.
func (a *Arena) Outstanding() int { return len(a.blocks) - len(a.free) }
