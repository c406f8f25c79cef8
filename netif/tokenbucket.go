// Package netif models network interfaces and the token buckets that shape
// their traffic.
package netif

import (
	"fmt"

	"github.com/sarchlab/netsim/units"
)

// A TokenBucket limits throughput. Sending consumes tokens and a periodic
// refill adds a fixed quantum back, never beyond the capacity.
type TokenBucket struct {
	capacity  units.Bytes
	remaining units.Bytes
	refill    units.Bytes
}

// NewTokenBucket creates a full bucket.
func NewTokenBucket(capacity, refill units.Bytes) *TokenBucket {
	return &TokenBucket{
		capacity:  capacity,
		remaining: capacity,
		refill:    refill,
	}
}

// Capacity returns the maximum number of tokens the bucket holds.
func (b *TokenBucket) Capacity() units.Bytes {
	return b.capacity
}

// Remaining returns the number of tokens left.
func (b *TokenBucket) Remaining() units.Bytes {
	return b.remaining
}

// RefillQuantum returns the number of tokens added by one refill.
func (b *TokenBucket) RefillQuantum() units.Bytes {
	return b.refill
}

// Consume takes n tokens out of the bucket. The bucket saturates at zero.
func (b *TokenBucket) Consume(n units.Bytes) {
	if n >= b.remaining {
		b.remaining = 0
		return
	}

	b.remaining -= n
}

// Refill adds one quantum, capped at the capacity.
func (b *TokenBucket) Refill() {
	if b.capacity-b.remaining <= b.refill {
		b.remaining = b.capacity
		return
	}

	b.remaining += b.refill
}

// NeedsRefill tells if the bucket is below its capacity.
func (b *TokenBucket) NeedsRefill() bool {
	return b.remaining < b.capacity
}

// Admits tells if a packet of n bytes may leave now. A full bucket admits
// any packet so that packets larger than the capacity still get through.
func (b *TokenBucket) Admits(n units.Bytes) bool {
	return b.remaining >= n || b.remaining == b.capacity
}

func (b *TokenBucket) String() string {
	return fmt.Sprintf("%v/%v (+%v)", b.remaining, b.capacity, b.refill)
}
