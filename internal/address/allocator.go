// Package address hands out global addresses. Component addresses are
// reserved before the component exists so its own address can appear in the
// rules of the resources it creates.
package address

import (
	"context"
	"sync"
	"sync/atomic"

	"badgeissuer/pkg/domain"
	dErrors "badgeissuer/pkg/domain-errors"
)

// Allocator issues unique addresses for the lifetime of the process.
type Allocator struct {
	mu       sync.Mutex
	reserved map[domain.ComponentAddress]struct{}
}

// NewAllocator creates an empty allocator.
func NewAllocator() *Allocator {
	return &Allocator{reserved: make(map[domain.ComponentAddress]struct{})}
}

// Reservation is a component address waiting to be bound to a published
// component. It can be bound exactly once.
type Reservation struct {
	address   domain.ComponentAddress
	allocator *Allocator
	used      atomic.Bool
}

// Address is known before binding.
func (r *Reservation) Address() domain.ComponentAddress {
	return r.address
}

// Reserve allocates a component address that no other reservation holds.
func (a *Allocator) Reserve(ctx context.Context) (*Reservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	for {
		addr := domain.NewComponentAddress()
		if _, taken := a.reserved[addr]; taken {
			continue
		}
		a.reserved[addr] = struct{}{}
		return &Reservation{address: addr, allocator: a}, nil
	}
}

// NewResourceAddress allocates a resource address.
func (a *Allocator) NewResourceAddress() domain.ResourceAddress {
	return domain.NewResourceAddress()
}

// Bind consumes the reservation, calling publish with its address. A failed
// publish leaves the reservation unused so setup can be retried.
func (r *Reservation) Bind(publish func(domain.ComponentAddress) error) error {
	if !r.used.CompareAndSwap(false, true) {
		return dErrors.New(dErrors.CodeInvalidState, "address reservation already used")
	}
	if err := publish(r.address); err != nil {
		r.used.Store(false)
		return err
	}
	return nil
}

// Bound reports whether Bind succeeded.
func (r *Reservation) Bound() bool {
	return r.used.Load()
}

// Release returns an unbound reservation to the allocator. Releasing a bound
// reservation is a no-op.
func (r *Reservation) Release() {
	if r.used.Load() {
		return
	}
	r.allocator.mu.Lock()
	delete(r.allocator.reserved, r.address)
	r.allocator.mu.Unlock()
}

// Reserved reports how many addresses are currently held.
func (a *Allocator) Reserved() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.reserved)
}
