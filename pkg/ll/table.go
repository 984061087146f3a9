package ll

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrInUse   = errors.New("access address in use")
	ErrInvalid = errors.New("invalid access address")
)

// AddressTable tracks the access addresses owned by this device. Checking and
// inserting happen under one lock, so an address handed out by Allocate or
// accepted by Register cannot collide with a concurrent registration.
//
// Released addresses may be reused immediately.
type AddressTable struct {
	mu      sync.RWMutex
	byAddr  map[AccessAddress]uuid.UUID
	byOwner map[uuid.UUID]AccessAddress
}

func NewAddressTable() *AddressTable {
	return &AddressTable{
		byAddr:  make(map[AccessAddress]uuid.UUID),
		byOwner: make(map[uuid.UUID]AccessAddress),
	}
}

// Contains reports whether aa is registered. A nil table is empty.
func (t *AddressTable) Contains(aa AccessAddress) bool {
	if t == nil {
		return false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.byAddr[aa]
	return ok
}

func (t *AddressTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.byAddr)
}

// Lookup returns the address registered under handle.
func (t *AddressTable) Lookup(handle uuid.UUID) (AccessAddress, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	aa, ok := t.byOwner[handle]
	return aa, ok
}

// Register validates aa against the current contents and records it. The
// returned handle is used to release it.
func (t *AddressTable) Register(aa AccessAddress, codedPHY bool) (uuid.UUID, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	// t is locked; check the maps directly.
	switch r := Check(aa, lockedTable{t}, codedPHY); r {
	case RuleNone:
	case RuleInUse:
		return uuid.Nil, fmt.Errorf("%w: %v", ErrInUse, aa)
	default:
		return uuid.Nil, fmt.Errorf("%w: %v: %v", ErrInvalid, aa, r)
	}
	return t.insert(aa), nil
}

// Allocate generates a fresh access address and registers it in the same
// critical section.
func (t *AddressTable) Allocate(src EntropySource, codedPHY bool, maxAttempts uint32) (AccessAddress, uuid.UUID, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	aa, err := Generate(src, lockedTable{t}, codedPHY, maxAttempts)
	if err != nil {
		return 0, uuid.Nil, err
	}
	return aa, t.insert(aa), nil
}

// Release frees the address registered under handle.
func (t *AddressTable) Release(handle uuid.UUID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	aa, ok := t.byOwner[handle]
	if !ok {
		return false
	}
	delete(t.byOwner, handle)
	delete(t.byAddr, aa)
	zap.L().Debug("released access address", zap.Stringer("address", aa), zap.Stringer("handle", handle))
	return true
}

func (t *AddressTable) insert(aa AccessAddress) uuid.UUID {
	handle := uuid.New()
	t.byAddr[aa] = handle
	t.byOwner[handle] = aa
	zap.L().Debug("registered access address", zap.Stringer("address", aa), zap.Stringer("handle", handle))
	return handle
}

// lockedTable reads an AddressTable whose lock is already held.
type lockedTable struct {
	t *AddressTable
}

func (l lockedTable) Contains(aa AccessAddress) bool {
	_, ok := l.t.byAddr[aa]
	return ok
}
