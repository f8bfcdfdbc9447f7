package config

import "sync/atomic"

// Holder publishes the current Snapshot. Readers call Load and keep the
// returned copy for the duration of one operation; Swap is the only setter.
type Holder struct {
	current atomic.Pointer[Snapshot]
}

// NewHolder publishes initial as version 1.
func NewHolder(initial Snapshot) *Holder {
	h := &Holder{}
	initial.Version = 1
	h.current.Store(&initial)
	return h
}

// Load returns the current snapshot.
func (h *Holder) Load() Snapshot {
	return *h.current.Load()
}

// Swap validates next and publishes it with the following version number.
// The previous snapshot is returned.
func (h *Holder) Swap(next Snapshot) (Snapshot, error) {
	if err := next.Validate(); err != nil {
		return Snapshot{}, err
	}
	for {
		prev := h.current.Load()
		candidate := next
		candidate.Version = prev.Version + 1
		if h.current.CompareAndSwap(prev, &candidate) {
			return *prev, nil
		}
	}
}
