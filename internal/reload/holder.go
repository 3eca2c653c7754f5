package reload

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/mark3labs/docsets/internal/docset"
)

// Snapshot is one published assembly result. Snapshots are never mutated
// after Store returns them.
type Snapshot struct {
	// Registry is nil when the configuration was disabled.
	Registry *docset.Registry
	Revision string
	LoadedAt time.Time
	Source   string
}

// Disabled reports whether the snapshot was built from a disabled tree.
func (s *Snapshot) Disabled() bool { return s.Registry == nil }

// Holder publishes the current Snapshot. Readers never observe a partially
// built registry: a new snapshot replaces the old one in a single store.
type Holder struct {
	current atomic.Pointer[Snapshot]
	now     func() time.Time
}

func NewHolder() *Holder {
	return &Holder{now: time.Now}
}

// Current returns the latest snapshot, or nil before the first Store.
func (h *Holder) Current() *Snapshot { return h.current.Load() }

// Store publishes reg under a fresh revision.
func (h *Holder) Store(reg *docset.Registry, source string) *Snapshot {
	snap := &Snapshot{
		Registry: reg,
		Revision: uuid.NewString(),
		LoadedAt: h.now().UTC(),
		Source:   source,
	}
	h.current.Store(snap)
	return snap
}
